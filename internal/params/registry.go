// Package params resolves named design parameters to their structural
// location in the geometry description and expands templated parameter
// families into concrete per-instance entries.
package params

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aid2e/pipeline-core/pkg/config"
)

// Placeholder marks the repeated-instance position in a templated
// parameter family name (and, when present, in its structural path).
const Placeholder = "_fill_"

// Kind distinguishes numeric parameters from boolean enable flags.
type Kind string

const (
	KindNumber Kind = "number"
	KindFlag   Kind = "flag"
)

// DesignParameter identifies one editable quantity: where it lives in the
// geometry description and how its value is formatted.
type DesignParameter struct {
	Name      string
	Compact   string
	Path      string
	Attribute string
	Unit      string
	Kind      Kind
}

// ParameterNotFoundError reports a lookup of a parameter absent from the
// parameter configuration. This must surface clearly: a silent
// wrong-parameter edit is worse than a crash.
type ParameterNotFoundError struct {
	Name string
}

func (e *ParameterNotFoundError) Error() string {
	return fmt.Sprintf("parameter %q not found in parameter configuration", e.Name)
}

// RangeNotFoundError reports a templated instance with no entry in the
// range table, neither instance-specific nor family fallback.
type RangeNotFoundError struct {
	Name   string
	Family string
}

func (e *RangeNotFoundError) Error() string {
	return fmt.Sprintf("no range for parameter %q (family %q)", e.Name, e.Family)
}

// Registry resolves design parameters from a parameter configuration.
type Registry struct {
	specs map[string]config.ParameterSpec
}

// NewRegistry builds a registry over the given parameter configuration.
func NewRegistry(cfg *config.ParamConfig) *Registry {
	specs := make(map[string]config.ParameterSpec, len(cfg.Parameters))
	for name, spec := range cfg.Parameters {
		specs[name] = spec
	}
	return &Registry{specs: specs}
}

// Resolve looks up a parameter by name. Concrete entries win; otherwise
// templated families are searched for an instance whose substituted name
// matches, with the instance index substituted into the structural path
// as well.
func (r *Registry) Resolve(name string) (DesignParameter, error) {
	if spec, ok := r.specs[name]; ok && spec.Instances == 0 {
		return toParameter(name, spec), nil
	}
	for family, spec := range r.specs {
		if spec.Instances <= 0 {
			continue
		}
		for i := 1; i <= spec.Instances; i++ {
			if Instantiate(family, i) != name {
				continue
			}
			inst := spec
			inst.Path = Instantiate(spec.Path, i)
			return toParameter(name, inst), nil
		}
	}
	return DesignParameter{}, &ParameterNotFoundError{Name: name}
}

// PathElementAndUnit decomposes a parameter into the triple needed to
// perform a structural edit.
func PathElementAndUnit(p DesignParameter) (path, attribute, unit string) {
	return p.Path, p.Attribute, p.Unit
}

// Instantiate substitutes an instance index for the family placeholder.
func Instantiate(templated string, index int) string {
	return strings.ReplaceAll(templated, Placeholder, strconv.Itoa(index))
}

// ExpandTemplated expands every templated family into per-instance range
// entries. An instance-specific entry in the range table wins; the
// family's own entry is the fallback; no entry anywhere is an error.
func ExpandTemplated(families map[string]int, ranges map[string][]float64) (map[string][]float64, error) {
	expanded := make(map[string][]float64)
	for family, count := range families {
		for i := 1; i <= count; i++ {
			name := Instantiate(family, i)
			if rng, ok := ranges[name]; ok {
				expanded[name] = rng
				continue
			}
			if rng, ok := ranges[family]; ok {
				expanded[name] = rng
				continue
			}
			return nil, &RangeNotFoundError{Name: name, Family: family}
		}
	}
	return expanded, nil
}

// Names lists every concrete parameter name the registry can resolve,
// with templated families expanded, in sorted order.
func (r *Registry) Names() []string {
	var names []string
	for name, spec := range r.specs {
		if spec.Instances > 0 {
			for i := 1; i <= spec.Instances; i++ {
				names = append(names, Instantiate(name, i))
			}
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func toParameter(name string, spec config.ParameterSpec) DesignParameter {
	kind := KindNumber
	if spec.Kind == "flag" {
		kind = KindFlag
	}
	return DesignParameter{
		Name:      name,
		Compact:   spec.Compact,
		Path:      spec.Path,
		Attribute: spec.Attribute,
		Unit:      spec.Units,
		Kind:      kind,
	}
}
