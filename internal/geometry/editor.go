package geometry

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/beevik/etree"

	"github.com/aid2e/pipeline-core/internal/params"
	"github.com/aid2e/pipeline-core/pkg/logger"
)

// StructuralPathNotFoundError reports a structural path that does not
// resolve within a geometry document. Edits are never defaulted: a
// silent wrong-parameter edit would corrupt the trial.
type StructuralPathNotFoundError struct {
	Path string
	File string
}

func (e *StructuralPathNotFoundError) Error() string {
	return fmt.Sprintf("structural path %q not found in %s", e.Path, e.File)
}

// FormatValue renders a parameter value the way the geometry description
// expects it: "<value>*<unit>" when a unit is present, the bare value
// otherwise. Flag parameters render as integers.
func FormatValue(param params.DesignParameter, value float64) string {
	var v string
	if param.Kind == params.KindFlag {
		v = strconv.Itoa(int(value))
	} else {
		v = strconv.FormatFloat(value, 'g', -1, 64)
	}
	if param.Unit != "" {
		return v + "*" + param.Unit
	}
	return v
}

// EditParameter locates the parameter's structural path in the trial's
// materialized document and sets the target attribute to the formatted
// value, writing the document back in place. The side effect is confined
// to the tag-qualified artifact.
func EditParameter(artifactPath string, param params.DesignParameter, value float64) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(artifactPath); err != nil {
		return fmt.Errorf("failed to parse geometry document %s: %w", artifactPath, err)
	}

	elem := doc.FindElement(param.Path)
	if elem == nil {
		return &StructuralPathNotFoundError{Path: param.Path, File: artifactPath}
	}
	formatted := FormatValue(param, value)
	elem.CreateAttr(param.Attribute, formatted)

	if err := doc.WriteToFile(artifactPath); err != nil {
		return fmt.Errorf("failed to write geometry document %s: %w", artifactPath, err)
	}
	logger.Debug("edited geometry parameter",
		"file", artifactPath, "parameter", param.Name, "value", formatted)
	return nil
}

// RetargetCompactReference repoints the materialized detector config's
// include reference for the given compact file at its tag-qualified copy.
// Already-retargeted references are left alone, so repeated calls for
// parameters sharing a compact are harmless.
func RetargetCompactReference(configPath, compact, tag string) error {
	baseName := filepath.Base(compact)
	taggedName := filepath.Base(TaggedPath(compact, tag))

	doc := etree.NewDocument()
	if err := doc.ReadFromFile(configPath); err != nil {
		return fmt.Errorf("failed to parse detector config %s: %w", configPath, err)
	}

	retargeted := false
	for _, include := range doc.FindElements("//include") {
		ref := include.SelectAttrValue("ref", "")
		if ref == "" {
			continue
		}
		switch filepath.Base(ref) {
		case taggedName:
			// Reference already points at this trial's copy.
			retargeted = true
		case baseName:
			dir := filepath.Dir(ref)
			if dir == "." {
				include.CreateAttr("ref", taggedName)
			} else {
				include.CreateAttr("ref", filepath.Join(dir, taggedName))
			}
			retargeted = true
		}
	}
	if !retargeted {
		return &StructuralPathNotFoundError{
			Path: fmt.Sprintf("//include[@ref=%q]", compact),
			File: configPath,
		}
	}

	if err := doc.WriteToFile(configPath); err != nil {
		return fmt.Errorf("failed to write detector config %s: %w", configPath, err)
	}
	return nil
}
