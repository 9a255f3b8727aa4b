// Package geometry materializes per-trial copies of the shared base
// geometry description and applies structural parameter edits to them.
// The shared base files are never mutated: every edit is confined to a
// tag-qualified copy.
package geometry

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aid2e/pipeline-core/pkg/config"
	"github.com/aid2e/pipeline-core/pkg/logger"
)

// MaterializationRaceError reports that an atomic create-if-absent of a
// trial artifact could not be guaranteed by the platform.
type MaterializationRaceError struct {
	Target string
	Err    error
}

func (e *MaterializationRaceError) Error() string {
	return fmt.Sprintf("cannot guarantee atomic creation of %s: %v", e.Target, e.Err)
}

func (e *MaterializationRaceError) Unwrap() error { return e.Err }

// Materializer produces per-trial copies of compact geometry files and
// the top-level detector configuration.
type Materializer struct {
	detPath   string
	detConfig string
}

// NewMaterializer creates a materializer over the detector install
// described by the run configuration.
func NewMaterializer(run *config.RunConfig) *Materializer {
	return &Materializer{
		detPath:   run.DetPath,
		detConfig: run.DetConfig,
	}
}

// TaggedPath derives the deterministic per-trial path for a base file:
// the tag is inserted before the extension.
func TaggedPath(base, tag string) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_" + tag + ext
}

// MaterializeCompact ensures the tag-qualified copy of a compact file
// exists and returns its path. An existing copy is returned unchanged:
// materialization is idempotent and happens at most once per tag.
func (m *Materializer) MaterializeCompact(compact, tag string) (string, error) {
	return m.materialize(filepath.Join(m.detPath, compact), tag)
}

// MaterializeConfig applies the same idempotent-create policy to the
// top-level detector configuration file referencing the compacts.
func (m *Materializer) MaterializeConfig(tag string) (string, error) {
	return m.materialize(filepath.Join(m.detPath, m.detConfig+".xml"), tag)
}

// ConfigName returns the tag-qualified detector config name (no
// directory, no extension), the value exported as the detector-config
// selector in generated scripts.
func (m *Materializer) ConfigName(tag string) string {
	return m.detConfig + "_" + tag
}

func (m *Materializer) materialize(base, tag string) (string, error) {
	target := TaggedPath(base, tag)
	created, err := copyIfAbsent(base, target)
	if err != nil {
		return "", err
	}
	if created {
		logger.Debug("materialized geometry artifact", "base", base, "tag", tag, "target", target)
	}
	return target, nil
}

// copyIfAbsent copies src to dst unless dst already exists. The copy is
// written to a temporary file and published with os.Link, so concurrent
// callers for the same target can never interleave writes: exactly one
// link wins and the rest observe the existing file.
func copyIfAbsent(src, dst string) (bool, error) {
	if _, err := os.Stat(dst); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to stat %s: %w", dst, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return false, fmt.Errorf("failed to open base file %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat base file %s: %w", src, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp-*")
	if err != nil {
		return false, fmt.Errorf("failed to create temp copy for %s: %w", dst, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return false, fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return false, fmt.Errorf("failed to set mode on copy of %s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("failed to finish copy of %s: %w", src, err)
	}

	if err := os.Link(tmpName, dst); err != nil {
		if errors.Is(err, fs.ErrExist) {
			// Another trial published the same target first; reuse it.
			return false, nil
		}
		return false, &MaterializationRaceError{Target: dst, Err: err}
	}
	return true, nil
}
