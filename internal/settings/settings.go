// Package settings reads and writes the project's scaffolding settings
// file, which records the framework version the project was last migrated
// to.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/bianoble/plugin-migrate/internal/jsondoc"
	"github.com/bianoble/plugin-migrate/internal/sandbox"
)

// DefaultPath is the settings file relative to the project root.
const DefaultPath = ".config/.cprc.json"

// Settings holds the recorded version. Other fields in the file are kept
// as they were when the file is saved.
type Settings struct {
	Version string

	doc *jsondoc.Object
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("settings validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Load reads the settings file below root. A missing file yields empty
// settings with no recorded version.
func Load(root, relPath string) (*Settings, error) {
	data, err := sandbox.SafeRead(root, filepath.FromSlash(relPath))
	if errors.Is(err, fs.ErrNotExist) {
		return &Settings{doc: jsondoc.NewObject()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings %s: %w", relPath, err)
	}

	doc, err := jsondoc.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", relPath, err)
	}
	s := &Settings{doc: doc}
	if raw, ok := doc.Get("version"); ok {
		v, isString := raw.(string)
		if !isString {
			return nil, &ValidationError{Errors: []string{"'version' must be a string"}}
		}
		s.Version = v
	}

	if errs := Validate(s); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return s, nil
}

// Save writes the settings back below root atomically.
func Save(root, relPath string, s *Settings) error {
	if errs := Validate(s); len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	doc := s.doc
	if doc == nil {
		doc = jsondoc.NewObject()
	}
	doc.Set("version", s.Version)

	data, err := jsondoc.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := sandbox.SafeWrite(root, filepath.FromSlash(relPath), data, 0o644); err != nil {
		return fmt.Errorf("writing settings %s: %w", relPath, err)
	}
	s.doc = doc
	return nil
}

// Validate checks the settings for semantic correctness.
func Validate(s *Settings) []string {
	var errs []string
	if err := validation.Validate(s.Version, is.Semver); err != nil {
		errs = append(errs, fmt.Sprintf("'version' %q: %v", s.Version, err))
	}
	return errs
}
