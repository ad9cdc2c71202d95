// Package migrations holds the migration catalog and the entry points it
// refers to.
package migrations

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/bianoble/plugin-migrate/internal/snapshot"
)

// Func is a migration entry point. It receives the snapshot to edit and
// returns the snapshot the manager should flush, usually the same one.
type Func func(ctx context.Context, snap *snapshot.Snapshot, logger *slog.Logger) (*snapshot.Snapshot, error)

// Meta describes one catalog entry.
type Meta struct {
	Name        string
	Version     string
	Description string
	EntryPoint  string
}

// Validate checks a single entry's fields.
func (m Meta) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required),
		validation.Field(&m.Version, validation.Required, is.Semver),
		validation.Field(&m.Description, validation.Required),
		validation.Field(&m.EntryPoint, validation.Required),
	)
}

// Registry maps entry point ids to implementations.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds fn under id, replacing any earlier registration.
func (r *Registry) Register(id string, fn Func) {
	r.funcs[id] = fn
}

// Get returns the entry point registered under id.
func (r *Registry) Get(id string) (Func, error) {
	fn, ok := r.funcs[id]
	if !ok {
		return nil, fmt.Errorf("unknown migration entry point '%s' (registered: %s)", id, r.registered())
	}
	return fn, nil
}

func (r *Registry) registered() string {
	ids := make([]string, 0, len(r.funcs))
	for id := range r.funcs {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return "none"
	}
	sort.Strings(ids)
	return strings.Join(ids, ", ")
}

// ValidationError collects catalog problems.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid migration catalog:\n  - " + strings.Join(e.Errors, "\n  - ")
}

// ValidateCatalog checks entry fields, name uniqueness and that every
// entry point is registered.
func ValidateCatalog(catalog []Meta, reg *Registry) error {
	var errs []string
	seen := make(map[string]bool, len(catalog))
	for i, m := range catalog {
		if err := m.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("migrations[%d] (%s): %v", i, m.Name, err))
		}
		if seen[m.Name] {
			errs = append(errs, fmt.Sprintf("migrations[%d]: duplicate name '%s'", i, m.Name))
		}
		seen[m.Name] = true
		if _, err := reg.Get(m.EntryPoint); err != nil {
			errs = append(errs, fmt.Sprintf("migrations[%d] (%s): %v", i, m.Name, err))
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// Find returns the catalog entry with the given name.
func Find(catalog []Meta, name string) (Meta, bool) {
	for _, m := range catalog {
		if m.Name == name {
			return m, true
		}
	}
	return Meta{}, false
}
