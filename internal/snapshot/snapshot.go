// Package snapshot provides an in-memory overlay of file additions, updates
// and deletions against a project directory. Nothing touches disk until Flush.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
)

// ErrAlreadyExists is returned by AddFile when the path is already visible.
var ErrAlreadyExists = errors.New("file already exists")

// Kind classifies a pending change.
type Kind string

const (
	Added   Kind = "added"
	Updated Kind = "updated"
	Deleted Kind = "deleted"
)

// Change is the pending record for a single path.
type Change struct {
	Path    string
	Kind    Kind
	Content []byte // nil for Deleted
}

// Snapshot tracks pending changes keyed by project-relative path. Reads of
// untracked paths fall through to the base provider lazily.
type Snapshot struct {
	base    Provider
	changes map[string]Change
}

// New creates an empty snapshot over base.
func New(base Provider) *Snapshot {
	return &Snapshot{base: base, changes: make(map[string]Change)}
}

// AddFile records a new file. It fails if the path is already visible,
// either as a pending add/update or on the base provider.
func (s *Snapshot) AddFile(relPath string, content []byte) error {
	p := Clean(relPath)
	if c, ok := s.changes[p]; ok {
		if c.Kind != Deleted {
			return fmt.Errorf("adding %s: %w", p, ErrAlreadyExists)
		}
		s.changes[p] = Change{Path: p, Kind: Added, Content: clone(content)}
		return nil
	}
	if s.baseExists(p) {
		return fmt.Errorf("adding %s: %w", p, ErrAlreadyExists)
	}
	s.changes[p] = Change{Path: p, Kind: Added, Content: clone(content)}
	return nil
}

// UpdateFile sets the content of a path whether or not it exists. Writing
// the content that is already visible leaves the change set untouched, and
// writing the base content back onto an updated path drops the record.
func (s *Snapshot) UpdateFile(relPath string, content []byte) error {
	p := Clean(relPath)
	current, visible := s.GetFile(p)
	if visible && bytes.Equal(current, content) {
		return nil
	}

	c, tracked := s.changes[p]
	switch {
	case tracked && c.Kind == Added:
		s.changes[p] = Change{Path: p, Kind: Added, Content: clone(content)}
		return nil
	case tracked && c.Kind == Updated:
		base, err := s.readBase(p)
		if err == nil && bytes.Equal(base, content) {
			delete(s.changes, p)
			return nil
		}
	}

	kind := Updated
	if !s.baseExists(p) {
		kind = Added
	}
	s.changes[p] = Change{Path: p, Kind: kind, Content: clone(content)}
	return nil
}

// DeleteFile removes a path. Deleting a pending addition discards it;
// deleting a path that exists nowhere is a no-op.
func (s *Snapshot) DeleteFile(relPath string) {
	p := Clean(relPath)
	if c, ok := s.changes[p]; ok && c.Kind == Deleted {
		return
	}
	if !s.baseExists(p) {
		delete(s.changes, p)
		return
	}
	s.changes[p] = Change{Path: p, Kind: Deleted}
}

// RenameFile moves content from one path to another.
func (s *Snapshot) RenameFile(from, to string) error {
	content, ok := s.GetFile(from)
	if !ok {
		return fmt.Errorf("renaming %s: file does not exist", from)
	}
	if err := s.AddFile(to, content); err != nil {
		return err
	}
	s.DeleteFile(from)
	return nil
}

// GetFile returns the visible content of a path: the pending record if one
// exists, otherwise the base provider's content.
func (s *Snapshot) GetFile(relPath string) ([]byte, bool) {
	p := Clean(relPath)
	if c, ok := s.changes[p]; ok {
		if c.Kind == Deleted {
			return nil, false
		}
		return clone(c.Content), true
	}
	data, err := s.readBase(p)
	if err != nil {
		return nil, false
	}
	return data, true
}

// DoesFileExist reports whether a path is visible through the snapshot.
func (s *Snapshot) DoesFileExist(relPath string) bool {
	p := Clean(relPath)
	if c, ok := s.changes[p]; ok {
		return c.Kind != Deleted
	}
	return s.baseExists(p)
}

// ReadFile implements Provider so snapshots can be chained in previews.
func (s *Snapshot) ReadFile(relPath string) ([]byte, error) {
	data, ok := s.GetFile(relPath)
	if !ok {
		return nil, notExist(relPath)
	}
	return data, nil
}

// ListChanges returns a copy of the full change map.
func (s *Snapshot) ListChanges() map[string]Change {
	out := make(map[string]Change, len(s.changes))
	for p, c := range s.changes {
		c.Content = clone(c.Content)
		out[p] = c
	}
	return out
}

// Paths returns the changed paths in sorted order.
func (s *Snapshot) Paths() []string {
	out := make([]string, 0, len(s.changes))
	for p := range s.changes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// HasChanges reports whether any change is pending.
func (s *Snapshot) HasChanges() bool {
	return len(s.changes) > 0
}

// Touched returns the added and updated paths in sorted order.
func (s *Snapshot) Touched() []string {
	var out []string
	for _, p := range s.Paths() {
		if s.changes[p].Kind != Deleted {
			out = append(out, p)
		}
	}
	return out
}

// Base returns the provider this snapshot overlays.
func (s *Snapshot) Base() Provider {
	return s.base
}

// ordered returns changes grouped add, update, delete; sorted within groups.
func (s *Snapshot) ordered() []Change {
	rank := map[Kind]int{Added: 0, Updated: 1, Deleted: 2}
	out := make([]Change, 0, len(s.changes))
	for _, p := range s.Paths() {
		out = append(out, s.changes[p])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return rank[out[i].Kind] < rank[out[j].Kind]
	})
	return out
}

func (s *Snapshot) readBase(p string) ([]byte, error) {
	if s.base == nil {
		return nil, notExist(p)
	}
	return s.base.ReadFile(p)
}

func (s *Snapshot) baseExists(p string) bool {
	_, err := s.readBase(p)
	return err == nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
