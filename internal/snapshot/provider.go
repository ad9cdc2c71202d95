package snapshot

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bianoble/plugin-migrate/internal/sandbox"
)

// Provider supplies the base content a Snapshot overlays. ReadFile must return
// an error satisfying errors.Is(err, fs.ErrNotExist) for absent files.
type Provider interface {
	ReadFile(relPath string) ([]byte, error)
}

// OSProvider reads files from a project directory on disk.
type OSProvider struct {
	Root string
}

// ReadFile reads relPath below the project root. Paths that escape the root
// are reported as not existing.
func (p OSProvider) ReadFile(relPath string) ([]byte, error) {
	resolved, err := sandbox.ValidatePath(p.Root, filepath.FromSlash(relPath))
	if err != nil {
		return nil, notExist(relPath)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// MemoryProvider is a pure in-memory provider for tests and previews.
type MemoryProvider struct {
	files map[string][]byte
}

// NewMemoryProvider returns a provider seeded with the given files.
func NewMemoryProvider(files map[string]string) *MemoryProvider {
	m := &MemoryProvider{files: make(map[string][]byte, len(files))}
	for p, content := range files {
		m.files[Clean(p)] = []byte(content)
	}
	return m
}

func (m *MemoryProvider) ReadFile(relPath string) ([]byte, error) {
	data, ok := m.files[Clean(relPath)]
	if !ok {
		return nil, notExist(relPath)
	}
	return append([]byte(nil), data...), nil
}

// Set replaces the content of a file.
func (m *MemoryProvider) Set(relPath, content string) {
	m.files[Clean(relPath)] = []byte(content)
}

// Remove deletes a file.
func (m *MemoryProvider) Remove(relPath string) {
	delete(m.files, Clean(relPath))
}

// Paths returns every stored path in sorted order.
func (m *MemoryProvider) Paths() []string {
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Apply writes a snapshot's changes into the provider, mirroring Flush.
func (m *MemoryProvider) Apply(s *Snapshot) {
	for _, c := range s.ordered() {
		switch c.Kind {
		case Added, Updated:
			m.files[c.Path] = append([]byte(nil), c.Content...)
		case Deleted:
			delete(m.files, c.Path)
		}
	}
}

// Clean normalizes a project-relative path to slash form without a leading "./".
func Clean(p string) string {
	p = path.Clean(filepath.ToSlash(p))
	return strings.TrimPrefix(p, "./")
}

// IsNotExist reports whether err means a file is absent.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func notExist(relPath string) error {
	return &fs.PathError{Op: "read", Path: relPath, Err: fs.ErrNotExist}
}
