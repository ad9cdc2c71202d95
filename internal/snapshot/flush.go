package snapshot

import (
	"fmt"
	"path/filepath"

	"github.com/bianoble/plugin-migrate/internal/sandbox"
)

// FlushResult lists what a flush wrote and removed.
type FlushResult struct {
	Written []string
	Removed []string
}

// Flush applies the snapshot to disk below root in add, update, delete
// order. If any step fails, files already touched are restored to their
// previous state and the error is returned.
func Flush(root string, s *Snapshot) (*FlushResult, error) {
	result := &FlushResult{}
	var backups []backup

	for _, c := range s.ordered() {
		rel := filepath.FromSlash(c.Path)
		prev, readErr := sandbox.SafeRead(root, rel)
		b := backup{path: rel, content: prev, existed: readErr == nil}

		var err error
		switch c.Kind {
		case Added, Updated:
			err = sandbox.SafeWrite(root, rel, c.Content, 0o644)
		case Deleted:
			err = sandbox.SafeRemove(root, rel)
		}
		if err != nil {
			restore(root, backups)
			return nil, fmt.Errorf("flushing %s %s: %w", c.Kind, c.Path, err)
		}
		backups = append(backups, b)

		if c.Kind == Deleted {
			result.Removed = append(result.Removed, c.Path)
		} else {
			result.Written = append(result.Written, c.Path)
		}
	}
	return result, nil
}

type backup struct {
	path    string
	content []byte
	existed bool
}

func restore(root string, backups []backup) {
	for i := len(backups) - 1; i >= 0; i-- {
		b := backups[i]
		if b.existed {
			_ = sandbox.SafeWrite(root, b.path, b.content, 0o644)
		} else {
			_ = sandbox.SafeRemove(root, b.path)
		}
	}
}
