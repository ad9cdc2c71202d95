package snapshot

import (
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

var kindLabel = map[Kind]string{
	Added:   "ADD",
	Updated: "UPDATE",
	Deleted: "DELETE",
}

// Counts tallies changes by kind.
type Counts struct {
	Added, Updated, Deleted int
}

// Total returns the number of changed files.
func (c Counts) Total() int { return c.Added + c.Updated + c.Deleted }

// Count tallies the snapshot's pending changes.
func Count(s *Snapshot) Counts {
	var c Counts
	for _, ch := range s.changes {
		switch ch.Kind {
		case Added:
			c.Added++
		case Updated:
			c.Updated++
		case Deleted:
			c.Deleted++
		}
	}
	return c
}

// PrintSummary writes one line per change, or "No changes were made" for an
// empty snapshot. With diffs set, updated files are followed by a unified
// diff against their base content.
func PrintSummary(w io.Writer, s *Snapshot, diffs bool) error {
	if !s.HasChanges() {
		_, err := fmt.Fprintln(w, "No changes were made")
		return err
	}
	for _, c := range s.ordered() {
		if _, err := fmt.Fprintf(w, "  %-7s %s\n", kindLabel[c.Kind], c.Path); err != nil {
			return err
		}
		if !diffs || c.Kind == Deleted {
			continue
		}
		before, _ := s.readBase(c.Path)
		text, err := UnifiedDiff(c.Path, before, c.Content)
		if err != nil {
			return err
		}
		if text != "" {
			if _, err := io.WriteString(w, indent(text, "    ")); err != nil {
				return err
			}
		}
	}
	c := Count(s)
	_, err := fmt.Fprintf(w, "%d added, %d updated, %d deleted\n", c.Added, c.Updated, c.Deleted)
	return err
}

// UnifiedDiff renders a unified diff between two versions of a file.
func UnifiedDiff(path string, before, after []byte) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
}

func indent(text, prefix string) string {
	lines := strings.SplitAfter(text, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		b.WriteString(prefix)
		b.WriteString(l)
	}
	if !strings.HasSuffix(text, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}
