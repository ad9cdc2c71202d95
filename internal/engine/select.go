package engine

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/bianoble/plugin-migrate/internal/migrations"
)

// GetMigrationsToRun returns the catalog entries with from < version <= to,
// sorted ascending by version. Entries sharing a version keep catalog
// order.
func GetMigrationsToRun(from, to string, catalog []migrations.Meta) ([]migrations.Meta, error) {
	lo, err := canonical(from)
	if err != nil {
		return nil, fmt.Errorf("from version: %w", err)
	}
	hi, err := canonical(to)
	if err != nil {
		return nil, fmt.Errorf("to version: %w", err)
	}

	type entry struct {
		meta    migrations.Meta
		version string
	}
	var selected []entry
	for _, m := range catalog {
		v, err := canonical(m.Version)
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", m.Name, err)
		}
		if semver.Compare(v, lo) > 0 && semver.Compare(v, hi) <= 0 {
			selected = append(selected, entry{meta: m, version: v})
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return semver.Compare(selected[i].version, selected[j].version) < 0
	})

	out := make([]migrations.Meta, len(selected))
	for i, e := range selected {
		out[i] = e.meta
	}
	return out, nil
}

// LatestVersion returns the highest version in the catalog.
func LatestVersion(catalog []migrations.Meta) string {
	latest, latestV := "", ""
	for _, m := range catalog {
		v, err := canonical(m.Version)
		if err != nil {
			continue
		}
		if latestV == "" || semver.Compare(v, latestV) > 0 {
			latest, latestV = m.Version, v
		}
	}
	return latest
}

// canonical turns "5.1.0" or "v5.1.0" into a valid semver.Compare operand.
func canonical(v string) (string, error) {
	c := "v" + strings.TrimPrefix(strings.TrimSpace(v), "v")
	if !semver.IsValid(c) {
		return "", fmt.Errorf("invalid version %q", v)
	}
	return c, nil
}
