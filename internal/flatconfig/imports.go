package flatconfig

import (
	"sort"
	"strconv"

	"github.com/bianoble/plugin-migrate/internal/jsast"
)

// importSet collects the imports of one generated module, one per source,
// with unique local names.
type importSet struct {
	order    []*jsast.Import
	bySource map[string]*jsast.Import
	used     map[string]bool
}

func newImportSet() *importSet {
	return &importSet{bySource: map[string]*jsast.Import{}, used: map[string]bool{}}
}

// def returns the default binding for source, importing it under a unique
// variant of name on first use.
func (s *importSet) def(source, name string) string {
	imp, ok := s.bySource[source]
	if ok && imp.Default != "" {
		return imp.Default
	}
	local := s.unique(name)
	if ok {
		imp.Default = local
		return local
	}
	s.add(&jsast.Import{Default: local, Source: source})
	return local
}

// named returns the binding for a named export of source.
func (s *importSet) named(source, name string) string {
	imp, ok := s.bySource[source]
	if ok {
		for _, n := range imp.Named {
			if n.Name == name {
				return n.Local()
			}
		}
	}
	local := s.unique(name)
	spec := jsast.ImportName{Name: name}
	if local != name {
		spec.Alias = local
	}
	if ok {
		imp.Named = append(imp.Named, spec)
		return local
	}
	s.add(&jsast.Import{Named: []jsast.ImportName{spec}, Source: source})
	return local
}

func (s *importSet) add(imp *jsast.Import) {
	s.order = append(s.order, imp)
	s.bySource[imp.Source] = imp
}

func (s *importSet) unique(name string) string {
	local := name
	for i := 1; s.used[local]; i++ {
		local = name + strconv.Itoa(i)
	}
	s.used[local] = true
	return local
}

// statements returns the imports in first-use order.
func (s *importSet) statements() []jsast.Stmt {
	out := make([]jsast.Stmt, 0, len(s.order))
	for _, imp := range s.order {
		out = append(out, imp)
	}
	return out
}

// packages returns the npm packages the imports refer to.
func (s *importSet) packages() []string {
	seen := map[string]bool{}
	var out []string
	for _, imp := range s.order {
		if pkg := packageName(imp.Source); pkg != "" && !seen[pkg] {
			seen[pkg] = true
			out = append(out, pkg)
		}
	}
	sort.Strings(out)
	return out
}
