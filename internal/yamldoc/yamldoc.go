// Package yamldoc edits YAML documents through the yaml.v3 node tree so that
// comments, anchors and key order in untouched regions survive a rewrite.
package yamldoc

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a parsed YAML document.
type Document struct {
	root *yaml.Node
}

// Parse decodes a single YAML document. Empty input yields an empty mapping.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if root.Kind == 0 {
		root = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{NewMapping()}}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("parsing YAML: expected a document")
	}
	return &Document{root: &root}, nil
}

// Root returns the top-level content node.
func (d *Document) Root() *yaml.Node {
	return d.root.Content[0]
}

// Bytes encodes the document with two-space indentation.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.root); err != nil {
		return nil, fmt.Errorf("encoding YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// SplitPath turns "services.grafana.environment" into its keys.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Get returns the node at a dotted path, or nil.
func (d *Document) Get(path string) *yaml.Node {
	return Lookup(d.Root(), SplitPath(path)...)
}

// Set stores a scalar at a dotted path, creating intermediate mappings. It
// reports whether the document changed.
func (d *Document) Set(path, value string) bool {
	return SetNode(d.Root(), SplitPath(path), NewScalar(value))
}

// SetNode stores node at a dotted path, creating intermediate mappings.
func (d *Document) SetNode(path string, node *yaml.Node) bool {
	return SetNode(d.Root(), SplitPath(path), node)
}

// Delete removes the key at a dotted path and reports whether it existed.
func (d *Document) Delete(path string) bool {
	keys := SplitPath(path)
	if len(keys) == 0 {
		return false
	}
	parent := Lookup(d.Root(), keys[:len(keys)-1]...)
	return DeleteKey(parent, keys[len(keys)-1])
}

// Lookup walks mapping keys from n. Aliases are followed.
func Lookup(n *yaml.Node, keys ...string) *yaml.Node {
	cur := resolve(n)
	for _, k := range keys {
		if cur == nil || cur.Kind != yaml.MappingNode {
			return nil
		}
		i := keyIndex(cur, k)
		if i < 0 {
			return nil
		}
		cur = resolve(cur.Content[i+1])
	}
	return cur
}

// SetNode stores value under keys below n, replacing non-mapping
// intermediates. Comments on a replaced value node are carried over.
func SetNode(n *yaml.Node, keys []string, value *yaml.Node) bool {
	if len(keys) == 0 || n == nil || n.Kind != yaml.MappingNode {
		return false
	}
	cur := n
	for _, k := range keys[:len(keys)-1] {
		i := keyIndex(cur, k)
		if i < 0 {
			child := NewMapping()
			cur.Content = append(cur.Content, NewScalar(k), child)
			cur = child
			continue
		}
		child := cur.Content[i+1]
		if child.Kind != yaml.MappingNode {
			replacement := NewMapping()
			replacement.HeadComment, replacement.LineComment = child.HeadComment, child.LineComment
			cur.Content[i+1] = replacement
			child = replacement
		}
		cur = child
	}

	last := keys[len(keys)-1]
	i := keyIndex(cur, last)
	if i < 0 {
		cur.Content = append(cur.Content, NewScalar(last), value)
		return true
	}
	existing := cur.Content[i+1]
	if Equal(existing, value) {
		return false
	}
	if value.LineComment == "" {
		value.LineComment = existing.LineComment
	}
	if value.HeadComment == "" {
		value.HeadComment = existing.HeadComment
	}
	cur.Content[i+1] = value
	return true
}

// DeleteKey removes key from a mapping node. The key's comments go with it.
func DeleteKey(m *yaml.Node, key string) bool {
	if m == nil || m.Kind != yaml.MappingNode {
		return false
	}
	i := keyIndex(m, key)
	if i < 0 {
		return false
	}
	m.Content = append(m.Content[:i], m.Content[i+2:]...)
	return true
}

// Keys returns the keys of a mapping node in document order.
func Keys(m *yaml.Node) []string {
	m = resolve(m)
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		keys = append(keys, m.Content[i].Value)
	}
	return keys
}

// Prepend inserts key/value at the start of a mapping, replacing any
// existing entry for key.
func Prepend(m *yaml.Node, key string, value *yaml.Node) {
	if i := keyIndex(m, key); i >= 0 {
		m.Content = append(m.Content[:i], m.Content[i+2:]...)
	}
	m.Content = append([]*yaml.Node{NewScalar(key), value}, m.Content...)
}

// Equal compares two nodes by value, ignoring style, tags and comments.
func Equal(a, b *yaml.Node) bool {
	a, b = resolve(a), resolve(b)
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case yaml.ScalarNode:
		return a.Value == b.Value
	case yaml.SequenceNode:
		if len(a.Content) != len(b.Content) {
			return false
		}
		for i := range a.Content {
			if !Equal(a.Content[i], b.Content[i]) {
				return false
			}
		}
		return true
	case yaml.MappingNode:
		if len(a.Content) != len(b.Content) {
			return false
		}
		for i := 0; i+1 < len(a.Content); i += 2 {
			j := keyIndex(b, a.Content[i].Value)
			if j < 0 || !Equal(a.Content[i+1], b.Content[j+1]) {
				return false
			}
		}
		return true
	}
	return false
}

// NewScalar builds a plain string scalar node.
func NewScalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

// NewMapping builds an empty block mapping node.
func NewMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func keyIndex(m *yaml.Node, key string) int {
	if m == nil {
		return -1
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i
		}
	}
	return -1
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}
