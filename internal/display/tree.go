// Package display projects inlined schemas and decoded rows into columns for
// tabular output.
package display

import (
	"sort"

	"github.com/mark3labs/apiscope/internal/schema"
)

// Kind classifies how a field is rendered.
type Kind string

const (
	Primitive Kind = "primitive"
	Object    Kind = "object"
	Array     Kind = "array"
)

// Field is one node of the display tree. Children of an array field are the
// object fields of its items.
type Field struct {
	Name     string
	Kind     Kind
	Key      bool
	Children Tree
}

// Tree maps property names to fields.
type Tree map[string]*Field

// BuildFieldTree builds the display tree of an object schema's properties.
// Properties whose shape cannot be determined are left out.
func BuildFieldTree(root *schema.Schema) Tree {
	tree := Tree{}
	if root == nil {
		return tree
	}
	for _, name := range root.PropertyNames() {
		if f := parseField(root.Property(name), name); f != nil {
			tree[name] = f
		}
	}
	return tree
}

func parseField(s *schema.Schema, name string) *Field {
	eff := effective(s)
	if eff == nil || eff.Type == "" {
		return nil
	}
	f := &Field{Name: name, Key: eff.Key}
	switch eff.Type {
	case schema.TypeString, schema.TypeNumber, schema.TypeInteger, schema.TypeBoolean:
		f.Kind = Primitive
	case schema.TypeArray:
		f.Kind = Array
		if item := parseField(eff.ItemSchema(), name); item != nil && item.Children != nil {
			f.Children = item.Children
		}
	default:
		f.Kind = Object
		if eff.Properties == nil {
			// Nothing to flatten; show the value as is.
			f.Kind = Primitive
			break
		}
		f.Children = Tree{}
		for _, prop := range eff.PropertyNames() {
			if child := parseField(eff.Property(prop), prop); child != nil {
				f.Children[prop] = child
			}
		}
	}
	return f
}

// effective returns the first typed, non-null oneOf branch, else s.
func effective(s *schema.Schema) *schema.Schema {
	if s == nil {
		return nil
	}
	for _, n := range s.OneOf {
		if n.Schema != nil && n.Schema.Type != "" && n.Schema.Type != schema.TypeNull {
			return n.Schema
		}
	}
	return s
}

// Column is a flattened field addressed by its dotted path.
type Column struct {
	Path  string
	Field *Field
}

// ExpandColumns flattens nested objects into dotted paths under prefix. Key
// fields are dropped below the root level. Key columns sort first, then
// columns sort by path.
func ExpandColumns(tree Tree, prefix string, isRoot bool) []Column {
	var cols []Column
	expand(tree, prefix, isRoot, &cols)
	sort.SliceStable(cols, func(i, j int) bool {
		if cols[i].Field.Key != cols[j].Field.Key {
			return cols[i].Field.Key
		}
		return cols[i].Path < cols[j].Path
	})
	return cols
}

func expand(tree Tree, prefix string, isRoot bool, out *[]Column) {
	names := make([]string, 0, len(tree))
	for name := range tree {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := tree[name]
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		if f.Key && !isRoot {
			continue
		}
		if f.Kind == Object {
			expand(f.Children, path, false, out)
			continue
		}
		*out = append(*out, Column{Path: path, Field: f})
	}
}
