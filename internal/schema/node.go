package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Schema types understood by the walkers.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
	TypeNull    = "null"
)

// KeyExtension marks a property used for row identity rather than display.
const KeyExtension = "x-key"

// Composite keywords, in the order they are consulted.
type Composite string

const (
	OneOf Composite = "oneOf"
	AnyOf Composite = "anyOf"
	AllOf Composite = "allOf"
)

// Composites lists the composite keywords in evaluation order.
var Composites = []Composite{OneOf, AnyOf, AllOf}

// Reference points at a named definition, e.g. "#/components/schemas/Block".
type Reference struct {
	Ref string
}

// Node is either a Reference or a concrete Schema. Exactly one is set.
type Node struct {
	Ref    *Reference
	Schema *Schema
}

// Schema is the subset of JSON Schema the walkers operate on.
type Schema struct {
	Type        string
	Nullable    bool
	Format      string
	Description string
	Properties  map[string]*Node
	Required    []string
	Items       *Node
	OneOf       []*Node
	AnyOf       []*Node
	AllOf       []*Node
	Enum        []any
	Minimum     *float64
	// Example is only meaningful when HasExample is set; an explicit null
	// example is still an example.
	Example    any
	HasExample bool
	Examples   []any
	Key        bool
	Extensions map[string]any
}

// Map holds named definitions (components.schemas). It is read-only for the
// duration of a resolution pass.
type Map map[string]*Node

// NewRef returns a reference node.
func NewRef(ref string) *Node { return &Node{Ref: &Reference{Ref: ref}} }

// Wrap returns s as a node.
func Wrap(s *Schema) *Node { return &Node{Schema: s} }

// IsRef reports whether n is a reference node.
func (n *Node) IsRef() bool { return n != nil && n.Ref != nil }

// Branches returns the branches of the given composite keyword.
func (s *Schema) Branches(c Composite) []*Node {
	if s == nil {
		return nil
	}
	switch c {
	case OneOf:
		return s.OneOf
	case AnyOf:
		return s.AnyOf
	case AllOf:
		return s.AllOf
	}
	return nil
}

// PropertyNames returns property names in sorted order.
func (s *Schema) PropertyNames() []string {
	if s == nil || len(s.Properties) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Property returns the concrete schema of a property, or nil when the property
// is absent or still a reference.
func (s *Schema) Property(name string) *Schema {
	if s == nil {
		return nil
	}
	if n, ok := s.Properties[name]; ok && n != nil {
		return n.Schema
	}
	return nil
}

// ItemSchema returns the concrete item schema, or nil.
func (s *Schema) ItemSchema() *Schema {
	if s == nil || s.Items == nil {
		return nil
	}
	return s.Items.Schema
}

// shallowCopy copies the scalar fields of s; container fields still alias.
func (s *Schema) shallowCopy() *Schema {
	cp := *s
	return &cp
}

// FromRaw converts a decoded JSON/YAML value into a Node. Values are expected
// to be normalized to map[string]any / []any.
func FromRaw(v any) (*Node, error) {
	return fromRaw(v, "")
}

// MapFromRaw converts a components.schemas object into a Map.
func MapFromRaw(v any) (Map, error) {
	if v == nil {
		return Map{}, nil
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema: components.schemas must be an object, got %T", v)
	}
	out := make(Map, len(raw))
	for name, def := range raw {
		n, err := fromRaw(def, name)
		if err != nil {
			return nil, err
		}
		out[name] = n
	}
	return out, nil
}

func fromRaw(v any, at string) (*Node, error) {
	m, ok := v.(map[string]any)
	if !ok {
		// `true` is a valid JSON schema meaning "anything".
		if b, isBool := v.(bool); isBool && b {
			return Wrap(&Schema{}), nil
		}
		return nil, fmt.Errorf("schema: %s: expected object, got %T", displayPath(at), v)
	}
	if ref, ok := m["$ref"].(string); ok {
		return NewRef(ref), nil
	}

	s := &Schema{}
	switch t := m["type"].(type) {
	case string:
		s.Type = t
	case []any:
		for _, item := range t {
			name, _ := item.(string)
			if name == TypeNull {
				s.Nullable = true
				continue
			}
			if s.Type == "" {
				s.Type = name
			}
		}
		if s.Type == "" && s.Nullable {
			s.Type = TypeNull
		}
	}
	if b, ok := m["nullable"].(bool); ok {
		s.Nullable = s.Nullable || b
	}
	s.Format, _ = m["format"].(string)
	s.Description, _ = m["description"].(string)
	if f, ok := m["minimum"].(float64); ok {
		s.Minimum = &f
	}
	if enum, ok := m["enum"].([]any); ok {
		s.Enum = append([]any(nil), enum...)
	}
	if ex, ok := m["example"]; ok {
		s.Example = ex
		s.HasExample = true
	}
	if exs, ok := m["examples"].([]any); ok {
		s.Examples = append([]any(nil), exs...)
	}
	if req, ok := m["required"].([]any); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}

	if props, ok := m["properties"]; ok {
		pm, ok := props.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("schema: %s: properties must be an object", displayPath(at))
		}
		s.Properties = make(map[string]*Node, len(pm))
		for name, raw := range pm {
			child, err := fromRaw(raw, joinPath(at, "properties", name))
			if err != nil {
				return nil, err
			}
			s.Properties[name] = child
		}
	}
	if items, ok := m["items"]; ok {
		// Tuple-style items keep the first positional schema.
		if list, isList := items.([]any); isList {
			if len(list) > 0 {
				items = list[0]
			} else {
				items = nil
			}
		}
		if items != nil {
			child, err := fromRaw(items, joinPath(at, "items"))
			if err != nil {
				return nil, err
			}
			s.Items = child
		}
	}
	for _, c := range Composites {
		raw, ok := m[string(c)]
		if !ok {
			continue
		}
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("schema: %s: %s must be an array", displayPath(at), c)
		}
		branches := make([]*Node, 0, len(list))
		for i, item := range list {
			child, err := fromRaw(item, joinPath(at, string(c), fmt.Sprint(i)))
			if err != nil {
				return nil, err
			}
			branches = append(branches, child)
		}
		switch c {
		case OneOf:
			s.OneOf = branches
		case AnyOf:
			s.AnyOf = branches
		case AllOf:
			s.AllOf = branches
		}
	}

	for k, v := range m {
		if !strings.HasPrefix(k, "x-") {
			continue
		}
		if k == KeyExtension {
			s.Key, _ = v.(bool)
			continue
		}
		if s.Extensions == nil {
			s.Extensions = make(map[string]any)
		}
		s.Extensions[k] = v
	}
	return Wrap(s), nil
}

// ToRaw converts n back into plain JSON values, for printing.
func ToRaw(n *Node) any {
	if n == nil {
		return nil
	}
	if n.Ref != nil {
		return map[string]any{"$ref": n.Ref.Ref}
	}
	s := n.Schema
	if s == nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if s.Type != "" {
		out["type"] = s.Type
	}
	if s.Nullable {
		out["nullable"] = true
	}
	if s.Format != "" {
		out["format"] = s.Format
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Minimum != nil {
		out["minimum"] = *s.Minimum
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.HasExample {
		out["example"] = s.Example
	}
	if len(s.Examples) > 0 {
		out["examples"] = s.Examples
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = ToRaw(p)
		}
		out["properties"] = props
	}
	if s.Items != nil {
		out["items"] = ToRaw(s.Items)
	}
	for _, c := range Composites {
		branches := s.Branches(c)
		if branches == nil {
			continue
		}
		list := make([]any, 0, len(branches))
		for _, b := range branches {
			list = append(list, ToRaw(b))
		}
		out[string(c)] = list
	}
	if s.Key {
		out[KeyExtension] = true
	}
	for k, v := range s.Extensions {
		out[k] = v
	}
	return out
}

func joinPath(base string, parts ...string) string {
	all := make([]string, 0, len(parts)+1)
	if base != "" {
		all = append(all, base)
	}
	all = append(all, parts...)
	return strings.Join(all, ".")
}

func displayPath(p string) string {
	if p == "" {
		return "<root>"
	}
	return p
}
