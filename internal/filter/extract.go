package filter

import (
	"errors"
	"strings"

	"github.com/mark3labs/apiscope/internal/schema"
)

// ErrEmptyPath marks a discovered field without a path. It always indicates
// a defect in extraction, never a legitimate field.
var ErrEmptyPath = errors.New("filter: extracted field has an empty path")

// DefectError carries the offending field when extraction produced an
// invalid result.
type DefectError struct {
	Field Field
	Err   error
}

func (e *DefectError) Error() string {
	return e.Err.Error() + " (type " + e.Field.Type + ")"
}

func (e *DefectError) Unwrap() error { return e.Err }

// ArraySuffix marks a path segment whose values live inside an array.
const ArraySuffix = "[]"

// Field is a filterable leaf discovered in a request body schema.
type Field struct {
	Path     string // e.g. "utxos[].assets[].amount"
	Type     string
	Examples []any
}

// Extract walks an inlined request body schema and returns its filterable
// fields. A field is either an operator wrapper (an object whose only
// property is one of the operators, possibly behind oneOf/anyOf layers) or a
// plain scalar leaf. Object properties are visited in sorted order.
func Extract(root *schema.Schema) ([]Field, error) {
	var fields []Field
	if err := walk(root, nil, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func walk(s *schema.Schema, parts []string, out *[]Field) error {
	if s == nil {
		return nil
	}

	if leaf, ok := unwrapOperator(s); ok {
		examples := leaf.Examples
		if examples == nil {
			examples = defaultExamples(leaf.Type)
		}
		return emit(out, Field{Path: strings.Join(parts, "."), Type: leaf.Type, Examples: examples})
	}

	// Nullable or alternative shapes: descend into the first structured branch.
	if variants := variantsOf(s); variants != nil {
		for _, v := range variants {
			if v.Schema == nil {
				continue
			}
			if v.Schema.Type == schema.TypeObject || v.Schema.Type == schema.TypeArray {
				return walk(v.Schema, parts, out)
			}
		}
	}

	switch s.Type {
	case schema.TypeObject:
		if s.Properties != nil {
			for _, name := range s.PropertyNames() {
				child := append(append([]string(nil), parts...), name)
				if err := walk(s.Property(name), child, out); err != nil {
					return err
				}
			}
			return nil
		}
	case schema.TypeArray:
		if s.Items != nil {
			return walk(s.ItemSchema(), withArraySuffix(parts), out)
		}
	case schema.TypeString, schema.TypeNumber, schema.TypeInteger, schema.TypeBoolean:
		examples := s.Examples
		if examples == nil {
			examples = defaultExamples(s.Type)
		}
		return emit(out, Field{Path: strings.Join(parts, "."), Type: s.Type, Examples: examples})
	}
	// Anything else (e.g. a lone null branch) is not filterable.
	return nil
}

func emit(out *[]Field, f Field) error {
	if f.Path == "" {
		return &DefectError{Field: f, Err: ErrEmptyPath}
	}
	*out = append(*out, f)
	return nil
}

type operatorLeaf struct {
	Type     string
	Examples []any
}

// unwrapOperator searches oneOf/anyOf layers depth-first for an operator
// wrapper and returns the wrapped value's type and examples.
func unwrapOperator(s *schema.Schema) (operatorLeaf, bool) {
	if s == nil {
		return operatorLeaf{}, false
	}
	for _, v := range variantsOf(s) {
		if leaf, ok := unwrapOperator(v.Schema); ok {
			return leaf, true
		}
	}
	if op, ok := wrapperOperator(s); ok {
		inner := s.Property(string(op))
		if inner == nil {
			return operatorLeaf{}, true
		}
		return operatorLeaf{Type: inner.Type, Examples: inner.Examples}, true
	}
	return operatorLeaf{}, false
}

// wrapperOperator reports whether s is an object with exactly one property
// and that property is an operator name.
func wrapperOperator(s *schema.Schema) (Operator, bool) {
	if s.Type != schema.TypeObject || len(s.Properties) != 1 {
		return "", false
	}
	for name := range s.Properties {
		op := Operator(name)
		if op.Valid() {
			return op, true
		}
	}
	return "", false
}

// variantsOf returns oneOf branches, else anyOf branches.
func variantsOf(s *schema.Schema) []*schema.Node {
	if s.OneOf != nil {
		return s.OneOf
	}
	return s.AnyOf
}

func withArraySuffix(parts []string) []string {
	if len(parts) == 0 {
		return []string{ArraySuffix}
	}
	out := append([]string(nil), parts...)
	out[len(out)-1] += ArraySuffix
	return out
}

func defaultExamples(typ string) []any {
	switch typ {
	case schema.TypeString:
		return []any{"example"}
	case schema.TypeInteger, schema.TypeNumber:
		return []any{float64(0)}
	case schema.TypeBoolean:
		return []any{true}
	default:
		return []any{}
	}
}
