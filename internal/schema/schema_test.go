package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustNode(t *testing.T, raw map[string]any) *Node {
	t.Helper()
	n, err := FromRaw(raw)
	if err != nil {
		t.Fatalf("from raw: %v", err)
	}
	return n
}

func mustDefs(t *testing.T, raw map[string]any) Map {
	t.Helper()
	defs, err := MapFromRaw(raw)
	if err != nil {
		t.Fatalf("defs: %v", err)
	}
	return defs
}

func blockDefs(t *testing.T) Map {
	return mustDefs(t, map[string]any{
		"Block": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":           map[string]any{"type": "string", "x-key": true},
				"height":       map[string]any{"type": "integer", "minimum": float64(1)},
				"transactions": map[string]any{"type": "array", "items": map[string]any{"$ref": "#/components/schemas/Transaction"}},
			},
		},
		"Transaction": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"hash":  map[string]any{"type": "string", "examples": []any{"abc"}},
				"utxos": map[string]any{"type": "array", "items": map[string]any{"$ref": "#/components/schemas/Utxo"}},
			},
		},
		"Utxo": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"address": map[string]any{"type": "string"},
				"amount":  map[string]any{"type": "integer"},
			},
		},
	})
}

func containsRef(s *Schema) bool {
	if s == nil {
		return false
	}
	var nodes []*Node
	for _, p := range s.Properties {
		nodes = append(nodes, p)
	}
	if s.Items != nil {
		nodes = append(nodes, s.Items)
	}
	nodes = append(nodes, s.OneOf...)
	nodes = append(nodes, s.AnyOf...)
	nodes = append(nodes, s.AllOf...)
	for _, n := range nodes {
		if n.IsRef() || containsRef(n.Schema) {
			return true
		}
	}
	return false
}

func TestResolve(t *testing.T) {
	t.Parallel()
	defs := blockDefs(t)

	n, err := Resolve("#/components/schemas/Utxo", defs)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if n.Schema == nil || n.Schema.Type != TypeObject {
		t.Fatalf("resolve: unexpected node %+v", n)
	}

	for _, ref := range []string{"#/components/schemas/Missing", "#/definitions/Utxo", "Utxo"} {
		_, err := Resolve(ref, defs)
		if !HasCode(err, UnresolvedReference) {
			t.Errorf("resolve %q: expected UnresolvedReference, got %v", ref, err)
		}
	}
}

func TestInline_ReplacesAllReferences(t *testing.T) {
	t.Parallel()
	defs := blockDefs(t)

	s, err := InlineNamed("Block", defs)
	if err != nil {
		t.Fatalf("inline: %v", err)
	}
	if containsRef(s) {
		t.Fatalf("inline: references remain")
	}
	tx := s.Property("transactions").ItemSchema()
	if tx == nil || tx.Property("hash") == nil {
		t.Fatalf("inline: transactions[].hash missing")
	}
	if tx.Property("utxos").ItemSchema().Property("amount").Type != TypeInteger {
		t.Fatalf("inline: utxos[].amount type lost")
	}
	if !defs["Block"].Schema.Properties["transactions"].Schema.Items.IsRef() {
		t.Fatalf("inline: defs were modified")
	}
}

func TestInline_Idempotent(t *testing.T) {
	t.Parallel()
	defs := blockDefs(t)

	once, err := InlineNamed("Block", defs)
	if err != nil {
		t.Fatalf("inline: %v", err)
	}
	twice, err := Inline(Wrap(once), defs)
	if err != nil {
		t.Fatalf("inline twice: %v", err)
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("inline is not idempotent (-once +twice):\n%s", diff)
	}
}

func TestInline_SharedReferenceIsNotACycle(t *testing.T) {
	t.Parallel()
	defs := mustDefs(t, map[string]any{
		"Pair": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"left":  map[string]any{"$ref": "#/components/schemas/Leaf"},
				"right": map[string]any{"$ref": "#/components/schemas/Leaf"},
			},
		},
		"Leaf": map[string]any{"type": "string"},
	})
	s, err := InlineNamed("Pair", defs)
	if err != nil {
		t.Fatalf("inline: %v", err)
	}
	if s.Property("left").Type != TypeString || s.Property("right").Type != TypeString {
		t.Fatalf("inline: expected both leaves expanded")
	}
}

func TestInline_CyclicReference(t *testing.T) {
	t.Parallel()
	defs := mustDefs(t, map[string]any{
		"Tree": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"children": map[string]any{"type": "array", "items": map[string]any{"$ref": "#/components/schemas/Tree"}},
			},
		},
	})
	_, err := InlineNamed("Tree", defs)
	if !HasCode(err, CyclicSchemaReference) {
		t.Fatalf("expected CyclicSchemaReference, got %v", err)
	}
	var se *Error
	if e, ok := err.(*Error); ok {
		se = e
	}
	if se == nil || len(se.Chain) != 2 || se.Chain[0] != "Tree" {
		t.Fatalf("unexpected chain: %+v", se)
	}
}

func TestInline_UnresolvedReference(t *testing.T) {
	t.Parallel()
	n := mustNode(t, map[string]any{
		"type":       "object",
		"properties": map[string]any{"x": map[string]any{"$ref": "#/components/schemas/Nope"}},
	})
	if _, err := Inline(n, Map{}); !HasCode(err, UnresolvedReference) {
		t.Fatalf("expected UnresolvedReference, got %v", err)
	}
}

func TestInlineWithExample(t *testing.T) {
	t.Parallel()
	defs := blockDefs(t)

	s, err := InlineWithExample(NewRef("#/components/schemas/Utxo"), defs, map[string]any{"address": "addr1"})
	if err != nil {
		t.Fatalf("inline: %v", err)
	}
	if diff := cmp.Diff([]any{map[string]any{"address": "addr1"}}, s.Examples); diff != "" {
		t.Errorf("explicit example (-want +got):\n%s", diff)
	}

	s, err = InlineWithExample(NewRef("#/components/schemas/Utxo"), defs, nil)
	if err != nil {
		t.Fatalf("inline: %v", err)
	}
	want := []any{map[string]any{"address": "", "amount": float64(0)}}
	if diff := cmp.Diff(want, s.Examples); diff != "" {
		t.Errorf("synthesized example (-want +got):\n%s", diff)
	}
}

func TestExamples(t *testing.T) {
	t.Parallel()
	minimum := float64(5)
	tests := []struct {
		name string
		node *Node
		want []any
	}{
		{"explicit example", Wrap(&Schema{Type: TypeString, Example: "x", HasExample: true, Examples: []any{"y"}}), []any{"x"}},
		{"explicit null example", Wrap(&Schema{Type: TypeString, HasExample: true}), []any{nil}},
		{"examples list", Wrap(&Schema{Type: TypeString, Examples: []any{"a", "b"}}), []any{"a", "b"}},
		{"string enum", Wrap(&Schema{Type: TypeString, Enum: []any{"red", "blue"}}), []any{"red"}},
		{"string", Wrap(&Schema{Type: TypeString}), []any{""}},
		{"integer minimum", Wrap(&Schema{Type: TypeInteger, Minimum: &minimum}), []any{float64(5)}},
		{"number", Wrap(&Schema{Type: TypeNumber}), []any{float64(0)}},
		{"boolean", Wrap(&Schema{Type: TypeBoolean}), []any{false}},
		{"untyped", Wrap(&Schema{}), []any{nil}},
		{"empty object", Wrap(&Schema{Type: TypeObject}), []any{map[string]any{}}},
		{"empty array", Wrap(&Schema{Type: TypeArray}), []any{[]any{}}},
		{"array wraps first item example", Wrap(&Schema{Type: TypeArray, Items: Wrap(&Schema{Type: TypeString, Examples: []any{"p", "q"}})}), []any{[]any{"p"}}},
		{
			"oneOf concatenates branches",
			Wrap(&Schema{OneOf: []*Node{
				Wrap(&Schema{Type: TypeNull}),
				Wrap(&Schema{Type: TypeString, Examples: []any{"s1", "s2"}}),
			}}),
			[]any{nil, "s1", "s2"},
		},
		{
			"failing branch skipped",
			Wrap(&Schema{AnyOf: []*Node{
				NewRef("#/components/schemas/Missing"),
				Wrap(&Schema{Type: TypeInteger}),
			}}),
			[]any{float64(0)},
		},
		{
			"object combines first property examples",
			Wrap(&Schema{Type: TypeObject, Properties: map[string]*Node{
				"a":    Wrap(&Schema{Type: TypeString, Examples: []any{"first", "second"}}),
				"b":    Wrap(&Schema{Type: TypeBoolean}),
				"gone": NewRef("#/components/schemas/Missing"),
			}}),
			[]any{map[string]any{"a": "first", "b": false}},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Examples(tt.node, Map{})
			if err != nil {
				t.Fatalf("examples: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("examples (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExamples_NestedReferencesAndDeterminism(t *testing.T) {
	t.Parallel()
	defs := blockDefs(t)

	first, err := ExamplesNamed("Block", defs)
	if err != nil {
		t.Fatalf("examples: %v", err)
	}
	second, err := ExamplesNamed("Block", defs)
	if err != nil {
		t.Fatalf("examples: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("examples not deterministic:\n%s", diff)
	}

	want := []any{map[string]any{
		"id":     "",
		"height": float64(1),
		"transactions": []any{map[string]any{
			"hash":  "abc",
			"utxos": []any{map[string]any{"address": "", "amount": float64(0)}},
		}},
	}}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("block example (-want +got):\n%s", diff)
	}
}

func TestExamples_CyclicPropertyIsOmitted(t *testing.T) {
	t.Parallel()
	defs := mustDefs(t, map[string]any{
		"Node": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":   map[string]any{"type": "string", "examples": []any{"root"}},
				"parent": map[string]any{"$ref": "#/components/schemas/Node"},
			},
		},
	})
	got, err := ExamplesNamed("Node", defs)
	if err != nil {
		t.Fatalf("examples: %v", err)
	}
	want := []any{map[string]any{"name": "root", "parent": map[string]any{"name": "root"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cyclic example (-want +got):\n%s", diff)
	}
}

func TestFromRaw_TypeArraysAndExtensions(t *testing.T) {
	t.Parallel()
	n := mustNode(t, map[string]any{
		"type":    []any{"null", "integer"},
		"x-key":   true,
		"x-label": "Height",
		"example": float64(3),
	})
	s := n.Schema
	if s.Type != TypeInteger || !s.Nullable || !s.Key || !s.HasExample {
		t.Fatalf("unexpected schema: %+v", s)
	}
	if s.Extensions["x-label"] != "Height" {
		t.Fatalf("extension lost: %v", s.Extensions)
	}
	raw := ToRaw(n).(map[string]any)
	if raw["x-key"] != true || raw["type"] != TypeInteger {
		t.Fatalf("to raw: %v", raw)
	}
}
