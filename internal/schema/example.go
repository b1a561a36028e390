package schema

// Examples derives representative example values for node. The result is
// never empty. Explicit examples win; composite branches are flattened;
// objects and arrays get one synthesized value; primitives fall back to a
// zero-ish value for their type.
//
// References are followed through defs. Only a failure to resolve the
// top-level node is returned as an error: failing composite branches are
// skipped and failing properties are omitted.
func Examples(node *Node, defs Map) ([]any, error) {
	return newRefGuard(defs).examples(node)
}

// ExamplesNamed synthesizes examples for the definition registered under name.
func ExamplesNamed(name string, defs Map) ([]any, error) {
	n, ok := defs[name]
	if !ok || n == nil {
		return nil, &Error{Code: UnresolvedReference, Ref: name, Message: "unknown schema " + name}
	}
	return Examples(n, defs)
}

func (g *refGuard) examples(node *Node) ([]any, error) {
	if node == nil {
		return []any{nil}, nil
	}
	if node.Ref != nil {
		target, leave, err := g.enter(node.Ref.Ref)
		if err != nil {
			return nil, err
		}
		defer leave()
		return g.examples(target)
	}
	s := node.Schema
	if s == nil {
		return []any{nil}, nil
	}

	if s.HasExample {
		return []any{s.Example}, nil
	}
	if len(s.Examples) > 0 {
		return append([]any(nil), s.Examples...), nil
	}

	for _, c := range Composites {
		branches := s.Branches(c)
		if branches == nil {
			continue
		}
		var results []any
		for _, b := range branches {
			exs, err := g.examples(b)
			if err != nil {
				continue
			}
			results = append(results, exs...)
		}
		if len(results) > 0 {
			return results, nil
		}
	}

	switch s.Type {
	case TypeObject:
		obj := map[string]any{}
		for _, name := range s.PropertyNames() {
			exs, err := g.examples(s.Properties[name])
			if err != nil || len(exs) == 0 {
				continue
			}
			obj[name] = exs[0]
		}
		return []any{obj}, nil
	case TypeArray:
		if s.Items == nil {
			return []any{[]any{}}, nil
		}
		exs, err := g.examples(s.Items)
		if err != nil || len(exs) == 0 {
			return []any{[]any{}}, nil
		}
		return []any{[]any{exs[0]}}, nil
	}
	return []any{primitiveFallback(s)}, nil
}

func primitiveFallback(s *Schema) any {
	switch s.Type {
	case TypeString:
		if len(s.Enum) > 0 {
			return s.Enum[0]
		}
		return ""
	case TypeNumber, TypeInteger:
		if s.Minimum != nil {
			return *s.Minimum
		}
		return float64(0)
	case TypeBoolean:
		return false
	default:
		return nil
	}
}
