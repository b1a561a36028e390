package schema

import (
	"fmt"
	"regexp"
)

var localRefRe = regexp.MustCompile(`^#/components/schemas/(.+)$`)

// RefName extracts the definition name from a local components reference.
func RefName(ref string) (string, bool) {
	m := localRefRe.FindStringSubmatch(ref)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Resolve looks up the definition a reference points at. It does not follow
// chains of references.
func Resolve(ref string, defs Map) (*Node, error) {
	name, ok := RefName(ref)
	if !ok {
		return nil, &Error{Code: UnresolvedReference, Ref: ref, Message: fmt.Sprintf("unsupported $ref %q (only #/components/schemas/<name>)", ref)}
	}
	n, ok := defs[name]
	if !ok || n == nil {
		return nil, &Error{Code: UnresolvedReference, Ref: ref, Message: fmt.Sprintf("unresolved $ref %s", ref)}
	}
	return n, nil
}

// refGuard tracks the definitions currently being expanded so that a
// reference back into the active chain is reported instead of recursing.
type refGuard struct {
	defs   Map
	active map[string]bool
	chain  []string
}

func newRefGuard(defs Map) *refGuard {
	return &refGuard{defs: defs, active: make(map[string]bool)}
}

// enter resolves ref and marks it active. The returned func must be called
// once the target has been processed.
func (g *refGuard) enter(ref string) (*Node, func(), error) {
	target, err := Resolve(ref, g.defs)
	if err != nil {
		return nil, nil, err
	}
	name, _ := RefName(ref)
	if g.active[name] {
		chain := append(append([]string(nil), g.chain...), name)
		return nil, nil, &Error{Code: CyclicSchemaReference, Ref: ref, Chain: chain, Message: fmt.Sprintf("cyclic $ref %s", ref)}
	}
	g.active[name] = true
	g.chain = append(g.chain, name)
	return target, func() {
		delete(g.active, name)
		g.chain = g.chain[:len(g.chain)-1]
	}, nil
}

// Inline returns a copy of node with every reference replaced by its fully
// expanded target. defs is never modified. Cyclic reference graphs fail with
// CyclicSchemaReference.
func Inline(node *Node, defs Map) (*Schema, error) {
	return newRefGuard(defs).inline(node)
}

// InlineNamed inlines the definition registered under name.
func InlineNamed(name string, defs Map) (*Schema, error) {
	n, ok := defs[name]
	if !ok || n == nil {
		return nil, &Error{Code: UnresolvedReference, Ref: name, Message: fmt.Sprintf("unknown schema %q", name)}
	}
	return Inline(n, defs)
}

// InlineWithExample inlines node and annotates the result with examples: the
// given example when non-nil, otherwise synthesized ones.
func InlineWithExample(node *Node, defs Map, example any) (*Schema, error) {
	s, err := Inline(node, defs)
	if err != nil {
		return nil, err
	}
	if example != nil {
		s.Examples = []any{example}
		return s, nil
	}
	exs, err := Examples(Wrap(s), defs)
	if err != nil {
		return nil, err
	}
	s.Examples = exs
	return s, nil
}

func (g *refGuard) inline(node *Node) (*Schema, error) {
	if node == nil {
		return &Schema{}, nil
	}
	if node.Ref != nil {
		target, leave, err := g.enter(node.Ref.Ref)
		if err != nil {
			return nil, err
		}
		defer leave()
		return g.inline(target)
	}
	if node.Schema == nil {
		return &Schema{}, nil
	}

	s := node.Schema.shallowCopy()
	var err error
	if s.OneOf, err = g.inlineAll(s.OneOf); err != nil {
		return nil, err
	}
	if s.AnyOf, err = g.inlineAll(s.AnyOf); err != nil {
		return nil, err
	}
	if s.AllOf, err = g.inlineAll(s.AllOf); err != nil {
		return nil, err
	}
	if s.Properties != nil {
		props := make(map[string]*Node, len(s.Properties))
		for _, name := range s.PropertyNames() {
			child, err := g.inline(s.Properties[name])
			if err != nil {
				return nil, err
			}
			props[name] = Wrap(child)
		}
		s.Properties = props
	}
	if s.Items != nil {
		items, err := g.inline(s.Items)
		if err != nil {
			return nil, err
		}
		s.Items = Wrap(items)
	}
	if s.Enum != nil {
		s.Enum = append([]any(nil), s.Enum...)
	}
	if s.Examples != nil {
		s.Examples = append([]any(nil), s.Examples...)
	}
	return s, nil
}

func (g *refGuard) inlineAll(nodes []*Node) ([]*Node, error) {
	if nodes == nil {
		return nil, nil
	}
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		s, err := g.inline(n)
		if err != nil {
			return nil, err
		}
		out = append(out, Wrap(s))
	}
	return out, nil
}
