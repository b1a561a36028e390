package endpoint

import (
	"fmt"

	"github.com/mark3labs/apiscope/internal/filter"
)

// RequestOptions is what a transport needs to call one endpoint.
type RequestOptions struct {
	Path           map[string]any `json:"path,omitempty" yaml:"path,omitempty"`
	Query          map[string]any `json:"query,omitempty" yaml:"query,omitempty"`
	Body           any            `json:"body,omitempty" yaml:"body,omitempty"`
	StreamResponse bool           `json:"streamResponse,omitempty" yaml:"streamResponse,omitempty"`
	// ThrowOnFailure is always false: failures come back in the result.
	ThrowOnFailure bool `json:"throwOnFailure" yaml:"throwOnFailure"`
}

// ParamValue is a value chosen for a path or query param.
type ParamValue struct {
	In    ParamKind
	Name  string
	Value any
}

// BuildRequest assembles transport options. A nil body is left out.
func BuildRequest(streaming bool, values []ParamValue, body any) RequestOptions {
	opts := RequestOptions{StreamResponse: streaming}
	for _, v := range values {
		switch v.In {
		case Path:
			if opts.Path == nil {
				opts.Path = map[string]any{}
			}
			opts.Path[v.Name] = v.Value
		case Query:
			if opts.Query == nil {
				opts.Query = map[string]any{}
			}
			opts.Query[v.Name] = v.Value
		}
	}
	if body != nil {
		opts.Body = body
	}
	return opts
}

// ExampleRequest is one named example call.
type ExampleRequest struct {
	Name    string
	Options RequestOptions
}

// ExampleRequests builds example calls from the params' schema examples.
// The "all" variant uses every param; one more variant per optional param
// uses the required params plus that one. Each variant expands into the
// cartesian product of the params' examples, suffixed "-<n>" when there is
// more than one combination.
func ExampleRequests(ep *Endpoint) []ExampleRequest {
	var required, optional []Param
	for _, p := range ep.Params {
		if p.Required {
			required = append(required, p)
		} else {
			optional = append(optional, p)
		}
	}
	type variant struct {
		title  string
		params []Param
	}
	variants := []variant{{title: "all", params: append(append([]Param{}, required...), optional...)}}
	for _, p := range optional {
		variants = append(variants, variant{title: p.Name, params: append(append([]Param{}, required...), p)})
	}

	var out []ExampleRequest
	for _, v := range variants {
		combos := [][]any{{}}
		for _, p := range v.params {
			var next [][]any
			for _, prev := range combos {
				for _, ex := range p.Examples() {
					combo := append(append([]any{}, prev...), ex)
					next = append(next, combo)
				}
			}
			combos = next
		}
		for i, combo := range combos {
			var body any
			var values []ParamValue
			for j, p := range v.params {
				if p.IsBody() {
					if body == nil {
						body = combo[j]
					}
					continue
				}
				values = append(values, ParamValue{In: p.In, Name: p.Name, Value: combo[j]})
			}
			name := v.title
			if len(combos) > 1 {
				name = fmt.Sprintf("%s-%d", v.title, i)
			}
			out = append(out, ExampleRequest{Name: name, Options: BuildRequest(ep.Streaming, values, body)})
		}
	}
	return out
}

// PathQueryParams returns the endpoint's path and query params in order.
func PathQueryParams(ep *Endpoint) []Param {
	var out []Param
	for _, p := range ep.Params {
		if p.In == Path || p.In == Query {
			out = append(out, p)
		}
	}
	return out
}

// FilterFields returns the fields of the endpoint's filter body, if any.
func FilterFields(ep *Endpoint) []filter.Field {
	var out []filter.Field
	for _, p := range ep.Params {
		if p.In == Filter {
			out = append(out, p.Fields...)
		}
	}
	return out
}
