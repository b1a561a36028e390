package endpoint

import (
	"sort"
	"strings"

	"github.com/mark3labs/apiscope/internal/filter"
	"github.com/mark3labs/apiscope/internal/schema"
)

// Method is an upper-case HTTP method.
type Method string

const (
	GET     Method = "GET"
	POST    Method = "POST"
	PUT     Method = "PUT"
	DELETE  Method = "DELETE"
	PATCH   Method = "PATCH"
	HEAD    Method = "HEAD"
	OPTIONS Method = "OPTIONS"
	TRACE   Method = "TRACE"
)

var methods = []Method{GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS, TRACE}

// ParseMethod maps a path item key such as "get" to a Method.
func ParseMethod(raw string) (Method, bool) {
	up := Method(strings.ToUpper(strings.TrimSpace(raw)))
	for _, m := range methods {
		if m == up {
			return m, true
		}
	}
	return "", false
}

// ParamKind discriminates the parameter variants.
type ParamKind string

const (
	Path   ParamKind = "path"
	Query  ParamKind = "query"
	Entity ParamKind = "entity" // request body sent as a whole
	Filter ParamKind = "filter" // request body built from filter expressions
)

// Param is one input slot of an endpoint. Fields is only set for Filter
// params; Path params are always required.
type Param struct {
	In       ParamKind
	Name     string // parameter name, or the media type for body params
	Required bool
	Schema   *schema.Schema
	Fields   []filter.Field
}

// Examples returns the example values attached to the param's schema, or a
// single nil when there are none.
func (p Param) Examples() []any {
	if p.Schema == nil || len(p.Schema.Examples) == 0 {
		return []any{nil}
	}
	return p.Schema.Examples
}

// IsBody reports whether the param travels in the request body.
func (p Param) IsBody() bool { return p.In == Entity || p.In == Filter }

// ResponseBody describes the content of one declared response.
type ResponseBody struct {
	Schema    *schema.Schema
	MediaType string
	Streaming bool
}

// Endpoint is the immutable model of one operation.
type Endpoint struct {
	OperationID string
	MethodName  string
	Title       string
	Method      Method
	Path        string
	Params      []Param
	// Responses maps status codes to bodies. A nil value records a declared
	// response without content.
	Responses map[string]*ResponseBody
	Streaming bool
	Tags      []string
}

// StatusCodes returns the declared status codes in sorted order.
func (e *Endpoint) StatusCodes() []string {
	codes := make([]string, 0, len(e.Responses))
	for c := range e.Responses {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Success returns the 200 response body, if any.
func (e *Endpoint) Success() *ResponseBody {
	return e.Responses["200"]
}

// BodyParam returns the request body param, if the endpoint has one.
func (e *Endpoint) BodyParam() (Param, bool) {
	for _, p := range e.Params {
		if p.IsBody() {
			return p, true
		}
	}
	return Param{}, false
}
