package spec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/apiscope/internal/schema"
)

// Document is the decoded, read-only view of an OpenAPI document.
type Document struct {
	OpenAPI string
	Info    Info
	Servers []Server
	Paths   []PathItem // sorted by path
	Schemas schema.Map
}

type Info struct {
	Title       string
	Version     string
	Description string
}

type Server struct {
	URL         string
	Description string
}

// PathItem groups the operations declared under one path template.
type PathItem struct {
	Path       string
	Parameters []Parameter
	Operations []MethodOperation // sorted by method key
}

// MethodOperation pairs the raw method key (e.g. "get") with its operation.
// The key is kept verbatim so that unsupported tokens can be reported.
type MethodOperation struct {
	Method    string
	Operation *Operation
}

type Operation struct {
	OperationID string
	Summary     string
	Description string
	Tags        []string
	Parameters  []Parameter
	RequestBody *RequestBody
	Responses   map[string]*Response
}

type Parameter struct {
	Name     string
	In       string // path|query|header|cookie
	Required bool
	Schema   *schema.Node
	Example  any
}

type RequestBody struct {
	Required bool
	// Content is nil when the document declares no content map.
	Content map[string]*MediaType
}

type Response struct {
	Description string
	// Content is nil when the response declares no content (e.g. 204).
	Content map[string]*MediaType
}

type MediaType struct {
	Schema  *schema.Node
	Example any
}

// MediaTypes returns the declared media type keys in sorted order.
func MediaTypes(content map[string]*MediaType) []string {
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// pathItemFields are path item keys that never denote an operation.
var pathItemFields = map[string]bool{
	"parameters": true, "summary": true, "description": true, "servers": true, "$ref": true,
}

// decodeDocument converts a normalized raw document into a Document.
func decodeDocument(root map[string]any) (*Document, error) {
	doc := &Document{OpenAPI: str(root["openapi"])}
	if info, ok := root["info"].(map[string]any); ok {
		doc.Info = Info{
			Title:       strings.TrimSpace(str(info["title"])),
			Version:     strings.TrimSpace(str(info["version"])),
			Description: strings.TrimSpace(str(info["description"])),
		}
	}
	if servers, ok := root["servers"].([]any); ok {
		for _, s := range servers {
			m, ok := s.(map[string]any)
			if !ok {
				continue
			}
			doc.Servers = append(doc.Servers, Server{URL: str(m["url"]), Description: str(m["description"])})
		}
	}

	components, _ := root["components"].(map[string]any)
	defs, err := schema.MapFromRaw(components["schemas"])
	if err != nil {
		return nil, err
	}
	doc.Schemas = defs
	d := &decoder{components: components}

	paths, _ := root["paths"].(map[string]any)
	keys := make([]string, 0, len(paths))
	for p := range paths {
		keys = append(keys, p)
	}
	sort.Strings(keys)
	for _, p := range keys {
		raw, ok := paths[p].(map[string]any)
		if !ok {
			continue
		}
		item, err := d.pathItem(p, raw)
		if err != nil {
			return nil, err
		}
		doc.Paths = append(doc.Paths, item)
	}
	return doc, nil
}

type decoder struct {
	components map[string]any
}

func (d *decoder) pathItem(path string, raw map[string]any) (PathItem, error) {
	item := PathItem{Path: path}
	params, err := d.parameters(raw["parameters"], path)
	if err != nil {
		return item, err
	}
	item.Parameters = params

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if pathItemFields[k] || strings.HasPrefix(k, "x-") {
			continue
		}
		opRaw, ok := raw[k].(map[string]any)
		if !ok {
			return item, fmt.Errorf("spec: %s %s: operation must be an object", k, path)
		}
		op, err := d.operation(path, k, opRaw)
		if err != nil {
			return item, err
		}
		item.Operations = append(item.Operations, MethodOperation{Method: k, Operation: op})
	}
	return item, nil
}

func (d *decoder) operation(path, method string, raw map[string]any) (*Operation, error) {
	where := method + " " + path
	op := &Operation{
		OperationID: strings.TrimSpace(str(raw["operationId"])),
		Summary:     strings.TrimSpace(str(raw["summary"])),
		Description: strings.TrimSpace(str(raw["description"])),
	}
	if tags, ok := raw["tags"].([]any); ok {
		for _, t := range tags {
			if s := strings.TrimSpace(str(t)); s != "" {
				op.Tags = append(op.Tags, s)
			}
		}
	}
	params, err := d.parameters(raw["parameters"], where)
	if err != nil {
		return nil, err
	}
	op.Parameters = params

	if rbRaw, ok := raw["requestBody"]; ok {
		m, err := d.deref(rbRaw, "requestBodies")
		if err != nil {
			return nil, fmt.Errorf("spec: %s: requestBody: %w", where, err)
		}
		rb := &RequestBody{}
		rb.Required, _ = m["required"].(bool)
		if rb.Content, err = content(m); err != nil {
			return nil, fmt.Errorf("spec: %s: requestBody: %w", where, err)
		}
		op.RequestBody = rb
	}

	if responses, ok := raw["responses"].(map[string]any); ok {
		op.Responses = make(map[string]*Response, len(responses))
		for code, rRaw := range responses {
			if strings.HasPrefix(code, "x-") {
				continue
			}
			m, err := d.deref(rRaw, "responses")
			if err != nil {
				return nil, fmt.Errorf("spec: %s: response %s: %w", where, code, err)
			}
			resp := &Response{Description: str(m["description"])}
			if resp.Content, err = content(m); err != nil {
				return nil, fmt.Errorf("spec: %s: response %s: %w", where, code, err)
			}
			op.Responses[code] = resp
		}
	}
	return op, nil
}

func (d *decoder) parameters(v any, where string) ([]Parameter, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, nil
	}
	out := make([]Parameter, 0, len(list))
	for i, pRaw := range list {
		m, err := d.deref(pRaw, "parameters")
		if err != nil {
			return nil, fmt.Errorf("spec: %s: parameter %d: %w", where, i, err)
		}
		p := Parameter{
			Name: strings.TrimSpace(str(m["name"])),
			In:   strings.TrimSpace(str(m["in"])),
		}
		p.Required, _ = m["required"].(bool)
		p.Example = m["example"]
		if sRaw, ok := m["schema"]; ok {
			if p.Schema, err = schema.FromRaw(sRaw); err != nil {
				return nil, fmt.Errorf("spec: %s: parameter %q: %w", where, p.Name, err)
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// deref follows a single local reference into components.<section>.
func (d *decoder) deref(v any, section string) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", v)
	}
	ref, ok := m["$ref"].(string)
	if !ok {
		return m, nil
	}
	prefix := "#/components/" + section + "/"
	if !strings.HasPrefix(ref, prefix) {
		return nil, fmt.Errorf("unsupported $ref %q", ref)
	}
	sec, _ := d.components[section].(map[string]any)
	target, ok := sec[strings.TrimPrefix(ref, prefix)].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unresolved $ref %s", ref)
	}
	return target, nil
}

func content(m map[string]any) (map[string]*MediaType, error) {
	raw, ok := m["content"]
	if !ok || raw == nil {
		return nil, nil
	}
	cm, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("content must be an object")
	}
	out := make(map[string]*MediaType, len(cm))
	for mime, mtRaw := range cm {
		mt := &MediaType{}
		mtm, _ := mtRaw.(map[string]any)
		if sRaw, ok := mtm["schema"]; ok {
			n, err := schema.FromRaw(sRaw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", mime, err)
			}
			mt.Schema = n
		}
		mt.Example = mediaExample(mtm)
		out[mime] = mt
	}
	return out, nil
}

// mediaExample picks `example`, else the first named entry of `examples`.
func mediaExample(m map[string]any) any {
	if ex, ok := m["example"]; ok {
		return ex
	}
	named, ok := m["examples"].(map[string]any)
	if !ok || len(named) == 0 {
		return nil
	}
	names := make([]string, 0, len(named))
	for n := range named {
		names = append(names, n)
	}
	sort.Strings(names)
	if entry, ok := named[names[0]].(map[string]any); ok {
		return entry["value"]
	}
	return nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
