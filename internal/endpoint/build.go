package endpoint

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mark3labs/apiscope/internal/filter"
	"github.com/mark3labs/apiscope/internal/schema"
	"github.com/mark3labs/apiscope/internal/spec"
)

// BuildOption configures how endpoints are built from a document.
type BuildOption func(*buildConfig)

type buildConfig struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[Method]struct{}
	pathRes     []*regexp.Regexp
	bodyMethods map[Method]struct{}
	logger      zerolog.Logger
}

func newBuildConfig(opts []BuildOption) *buildConfig {
	cfg := &buildConfig{
		bodyMethods: map[Method]struct{}{POST: {}},
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithIncludeTags keeps only endpoints that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		c.includeTags = addTags(c.includeTags, tags)
	}
}

// WithExcludeTags removes endpoints that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		c.excludeTags = addTags(c.excludeTags, tags)
	}
}

func addTags(set map[string]struct{}, tags []string) map[string]struct{} {
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if set == nil {
			set = make(map[string]struct{}, len(tags))
		}
		set[t] = struct{}{}
	}
	return set
}

// WithMethods keeps only endpoints using one of the provided HTTP methods.
func WithMethods(ms []Method) BuildOption {
	return func(c *buildConfig) {
		if len(ms) == 0 {
			return
		}
		if c.methods == nil {
			c.methods = make(map[Method]struct{}, len(ms))
		}
		for _, m := range ms {
			c.methods[m] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only endpoints whose path matches at least one of the
// provided regular expressions. An invalid pattern matches nothing.
func WithPathPatterns(patterns []string) BuildOption {
	return func(c *buildConfig) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				re = regexp.MustCompile("a^$")
			}
			c.pathRes = append(c.pathRes, re)
		}
	}
}

// WithBodyMethods sets the methods allowed to declare a request body.
// The default is POST only.
func WithBodyMethods(ms []Method) BuildOption {
	return func(c *buildConfig) {
		if len(ms) == 0 {
			return
		}
		c.bodyMethods = make(map[Method]struct{}, len(ms))
		for _, m := range ms {
			c.bodyMethods[m] = struct{}{}
		}
	}
}

// WithLogger sets the logger used for collisions and skipped operations.
func WithLogger(l zerolog.Logger) BuildOption {
	return func(c *buildConfig) { c.logger = l }
}

// Catalog holds the endpoints of one document keyed by operationId.
type Catalog struct {
	Endpoints []*Endpoint // sorted by OperationID
	// Collisions lists operationIds declared more than once; the last
	// declaration wins.
	Collisions []string
	byID       map[string]*Endpoint
}

// Get returns the endpoint with the given operationId.
func (c *Catalog) Get(operationID string) (*Endpoint, bool) {
	ep, ok := c.byID[operationID]
	return ep, ok
}

// Tags returns the sorted set of tags used by the catalog's endpoints.
func (c *Catalog) Tags() []string {
	set := make(map[string]struct{})
	for _, ep := range c.Endpoints {
		for _, t := range ep.Tags {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// BuildCatalog builds every operation of doc. Operations that fail are
// reported in the joined error while the rest are still returned.
func BuildCatalog(doc *spec.Document, opts ...BuildOption) (*Catalog, error) {
	if doc == nil {
		return nil, errors.New("endpoint: nil document")
	}
	cfg := newBuildConfig(opts)
	cat := &Catalog{byID: make(map[string]*Endpoint)}
	var errs []error

	for _, item := range doc.Paths {
		if !cfg.allowPath(item.Path) {
			continue
		}
		for _, mo := range item.Operations {
			if m, ok := ParseMethod(mo.Method); ok && !cfg.allowMethod(m) {
				continue
			}
			if !cfg.allowTags(mo.Operation.Tags) {
				continue
			}
			ep, err := build(item.Path, mo.Method, item.Parameters, mo.Operation, doc.Schemas, cfg)
			if err != nil {
				cfg.logger.Warn().Err(err).Str("path", item.Path).Str("method", mo.Method).Msg("skipping operation")
				errs = append(errs, err)
				continue
			}
			if prev, dup := cat.byID[ep.OperationID]; dup {
				cfg.logger.Warn().
					Str("operationId", ep.OperationID).
					Str("previous", string(prev.Method)+" "+prev.Path).
					Str("current", string(ep.Method)+" "+ep.Path).
					Msg("duplicate operationId, last declaration wins")
				cat.Collisions = append(cat.Collisions, ep.OperationID)
			}
			cat.byID[ep.OperationID] = ep
		}
	}

	cat.Endpoints = make([]*Endpoint, 0, len(cat.byID))
	for _, ep := range cat.byID {
		cat.Endpoints = append(cat.Endpoints, ep)
	}
	sort.Slice(cat.Endpoints, func(i, j int) bool {
		return cat.Endpoints[i].OperationID < cat.Endpoints[j].OperationID
	})
	return cat, errors.Join(errs...)
}

func (c *buildConfig) allowPath(p string) bool {
	if len(c.pathRes) == 0 {
		return true
	}
	for _, re := range c.pathRes {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}

func (c *buildConfig) allowMethod(m Method) bool {
	if len(c.methods) == 0 {
		return true
	}
	_, ok := c.methods[m]
	return ok
}

func (c *buildConfig) allowTags(tags []string) bool {
	if len(c.includeTags) > 0 {
		ok := false
		for _, t := range tags {
			if _, yes := c.includeTags[t]; yes {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, t := range tags {
		if _, blocked := c.excludeTags[t]; blocked {
			return false
		}
	}
	return true
}

// Build turns one operation into an Endpoint. method is the raw path item
// key, e.g. "get".
func Build(path, method string, op *spec.Operation, defs schema.Map, opts ...BuildOption) (*Endpoint, error) {
	return build(path, method, nil, op, defs, newBuildConfig(opts))
}

func build(path, rawMethod string, shared []spec.Parameter, op *spec.Operation, defs schema.Map, cfg *buildConfig) (*Endpoint, error) {
	fail := func(code ErrorCode, opID, msg string, cause error) error {
		return &BuildError{Code: code, OperationID: opID, Method: rawMethod, Path: path, Message: msg, Cause: cause}
	}
	if op == nil {
		return nil, fail(UnsupportedMethod, "", "missing operation", nil)
	}
	m, ok := ParseMethod(rawMethod)
	if !ok {
		return nil, fail(UnsupportedMethod, op.OperationID, "unsupported HTTP method "+rawMethod, nil)
	}
	opID := op.OperationID
	if opID == "" {
		opID = deriveOperationID(m, path)
	}

	ep := &Endpoint{
		OperationID: opID,
		MethodName:  toCamel(opID),
		Title:       firstNonEmpty(op.Summary, op.Description, opID),
		Method:      m,
		Path:        path,
		Tags:        append([]string{}, op.Tags...),
	}

	for _, p := range mergeParams(shared, op.Parameters) {
		param, err := buildParam(p, defs)
		if err != nil {
			return nil, fail(codeOf(err, UnsupportedParameterLocation), opID, "parameter "+p.Name, err)
		}
		ep.Params = append(ep.Params, param)
	}

	responses, err := buildResponses(op.Responses, defs)
	if err != nil {
		return nil, fail(codeOf(err, MissingResponseBodyContent), opID, "responses", err)
	}
	ep.Responses = responses
	if r := ep.Success(); r != nil {
		ep.Streaming = r.Streaming
	}

	if op.RequestBody != nil {
		if _, allowed := cfg.bodyMethods[m]; !allowed {
			return nil, fail(InvalidRequestBodyMethod, opID, "method "+string(m)+" cannot declare a request body", nil)
		}
		querying := ep.Streaming || m == GET
		param, err := buildBodyParam(op.RequestBody, querying, defs)
		if err != nil {
			return nil, fail(codeOf(err, MissingRequestBodyContent), opID, "request body", err)
		}
		ep.Params = append(ep.Params, param)
	}
	return ep, nil
}

// codeErr lets helpers pick the BuildError code while build adds context.
type codeErr struct {
	code ErrorCode
	err  error
}

func (e *codeErr) Error() string { return e.err.Error() }
func (e *codeErr) Unwrap() error { return e.err }

func codeOf(err error, fallback ErrorCode) ErrorCode {
	var ce *codeErr
	if errors.As(err, &ce) {
		return ce.code
	}
	var se *schema.Error
	if errors.As(err, &se) {
		return SchemaResolution
	}
	return fallback
}

// mergeParams lists path-level params first; an operation-level param with
// the same location and name replaces it in place.
func mergeParams(shared, own []spec.Parameter) []spec.Parameter {
	out := make([]spec.Parameter, 0, len(shared)+len(own))
	index := make(map[string]int, len(shared))
	for _, p := range shared {
		index[paramKey(p)] = len(out)
		out = append(out, p)
	}
	for _, p := range own {
		if i, ok := index[paramKey(p)]; ok {
			out[i] = p
			continue
		}
		index[paramKey(p)] = len(out)
		out = append(out, p)
	}
	return out
}

func paramKey(p spec.Parameter) string { return p.In + ":" + p.Name }

func buildParam(p spec.Parameter, defs schema.Map) (Param, error) {
	var kind ParamKind
	switch p.In {
	case "path":
		kind = Path
	case "query":
		kind = Query
	default:
		return Param{}, &codeErr{UnsupportedParameterLocation, errors.New("unsupported location " + p.In)}
	}
	s, err := schema.InlineWithExample(p.Schema, defs, p.Example)
	if err != nil {
		return Param{}, err
	}
	return Param{In: kind, Name: p.Name, Required: p.Required || kind == Path, Schema: s}, nil
}

func buildResponses(responses map[string]*spec.Response, defs schema.Map) (map[string]*ResponseBody, error) {
	out := make(map[string]*ResponseBody, len(responses))
	codes := make([]string, 0, len(responses))
	for c := range responses {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	for _, code := range codes {
		r := responses[code]
		if r == nil || r.Content == nil {
			out[code] = nil
			continue
		}
		mediaType, ok := pickMediaType(r.Content)
		if !ok {
			return nil, &codeErr{MissingResponseBodyContent, errors.New("status " + code + " declares empty content")}
		}
		entry := r.Content[mediaType]
		s, err := schema.InlineWithExample(entry.Schema, defs, entry.Example)
		if err != nil {
			return nil, err
		}
		out[code] = &ResponseBody{Schema: s, MediaType: mediaType, Streaming: IsStreamingMediaType(mediaType)}
	}
	return out, nil
}

func buildBodyParam(rb *spec.RequestBody, querying bool, defs schema.Map) (Param, error) {
	mediaType, ok := pickMediaType(rb.Content)
	if !ok {
		return Param{}, &codeErr{MissingRequestBodyContent, errors.New("no content declared")}
	}
	entry := rb.Content[mediaType]
	s, err := schema.InlineWithExample(entry.Schema, defs, entry.Example)
	if err != nil {
		return Param{}, err
	}
	if !querying {
		return Param{In: Entity, Name: mediaType, Required: rb.Required, Schema: s}, nil
	}
	fields, err := filter.Extract(s)
	if err != nil {
		return Param{}, &codeErr{FilterExtractionDefect, err}
	}
	return Param{In: Filter, Name: mediaType, Required: rb.Required, Schema: s, Fields: fields}, nil
}

// pickMediaType prefers the first JSON media type, else the first key.
func pickMediaType(content map[string]*spec.MediaType) (string, bool) {
	keys := spec.MediaTypes(content)
	if len(keys) == 0 {
		return "", false
	}
	for _, k := range keys {
		if strings.HasSuffix(strings.ToLower(k), "json") {
			return k, true
		}
	}
	return keys[0], true
}

// IsStreamingMediaType reports whether mediaType denotes NDJSON.
func IsStreamingMediaType(mediaType string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(mediaType)), "ndjson")
}

var snakeRe = regexp.MustCompile(`_([a-z])`)

func toCamel(s string) string {
	return snakeRe.ReplaceAllStringFunc(s, func(m string) string {
		return strings.ToUpper(m[1:])
	})
}

var nonIdentRe = regexp.MustCompile(`[^A-Za-z0-9]+`)

func deriveOperationID(m Method, path string) string {
	id := strings.Trim(nonIdentRe.ReplaceAllString(path, "_"), "_")
	if id == "" {
		return strings.ToLower(string(m))
	}
	return strings.ToLower(string(m)) + "_" + id
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
