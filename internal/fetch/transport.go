// Package fetch calls endpoints over HTTP and turns responses into rows.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mark3labs/apiscope/internal/endpoint"
)

// RequestIDHeader carries a per-call identifier.
const RequestIDHeader = "X-Request-ID"

// Result is the outcome of one call. Failures are returned in Err rather
// than as a separate error. Stream is set instead of Data when the request
// asked for a streamed response; the caller must close it.
type Result struct {
	Data     any
	Stream   io.ReadCloser
	Response *http.Response
	Err      error
}

// Transport performs one endpoint call.
type Transport interface {
	Call(ctx context.Context, ep *endpoint.Endpoint, opts endpoint.RequestOptions) Result
}

// HTTPTransport calls endpoints relative to BaseURL.
type HTTPTransport struct {
	BaseURL string
	Client  *http.Client
	Logger  zerolog.Logger
}

// Option configures an HTTPTransport.
type Option func(*HTTPTransport)

// WithClient sets the HTTP client. The default has no timeout so streams
// can stay open; bound calls through the context instead.
func WithClient(c *http.Client) Option { return func(t *HTTPTransport) { t.Client = c } }

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option { return func(t *HTTPTransport) { t.Logger = l } }

// NewHTTPTransport returns a transport for the API at baseURL.
func NewHTTPTransport(baseURL string, opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{},
		Logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Call implements Transport.
func (t *HTTPTransport) Call(ctx context.Context, ep *endpoint.Endpoint, opts endpoint.RequestOptions) Result {
	req, err := t.newRequest(ctx, ep, opts)
	if err != nil {
		return Result{Err: err}
	}
	start := time.Now()
	resp, err := t.Client.Do(req)
	log := t.Logger.Debug().
		Str("operationId", ep.OperationID).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("requestId", req.Header.Get(RequestIDHeader)).
		Dur("elapsed", time.Since(start))
	if err != nil {
		log.Err(err).Msg("call failed")
		return Result{Err: err}
	}
	log.Int("status", resp.StatusCode).Msg("call")

	if opts.StreamResponse {
		return Result{Stream: resp.Body, Response: resp}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Response: resp, Err: err}
	}
	return Result{Data: decodeBody(raw, resp.Header.Get("Content-Type")), Response: resp}
}

func (t *HTTPTransport) newRequest(ctx context.Context, ep *endpoint.Endpoint, opts endpoint.RequestOptions) (*http.Request, error) {
	path, err := expandPath(ep.Path, opts.Path)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(t.BaseURL + path)
	if err != nil {
		return nil, fmt.Errorf("fetch: invalid url: %w", err)
	}
	if len(opts.Query) > 0 {
		u.RawQuery = encodeQuery(opts.Query)
	}

	var body io.Reader
	if opts.Body != nil {
		b, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("fetch: encode body: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, string(ep.Method), u.String(), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if ok := ep.Success(); ok != nil {
		req.Header.Set("Accept", ok.MediaType)
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	return req, nil
}

// expandPath substitutes {name} segments of a path template.
func expandPath(template string, values map[string]any) (string, error) {
	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("fetch: unterminated parameter in %q", template)
		}
		name := rest[open+1 : open+end]
		v, ok := values[name]
		if !ok || v == nil {
			return "", fmt.Errorf("fetch: missing path parameter %q", name)
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(scalarString(v)))
		rest = rest[open+end+1:]
	}
}

// encodeQuery encodes values in sorted key order; slices repeat the key.
func encodeQuery(values map[string]any) string {
	q := url.Values{}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := values[k].(type) {
		case nil:
		case []any:
			for _, item := range v {
				q.Add(k, scalarString(item))
			}
		default:
			q.Add(k, scalarString(v))
		}
	}
	return q.Encode()
}

func scalarString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}

func decodeBody(raw []byte, contentType string) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if strings.Contains(strings.ToLower(contentType), "json") || trimmed[0] == '{' || trimmed[0] == '[' {
		var v any
		if err := json.Unmarshal(trimmed, &v); err == nil {
			return v
		}
	}
	return string(raw)
}
