package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/apiscope/internal/endpoint"
	"github.com/mark3labs/apiscope/internal/stream"
)

// ErrStreamUnavailable is reported when a streamed call returns no body.
var ErrStreamUnavailable = errors.New("data stream locked or not available")

// TransportError reports a failed call: a transport failure, a non-2xx
// status, or a missing stream.
type TransportError struct {
	Status  int
	Message string
	Cause   error
}

func (e *TransportError) Error() string {
	msg := "fetch: " + e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("fetch: status %d: %s", e.Status, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Rows calls ep and delivers the response as rows to h. Streamed responses
// are decoded line by line; a materialized array yields one row per
// element and any other value a single row. Transport failures are
// reported once through h.OnError and returned.
func Rows(ctx context.Context, t Transport, ep *endpoint.Endpoint, opts endpoint.RequestOptions, h stream.Handler) error {
	res := t.Call(ctx, ep, opts)
	if err := checkResult(res); err != nil {
		if res.Stream != nil {
			_ = res.Stream.Close()
		}
		if h.OnError != nil {
			h.OnError(err)
		}
		return err
	}

	if opts.StreamResponse {
		if res.Stream == nil {
			err := &TransportError{Message: ErrStreamUnavailable.Error(), Cause: ErrStreamUnavailable}
			if h.OnError != nil {
				h.OnError(err)
			}
			return err
		}
		return stream.Consume(ctx, res.Stream, h)
	}

	if h.OnRecord != nil {
		switch data := res.Data.(type) {
		case nil:
		case []any:
			for _, row := range data {
				h.OnRecord(row)
			}
		default:
			h.OnRecord(data)
		}
	}
	if h.OnComplete != nil {
		h.OnComplete()
	}
	return nil
}

func checkResult(res Result) error {
	if res.Err != nil {
		if errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
			return res.Err
		}
		return &TransportError{Message: "request failed", Cause: res.Err}
	}
	if res.Response == nil || res.Response.StatusCode/100 == 2 {
		return nil
	}
	msg := res.Response.Status
	if res.Stream != nil {
		snippet, _ := io.ReadAll(io.LimitReader(res.Stream, 512))
		if s := strings.TrimSpace(string(snippet)); s != "" {
			msg = s
		}
	} else if s, ok := res.Data.(string); ok && strings.TrimSpace(s) != "" {
		msg = strings.TrimSpace(s)
	} else if res.Data != nil {
		msg = fmt.Sprint(res.Data)
	}
	return &TransportError{Status: res.Response.StatusCode, Message: msg}
}
