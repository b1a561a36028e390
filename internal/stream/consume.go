package stream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// Handler receives the outcome of Consume. Any field may be nil.
type Handler struct {
	OnRecord func(record any)
	// OnError is called for every bad line and once for a read failure.
	OnError func(err error)
	// OnComplete is called only when the stream ends naturally.
	OnComplete func()
}

// Consume decodes r until it ends, ctx is done or a read fails, dispatching
// records in stream order. Bad lines are reported and skipped. The reader is
// closed on every return path. The returned error is nil on natural end,
// ctx.Err() on cancellation, or the read failure.
func Consume(ctx context.Context, r io.Reader, h Handler) error {
	d := NewDecoder(r)
	defer d.Close()

	for {
		rec, err := d.Next(ctx)
		if err == nil {
			if h.OnRecord != nil {
				h.OnRecord(rec)
			}
			continue
		}

		var de *DecodeError
		switch {
		case errors.As(err, &de):
			if h.OnError != nil {
				h.OnError(err)
			}
		case errors.Is(err, io.EOF):
			if h.OnComplete != nil {
				h.OnComplete()
			}
			return nil
		case ctx.Err() != nil:
			return err
		default:
			if h.OnError != nil {
				h.OnError(err)
			}
			return err
		}
	}
}

// CollectLines returns the non-blank lines of r without decoding them.
func CollectLines(ctx context.Context, r io.Reader) ([]string, error) {
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return lines, err
		}
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := ctx.Err(); err != nil {
		return lines, err
	}
	return lines, sc.Err()
}
