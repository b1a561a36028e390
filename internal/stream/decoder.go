package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/goccy/go-json"
)

// DecodeError reports one NDJSON line that is not valid JSON. Decoding can
// continue past it.
type DecodeError struct {
	Line  int
	Raw   string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("stream: line %d: %v", e.Line, e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// Decoder reads records from a newline-delimited JSON stream. A Decoder owns
// its reader; it is not safe for concurrent use.
type Decoder struct {
	br        *bufio.Reader
	closer    io.Closer
	closeOnce sync.Once
	closeErr  error
	line      int
	done      bool
}

// NewDecoder returns a decoder reading from r. If r is an io.Closer it is
// closed by Close and when a pending read is cancelled.
func NewDecoder(r io.Reader) *Decoder {
	d := &Decoder{br: bufio.NewReaderSize(r, 64*1024)}
	if c, ok := r.(io.Closer); ok {
		d.closer = c
	}
	return d
}

// Next returns the next record. It returns io.EOF at the natural end of the
// stream, ctx.Err() once ctx is done, and a *DecodeError for a bad line.
// Blank lines are skipped and a trailing fragment without a newline is
// decoded as the final record.
func (d *Decoder) Next(ctx context.Context) (any, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d.done {
			return nil, io.EOF
		}

		stop := context.AfterFunc(ctx, func() { _ = d.Close() })
		raw, err := d.br.ReadBytes('\n')
		stop()

		switch {
		case errors.Is(err, io.EOF):
			d.done = true
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("stream: read: %w", err)
		}

		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		d.line++
		var v any
		if err := json.Unmarshal(line, &v); err != nil {
			return nil, &DecodeError{Line: d.line, Raw: string(line), Cause: err}
		}
		return v, nil
	}
}

// Line returns the number of non-blank lines read so far.
func (d *Decoder) Line() int { return d.line }

// Close releases the underlying reader. It is safe to call more than once.
func (d *Decoder) Close() error {
	d.closeOnce.Do(func() {
		if d.closer != nil {
			d.closeErr = d.closer.Close()
		}
	})
	return d.closeErr
}
