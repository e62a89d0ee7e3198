package ipc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// maxLine bounds a single request line.
const maxLine = 1 << 20

// Serve reads one JSON request per line from r and writes one JSON response
// per line to w until r is exhausted or ctx is done. Requests are handled in
// order. A line that is not a request gets a bad_request response with no id.
// Cancelling ctx returns promptly even while r is blocked; the reading
// goroutine then exits on its next line or when r is closed.
func (d *Dispatcher) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLine)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-done:
				return
			}
		}
		readErr <- sc.Err()
	}()

	enc := json.NewEncoder(w)

	d.log.WithField("commands", len(d.handlers)).Info("ipc: serving")
	for {
		var line []byte
		select {
		case <-ctx.Done():
			d.log.Info("ipc: shutting down")
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("ipc: read request: %w", err)
				}
				return nil
			}
			line = l
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			err = fmt.Errorf("%w: %v", ErrBadRequest, err)
			if werr := enc.Encode(Response{Error: toError(err)}); werr != nil {
				return werr
			}
			continue
		}
		if err := enc.Encode(d.Handle(ctx, req)); err != nil {
			return fmt.Errorf("ipc: write response: %w", err)
		}
	}
}
