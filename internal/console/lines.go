// Package console reads user input lines without blocking cancellation.
package console

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Reader feeds lines from an io.Reader through a channel so that a pending
// read can be abandoned when the context is done.
type Reader struct {
	lines chan string
	err   error
}

// NewReader starts reading r in the background. r is owned by the Reader
// from now on.
func NewReader(r io.Reader) *Reader {
	lr := &Reader{lines: make(chan string)}
	go func() {
		defer close(lr.lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			lr.lines <- strings.TrimRight(sc.Text(), "\r")
		}
		lr.err = sc.Err()
	}()
	return lr
}

// ReadLine returns the next line without its newline. It returns io.EOF
// once the input is exhausted and ctx.Err() if ctx ends first.
func (r *Reader) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-r.lines:
		if !ok {
			if r.err != nil {
				return "", r.err
			}
			return "", io.EOF
		}
		return line, nil
	}
}
