// Package counter measures the size of a response body as it was received, before any decoding.
package counter

import (
	"errors"
	"io"
)

// ReadCloser wraps an io.ReadCloser (request/response body) to count bytes read from the reader.
// Optionally, an OnClose callback can be registered.
type ReadCloser struct {
	wrapped io.ReadCloser
	onClose OnClose
	bytes   int64
	readErr error
	closed  bool
}

// OnClose is called once, when the reader is closed.
// The err is the last read error (except io.EOF) or the close error.
type OnClose func(bytes int64, err error)

func NewReadCloser(wrapped io.ReadCloser, onClose OnClose) *ReadCloser {
	return &ReadCloser{wrapped: wrapped, onClose: onClose}
}

// Bytes returns the number of bytes read so far.
func (r *ReadCloser) Bytes() int64 {
	return r.bytes
}

func (r *ReadCloser) Read(b []byte) (int, error) {
	n, err := r.wrapped.Read(b)
	r.bytes += int64(n)
	if err != nil && !errors.Is(err, io.EOF) {
		r.readErr = err
	}
	return n, err
}

func (r *ReadCloser) Close() error {
	closeErr := r.wrapped.Close()
	if !r.closed {
		r.closed = true
		if r.onClose != nil {
			err := r.readErr
			if err == nil {
				err = closeErr
			}
			r.onClose(r.bytes, err)
		}
	}
	return closeErr
}
