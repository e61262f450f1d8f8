// Package decode unwraps the Content-Encoding of a response body.
package decode

import (
	"compress/flate"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// Decode wraps the body by a decoder according to the Content-Encoding header value.
// Closing the returned reader closes the original body too.
// Unknown encodings are returned unchanged.
func Decode(body io.ReadCloser, contentEncoding string) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		v, err := gzip.NewReader(body)
		if errors.Is(err, io.EOF) {
			// Empty body
			return body, nil
		} else if err != nil {
			return nil, fmt.Errorf("cannot decode gzip: %w", err)
		}
		return &readCloser{Reader: v, closers: []io.Closer{v, body}}, nil
	case "deflate":
		v := flate.NewReader(body)
		return &readCloser{Reader: v, closers: []io.Closer{v, body}}, nil
	case "br":
		return &readCloser{Reader: brotli.NewReader(body), closers: []io.Closer{body}}, nil
	default:
		return body, nil
	}
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
