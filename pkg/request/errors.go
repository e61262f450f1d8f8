package request

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// EncodeError is returned if the Payload cannot be encoded to the request body.
type EncodeError struct {
	Payload Payload
	err     error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("cannot encode %T: %s", e.Payload, e.err)
}

func (e *EncodeError) Unwrap() error {
	return e.err
}

// DecodeError is returned if the response body cannot be mapped to the target type.
type DecodeError struct {
	Target string
	Body   []byte
	err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode JSON response to %s: %s", e.Target, e.err)
}

func (e *DecodeError) Unwrap() error {
	return e.err
}

// handleSendError converts an error returned from the http.Client to a more readable form.
// Cancellation and deadline errors remain detectable by errors.Is.
func handleSendError(startedAt time.Time, req *http.Request, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		if deadline, ok := req.Context().Deadline(); ok {
			err = urlError(req, fmt.Errorf("timeout after %s: %w", deadline.Sub(startedAt), context.DeadlineExceeded))
		} else {
			err = urlError(req, fmt.Errorf("timeout after %s: %w", time.Since(startedAt), context.DeadlineExceeded))
		}
	case errors.Is(err, context.Canceled):
		err = urlError(req, fmt.Errorf("canceled after %s: %w", time.Since(startedAt), context.Canceled))
	case errors.As(err, &netErr) && netErr.Timeout():
		err = urlError(req, fmt.Errorf("timeout after %s: %w", time.Since(startedAt), netErr))
	}

	// Url error
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = fmt.Errorf(`request %s "%s" failed: %w`, strings.ToUpper(urlErr.Op), urlErr.URL, urlErr.Err)
	}

	return err
}

func urlError(req *http.Request, err error) *url.Error {
	return &url.Error{Op: req.Method, URL: req.URL.String(), Err: err}
}
