package request

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/keboola/go-request/pkg/request/counter"
	"github.com/keboola/go-request/pkg/request/decode"
	"github.com/keboola/go-request/pkg/request/trace"
)

// Execute sends the request and returns the response body.
//
// The returned body is nil, if the response carried no body content.
// A response with a body of unknown length, which turns out to be empty, returns a non-nil empty slice.
// The HTTP status code is not checked, see LastResponse.
func (b *Builder) Execute(ctx context.Context, method string) (body []byte, err error) {
	b.lastRequest = nil
	b.lastResponse = nil

	transport := b.getTransport()

	// Request scoped timeout, the Transport is shared by all executions
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	// Create request
	req, err := b.newRequest(ctx, transport, method)
	if err != nil {
		return nil, err
	}

	// Stop if context has been cancelled
	if err := ctx.Err(); err != nil {
		return nil, handleSendError(time.Now(), req, err)
	}

	// Init trace, hooks from the ctx are composed with the Builder hooks
	t := trace.ContextClientTrace(ctx)
	if b.traceFactory != nil {
		var factoryTrace *trace.ClientTrace
		ctx, factoryTrace = b.traceFactory(ctx, req)
		if factoryTrace != nil {
			ctx = trace.WithClientTrace(ctx, factoryTrace)
			t = factoryTrace
		}
		req = req.WithContext(ctx)
	}
	b.lastRequest = req

	// Trace request processed
	var rawResponse *http.Response
	if t != nil && t.RequestProcessed != nil {
		defer func() {
			t.RequestProcessed(rawResponse, body, err)
		}()
	}

	// Send request
	startedAt := time.Now()
	rawResponse, err = transport.do(req)
	if err != nil {
		return nil, handleSendError(startedAt, req, err)
	}

	// Capture response
	response := newResponse(rawResponse)
	if hasNoBody(rawResponse) {
		_ = rawResponse.Body.Close()
		b.lastResponse = response
		return nil, nil
	}

	// Read body
	body, response.WireBytes, err = readBody(rawResponse, t)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, handleSendError(startedAt, req, ctxErr)
		}
		return nil, fmt.Errorf(`request %s "%s": cannot read response body: %w`, req.Method, req.URL.String(), err)
	}
	response.Body = body
	b.lastResponse = response
	return body, nil
}

// ExecuteAs sends the request and maps the JSON response body to a value of type T.
// JSON object keys are matched to struct fields case-insensitively.
//
// The result is nil without decoding, if the response body is missing or empty.
// The result is also nil, if the response body is JSON null.
func ExecuteAs[T any](ctx context.Context, b *Builder, method string) (*T, error) {
	body, err := b.Execute(ctx, method)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}

	var out *T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &DecodeError{Target: reflect.TypeOf((*T)(nil)).Elem().String(), Body: body, err: err}
	}
	return out, nil
}

// Get is shortcut for ExecuteAs[T](ctx, b, http.MethodGet).
func Get[T any](ctx context.Context, b *Builder) (*T, error) {
	return ExecuteAs[T](ctx, b, http.MethodGet)
}

// Post is shortcut for ExecuteAs[T](ctx, b, http.MethodPost).
func Post[T any](ctx context.Context, b *Builder) (*T, error) {
	return ExecuteAs[T](ctx, b, http.MethodPost)
}

// Put is shortcut for ExecuteAs[T](ctx, b, http.MethodPut).
func Put[T any](ctx context.Context, b *Builder) (*T, error) {
	return ExecuteAs[T](ctx, b, http.MethodPut)
}

// Patch is shortcut for ExecuteAs[T](ctx, b, http.MethodPatch).
func Patch[T any](ctx context.Context, b *Builder) (*T, error) {
	return ExecuteAs[T](ctx, b, http.MethodPatch)
}

// Delete is shortcut for ExecuteAs[T](ctx, b, http.MethodDelete).
func Delete[T any](ctx context.Context, b *Builder) (*T, error) {
	return ExecuteAs[T](ctx, b, http.MethodDelete)
}

func (b *Builder) newRequest(ctx context.Context, transport *Transport, method string) (*http.Request, error) {
	// Body
	var body []byte
	var contentType string
	if b.payload != nil {
		var err error
		if body, contentType, err = b.payload.encode(); err != nil {
			return nil, err
		}
	}

	// Create request
	var bodyReader io.Reader
	if b.payload != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), b.url.String(), bodyReader)
	if err != nil {
		return nil, err
	}

	// Request headers
	header, err := b.Header()
	if err != nil {
		return nil, err
	}
	for k, values := range header {
		switch http.CanonicalHeaderKey(k) {
		case "Host":
			// The header map value is ignored by the http.Client
			req.Host = values[0]
		case "User-Agent":
			// The http.Client reads the canonical key only
			req.Header["User-Agent"] = values
		default:
			req.Header[k] = values
		}
	}

	// Content type of the payload
	if _, found := b.headers[headerKey("Content-Type")]; !found && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	// User agent
	if _, found := b.headers[headerKey("User-Agent")]; !found {
		userAgent := transport.UserAgent()
		if b.userAgent != "" {
			userAgent = strings.TrimSpace(userAgent + " " + b.userAgent)
		}
		req.Header.Set("User-Agent", userAgent)
	}

	// Other default headers
	for k, values := range transport.header {
		if _, found := b.headers[headerKey(k)]; !found && req.Header.Get(k) == "" {
			req.Header[k] = append([]string(nil), values...)
		}
	}

	return req, nil
}

func readBody(res *http.Response, t *trace.ClientTrace) (body []byte, wireBytes int64, err error) {
	if t != nil && t.BodyReadStart != nil {
		t.BodyReadStart(res)
	}

	counted := counter.NewReadCloser(res.Body, func(bytes int64, _ error) {
		wireBytes = bytes
	})
	defer func() {
		_ = counted.Close()
		if t != nil && t.BodyReadDone != nil {
			t.BodyReadDone(res, body, wireBytes, err)
		}
	}()

	decoded, err := decode.Decode(counted, res.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, 0, err
	}

	// Non-nil slice, even if the body is empty
	body, err = io.ReadAll(decoded)
	if err != nil {
		return nil, 0, err
	}
	return body, counted.Bytes(), nil
}
