package request

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/keboola/go-request/pkg/request/trace"
)

// Builder accumulates a request configuration, see Execute and ExecuteAs.
// The target URL is fixed, all other settings can be modified between executions.
type Builder struct {
	url          *url.URL
	headers      map[string]header
	payload      Payload
	timeout      time.Duration
	userAgent    string
	roundTripper http.RoundTripper
	transport    *Transport
	traceFactory trace.Factory
	lastRequest  *http.Request
	lastResponse *Response
}

type header struct {
	name  string
	value any
}

// New creates a Builder for the target URL.
// It panics if the URL is not valid.
func New(address string) *Builder {
	u, err := url.Parse(address)
	if err != nil {
		panic(fmt.Errorf(`url "%s" is not valid: %w`, address, err))
	}
	return NewFromURL(u)
}

// NewFromURL creates a Builder for the target URL.
func NewFromURL(u *url.URL) *Builder {
	if u == nil {
		panic(fmt.Errorf("url cannot be nil"))
	}
	return &Builder{url: cloneURL(u), headers: make(map[string]header)}
}

// URL returns a copy of the target URL.
func (b *Builder) URL() *url.URL {
	return cloneURL(b.url)
}

// AddHeader adds the header, if a header with the same name is not already present.
// Header names are case-insensitive and surrounding whitespace is removed, the value is converted to a string when the request is built.
func (b *Builder) AddHeader(name string, value any) *Builder {
	name = strings.TrimSpace(name)
	key := headerKey(name)
	if _, found := b.headers[key]; !found {
		b.headers[key] = header{name: name, value: value}
	}
	return b
}

// Header returns headers with values converted to strings.
func (b *Builder) Header() (http.Header, error) {
	out := make(http.Header, len(b.headers))
	for _, h := range b.headers {
		value, err := castToString(h.value)
		if err != nil {
			return nil, fmt.Errorf(`cannot render header "%s": %w`, h.name, err)
		}
		// Name is not canonicalized, the header is written as it was defined.
		out[h.name] = []string{value}
	}
	return out, nil
}

// AddPayload replaces the request body definition.
func (b *Builder) AddPayload(payload Payload) *Builder {
	b.payload = payload
	return b
}

// AddText is shortcut for AddPayload(TextPayload{...}), empty contentType and encoding mean defaults.
func (b *Builder) AddText(text, contentType, encoding string) *Builder {
	return b.AddPayload(TextPayload{Text: text, ContentType: contentType, Encoding: encoding})
}

// AddBytes is shortcut for AddPayload(BytesPayload{...}), empty contentType means no Content-Type header.
func (b *Builder) AddBytes(data []byte, contentType string) *Builder {
	return b.AddPayload(BytesPayload{Data: data, ContentType: contentType})
}

// AddJSON is shortcut for AddPayload(JSONPayload{...}), empty contentType means no Content-Type header.
func (b *Builder) AddJSON(value any, contentType string) *Builder {
	return b.AddPayload(JSONPayload{Value: value, ContentType: contentType})
}

// Payload returns the request body definition, or nil.
func (b *Builder) Payload() Payload {
	return b.payload
}

// SetTimeout limits duration of each following execution, including reading of the response body.
// Zero value means no limit.
func (b *Builder) SetTimeout(timeout time.Duration) *Builder {
	b.timeout = timeout
	return b
}

func (b *Builder) Timeout() time.Duration {
	return b.timeout
}

// SetUserAgent sets a value appended to the default User-Agent header.
func (b *Builder) SetUserAgent(userAgent string) *Builder {
	b.userAgent = userAgent
	return b
}

func (b *Builder) UserAgent() string {
	return b.userAgent
}

// WithTransport sets the HTTP transport used when the Transport is created.
// An already created Transport is dropped.
func (b *Builder) WithTransport(transport http.RoundTripper) *Builder {
	if transport == nil {
		panic(fmt.Errorf("transport cannot be nil"))
	}
	b.roundTripper = transport
	b.transport = nil
	return b
}

// WithTrace sets trace hooks for following executions.
func (b *Builder) WithTrace(fn trace.Factory) *Builder {
	b.traceFactory = fn
	return b
}

// Transport returns the Transport, or nil if the Builder has not been executed yet.
func (b *Builder) Transport() *Transport {
	return b.transport
}

// LastRequest returns the last sent request, or nil.
func (b *Builder) LastRequest() *http.Request {
	return b.lastRequest
}

// LastResponse returns the last captured response, or nil.
// It is nil if the last execution failed before the response was received.
func (b *Builder) LastResponse() *Response {
	return b.lastResponse
}

func (b *Builder) getTransport() *Transport {
	if b.transport == nil {
		rt := b.roundTripper
		if rt == nil {
			rt = DefaultTransport()
		}
		b.transport = newTransport(rt)
	}
	return b.transport
}
