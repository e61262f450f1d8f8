package request

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/keboola/go-request/pkg/request/trace"
)

// DefaultUserAgent is sent with each request, a Builder user agent is appended to it.
const DefaultUserAgent = "keboola-go-request"

// DefaultAcceptEncoding - response encodings decoded by the Builder.
const DefaultAcceptEncoding = "gzip, br"

// DialTimeout specifies default maximum connection initialization time.
const DialTimeout = 3 * time.Second

// KeepAlive specifies default interval between keep-alive probes.
const KeepAlive = 10 * time.Second

// TLSHandshakeTimeout specifies default timeout of TLS handshake.
const TLSHandshakeTimeout = 5 * time.Second

// ResponseHeaderTimeout specifies default amount of time to wait for a server's response headers.
const ResponseHeaderTimeout = 20 * time.Second

// MaxConnectionsPerHost specifies default maximum number of open connections to a host.
const MaxConnectionsPerHost = 32

// Transport is a reusable HTTP client handle, it is created by the Builder on the first execution.
// Transport is safe for concurrent use, it is never modified by the Builder.
type Transport struct {
	client  *http.Client
	wrapped http.RoundTripper
	header  http.Header
}

func newTransport(rt http.RoundTripper) *Transport {
	t := &Transport{
		client:  &http.Client{Transport: roundTripper{wrapped: rt}},
		wrapped: rt,
		header:  make(http.Header),
	}
	t.header.Set("User-Agent", DefaultUserAgent)
	t.header.Set("Accept-Encoding", DefaultAcceptEncoding)
	return t
}

// UserAgent returns the default outgoing user agent.
func (t *Transport) UserAgent() string {
	return t.header.Get("User-Agent")
}

// Header returns a copy of the default outgoing headers.
func (t *Transport) Header() http.Header {
	return t.header.Clone()
}

// RoundTripper returns the wrapped round tripper.
func (t *Transport) RoundTripper() http.RoundTripper {
	return t.wrapped
}

func (t *Transport) do(req *http.Request) (*http.Response, error) {
	return t.client.Do(req)
}

// roundTripper wraps a http.RoundTripper and calls trace hooks from the request context.
// It is invoked for each redirect.
type roundTripper struct {
	wrapped http.RoundTripper
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	t := trace.ContextClientTrace(req.Context())

	// Trace request start
	if t != nil && t.HTTPRequestStart != nil {
		t.HTTPRequestStart(req)
	}

	// Send
	res, err := rt.wrapped.RoundTrip(req)

	// Trace request done
	if t != nil && t.HTTPRequestDone != nil {
		t.HTTPRequestDone(res, err)
	}

	return res, err
}

// DefaultTransport default transport with reasonable limits.
func DefaultTransport() http.RoundTripper {
	dialer := Dialer()
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true, // HTTP2 is preferred.
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ResponseHeaderTimeout: ResponseHeaderTimeout,
		MaxConnsPerHost:       MaxConnectionsPerHost,
		MaxIdleConnsPerHost:   MaxConnectionsPerHost,
	}
}

// HTTP2Transport forces HTTP2 protocol.
func HTTP2Transport() http.RoundTripper {
	dialer := Dialer()
	return &http2.Transport{
		DialTLS: func(network, addr string, cfg *tls.Config) (net.Conn, error) {
			return tls.DialWithDialer(dialer, network, addr, cfg)
		},
		ReadIdleTimeout:  3 * time.Second,
		PingTimeout:      3 * time.Second,
		WriteByteTimeout: 3 * time.Second,
	}
}

// Dialer - default dialer.
func Dialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   DialTimeout,
		KeepAlive: KeepAlive,
	}
}
