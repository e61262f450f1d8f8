package request

import (
	"os"

	"github.com/jarcoal/httpmock"

	"github.com/keboola/go-request/pkg/request/trace"
)

var testTransport = DefaultTransport() //nolint:gochecknoglobals

// NewTestBuilder creates the Builder for tests.
//
// If the TEST_HTTP_CLIENT_VERBOSE environment variable is set to "true",
// then all HTTP requests and responses are dumped to stdout.
//
// Output may contain unmasked tokens, do not use it in production.
func NewTestBuilder(address string) *Builder {
	b := New(address).WithTransport(testTransport)
	if os.Getenv("TEST_HTTP_CLIENT_VERBOSE") == "true" { //nolint:forbidigo
		b.WithTrace(trace.DumpTracer(os.Stdout))
	}
	return b
}

// NewMockedBuilder creates the Builder with mocked HTTP transport.
func NewMockedBuilder(address string) (*Builder, *httpmock.MockTransport) {
	mockTransport := httpmock.NewMockTransport()
	return NewTestBuilder(address).WithTransport(mockTransport), mockTransport
}
