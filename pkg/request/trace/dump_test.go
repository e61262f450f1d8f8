package trace_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/keboola/go-utils/pkg/wildcards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keboola/go-request/pkg/request"
	"github.com/keboola/go-request/pkg/request/trace"
)

func TestDumpTracer(t *testing.T) {
	t.Parallel()

	// Mocked response
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, `https://example.com/items`, func(_ *http.Request) (*http.Response, error) {
		header := make(http.Header)
		header.Set("Content-Type", "application/json")
		return &http.Response{
			StatusCode:    http.StatusCreated,
			Header:        header,
			Body:          io.NopCloser(strings.NewReader(`{"id":1}`)),
			ContentLength: 8,
		}, nil
	})

	// Logs for trace testing
	var logs strings.Builder

	b := request.New("https://example.com/items").
		WithTransport(transport).
		WithTrace(trace.DumpTracer(&logs)).
		AddHeader("X-Trace", "abc").
		AddJSON(map[string]any{"name": "foo"}, "application/json")

	// Expected trace
	expected := `
>>>>>> HTTP DUMP
POST /items HTTP/1.1
Host: example.com
User-Agent: keboola-go-request
Content-Length: 14
Accept-Encoding: gzip, br
Content-Type: application/json
X-Trace: abc

{"name":"foo"}
------
HTTP/0.0 201 Created
Content-Length: 8
Content-Type: application/json
------
{"id":1}
<<<<<< HTTP DUMP END

>>>>>> HTTP REQUEST PROCESSED |  POST /items 201 | ERROR: <nil> | HEADERS AT: %s | DONE AT: %s
`

	// Test
	body, err := b.Execute(context.Background(), http.MethodPost)
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(body))
	wildcards.Assert(t, strings.TrimLeft(expected, "\n"), logs.String())
}
