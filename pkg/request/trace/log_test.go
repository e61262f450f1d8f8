package trace_test

import (
	"context"
	"errors"
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

func TestLogTracer(t *testing.T) {
	t.Parallel()

	// Mocked response
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, `https://example.com/redirect`, func(_ *http.Request) (*http.Response, error) {
		res := httpmock.NewStringResponse(http.StatusFound, "")
		res.Header.Set("Location", "https://example.com/index")
		return res, nil
	})
	transport.RegisterResponder(http.MethodGet, `https://example.com/index`, httpmock.ResponderFromMultipleResponses([]*http.Response{
		httpmock.NewStringResponse(http.StatusOK, "OK1"),
		httpmock.NewStringResponse(http.StatusOK, "OK22"),
	}))

	// Logs for trace testing
	var logs strings.Builder

	b := request.New("https://example.com/redirect").
		WithTransport(transport).
		WithTrace(trace.LogTracer(&logs))

	// Expected trace
	expected := `
HTTP_REQUEST[0001] START GET "https://example.com/redirect"
HTTP_REQUEST[0001] DONE  GET "https://example.com/redirect" | 302 | %s
HTTP_REQUEST[0001] START GET "https://example.com/index"
HTTP_REQUEST[0001] DONE  GET "https://example.com/index" | 200 | %s
HTTP_REQUEST[0001] BODY  GET "https://example.com/index" | 3B | %s
HTTP_REQUEST[0002] START GET "https://example.com/redirect"
HTTP_REQUEST[0002] DONE  GET "https://example.com/redirect" | 302 | %s
HTTP_REQUEST[0002] START GET "https://example.com/index"
HTTP_REQUEST[0002] DONE  GET "https://example.com/index" | 200 | %s
HTTP_REQUEST[0002] BODY  GET "https://example.com/index" | 4B | %s
`

	// Test
	ctx := context.Background()
	body, err := b.Execute(ctx, http.MethodGet)
	require.NoError(t, err)
	assert.Equal(t, "OK1", string(body))
	body, err = b.Execute(ctx, http.MethodGet)
	require.NoError(t, err)
	assert.Equal(t, "OK22", string(body))
	wildcards.Assert(t, strings.TrimLeft(expected, "\n"), logs.String())
}

func TestLogTracer_Error(t *testing.T) {
	t.Parallel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodPost, `https://example.com`, httpmock.NewErrorResponder(errors.New("network down")))

	var logs strings.Builder
	b := request.New("https://example.com").
		WithTransport(transport).
		WithTrace(trace.LogTracer(&logs))

	expected := `
HTTP_REQUEST[0001] START POST "https://example.com"
HTTP_REQUEST[0001] DONE  POST "https://example.com" | 0 | %s | error=%s
HTTP_REQUEST[0001] BODY  POST "https://example.com" | no body | %s | error=request POST "https://example.com" failed: %s
`

	_, err := b.Execute(context.Background(), http.MethodPost)
	require.Error(t, err)
	wildcards.Assert(t, strings.TrimLeft(expected, "\n"), logs.String())
}
