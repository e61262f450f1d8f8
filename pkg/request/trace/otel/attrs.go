package otel

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/semconv/v1.18.0/httpconv"
)

const (
	maskedAttrValue = "****"
)

type attributes struct {
	config config
	// definitionURL with redacted query parameters
	definitionURL *url.URL
	// definition attributes for span and metrics
	definition []attribute.KeyValue
	// definitionExtra attributes for span only
	definitionExtra []attribute.KeyValue
	// httpRequest attributes for span and metrics
	httpRequest []attribute.KeyValue
	// httpRequestExtra attributes for span only
	httpRequestExtra []attribute.KeyValue
	// httpResponse attributes for span and metrics
	httpResponse []attribute.KeyValue
	// httpResponseExtra attributes for span only
	httpResponseExtra []attribute.KeyValue
	// httpResponseError attributes for span only
	httpResponseError []attribute.KeyValue
}

func newAttributes(cfg config, req *http.Request) *attributes {
	out := &attributes{config: cfg}
	out.definitionURL = out.redactURL(req.URL)

	// Definition base
	out.definition = []attribute.KeyValue{
		attribute.String("definition.method", req.Method),
		attribute.String("definition.url.full", mustURLPathUnescape(out.definitionURL.String())),
		attribute.String("definition.url.path", mustURLPathUnescape(out.definitionURL.Path)),
		attribute.String("definition.url.host.full", out.definitionURL.Host),
	}
	if dotPos := strings.IndexByte(out.definitionURL.Host, '.'); dotPos > 0 {
		// Host parts: to trace service name (host prefix) and domain (host suffix).
		out.definition = append(out.definition,
			attribute.String("definition.url.host.prefix", out.definitionURL.Host[:dotPos]),
			attribute.String("definition.url.host.suffix", strings.TrimLeft(out.definitionURL.Host[dotPos:], ".")),
		)
	}

	// Definition params
	out.definitionExtra = append(out.definitionExtra, out.headerAttrs("definition.header.", req.Header)...)
	var queryAttrs []attribute.KeyValue
	for k, v := range out.definitionURL.Query() {
		queryAttrs = append(queryAttrs, attribute.String("definition.params.query."+k, strings.Join(v, ";")))
	}
	sort.SliceStable(queryAttrs, func(i, j int) bool {
		return queryAttrs[i].Key < queryAttrs[j].Key
	})
	out.definitionExtra = append(out.definitionExtra, queryAttrs...)
	out.definitionExtra = append(out.definitionExtra, attribute.Int64("definition.body.size", req.ContentLength))

	return out
}

func (v *attributes) SetFromRequest(req *http.Request) {
	if req == nil {
		v.httpRequest = nil
		v.httpRequestExtra = nil
		return
	}

	// Base, the URL is redacted
	clone := *req
	clone.URL = v.redactURL(req.URL)
	v.httpRequest = httpconv.ClientRequest(&clone)

	// Extra
	header := req.Header.Clone()
	header.Del("User-Agent") // already present from httpconv
	v.httpRequestExtra = v.headerAttrs("http.header.", header)
}

func (v *attributes) SetFromResponse(res *http.Response, err error) {
	if res == nil {
		v.httpResponse = nil
		v.httpResponseExtra = nil
	} else {
		v.httpResponse = httpconv.ClientResponse(res)
		v.httpResponseExtra = v.headerAttrs("http.response.header.", res.Header)
	}

	// Error
	var netErr net.Error
	errors.As(err, &netErr)
	v.httpResponseError = []attribute.KeyValue{
		attribute.Bool("http.response.isSuccess", isSuccess(res, err)),
		attribute.Bool("http.response.isRedirection", isRedirection(res)),
		attribute.Bool("http.response.error.has", err != nil),
		attribute.Bool("http.response.error.net", netErr != nil),
		attribute.Bool("http.response.error.timeout", netErr != nil && netErr.Timeout()),
		attribute.Bool("http.response.error.cancelled", errors.Is(err, context.Canceled)),
		attribute.Bool("http.response.error.deadline_exceeded", errors.Is(err, context.DeadlineExceeded)),
	}
}

func (v *attributes) headerAttrs(prefix string, header http.Header) []attribute.KeyValue {
	var out []attribute.KeyValue
	for key, values := range header {
		key = strings.ToLower(key)
		value := strings.Join(values, ";")
		if _, found := v.config.redactedHeaders[key]; found {
			value = maskedAttrValue
		}
		out = append(out, attribute.String(prefix+key, value))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out
}

func (v *attributes) redactURL(in *url.URL) *url.URL {
	clone := *in
	clone.User = nil
	if len(v.config.redactedQueryParams) > 0 && clone.RawQuery != "" {
		query := clone.Query()
		for k := range query {
			if _, found := v.config.redactedQueryParams[strings.ToLower(k)]; found {
				query.Set(k, maskedAttrValue)
			}
		}
		clone.RawQuery = query.Encode()
	}
	return &clone
}

func mustURLPathUnescape(in string) string {
	out, err := url.PathUnescape(in)
	if err != nil {
		return in
	}
	return out
}
