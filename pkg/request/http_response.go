package request

import (
	"net/http"
)

// Response is the last response captured by the Builder.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	// Body is nil, if the response has no body content, otherwise it is decoded by the Content-Encoding.
	Body []byte
	// WireBytes is the body size as it was received, before decoding.
	WireBytes int64
	raw       *http.Response
}

// HasBody returns false if the response carried no body content.
func (r *Response) HasBody() bool {
	return r.Body != nil
}

// IsSuccess method returns true if HTTP status `code >= 200 and <= 299` otherwise false.
func (r *Response) IsSuccess() bool {
	return r.StatusCode > 199 && r.StatusCode < 300
}

// IsError method returns true if HTTP status `code >= 400` otherwise false.
func (r *Response) IsError() bool {
	return r.StatusCode > 399
}

// IsJSON returns true if the response Content-Type is "application/json" or a "+json" vendor type.
func (r *Response) IsJSON() bool {
	return isJSONContentType(r.Header.Get("Content-Type"))
}

// RawRequest method returns the standard HTTP request, from the last redirect.
func (r *Response) RawRequest() *http.Request {
	if r.raw != nil {
		return r.raw.Request
	}
	return nil
}

// RawResponse method returns the standard HTTP response, its body is already consumed.
func (r *Response) RawResponse() *http.Response {
	return r.raw
}

func newResponse(res *http.Response) *Response {
	return &Response{StatusCode: res.StatusCode, Status: res.Status, Header: res.Header, raw: res}
}

// hasNoBody returns true if the response carried no body content.
func hasNoBody(res *http.Response) bool {
	return res.Body == nil || res.Body == http.NoBody || res.ContentLength == 0
}
