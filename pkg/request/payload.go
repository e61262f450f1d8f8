package request

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

const (
	ContentTypeTextPlain       = "text/plain"
	ContentTypeApplicationJSON = "application/json"
	DefaultTextEncoding        = "utf-8"
)

// Payload is a request body definition.
// It is implemented only by TextPayload, BytesPayload and JSONPayload.
type Payload interface {
	// encode returns the body and the Content-Type header value, empty if the header should not be set.
	encode() (body []byte, contentType string, err error)
}

// TextPayload is sent as the text encoded by Encoding.
type TextPayload struct {
	Text string
	// ContentType defaults to "text/plain".
	ContentType string
	// Encoding is an IANA charset name, for example "utf-8", "iso-8859-2" or "windows-1250", it defaults to "utf-8".
	// The charset parameter of the ContentType is replaced by the Encoding.
	Encoding string
}

// BytesPayload is sent verbatim.
type BytesPayload struct {
	Data []byte
	// ContentType header is not set if it is empty.
	ContentType string
}

// JSONPayload is sent as the JSON encoding of the Value.
type JSONPayload struct {
	Value any
	// ContentType header is not set if it is empty.
	ContentType string
}

func (p TextPayload) encode() ([]byte, string, error) {
	encodingName := strings.TrimSpace(p.Encoding)
	if encodingName == "" {
		encodingName = DefaultTextEncoding
	}

	contentType, err := textContentType(p.ContentType, strings.ToLower(encodingName))
	if err != nil {
		return nil, "", &EncodeError{Payload: p, err: err}
	}

	enc, err := ianaindex.IANA.Encoding(encodingName)
	if err == nil && enc == nil {
		err = errors.New("encoding is not supported")
	}
	if err != nil {
		return nil, "", &EncodeError{Payload: p, err: fmt.Errorf(`unknown text encoding "%s": %w`, encodingName, err)}
	}

	// UTF-8 text is sent verbatim, even if it contains invalid sequences
	if name, _ := ianaindex.IANA.Name(enc); strings.EqualFold(name, "UTF-8") {
		return []byte(p.Text), contentType, nil
	}

	body, err := enc.NewEncoder().Bytes([]byte(p.Text))
	if err != nil {
		return nil, "", &EncodeError{Payload: p, err: fmt.Errorf(`cannot encode text to "%s": %w`, encodingName, err)}
	}

	return body, contentType, nil
}

// textContentType sets the charset parameter, an existing charset is replaced.
func textContentType(contentType, charset string) (string, error) {
	if strings.TrimSpace(contentType) == "" {
		contentType = ContentTypeTextPlain
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf(`invalid content type "%s": %w`, contentType, err)
	}
	params["charset"] = charset
	return mime.FormatMediaType(mediaType, params), nil
}

func (p BytesPayload) encode() ([]byte, string, error) {
	return p.Data, p.ContentType, nil
}

func (p JSONPayload) encode() ([]byte, string, error) {
	body, err := json.Marshal(p.Value)
	if err != nil {
		return nil, "", &EncodeError{Payload: p, err: fmt.Errorf(`cannot encode JSON body: %w`, err)}
	}
	return body, p.ContentType, nil
}
