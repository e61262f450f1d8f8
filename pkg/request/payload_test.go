package request

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestTextPayload_Encode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                string
		payload             TextPayload
		expectedBody        []byte
		expectedContentType string
	}{
		{
			name:                "defaults",
			payload:             TextPayload{Text: "Příliš žluťoučký kůň"},
			expectedBody:        []byte("Příliš žluťoučký kůň"),
			expectedContentType: "text/plain; charset=utf-8",
		},
		{
			name:                "empty text",
			payload:             TextPayload{},
			expectedBody:        []byte{},
			expectedContentType: "text/plain; charset=utf-8",
		},
		{
			name:                "custom content type",
			payload:             TextPayload{Text: "a,b", ContentType: "text/csv"},
			expectedBody:        []byte("a,b"),
			expectedContentType: "text/csv; charset=utf-8",
		},
		{
			name:                "invalid utf-8 is verbatim",
			payload:             TextPayload{Text: "a\xffb"},
			expectedBody:        []byte{'a', 0xFF, 'b'},
			expectedContentType: "text/plain; charset=utf-8",
		},
		{
			name:                "charset is replaced",
			payload:             TextPayload{Text: "x", ContentType: "text/plain; charset=utf-8"},
			expectedBody:        []byte("x"),
			expectedContentType: "text/plain; charset=utf-8",
		},
		{
			name:                "charset is replaced by encoding",
			payload:             TextPayload{Text: "č", ContentType: "text/csv; charset=utf-8; header=present", Encoding: "windows-1250"},
			expectedBody:        []byte{0xE8},
			expectedContentType: "text/csv; charset=windows-1250; header=present",
		},
		{
			name:                "windows-1252",
			payload:             TextPayload{Text: "€", Encoding: "windows-1252"},
			expectedBody:        []byte{0x80},
			expectedContentType: "text/plain; charset=windows-1252",
		},
		{
			name:                "windows-1250",
			payload:             TextPayload{Text: "čž", Encoding: "Windows-1250"},
			expectedBody:        []byte{0xE8, 0x9E},
			expectedContentType: "text/plain; charset=windows-1250",
		},
		{
			name:                "iso-8859-2",
			payload:             TextPayload{Text: "čž", ContentType: "text/csv", Encoding: "iso-8859-2"},
			expectedBody:        []byte{0xE8, 0xBE},
			expectedContentType: "text/csv; charset=iso-8859-2",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			body, contentType, err := tc.payload.encode()
			require.NoError(t, err)
			assert.Equal(t, string(tc.expectedBody), string(body))
			assert.Equal(t, tc.expectedContentType, contentType)
		})
	}
}

func TestTextPayload_Encode_UnknownEncoding(t *testing.T) {
	t.Parallel()
	_, _, err := TextPayload{Text: "foo", Encoding: "foo-bar"}.encode()
	require.Error(t, err)

	var encodeErr *EncodeError
	require.True(t, errors.As(err, &encodeErr))
	assert.Equal(t, TextPayload{Text: "foo", Encoding: "foo-bar"}, encodeErr.Payload)
	assert.Contains(t, err.Error(), `cannot encode request.TextPayload: unknown text encoding "foo-bar"`)
}

func TestTextPayload_Encode_UnsupportedCharacter(t *testing.T) {
	t.Parallel()
	_, _, err := TextPayload{Text: "€", Encoding: "iso-8859-2"}.encode()
	var encodeErr *EncodeError
	require.True(t, errors.As(err, &encodeErr))
	assert.Contains(t, err.Error(), `cannot encode text to "iso-8859-2"`)
}

func TestTextPayload_Encode_Latin1(t *testing.T) {
	t.Parallel()

	body, contentType, err := TextPayload{Text: "é", Encoding: "iso-8859-1"}.encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xE9}, body)
	assert.Equal(t, "text/plain; charset=iso-8859-1", contentType)

	// Latin-1 is not an alias of windows-1252
	_, _, err = TextPayload{Text: "€", Encoding: "iso-8859-1"}.encode()
	var encodeErr *EncodeError
	require.True(t, errors.As(err, &encodeErr))
	assert.Contains(t, err.Error(), `cannot encode text to "iso-8859-1"`)
}

func TestTextPayload_Encode_InvalidContentType(t *testing.T) {
	t.Parallel()
	_, _, err := TextPayload{Text: "x", ContentType: "text/plain; ="}.encode()
	var encodeErr *EncodeError
	require.True(t, errors.As(err, &encodeErr))
	assert.Contains(t, err.Error(), `invalid content type "text/plain; ="`)
}

func TestBytesPayload_Encode(t *testing.T) {
	t.Parallel()
	data := []byte{0x00, 0x01, 0xFE, 0xFF}

	body, contentType, err := BytesPayload{Data: data}.encode()
	require.NoError(t, err)
	assert.Equal(t, data, body)
	assert.Empty(t, contentType)

	body, contentType, err = BytesPayload{Data: data, ContentType: "application/octet-stream"}.encode()
	require.NoError(t, err)
	assert.Equal(t, data, body)
	assert.Equal(t, "application/octet-stream", contentType)
}

func TestJSONPayload_Encode(t *testing.T) {
	t.Parallel()

	type point struct {
		X int
		Y int
	}

	body, contentType, err := JSONPayload{Value: point{X: 1, Y: 2}}.encode()
	require.NoError(t, err)
	assert.Equal(t, `{"X":1,"Y":2}`, string(body))
	assert.Empty(t, contentType)

	body, contentType, err = JSONPayload{
		Value:       map[string]any{"name": "<foo>", "tags": []string{"a", "b"}, "nested": map[string]int{"z": 1, "a": 2}},
		ContentType: ContentTypeApplicationJSON,
	}.encode()
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)
	assert.True(t, gjson.ValidBytes(body))
	assert.Equal(t, "<foo>", gjson.GetBytes(body, "name").String())
	assert.Equal(t, "b", gjson.GetBytes(body, "tags.1").String())
	assert.Equal(t, int64(2), gjson.GetBytes(body, "nested.a").Int())
	// Map keys are sorted, HTML characters are escaped
	assert.Equal(t, `{"name":"\u003cfoo\u003e","nested":{"a":2,"z":1},"tags":["a","b"]}`, string(body))

	body, _, err = JSONPayload{}.encode()
	require.NoError(t, err)
	assert.Equal(t, "null", string(body))
}

func TestJSONPayload_Encode_Error(t *testing.T) {
	t.Parallel()
	_, _, err := JSONPayload{Value: make(chan int)}.encode()
	require.Error(t, err)
	var encodeErr *EncodeError
	require.True(t, errors.As(err, &encodeErr))
	assert.Contains(t, err.Error(), "cannot encode request.JSONPayload: cannot encode JSON body:")
}
