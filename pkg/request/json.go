package request

import (
	jsoniter "github.com/json-iterator/go"
)

// json - replacement of the standard encoding/json library, it is faster for larger responses.
// Object keys are matched case-insensitively when decoding.
var json = jsoniter.Config{ //nolint:gochecknoglobals
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	CaseSensitive:          false,
}.Froze()
