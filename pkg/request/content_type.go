package request

import (
	"mime"
	"regexp"
)

const ContentTypeApplicationJSONRegexp = `^application/([a-zA-Z0-9\.\-]+\+)?json$`

var jsonContentTypeRegexp = regexp.MustCompile(ContentTypeApplicationJSONRegexp)

// isJSONContentType matches "application/json" and vendor types such as "application/vnd.foo+json".
// Media type parameters, for example charset, are ignored.
func isJSONContentType(contentType string) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	}
	return jsonContentTypeRegexp.MatchString(contentType)
}
