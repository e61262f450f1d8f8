package request

import (
	jsonlib "encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/keboola/go-utils/pkg/orderedmap"
	"github.com/spf13/cast"
)

// headerKey is used to detect duplicate header names, header names are case-insensitive.
func headerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// castToString renders a header value to its textual form.
// Scalars and fmt.Stringer values are converted by the cast library, other values are encoded to JSON.
func castToString(v any) (string, error) {
	// Ordered map
	if orderedMap, ok := v.(*orderedmap.OrderedMap); ok {
		// Standard json encoding library is used.
		// JsonIter lib returns non-compact JSON,
		// if custom OrderedMap.MarshalJSON method is used.
		if out, err := jsonlib.Marshal(orderedMap); err != nil {
			return "", fmt.Errorf(`cannot cast %T to string: %w`, v, err)
		} else {
			return string(out), nil
		}
	}

	// Scalar types
	if out, err := cast.ToStringE(v); err == nil {
		return out, nil
	}

	// Other types
	if out, err := json.Marshal(v); err != nil {
		return "", fmt.Errorf(`cannot cast %T to string: %w`, v, err)
	} else {
		return string(out), nil
	}
}

func cloneURL(in *url.URL) *url.URL {
	clone := *in
	if in.User != nil {
		user := *in.User
		clone.User = &user
	}
	return &clone
}
