// Package identifier embeds content identifiers in query strings and reads them back.
package identifier

import (
	"net/url"
	"strings"

	"github.com/egfanboy/mediapire-gateway/pkg/types"
)

const QueryParamContentId = "media_content_id"

// Encode escapes every reserved character of id so it survives as a single query value.
// Spaces are written as %20 rather than '+'.
func Encode(id types.ContentID) string {
	return strings.ReplaceAll(url.QueryEscape(string(id)), "+", "%20")
}

// Decode reverses Encode. It also accepts '+' for spaces as browsers send them in forms.
func Decode(token string) (types.ContentID, error) {
	s, err := url.QueryUnescape(token)
	if err != nil {
		return "", err
	}

	return types.ContentID(s), nil
}

// DecodeParam adapts Decode to a plain string decoder for query parameter parsing.
func DecodeParam(token string) (string, error) {
	id, err := Decode(token)
	return string(id), err
}

// Query renders a complete query string carrying id.
func Query(id types.ContentID) string {
	return QueryParamContentId + "=" + Encode(id)
}
