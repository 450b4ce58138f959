package platforms

import (
	"net/url"
	"strings"
)

// EncodeMediaURL percent-encodes the path of a media URL so providers can
// download files whose names contain Cyrillic or Kazakh characters. Invalid
// URLs are returned unchanged.
func EncodeMediaURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	segments := strings.Split(u.Path, "/")
	for i, segment := range segments {
		decoded, decErr := url.PathUnescape(segment)
		if decErr != nil {
			decoded = segment
		}
		segments[i] = url.PathEscape(decoded)
	}
	u.Path = ""
	u.RawPath = ""

	encoded := u.Scheme + "://" + u.Host + strings.Join(segments, "/")
	if u.RawQuery != "" {
		encoded += "?" + u.RawQuery
	}
	return encoded
}
