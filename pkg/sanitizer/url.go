package sanitizer

import (
	"net/url"
	"strings"
)

// NormalizeURL cleans recording and receipt links. Scheme is forced to
// HTTPS, host is lowercased, trailing slashes are dropped. Unparseable
// input yields an empty string.
func NormalizeURL(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}

	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}

	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(strings.TrimSpace(u.Path), "/")

	return u.String()
}
