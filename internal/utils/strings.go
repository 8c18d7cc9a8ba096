package utils

import (
	"net/url"
	"strings"
)

// HasAnyPrefix reports whether s starts with any of the given prefixes.
// Empty prefixes are ignored.
func HasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// RedactURL masks the password component of a connection URL. Strings that
// do not parse as URLs are returned unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, hasPassword := u.User.Password(); !hasPassword {
		return raw
	}
	return u.Redacted()
}
