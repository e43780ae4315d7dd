package urlutil

import (
	"net/url"
	"strings"
)

// Sanitize converts a URL into a string safe to use as a file or directory
// name. The scheme is dropped, and every character outside [a-zA-Z0-9.-]
// is replaced with an underscore.
//
// Deterministic: the same URL always maps to the same key, so re-runs find
// the snapshot directories and stats files of earlier runs.
func Sanitize(rawURL string) string {
	s := rawURL
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimSuffix(s, "/")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Domain extracts the host part of a URL for use as a dataset key.
// URLs without a scheme (plain "example.com" input rows) are handled.
func Domain(rawURL string) string {
	s := rawURL
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		// Fall back to the raw string up to the first slash
		trimmed := rawURL
		if i := strings.Index(trimmed, "://"); i >= 0 {
			trimmed = trimmed[i+3:]
		}
		if i := strings.IndexByte(trimmed, '/'); i >= 0 {
			trimmed = trimmed[:i]
		}
		return trimmed
	}
	return u.Hostname()
}
