package apps

import (
	"fmt"
	"net/url"
	"strings"
)

// Schemes that may open without user confirmation.
var safeSchemes = map[string]struct{}{
	"http":  {},
	"https": {},
}

// SafeScheme reports whether a scheme opens directly.
func SafeScheme(scheme string) bool {
	_, ok := safeSchemes[strings.ToLower(scheme)]
	return ok
}

// ClassifyLink parses a link and classifies its scheme as safe-to-open
// directly or requiring confirmation. A URL that cannot be parsed or has no
// scheme is an error; it must never reach the opener.
func ClassifyLink(raw string) (scheme string, safe bool, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false, fmt.Errorf("invalid url: %w", err)
	}

	scheme = strings.ToLower(u.Scheme)
	if scheme == "" {
		return "", false, fmt.Errorf("url has no scheme: %q", raw)
	}

	return scheme, SafeScheme(scheme), nil
}
