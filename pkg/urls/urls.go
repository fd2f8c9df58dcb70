// Package urls provides utility functions for working with URLs.
package urls

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// IsURLValid checks if the given URL is valid.
func IsURLValid(raw string) bool {
	u, err := url.Parse(raw)

	return err == nil && u.Scheme != "" && u.Host != "" && (u.Scheme == schemeHTTP || u.Scheme == schemeHTTPS)
}

// FromTemplate substitutes the query-escaped id for the single %s in tmpl.
// Example: https://www.youtube.com/watch?v=%s + abc123 => https://www.youtube.com/watch?v=abc123
func FromTemplate(tmpl, id string) (string, error) {
	if strings.Count(tmpl, "%s") != 1 {
		return "", fmt.Errorf("template %q must contain exactly one %%s", tmpl)
	}

	raw := strings.Replace(tmpl, "%s", url.QueryEscape(id), 1)
	if !IsURLValid(raw) {
		return "", fmt.Errorf("invalid url: %q", raw)
	}

	return raw, nil
}
