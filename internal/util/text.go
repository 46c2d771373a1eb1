// Package util holds small helpers shared by the clients and renderers.
package util

import (
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"
)

var stripAll = bluemonday.StrictPolicy()

// PlainText strips markup from a third-party snippet (feed description,
// archive excerpt) and collapses whitespace.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	cleaned := stripAll.Sanitize(s)
	// StrictPolicy leaves entities escaped
	cleaned = html.UnescapeString(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}

// RegistrableDomain returns the eTLD+1 of rawURL's host, e.g.
// "https://www.politifact.com/x" gives "politifact.com".
func RegistrableDomain(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", false
	}
	return domain, true
}

// Truncate shortens s to at most n runes, marking the cut with "..."
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
