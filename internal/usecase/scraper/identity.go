package scraper

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Identity returns a stable hash for a source, used as the scheduler
// instance's key (spec §9: "Identity hash uses a stable hash over the
// canonical source URL"). Canonicalization lowercases the scheme and host
// and drops a trailing slash, so http://Example.com/feed and
// http://example.com/feed/ collide onto the same instance.
func Identity(sourceURL string) string {
	sum := sha256.Sum256([]byte(canonicalize(sourceURL)))
	return hex.EncodeToString(sum[:])
}

func canonicalize(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.TrimSpace(rawURL)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.Fragment = ""
	return u.String()
}
