package scans

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

const defaultScheme = "https"

// NormalizeURL builds the cache key for a URL scan.
// Scheme and host are lowercased, a missing scheme becomes https and a bare
// root path is dropped, so "HTTPS://Example.org/" and "example.org" share a key.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: url cannot be empty", ErrInvalidKeyInput)
	}
	if !strings.Contains(s, "://") {
		s = defaultScheme + "://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKeyInput, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: url has no host", ErrInvalidKeyInput)
	}

	netloc := u.Host
	if u.User != nil {
		netloc = u.User.String() + "@" + netloc
	}

	path := u.EscapedPath()
	if path == "/" {
		path = ""
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(u.Scheme))
	b.WriteString("://")
	b.WriteString(strings.ToLower(netloc))
	b.WriteString(path)
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		b.WriteString("#")
		b.WriteString(u.EscapedFragment())
	}
	return b.String(), nil
}

// FileKey returns the lowercase hex sha256 of the exact content.
func FileKey(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
