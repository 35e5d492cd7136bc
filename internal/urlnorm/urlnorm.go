// Package urlnorm canonicalizes posting URLs so that the same listing reached
// through different tracking links compares equal.
package urlnorm

import (
	"net/url"
	"path"
	"strings"
)

var droppedParams = map[string]struct{}{
	"fbclid": {},
	"ref":    {},
	"source": {},
}

var assetExtensions = map[string]struct{}{
	".pdf": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {},
	".zip": {}, ".doc": {}, ".docx": {}, ".css": {}, ".js": {},
}

// Normalize returns the identity form of rawURL: tracking parameters, the
// trailing slash and the fragment are removed while the remaining query keeps
// its original order. Input that cannot be parsed is returned unchanged.
func Normalize(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	u.Host = strings.ToLower(u.Host)
	trimPath(u)
	u.RawQuery = filterQuery(u.RawQuery)
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// trimPath drops trailing slashes from the escaped path so encoded segments
// such as %2F survive.
func trimPath(u *url.URL) {
	escaped := strings.TrimRight(u.EscapedPath(), "/")
	decoded, err := url.PathUnescape(escaped)
	if err != nil {
		return
	}
	u.Path = decoded
	u.RawPath = escaped
}

func filterQuery(raw string) string {
	if raw == "" {
		return ""
	}
	pairs := strings.Split(raw, "&")
	kept := pairs[:0]
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}
		if isTrackingKey(key) {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

func isTrackingKey(key string) bool {
	key = strings.ToLower(key)
	if strings.HasPrefix(key, "utm") {
		return true
	}
	_, drop := droppedParams[key]
	return drop
}

// Origin returns the lowercase host used as the rate-limiting key, or
// "unknown" when rawURL has none.
func Origin(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// IsProbableJobURL filters out anchors that can never be a posting page.
func IsProbableJobURL(rawURL string) bool {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, scheme := range []string{"mailto:", "javascript:", "tel:"} {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	_, asset := assetExtensions[strings.ToLower(path.Ext(u.Path))]
	return !asset
}

// Resolve turns href into an absolute URL relative to base. ok is false when
// either side cannot be parsed or the result is not http(s).
func Resolve(base, href string) (string, bool) {
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	abs := b.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}
