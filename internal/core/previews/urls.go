package previews

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	apperrors "github.com/lueurxax/vrental/internal/core/errors"
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

var (
	blockedSchemes       = []string{"data:", "javascript:", "blob:"}
	trackingSegmentRegex = regexp.MustCompile(`^\$[A-Za-z0-9_.\-]+$`)
	bareDomainRegex      = regexp.MustCompile(`^[A-Za-z0-9-]+(\.[A-Za-z0-9-]+)+(:\d+)?$`)
	appStoreDomains      = []string{"oculus.com", "meta.com"}
)

// ResolveURL turns a scraped reference into an absolute http(s) URL.
// Relative and protocol-relative values are joined to base. It returns ""
// when the value is empty, uses a blocked scheme, cannot be parsed or does
// not end up as an absolute http(s) URL.
func ResolveURL(value, base string) string {
	value = strings.TrimSpace(value)
	if value == "" || hasBlockedScheme(value) {
		return ""
	}

	ref, err := url.Parse(value)
	if err != nil {
		return ""
	}

	if !ref.IsAbs() {
		baseURL, err := url.Parse(strings.TrimSpace(base))
		if err != nil || !isHTTPURL(baseURL) {
			return ""
		}

		ref = baseURL.ResolveReference(ref)
	}

	if !isHTTPURL(ref) {
		return ""
	}

	return ref.String()
}

// NormalizeTarget turns a requested listing address into an absolute URL.
// Bare domains and protocol-relative values default to https, relative paths
// are joined to origin, and tracking segments are stripped for app-store hosts.
func NormalizeTarget(raw, origin string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperrors.ErrMissingTargetURL
	}

	candidate := raw

	switch {
	case strings.HasPrefix(candidate, "//"):
		candidate = schemeHTTPS + ":" + candidate
	case strings.Contains(candidate, "://"):
	case looksLikeBareDomain(candidate):
		candidate = schemeHTTPS + "://" + candidate
	default:
		candidate = ResolveURL(candidate, origin)
	}

	u, err := url.Parse(candidate)
	if err != nil || !isHTTPURL(u) {
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidTargetURL, raw)
	}

	if isAppStoreHost(u.Hostname()) {
		u.Path = StripTrackingSegments(u.Path)
		u.RawPath = ""
	}

	return u.String(), nil
}

// StripTrackingSegments removes trailing "$identifier" path segments. A
// trailing slash on the remaining path is kept.
func StripTrackingSegments(path string) string {
	trailingSlash := strings.HasSuffix(path, "/")

	segments := strings.Split(strings.TrimSuffix(path, "/"), "/")
	stripped := false

	for len(segments) > 1 && trackingSegmentRegex.MatchString(segments[len(segments)-1]) {
		segments = segments[:len(segments)-1]
		stripped = true
	}

	if !stripped {
		return path
	}

	result := strings.Join(segments, "/")
	if trailingSlash || result == "" {
		result += "/"
	}

	return result
}

func hasBlockedScheme(value string) bool {
	lower := strings.ToLower(value)
	for _, scheme := range blockedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}

	return false
}

func isHTTPURL(u *url.URL) bool {
	if u == nil || u.Host == "" {
		return false
	}

	scheme := strings.ToLower(u.Scheme)

	return scheme == schemeHTTP || scheme == schemeHTTPS
}

func looksLikeBareDomain(value string) bool {
	host := value
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}

	return bareDomainRegex.MatchString(host)
}

func isAppStoreHost(host string) bool {
	return matchesDomain(host, appStoreDomains...)
}

// matchesDomain reports whether host equals one of domains or is a subdomain of it.
func matchesDomain(host string, domains ...string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, domain := range domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}

	return false
}
