package scraper

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	instagramPathPattern = regexp.MustCompile(`^/(p|reel)/([A-Za-z0-9_-]+)/?$`)
	tiktokPathPattern    = regexp.MustCompile(`^/@([A-Za-z0-9._-]+)/video/(\d+)/?$`)

	instagramIDPattern = regexp.MustCompile(`^/(p|reel)/([A-Za-z0-9_-]+)`)
	tiktokIDPattern    = regexp.MustCompile(`/video/(\d+)`)
)

// Classify reports which platform a post URL belongs to, or PlatformNone.
// Unparseable URLs are treated as non-matching.
func Classify(rawURL string) Platform {
	u, ok := parseURL(rawURL)
	if !ok {
		return PlatformNone
	}

	switch normalizeHost(u.Hostname()) {
	case "instagram.com":
		if instagramPathPattern.MatchString(u.Path) {
			return PlatformInstagram
		}
	case "tiktok.com":
		if tiktokPathPattern.MatchString(u.Path) {
			return PlatformTikTok
		}
	}

	return PlatformNone
}

// ExtractPostID returns the platform identifier segment of the URL path, or "" when none matches.
func ExtractPostID(rawURL string) string {
	u, ok := parseURL(rawURL)
	if !ok {
		return ""
	}

	if m := instagramIDPattern.FindStringSubmatch(u.Path); m != nil {
		return m[2]
	}
	if m := tiktokIDPattern.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}

	return ""
}

func parseURL(rawURL string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	return u, true
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// handleFromURL pulls the @handle segment out of a TikTok URL.
func handleFromURL(rawURL string) string {
	u, ok := parseURL(rawURL)
	if !ok {
		return ""
	}
	for _, segment := range strings.Split(u.Path, "/") {
		if strings.HasPrefix(segment, "@") && len(segment) > 1 {
			return segment[1:]
		}
	}
	return ""
}
