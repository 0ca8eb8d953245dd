package crawler

import (
	"net/url"
	"strings"
)

// skippedSchemes are href schemes that never carry navigable page content.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:"}

// NormalizePath converts a raw anchor href into the canonical,
// environment-relative path used as the visited-set key. The second return
// value is false when the href is not applicable to the crawl: same-page
// anchors, non-HTTP schemes, external hosts, and unparseable input.
//
// The function is pure; the same inputs always yield the same output, and
// normalizing an already-canonical path is a no-op.
func NormalizePath(href string, env Environment) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return "", false
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	if u.IsAbs() && u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	// Fully-qualified and protocol-relative hrefs stay in scope only when
	// they point at the environment's own origin.
	if u.Host != "" {
		base, err := url.Parse(env.BaseURL)
		if err != nil {
			return "", false
		}
		if !strings.EqualFold(u.Hostname(), base.Hostname()) {
			return "", false
		}
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	path = reconcilePrefix(path, env)
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path, true
}

// reconcilePrefix applies the environment's routing-prefix convention. When a
// prefix is mandatory, the bare root maps to prefix + "/" and every other
// path gains the prefix unless it already carries it.
func reconcilePrefix(path string, env Environment) string {
	if !env.RequirePrefix || env.PathPrefix == "" {
		return path
	}
	prefix := "/" + strings.Trim(env.PathPrefix, "/")
	switch {
	case path == "/":
		return prefix + "/"
	case path == prefix, strings.HasPrefix(path, prefix+"/"):
		return path
	default:
		return prefix + path
	}
}
