package browser

import "strings"

// renderMarkers identify client-rendered application shells whose anchors
// only exist after JavaScript runs.
var renderMarkers = []string{
	"__next",
	`id="root"`,
	`id="app"`,
	"data-reactroot",
	"ng-version",
}

// NeedsRendering reports whether a statically fetched page is likely a
// JavaScript application shell that must be loaded in a real browser before
// its links are visible. It is the promotion rule for the auto engine.
func NeedsRendering(html string) bool {
	trimmed := strings.TrimSpace(html)
	if trimmed == "" {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, marker := range renderMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return scriptDominates(lower)
}

// scriptDominates reports whether script tags cover at least a quarter of
// the document, a strong signal that the markup is a loader shell.
func scriptDominates(lower string) bool {
	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	total := len(lower)
	if total == 0 {
		return false
	}

	coverage := 0
	pos := 0
	for {
		rel := strings.Index(lower[pos:], openTag)
		if rel == -1 {
			break
		}
		start := pos + rel

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Malformed open tag: count the remainder as script.
			coverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		relEnd := strings.Index(lower[contentStart:], closeTag)
		var next int
		if relEnd == -1 {
			next = total
		} else {
			next = contentStart + relEnd + len(closeTag)
		}
		coverage += next - start
		pos = next
	}

	if coverage == 0 {
		return false
	}
	return coverage*100/total >= 25
}
