package crawler

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// SkipReason explains why a normalized path was excluded from the frontier.
type SkipReason string

// Skip reasons surfaced for observability.
const (
	SkipNone       SkipReason = ""
	SkipAsset      SkipReason = "static_asset"
	SkipKnownIssue SkipReason = "known_issue"
)

// staticAssetExts are extensions that are never navigable pages, regardless
// of environment configuration.
var staticAssetExts = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {}, ".webp": {},
	".ico": {}, ".css": {}, ".js": {}, ".mjs": {}, ".woff": {}, ".woff2": {},
	".ttf": {}, ".eot": {}, ".pdf": {}, ".xml": {}, ".txt": {}, ".json": {},
	".map": {},
}

// Classifier decides whether a normalized path should be excluded from
// crawling. It is pure and safe for concurrent use.
type Classifier struct {
	asset      *regexp.Regexp
	knownIssue *regexp.Regexp
}

// NewClassifier compiles the environment's skip patterns.
func NewClassifier(env Environment) (*Classifier, error) {
	c := &Classifier{}
	var err error
	if env.AssetSkipPattern != "" {
		if c.asset, err = regexp.Compile(env.AssetSkipPattern); err != nil {
			return nil, fmt.Errorf("compile asset skip pattern: %w", err)
		}
	}
	if env.KnownIssuePattern != "" {
		if c.knownIssue, err = regexp.Compile(env.KnownIssuePattern); err != nil {
			return nil, fmt.Errorf("compile known issue pattern: %w", err)
		}
	}
	return c, nil
}

// Skip reports whether the path should not be enqueued, with the reason.
func (c *Classifier) Skip(normalizedPath string) (bool, SkipReason) {
	if normalizedPath == "" {
		return true, SkipNone
	}
	if isStaticAsset(normalizedPath) {
		return true, SkipAsset
	}
	if c != nil && c.asset != nil && c.asset.MatchString(normalizedPath) {
		return true, SkipAsset
	}
	if c != nil && c.knownIssue != nil && c.knownIssue.MatchString(normalizedPath) {
		return true, SkipKnownIssue
	}
	return false, SkipNone
}

func isStaticAsset(normalizedPath string) bool {
	trimmed := normalizedPath
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = trimmed[:i]
	}
	ext := strings.ToLower(path.Ext(trimmed))
	_, ok := staticAssetExts[ext]
	return ok
}
