// Package report persists finalized run results as JSON artifacts.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ai-tools-lab/linkverify/internal/crawler"
)

// FileSystemSink writes one report document per run under a root directory.
type FileSystemSink struct {
	root   string
	logger *zap.Logger
}

// NewFileSystemSink returns a sink rooted at dir, creating it if needed.
func NewFileSystemSink(root string, logger *zap.Logger) (*FileSystemSink, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create report dir %s: %w", root, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSystemSink{
		root:   root,
		logger: logger,
	}, nil
}

// Save writes the run result as pretty-printed JSON and returns its path.
func (s *FileSystemSink) Save(ctx context.Context, result crawler.RunResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}
	if result.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal run result: %w", err)
	}
	target := filepath.Join(s.root, fmt.Sprintf("%s.json", result.RunID))
	if err := os.WriteFile(target, payload, 0o600); err != nil {
		return "", fmt.Errorf("write report %s: %w", target, err)
	}
	s.logger.Info("Report written", zap.String("path", target))
	return target, nil
}
