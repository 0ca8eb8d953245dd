package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/ai-tools-lab/linkverify/internal/crawler"
)

// GCSSink uploads run reports to a Google Cloud Storage bucket so CI runs
// leave a durable artifact trail.
type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSSink creates a GCS-backed report sink.
func NewGCSSink(client *storage.Client, bucket, prefix string) (*GCSSink, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &GCSSink{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Save uploads the run result as JSON and returns a gs:// URI.
func (s *GCSSink) Save(ctx context.Context, result crawler.RunResult) (string, error) {
	if result.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal run result: %w", err)
	}

	object := fmt.Sprintf("%s.json", result.RunID)
	if s.prefix != "" {
		object = fmt.Sprintf("%s/%s", s.prefix, object)
	}

	writer := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	writer.ContentType = "application/json"
	if _, err := io.Copy(writer, bytes.NewReader(payload)); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("upload report: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("upload report: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close report writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, object), nil
}
