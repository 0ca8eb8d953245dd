package browser

import (
	"context"
	"errors"

	"github.com/ai-tools-lab/linkverify/internal/crawler"
)

// ErrEngineUnavailable indicates no navigation engine is configured.
var ErrEngineUnavailable = errors.New("navigation engine not configured")

// Noop implements Navigator but always returns an error. It stands in when
// an environment has no usable engine so the capability-unavailable path
// stays exercised.
type Noop struct{}

// NewNoop creates a new Noop navigator.
func NewNoop() *Noop {
	return &Noop{}
}

// Navigate returns ErrEngineUnavailable.
func (Noop) Navigate(context.Context, string) (crawler.NavResult, error) {
	return crawler.NavResult{}, ErrEngineUnavailable
}

// Close implements crawler.Navigator.
func (Noop) Close(context.Context) error {
	return nil
}
