package browser

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"
)

func TestResponseMetaCapturesDocumentOnly(t *testing.T) {
	t.Parallel()

	meta := newResponseMeta()

	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeImage,
		Response: &network.Response{Status: 200, URL: "https://www.example.com/logo.png"},
	})
	status, _ := meta.snapshot()
	require.Zero(t, status)

	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 404, URL: "https://www.example.com/missing"},
	})
	status, finalURL := meta.snapshot()
	require.Equal(t, 404, status)
	require.Equal(t, "https://www.example.com/missing", finalURL)
}

func TestForwardCancel(t *testing.T) {
	t.Parallel()

	parent, parentCancel := context.WithCancel(context.Background())
	child, childCancel := context.WithCancel(context.Background())
	defer childCancel()

	stop := forwardCancel(parent, childCancel)
	defer stop()

	parentCancel()
	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("child context was not canceled")
	}
}

func TestWaitDomainBudgetThrottles(t *testing.T) {
	t.Parallel()

	nav := &Chromedp{cfg: Config{DomainQPS: 20}}
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, nav.waitDomainBudget(ctx, "https://staging.example.com/a"))
	}
	// Burst 1 at 20 QPS: the second and third waits cost ~50ms each.
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestWaitDomainBudgetDisabled(t *testing.T) {
	t.Parallel()

	nav := &Chromedp{}
	require.NoError(t, nav.waitDomainBudget(context.Background(), "https://www.example.com/"))
}
