package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/ai-tools-lab/linkverify/internal/crawler"
)

// Auto fetches pages over plain HTTP first and promotes individual visits to
// headless Chrome when the static markup looks like a client-rendered shell.
// The browser is launched lazily, so environments that never need rendering
// never pay for one.
type Auto struct {
	http    *Colly
	launch  func() (crawler.Navigator, error)
	needsJS func(html string) bool

	mu        sync.Mutex
	browser   crawler.Navigator
	launchErr error
}

// NewAuto builds the promoting navigator. browserCfg is only used if a page
// actually requires rendering.
func NewAuto(httpCfg CollyConfig, browserCfg Config) *Auto {
	return &Auto{
		http:    NewColly(httpCfg),
		launch:  func() (crawler.Navigator, error) { return NewChromedp(browserCfg) },
		needsJS: NeedsRendering,
	}
}

// Navigate performs the static fetch and re-runs the visit in the browser
// when the page appears to require JavaScript. HTTP error statuses are final;
// only successful-but-empty shells are promoted.
func (n *Auto) Navigate(ctx context.Context, pageURL string) (crawler.NavResult, error) {
	res, err := n.http.Navigate(ctx, pageURL)
	if err != nil {
		return res, err
	}
	if res.StatusCode >= 300 || !n.needsJS(res.HTML) {
		return res, nil
	}

	browser, err := n.browserNavigator()
	if err != nil {
		return res, fmt.Errorf("promote %s to browser: %w", pageURL, err)
	}
	rendered, err := browser.Navigate(ctx, pageURL)
	if err != nil {
		return res, fmt.Errorf("promote %s to browser: %w", pageURL, err)
	}
	rendered.Duration += res.Duration
	return rendered, nil
}

// browserNavigator launches headless Chrome once. A launch failure is sticky
// so a broken Chrome install does not retry on every promoted visit.
func (n *Auto) browserNavigator() (crawler.Navigator, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.browser == nil && n.launchErr == nil {
		n.browser, n.launchErr = n.launch()
	}
	return n.browser, n.launchErr
}

// Close shuts down both backends.
func (n *Auto) Close(ctx context.Context) error {
	if err := n.http.Close(ctx); err != nil {
		return err
	}
	n.mu.Lock()
	browser := n.browser
	n.mu.Unlock()
	if browser != nil {
		return browser.Close(ctx)
	}
	return nil
}
