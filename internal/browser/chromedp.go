// Package browser contains Navigator implementations backed by real engines.
package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"github.com/ai-tools-lab/linkverify/internal/crawler"
)

// Config controls the behavior of the chromedp navigator.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
	DomainQPS         float64
}

// Chromedp implements crawler.Navigator using headless Chrome. The allocator
// is shared for the whole crawl; each navigation runs in its own short-lived
// tab context that is closed on every exit path.
type Chromedp struct {
	cfg            Config
	limiter        chan struct{}
	allocator      context.Context
	allocCancel    context.CancelFunc
	domainLimiters sync.Map
}

// NewChromedp launches the headless browser allocator.
func NewChromedp(cfg Config) (*Chromedp, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	// Warm up one browser process so a missing Chrome binary surfaces as a
	// startup error for this environment instead of failing every visit.
	warmCtx, warmCancel := chromedp.NewContext(allocCtx)
	defer warmCancel()
	if err := chromedp.Run(warmCtx); err != nil {
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Chromedp{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context, shutting the browser down.
func (n *Chromedp) Close(context.Context) error {
	n.allocCancel()
	return nil
}

// Navigate loads the page in a fresh tab and returns the rendered DOM with
// the document response status.
func (n *Chromedp) Navigate(ctx context.Context, pageURL string) (crawler.NavResult, error) {
	if err := n.acquire(ctx); err != nil {
		return crawler.NavResult{}, err
	}
	defer n.release()

	if err := n.waitDomainBudget(ctx, pageURL); err != nil {
		return crawler.NavResult{}, err
	}

	tabCtx, cancelTab := chromedp.NewContext(n.allocator)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, n.cfg.NavigationTimeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := newResponseMeta()
	chromedp.ListenTarget(taskCtx, meta.captureEvent)

	start := time.Now()
	html, finalURL, err := n.runTasks(taskCtx, pageURL)
	if err != nil {
		return crawler.NavResult{Duration: time.Since(start)}, fmt.Errorf("navigate %s: %w", pageURL, err)
	}

	status, responseURL := meta.snapshot()
	if responseURL == "" {
		responseURL = finalURL
	}
	if responseURL == "" {
		responseURL = pageURL
	}
	if status == 0 {
		status = http.StatusOK
	}

	return crawler.NavResult{
		StatusCode: status,
		FinalURL:   responseURL,
		HTML:       html,
		Duration:   time.Since(start),
	}, nil
}

func (n *Chromedp) runTasks(ctx context.Context, pageURL string) (string, string, error) {
	var (
		html     string
		finalURL string
	)
	tasks := chromedp.Tasks{
		network.Enable(),
		n.userAgentAction(),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return "", "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, finalURL, nil
}

func (n *Chromedp) userAgentAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if n.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(n.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

func (n *Chromedp) acquire(ctx context.Context) error {
	if n.limiter == nil {
		return nil
	}
	select {
	case n.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser slot wait canceled: %w", ctx.Err())
	}
}

func (n *Chromedp) release() {
	if n.limiter == nil {
		return
	}
	select {
	case <-n.limiter:
	default:
	}
}

func (n *Chromedp) waitDomainBudget(ctx context.Context, pageURL string) error {
	if n.cfg.DomainQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("parse nav url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := n.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(n.cfg.DomainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait domain limiter: %w", err)
	}
	return nil
}

// responseMeta captures the HTTP status of the top-level document from CDP
// network events.
type responseMeta struct {
	mu     sync.Mutex
	status int
	url    string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	m.status = int(resp.Response.Status)
	m.url = resp.Response.URL
	m.mu.Unlock()
}

func (m *responseMeta) snapshot() (int, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.url
}

// forwardCancel propagates the caller's cancellation into the chromedp task
// context without tying tab lifetime to it.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
