package browser

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/ai-tools-lab/linkverify/internal/crawler"
)

// CollyConfig controls the HTTP navigator.
type CollyConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// Colly implements crawler.Navigator with a plain HTTP client via gocolly.
// It never executes JavaScript; environments that serve static HTML use it
// to avoid the cost of a browser.
type Colly struct {
	cfg           CollyConfig
	baseCollector *colly.Collector
}

// NewColly builds an HTTP navigator.
func NewColly(cfg CollyConfig) *Colly {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false), colly.IgnoreRobotsTxt())
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	return &Colly{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Close implements crawler.Navigator; the collector holds no resources that
// outlive requests.
func (n *Colly) Close(context.Context) error {
	return nil
}

// Navigate executes a single GET. HTTP error statuses are returned in the
// NavResult, not as errors; only transport failures produce an error.
func (n *Colly) Navigate(ctx context.Context, pageURL string) (crawler.NavResult, error) {
	collector := n.baseCollector.Clone()
	collector.AllowURLRevisit = true

	var (
		result   crawler.NavResult
		navErr   error
		captured bool
	)
	start := time.Now()

	collector.OnResponse(func(r *colly.Response) {
		result = crawler.NavResult{
			StatusCode: r.StatusCode,
			FinalURL:   r.Request.URL.String(),
			HTML:       string(r.Body),
		}
		captured = true
	})
	// Colly routes non-2xx responses through OnError; the status code still
	// classifies the outcome, so only real transport failures become errors.
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			result = crawler.NavResult{
				StatusCode: r.StatusCode,
				FinalURL:   r.Request.URL.String(),
				HTML:       string(r.Body),
			}
			captured = true
			return
		}
		navErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(pageURL)
	}()

	select {
	case <-ctx.Done():
		return crawler.NavResult{Duration: time.Since(start)}, fmt.Errorf("http navigate canceled: %w", ctx.Err())
	case visitErr := <-done:
		result.Duration = time.Since(start)
		switch {
		case captured:
			return result, nil
		case navErr != nil:
			return crawler.NavResult{Duration: result.Duration}, fmt.Errorf("http navigate %s: %w", pageURL, navErr)
		case visitErr != nil:
			return crawler.NavResult{Duration: result.Duration}, fmt.Errorf("http navigate %s: %w", pageURL, visitErr)
		default:
			return crawler.NavResult{Duration: result.Duration}, fmt.Errorf("http navigate %s: no response", pageURL)
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
