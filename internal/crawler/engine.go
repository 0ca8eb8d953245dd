package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ai-tools-lab/linkverify/internal/progress"
)

// Config holds the knobs that influence a verification run. Values originate
// from the config package; the engine is decoupled from Viper.
type Config struct {
	MaxDepth    int
	Concurrency int
	NavTimeout  time.Duration
	Retry       RetryConfig
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.NavTimeout <= 0 {
		return fmt.Errorf("crawler.nav_timeout must be > 0")
	}
	if c.Retry.Count < 0 {
		return fmt.Errorf("retry.count must be >= 0")
	}
	return nil
}

// NavigatorFactory builds the navigation backend for one environment. A
// factory error (e.g. browser launch failure) fails that environment's crawl
// without aborting the remaining environments.
type NavigatorFactory func(env Environment) (Navigator, error)

// Engine drives breadth-first, depth-bounded, environment-scoped crawls and
// produces the final run report.
type Engine struct {
	cfg     Config
	clock   Clock
	emitter progress.Emitter
	logger  *zap.Logger
}

// NewEngine constructs an Engine. The emitter may be nil when no progress
// sinks are configured.
func NewEngine(cfg Config, clock Clock, emitter progress.Emitter, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:     cfg,
		clock:   clock,
		emitter: emitter,
		logger:  logger,
	}
}

// Run crawls every environment sequentially and aggregates the results.
func (e *Engine) Run(ctx context.Context, runID uuid.UUID, envs []Environment, factory NavigatorFactory) RunResult {
	result := RunResult{
		RunID:     runID.String(),
		StartedAt: e.clock.Now(),
	}
	e.emit(progress.Event{
		RunID: progress.UUIDToBytes(runID),
		TS:    result.StartedAt,
		Stage: progress.StageRunStart,
	})

	for _, env := range envs {
		result.Environments = append(result.Environments, e.crawlEnvironment(ctx, runID, env, factory))
	}

	result.FinishedAt = e.clock.Now()
	e.emit(progress.Event{
		RunID: progress.UUIDToBytes(runID),
		TS:    result.FinishedAt,
		Stage: progress.StageRunDone,
		Dur:   result.FinishedAt.Sub(result.StartedAt),
	})
	return result
}

func (e *Engine) crawlEnvironment(ctx context.Context, runID uuid.UUID, env Environment, factory NavigatorFactory) CrawlResult {
	result := CrawlResult{
		Environment: env.Name,
		BaseURL:     env.BaseURL,
		StartedAt:   e.clock.Now(),
	}
	logger := e.logger.With(zap.String("environment", env.Name))

	e.emit(progress.Event{
		RunID:       progress.UUIDToBytes(runID),
		TS:          result.StartedAt,
		Stage:       progress.StageCrawlStart,
		Environment: env.Name,
	})

	classifier, err := NewClassifier(env)
	if err != nil {
		return e.finishErrored(runID, result, fmt.Errorf("build classifier: %w", err), logger)
	}

	nav, err := factory(env)
	if err != nil {
		return e.finishErrored(runID, result, fmt.Errorf("init navigator: %w", err), logger)
	}
	defer func() {
		if cerr := nav.Close(ctx); cerr != nil {
			logger.Warn("Failed to close navigator", zap.Error(cerr))
		}
	}()

	state := newCrawlState()
	batch := e.seedBatch(env, state, logger)

	run := &crawlRun{
		engine:     e,
		runID:      runID,
		env:        env,
		classifier: classifier,
		nav:        nav,
		state:      state,
		logger:     logger,
	}

	for depth := 0; len(batch) > 0 && depth <= e.cfg.MaxDepth; depth++ {
		next, err := run.visitBatch(ctx, batch, depth)
		if err != nil {
			return e.finishErrored(runID, result, err, logger)
		}
		batch = next
	}

	return e.finish(runID, result, state, logger)
}

// seedBatch initializes the frontier at depth 0 with the environment's root
// (or its configured seed routes), already claimed in the scheduled set.
func (e *Engine) seedBatch(env Environment, state *crawlState, logger *zap.Logger) []string {
	seeds := env.Seeds
	if len(seeds) == 0 {
		seeds = []string{"/"}
	}
	batch := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		normalized, ok := NormalizePath(seed, env)
		if !ok {
			logger.Warn("Ignoring unusable seed", zap.String("seed", seed))
			continue
		}
		if state.MarkIfNew(normalized) {
			batch = append(batch, normalized)
		}
	}
	return batch
}

func (e *Engine) finish(runID uuid.UUID, result CrawlResult, state *crawlState, logger *zap.Logger) CrawlResult {
	records, linksFound := state.Snapshot()
	result.LinksFound = linksFound
	for _, rec := range records {
		result.URLsChecked++
		switch rec.Status {
		case VisitSuccess:
			result.Succeeded++
		case VisitBroken:
			result.Broken++
			result.BrokenLinks = append(result.BrokenLinks, BrokenLink{
				URL:        result.BaseURL + rec.Path,
				Path:       rec.Path,
				HTTPStatus: rec.HTTPStatus,
				Reason:     rec.Reason,
				Depth:      rec.Depth,
			})
		}
	}
	result.FinishedAt = e.clock.Now()
	result.DurationMs = result.FinishedAt.Sub(result.StartedAt).Milliseconds()

	logger.Info("Crawl finished",
		zap.Int("urls_checked", result.URLsChecked),
		zap.Int("links_found", result.LinksFound),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("broken", result.Broken),
		zap.Int64("duration_ms", result.DurationMs),
	)
	e.emit(progress.Event{
		RunID:       progress.UUIDToBytes(runID),
		TS:          result.FinishedAt,
		Stage:       progress.StageCrawlDone,
		Environment: result.Environment,
		Visits:      int64(result.URLsChecked),
		Dur:         result.FinishedAt.Sub(result.StartedAt),
	})
	return result
}

func (e *Engine) finishErrored(runID uuid.UUID, result CrawlResult, err error, logger *zap.Logger) CrawlResult {
	result.ErrorText = err.Error()
	result.FinishedAt = e.clock.Now()
	result.DurationMs = result.FinishedAt.Sub(result.StartedAt).Milliseconds()
	logger.Error("Crawl failed", zap.Error(err))
	e.emit(progress.Event{
		RunID:       progress.UUIDToBytes(runID),
		TS:          result.FinishedAt,
		Stage:       progress.StageCrawlError,
		Environment: result.Environment,
		Note:        result.ErrorText,
	})
	return result
}

func (e *Engine) emit(evt progress.Event) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

// crawlRun carries the per-environment collaborators through the depth waves.
type crawlRun struct {
	engine     *Engine
	runID      uuid.UUID
	env        Environment
	classifier *Classifier
	nav        Navigator
	state      *crawlState
	logger     *zap.Logger
}

// visitBatch drains one depth wave with bounded concurrency and returns the
// next wave. Depth-d entries all complete before any depth-d+1 entry starts.
func (r *crawlRun) visitBatch(ctx context.Context, batch []string, depth int) ([]string, error) {
	var (
		mu   sync.Mutex
		next []string
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.engine.cfg.Concurrency)

	for _, path := range batch {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			discovered := r.visit(groupCtx, path, depth)
			if len(discovered) > 0 {
				mu.Lock()
				next = append(next, discovered...)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("depth %d batch: %w", depth, err)
	}
	return next, nil
}

// visit loads one page, records its outcome, and returns the newly claimed
// child paths for the next depth wave. A broken page never aborts the crawl.
func (r *crawlRun) visit(ctx context.Context, path string, depth int) []string {
	pageURL := joinURL(r.env.BaseURL, path)

	r.engine.emit(progress.Event{
		RunID:       progress.UUIDToBytes(r.runID),
		TS:          r.engine.clock.Now(),
		Stage:       progress.StageVisitStart,
		Environment: r.env.Name,
		URL:         pageURL,
	})

	res, err := r.navigateWithRetry(ctx, pageURL)

	rec := VisitRecord{
		Path:     path,
		Depth:    depth,
		Duration: res.Duration,
	}
	switch {
	case err != nil:
		rec.Status = VisitBroken
		rec.Reason = err.Error()
		r.logger.Warn("Broken link",
			zap.String("url", pageURL),
			zap.Int("depth", depth),
			zap.Error(err),
		)
	case res.StatusCode >= 400:
		rec.Status = VisitBroken
		rec.HTTPStatus = res.StatusCode
		rec.Reason = fmt.Sprintf("HTTP %d", res.StatusCode)
		r.logger.Warn("Broken link",
			zap.String("url", pageURL),
			zap.Int("depth", depth),
			zap.Int("status", res.StatusCode),
		)
	default:
		rec.Status = VisitSuccess
		rec.HTTPStatus = res.StatusCode
		r.logger.Debug("Page ok",
			zap.String("url", pageURL),
			zap.Int("depth", depth),
			zap.Int("status", res.StatusCode),
		)
	}
	r.state.Record(rec)

	r.engine.emit(progress.Event{
		RunID:       progress.UUIDToBytes(r.runID),
		TS:          r.engine.clock.Now(),
		Stage:       progress.StageVisitDone,
		Environment: r.env.Name,
		URL:         pageURL,
		StatusClass: progress.ClassifyStatus(res.StatusCode),
		Visits:      1,
		Dur:         res.Duration,
		Note:        rec.Reason,
	})

	if rec.Status != VisitSuccess || depth+1 > r.engine.cfg.MaxDepth {
		return nil
	}
	return r.collectChildren(res.HTML, pageURL)
}

// navigateWithRetry applies the optional retry policy around page loads.
// Outcomes that would be recorded as broken are retried up to the configured
// count with a fixed delay between attempts.
func (r *crawlRun) navigateWithRetry(ctx context.Context, pageURL string) (NavResult, error) {
	attempts := r.engine.cfg.Retry.Attempts()
	var (
		res NavResult
		err error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		navCtx, cancel := context.WithTimeout(ctx, r.engine.cfg.NavTimeout)
		res, err = r.nav.Navigate(navCtx, pageURL)
		cancel()

		if err == nil && res.StatusCode < 400 {
			return res, nil
		}
		if ctx.Err() != nil || attempt == attempts-1 {
			break
		}
		r.logger.Debug("Retrying page load",
			zap.String("url", pageURL),
			zap.Int("attempt", attempt+1),
		)
		if !sleepCtx(ctx, r.engine.cfg.Retry.Delay) {
			break
		}
	}
	return res, err
}

// collectChildren extracts, normalizes, and filters links from a page, then
// atomically claims the survivors for the next depth wave.
func (r *crawlRun) collectChildren(html, pageURL string) []string {
	links, err := ExtractLinks(html)
	if err != nil {
		r.logger.Warn("Link extraction failed", zap.String("url", pageURL), zap.Error(err))
		return nil
	}
	r.state.AddLinksFound(len(links))

	var children []string
	for _, link := range links {
		normalized, ok := NormalizePath(link.Href, r.env)
		if !ok {
			continue
		}
		skip, reason := r.classifier.Skip(normalized)
		if skip {
			if reason == SkipKnownIssue {
				r.logger.Info("Skipping known issue",
					zap.String("path", normalized),
					zap.String("source", pageURL),
				)
				r.engine.emit(progress.Event{
					RunID:       progress.UUIDToBytes(r.runID),
					TS:          r.engine.clock.Now(),
					Stage:       progress.StageLinkSkipped,
					Environment: r.env.Name,
					URL:         normalized,
					Note:        string(reason),
				})
			}
			continue
		}
		if r.state.MarkIfNew(normalized) {
			children = append(children, normalized)
		}
	}
	return children
}

// joinURL glues the environment origin to a normalized path without doubling
// slashes.
func joinURL(baseURL, path string) string {
	trimmed := strings.TrimSuffix(baseURL, "/")
	if u, err := url.Parse(baseURL); err == nil && u.Path != "" && u.Path != "/" {
		trimmed = u.Scheme + "://" + u.Host
	}
	return trimmed + path
}

// sleepCtx waits for d unless the context finishes first. It reports whether
// the full delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
