package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ai-tools-lab/linkverify/internal/browser"
	"github.com/ai-tools-lab/linkverify/internal/clock/system"
	"github.com/ai-tools-lab/linkverify/internal/config"
	"github.com/ai-tools-lab/linkverify/internal/crawler"
	"github.com/ai-tools-lab/linkverify/internal/history"
	"github.com/ai-tools-lab/linkverify/internal/id/uuid"
	"github.com/ai-tools-lab/linkverify/internal/notify"
	"github.com/ai-tools-lab/linkverify/internal/ops"
	"github.com/ai-tools-lab/linkverify/internal/progress"
	"github.com/ai-tools-lab/linkverify/internal/progress/sinks"
	"github.com/ai-tools-lab/linkverify/internal/report"
)

// errBrokenLinks gates CI: any broken link in any environment fails the run.
var errBrokenLinks = errors.New("broken links found")

// newVerifyCmd creates the 'verify' subcommand.
func newVerifyCmd() *cobra.Command {
	var envNames []string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Crawl every configured environment and verify its links",
		Long: `Runs a breadth-first, depth-bounded crawl of each configured
environment, checking every internal link. The process exits non-zero when
any environment has at least one broken link.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd.Context(), envNames)
		},
	}
	cmd.Flags().StringSliceVar(&envNames, "env", nil, "restrict the run to the named environments")
	return cmd
}

func runVerify(parent context.Context, envNames []string) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	envs, err := selectEnvironments(cfg, envNames)
	if err != nil {
		return err
	}

	hub, opsServer, err := buildObservability(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if opsServer != nil {
			if err := opsServer.Shutdown(closeCtx); err != nil {
				logger.Warn("Ops server shutdown failed", zap.Error(err))
			}
		}
		if err := hub.Close(closeCtx); err != nil {
			logger.Warn("Progress hub close failed", zap.Error(err))
		}
	}()

	runID, err := uuid.New().NewRawID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}

	engine := crawler.NewEngine(cfg.CrawlerSettings(), system.New(), hub, logger)
	result := engine.Run(ctx, runID, envs, navigatorFactory(cfg))

	reportURI := persistReport(ctx, cfg, logger, result)
	recordHistory(ctx, cfg, logger, result)
	notifyCompletion(ctx, cfg, logger, result, reportURI)

	printSummary(result)

	if result.Failed() {
		return errBrokenLinks
	}
	return nil
}

// selectEnvironments resolves the configured environments, optionally
// restricted by --env.
func selectEnvironments(cfg config.Config, names []string) ([]crawler.Environment, error) {
	byName := make(map[string]crawler.Environment, len(cfg.Environments))
	var all []crawler.Environment
	for _, ec := range cfg.Environments {
		env := ec.ToEnvironment()
		byName[env.Name] = env
		all = append(all, env)
	}
	if len(names) == 0 {
		return all, nil
	}
	var selected []crawler.Environment
	for _, name := range names {
		env, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown environment %q", name)
		}
		selected = append(selected, env)
	}
	return selected, nil
}

// buildObservability wires the progress hub, its sinks, and the optional
// metrics listener.
func buildObservability(cfg config.Config, logger *zap.Logger) (*progress.Hub, *ops.Server, error) {
	sinkList := []progress.Sink{sinks.NewLogSink(logger)}

	var opsServer *ops.Server
	if cfg.Ops.ListenAddr != "" {
		promSink, err := sinks.NewPrometheusSink(nil)
		if err != nil {
			return nil, nil, fmt.Errorf("init prometheus sink: %w", err)
		}
		sinkList = append(sinkList, promSink)
		opsServer = ops.NewServer(cfg.Ops.ListenAddr, logger)
		opsServer.Start()
	}

	hub := progress.NewHub(progress.Config{Logger: logger}, sinkList...)
	return hub, opsServer, nil
}

// navigatorFactory builds the per-environment navigation backend. A chromedp
// launch failure fails only that environment's crawl.
func navigatorFactory(cfg config.Config) crawler.NavigatorFactory {
	httpCfg := browser.CollyConfig{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.Crawler.NavTimeout,
	}
	browserCfg := browser.Config{
		MaxParallel:       cfg.Crawler.Concurrency,
		UserAgent:         cfg.Crawler.UserAgent,
		NavigationTimeout: cfg.Crawler.NavTimeout,
		DomainQPS:         cfg.Crawler.DomainQPS,
	}
	return func(env crawler.Environment) (crawler.Navigator, error) {
		switch env.Engine {
		case crawler.EngineHTTP:
			return browser.NewColly(httpCfg), nil
		case crawler.EngineAuto:
			return browser.NewAuto(httpCfg, browserCfg), nil
		case crawler.EngineChromedp, "":
			nav, err := browser.NewChromedp(browserCfg)
			if err != nil {
				return nil, fmt.Errorf("launch browser: %w", err)
			}
			return nav, nil
		default:
			return browser.NewNoop(), nil
		}
	}
}

// persistReport writes the run report to every configured sink and returns
// the URI of the last successful write.
func persistReport(ctx context.Context, cfg config.Config, logger *zap.Logger, result crawler.RunResult) string {
	var reportSinks []crawler.ReportSink
	if cfg.Report.OutputDir != "" {
		sink, err := report.NewFileSystemSink(cfg.Report.OutputDir, logger)
		if err != nil {
			logger.Error("Report sink init failed", zap.Error(err))
		} else {
			reportSinks = append(reportSinks, sink)
		}
	}
	if cfg.Report.GCSBucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			logger.Error("GCS client init failed", zap.Error(err))
		} else {
			defer func() { _ = client.Close() }()
			sink, err := report.NewGCSSink(client, cfg.Report.GCSBucket, cfg.Report.GCSPrefix)
			if err != nil {
				logger.Error("GCS report sink init failed", zap.Error(err))
			} else {
				reportSinks = append(reportSinks, sink)
			}
		}
	}

	var uri string
	for _, sink := range reportSinks {
		u, err := sink.Save(ctx, result)
		if err != nil {
			logger.Error("Report write failed", zap.Error(err))
			continue
		}
		uri = u
	}
	return uri
}

// recordHistory persists per-environment summaries when a DSN is configured.
func recordHistory(ctx context.Context, cfg config.Config, logger *zap.Logger, result crawler.RunResult) {
	if cfg.History.DSN == "" {
		return
	}
	store, err := history.New(ctx, history.Config{
		DSN:      cfg.History.DSN,
		MaxConns: cfg.History.MaxConns,
	})
	if err != nil {
		logger.Error("History store init failed", zap.Error(err))
		return
	}
	defer store.Close()
	recordEnvironments(ctx, logger, store, result)
}

func recordEnvironments(ctx context.Context, logger *zap.Logger, store crawler.HistoryStore, result crawler.RunResult) {
	for _, env := range result.Environments {
		if err := store.RecordCrawl(ctx, result.RunID, env); err != nil {
			logger.Error("History record failed",
				zap.String("environment", env.Environment),
				zap.Error(err),
			)
		}
	}
}

// notifyCompletion publishes the run outcome; failures are logged only.
func notifyCompletion(ctx context.Context, cfg config.Config, logger *zap.Logger, result crawler.RunResult, reportURI string) {
	if cfg.Notify.ProjectID == "" {
		return
	}
	client, err := pubsub.NewClient(ctx, cfg.Notify.ProjectID)
	if err != nil {
		logger.Warn("Pub/Sub client init failed", zap.Error(err))
		return
	}
	defer func() { _ = client.Close() }()

	notifier, err := notify.New(client, cfg.Notify.Topic)
	if err != nil {
		logger.Warn("Notifier init failed", zap.Error(err))
		return
	}
	defer notifier.Stop()

	publishOutcome(ctx, logger, notifier, result, reportURI)
}

func publishOutcome(ctx context.Context, logger *zap.Logger, notifier crawler.Notifier, result crawler.RunResult, reportURI string) {
	payload := map[string]any{
		"run_id":     result.RunID,
		"started_at": result.StartedAt.Format(time.RFC3339),
		"failed":     result.Failed(),
		"report_uri": reportURI,
	}
	envSummaries := make([]map[string]any, 0, len(result.Environments))
	for _, env := range result.Environments {
		envSummaries = append(envSummaries, map[string]any{
			"environment":  env.Environment,
			"urls_checked": env.URLsChecked,
			"broken":       env.Broken,
			"error":        env.ErrorText,
		})
	}
	payload["environments"] = envSummaries

	if id, err := notifier.Notify(ctx, payload); err != nil {
		logger.Warn("Completion notification failed", zap.Error(err))
	} else {
		logger.Info("Completion notification sent", zap.String("message_id", id))
	}
}

// printSummary renders the final per-environment table on stdout.
func printSummary(result crawler.RunResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "\nENVIRONMENT\tCHECKED\tLINKS\tOK\tBROKEN\tDURATION\n")
	for _, env := range result.Environments {
		status := fmt.Sprintf("%d", env.Broken)
		if env.ErrorText != "" {
			status = "error"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%dms\n",
			env.Environment,
			env.URLsChecked,
			env.LinksFound,
			env.Succeeded,
			status,
			env.DurationMs,
		)
	}
	_ = w.Flush()

	for _, env := range result.Environments {
		for _, broken := range env.BrokenLinks {
			reason := broken.Reason
			if reason == "" {
				reason = fmt.Sprintf("HTTP %d", broken.HTTPStatus)
			}
			fmt.Printf("  [%s] %s: %s\n", env.Environment, broken.URL, reason)
		}
	}
}
