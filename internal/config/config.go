// Package config loads and validates linkverify configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ai-tools-lab/linkverify/internal/crawler"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Environments []EnvironmentConfig `mapstructure:"environments"`
	Crawler      CrawlerConfig       `mapstructure:"crawler"`
	Retry        RetryConfig         `mapstructure:"retry"`
	Report       ReportConfig        `mapstructure:"report"`
	History      HistoryConfig       `mapstructure:"history"`
	Notify       NotifyConfig        `mapstructure:"notify"`
	Ops          OpsConfig           `mapstructure:"ops"`
	Logging      LoggingConfig       `mapstructure:"logging"`
}

// EnvironmentConfig describes one deployment target to verify.
type EnvironmentConfig struct {
	Name              string   `mapstructure:"name"`
	BaseURL           string   `mapstructure:"base_url"`
	PathPrefix        string   `mapstructure:"path_prefix"`
	RequirePrefix     bool     `mapstructure:"require_prefix"`
	AssetSkipPattern  string   `mapstructure:"asset_skip_pattern"`
	KnownIssuePattern string   `mapstructure:"known_issue_pattern"`
	Seeds             []string `mapstructure:"seeds"`
	Engine            string   `mapstructure:"engine"`
}

// CrawlerConfig governs crawl behavior.
type CrawlerConfig struct {
	MaxDepth    int           `mapstructure:"max_depth"`
	Concurrency int           `mapstructure:"concurrency"`
	NavTimeout  time.Duration `mapstructure:"nav_timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	DomainQPS   float64       `mapstructure:"domain_qps"`
}

// RetryConfig is the optional per-visit retry policy.
type RetryConfig struct {
	Count int           `mapstructure:"count"`
	Delay time.Duration `mapstructure:"delay"`
}

// ReportConfig controls where run reports land.
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

// HistoryConfig enables the Postgres run-history store when a DSN is set.
type HistoryConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// NotifyConfig enables Pub/Sub completion notifications when set.
type NotifyConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// OpsConfig enables the metrics/health listener when an address is set.
type OpsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LINKVERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.max_depth", 3)
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.nav_timeout", "30s")
	v.SetDefault("crawler.user_agent", "linkverify-bot/0.1")
	v.SetDefault("crawler.domain_qps", 0)
	v.SetDefault("retry.count", 0)
	v.SetDefault("retry.delay", "1s")
	v.SetDefault("report.output_dir", "reports")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. Missing required
// environment fields fail here, before any crawling begins.
func (c Config) Validate() error {
	if len(c.Environments) == 0 {
		return fmt.Errorf("at least one environment must be configured")
	}
	seen := make(map[string]struct{}, len(c.Environments))
	for _, env := range c.Environments {
		if _, dup := seen[env.Name]; dup {
			return fmt.Errorf("duplicate environment name %q", env.Name)
		}
		seen[env.Name] = struct{}{}
		if err := env.ToEnvironment().Validate(); err != nil {
			return err
		}
	}
	if c.Crawler.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.NavTimeout <= 0 {
		return fmt.Errorf("crawler.nav_timeout must be > 0")
	}
	if c.Retry.Count < 0 {
		return fmt.Errorf("retry.count must be >= 0")
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("retry.delay must be >= 0")
	}
	if c.Report.OutputDir == "" && c.Report.GCSBucket == "" {
		return fmt.Errorf("report.output_dir or report.gcs_bucket must be set")
	}
	if (c.Notify.ProjectID == "") != (c.Notify.Topic == "") {
		return fmt.Errorf("notify.project_id and notify.topic must be set together")
	}
	return nil
}

// ToEnvironment converts the config record into the crawler's immutable form.
func (e EnvironmentConfig) ToEnvironment() crawler.Environment {
	return crawler.Environment{
		Name:              e.Name,
		BaseURL:           strings.TrimSuffix(e.BaseURL, "/"),
		PathPrefix:        e.PathPrefix,
		RequirePrefix:     e.RequirePrefix,
		AssetSkipPattern:  e.AssetSkipPattern,
		KnownIssuePattern: e.KnownIssuePattern,
		Seeds:             e.Seeds,
		Engine:            crawler.EngineKind(e.Engine),
	}
}

// CrawlerSettings converts the crawler/retry sections into engine form.
func (c Config) CrawlerSettings() crawler.Config {
	return crawler.Config{
		MaxDepth:    c.Crawler.MaxDepth,
		Concurrency: c.Crawler.Concurrency,
		NavTimeout:  c.Crawler.NavTimeout,
		Retry: crawler.RetryConfig{
			Count: c.Retry.Count,
			Delay: c.Retry.Delay,
		},
	}
}
