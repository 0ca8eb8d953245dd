// Package cmd defines the CLI commands for the linkverify executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ai-tools-lab/linkverify/internal/config"
	"github.com/ai-tools-lab/linkverify/internal/logging"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkverify",
		Short: "Crawl deployment environments and report broken links.",
		Long: `linkverify walks the internal links of one or more deployment
environments (staging, production) breadth-first, normalizes URLs across
differing path-prefix conventions, and fails with a non-zero exit code when
any broken link is found, making it usable as a CI gate.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./linkverify.yaml)")

	cmd.AddCommand(newVerifyCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfigAndLogger resolves configuration and builds the process logger.
func loadConfigAndLogger() (config.Config, *zap.Logger, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("linkverify.yaml"); err == nil {
			path = "linkverify.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}
