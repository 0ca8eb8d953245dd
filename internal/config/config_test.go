package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ai-tools-lab/linkverify/internal/crawler"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "linkverify.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalYAML = `
environments:
  - name: production
    base_url: https://www.example.com/
`

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	require.Equal(t, 3, cfg.Crawler.MaxDepth)
	require.Equal(t, 4, cfg.Crawler.Concurrency)
	require.Equal(t, 30*time.Second, cfg.Crawler.NavTimeout)
	require.Equal(t, "linkverify-bot/0.1", cfg.Crawler.UserAgent)
	require.Zero(t, cfg.Retry.Count)
	require.Equal(t, time.Second, cfg.Retry.Delay)
	require.Equal(t, "reports", cfg.Report.OutputDir)
	require.True(t, cfg.Logging.Development)
}

func TestLoadFullConfig(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, `
environments:
  - name: staging
    base_url: https://staging.example.com
    path_prefix: pages
    require_prefix: true
    known_issue_pattern: "^/legacy/"
    seeds: ["/pages/", "/pages/docs"]
    engine: http
  - name: production
    base_url: https://www.example.com
    engine: auto
crawler:
  max_depth: 5
  concurrency: 8
  nav_timeout: 45s
retry:
  count: 2
  delay: 500ms
report:
  output_dir: out
  gcs_bucket: verify-artifacts
  gcs_prefix: runs
history:
  dsn: postgres://verify:secret@db:5432/verify
  max_conns: 4
notify:
  project_id: acme-ci
  topic: linkverify-done
ops:
  listen_addr: ":9402"
logging:
  development: false
`))
	require.NoError(t, err)

	require.Len(t, cfg.Environments, 2)
	staging := cfg.Environments[0].ToEnvironment()
	require.Equal(t, "staging", staging.Name)
	require.True(t, staging.RequirePrefix)
	require.Equal(t, crawler.EngineHTTP, staging.Engine)
	require.Equal(t, []string{"/pages/", "/pages/docs"}, staging.Seeds)

	production := cfg.Environments[1].ToEnvironment()
	require.Equal(t, crawler.EngineAuto, production.Engine)

	require.Equal(t, 5, cfg.Crawler.MaxDepth)
	require.Equal(t, 2, cfg.Retry.Count)
	require.Equal(t, 500*time.Millisecond, cfg.Retry.Delay)
	require.Equal(t, "verify-artifacts", cfg.Report.GCSBucket)
	require.Equal(t, int32(4), cfg.History.MaxConns)
	require.Equal(t, "acme-ci", cfg.Notify.ProjectID)
	require.Equal(t, ":9402", cfg.Ops.ListenAddr)
	require.False(t, cfg.Logging.Development)

	settings := cfg.CrawlerSettings()
	require.Equal(t, 5, settings.MaxDepth)
	require.Equal(t, 2, settings.Retry.Count)
}

func TestLoadValidationFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no environments",
			yaml:    `crawler: {max_depth: 1}`,
			wantErr: "at least one environment",
		},
		{
			name: "duplicate environment names",
			yaml: `
environments:
  - name: staging
    base_url: https://a.example.com
  - name: staging
    base_url: https://b.example.com
`,
			wantErr: "duplicate environment name",
		},
		{
			name: "missing base url",
			yaml: `
environments:
  - name: staging
`,
			wantErr: "base_url is required",
		},
		{
			name: "prefix required without prefix",
			yaml: `
environments:
  - name: staging
    base_url: https://a.example.com
    require_prefix: true
`,
			wantErr: "path_prefix is required",
		},
		{
			name: "notify fields must pair",
			yaml: minimalYAML + `
notify:
  project_id: acme-ci
`,
			wantErr: "must be set together",
		},
		{
			name: "no report destination",
			yaml: minimalYAML + `
report:
  output_dir: ""
`,
			wantErr: "output_dir or report.gcs_bucket",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tc.yaml))
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestToEnvironmentTrimsTrailingSlash(t *testing.T) {
	t.Parallel()

	env := EnvironmentConfig{
		Name:    "production",
		BaseURL: "https://www.example.com/",
	}.ToEnvironment()
	require.Equal(t, "https://www.example.com", env.BaseURL)
}
