package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcheck/internal/testutil"
	"github.com/leapstack-labs/leapcheck/pkg/source"

	// Import source packages to ensure sources are registered via init()
	_ "github.com/leapstack-labs/leapcheck/pkg/sources/csv"
	_ "github.com/leapstack-labs/leapcheck/pkg/sources/postgres"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "leapcheck.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))
	return cfgPath
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rules", "", "rules file")
	flags.String("state", "", "state database")
	flags.StringP("output", "o", "", "output format")
	flags.Int("workers", 0, "workers")
	flags.StringSlice("disable", nil, "checks to disable")
	flags.Bool("no-history", false, "do not record runs")
	return flags
}

func TestLoadConfig_FromFile(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, `rules: checks.yaml
source:
  path: data/people.csv
  delimiter: ";"
state_path: state/history.db
workers: 3
disabled_checks: [DQ07, missing.values]
serve:
  port: 9000
watch:
  debounce: 2s
`)
	root := filepath.Dir(cfgPath)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "checks.yaml"), cfg.Rules)
	assert.Equal(t, filepath.Join(root, "state", "history.db"), cfg.StatePath)
	assert.Equal(t, filepath.Join(root, "data", "people.csv"), cfg.Source.Path)
	assert.Equal(t, "csv", cfg.Source.Type)
	assert.Equal(t, ";", cfg.Source.Delimiter)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, []string{"DQ07", "missing.values"}, cfg.DisabledChecks)
	assert.Equal(t, 9000, cfg.Serve.Port)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.True(t, cfg.History)
	assert.Equal(t, cfg.StatePath, cfg.HistoryPath())
	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "{}\n")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 8765, cfg.Serve.Port)
	assert.Equal(t, 32, cfg.Serve.MaxUploadMB)
	assert.Empty(t, cfg.Source.Type)
}

func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "workers: 2\noutput: text\n")
	t.Setenv("LEAPCHECK_WORKERS", "5")
	t.Setenv("LEAPCHECK_OUTPUT", "markdown")

	flags := testFlags()
	require.NoError(t, flags.Set("workers", "7"))
	require.NoError(t, flags.Set("no-history", "true"))
	require.NoError(t, flags.Set("disable", "DQ01,DQ02"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Workers, "flag value should override config file and env var")
	assert.Equal(t, "markdown", cfg.OutputFormat, "env var should be used when flag is not set")
	assert.False(t, cfg.History)
	assert.Empty(t, cfg.HistoryPath())
	assert.Equal(t, []string{"DQ01", "DQ02"}, cfg.DisabledChecks)
}

func TestLoadConfig_FlagPathsRelativeToCWD(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "rules: from_file.yaml\n")

	flags := testFlags()
	require.NoError(t, flags.Set("rules", "local.yaml"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	want, err := filepath.Abs("local.yaml")
	require.NoError(t, err)
	assert.Equal(t, want, cfg.Rules)
}

func TestLoadConfig_NestedEnv(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "source:\n  type: postgres\n  host: db\n  password: ${TEST_PG_PASSWORD}\n")
	t.Setenv("TEST_PG_PASSWORD", "secret123")
	t.Setenv("LEAPCHECK_SOURCE__TABLE", "users")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "users", cfg.Source.Table)
	assert.Equal(t, "secret123", cfg.Source.Password)
	assert.Equal(t, 5432, cfg.Source.Port)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errSub  string
	}{
		{name: "bad output", content: "output: yaml\n", errSub: "invalid output format"},
		{name: "bad workers", content: "workers: 0\n", errSub: "workers must be at least 1"},
		{name: "unknown source", content: "source:\n  type: oracle\n", errSub: "unknown source type"},
		{name: "bad yaml", content: "workers: [\n", errSub: "error reading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			_, err := LoadConfig(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_ONE", "value_one")

	tests := []struct {
		in, want string
	}{
		{"${TEST_VAR_ONE}", "value_one"},
		{"prefix-${TEST_VAR_ONE}-suffix", "prefix-value_one-suffix"},
		{"${TEST_VAR_UNSET_XYZ}", "${TEST_VAR_UNSET_XYZ}"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expandEnvVars(tt.in))
	}
}

func TestResolvePathRelativeTo(t *testing.T) {
	assert.Equal(t, "", resolvePathRelativeTo("", "/root"))
	assert.Equal(t, ":memory:", resolvePathRelativeTo(":memory:", "/root"))
	assert.Equal(t, "s3://bucket/a.csv", resolvePathRelativeTo("s3://bucket/a.csv", "/root"))
	assert.Equal(t, filepath.Join("/root", "a.csv"), resolvePathRelativeTo("a.csv", "/root"))
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "discard logger fallback")

	logger := testutil.NewTestLogger(t)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}

func TestConfig_Project(t *testing.T) {
	cfg := &Config{Rules: "r.yaml", Workers: 2, Source: source.Config{Type: "csv"}}
	p := cfg.Project()
	assert.Equal(t, "r.yaml", p.Rules)
	assert.Equal(t, 2, p.Workers)
	assert.Equal(t, "csv", p.Source.Type)
}
