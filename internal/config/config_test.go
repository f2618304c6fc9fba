package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcheck/pkg/source"
	_ "github.com/leapstack-labs/leapcheck/pkg/sources/csv"
)

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)
	assert.Nil(t, cfg, "no config file is not an error")

	content := `rules: checks/rules.yaml
source:
  path: data/people.csv
  params:
    na_values: ["-"]
workers: 2
disabled_checks: [DQ07]
watch:
  debounce: 1s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o600))

	cfg, err = LoadFromDir(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "checks/rules.yaml", cfg.Rules)
	assert.Equal(t, "csv", cfg.Source.Type, "type inferred from path")
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, []string{"DQ07"}, cfg.DisabledChecks)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, DefaultStateFile, cfg.StatePath)
	assert.Equal(t, DefaultServePort, cfg.Serve.Port)
	assert.Contains(t, cfg.Source.Params, "na_values")
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileNameAlt), []byte("workers: 1\n"), 0o600))

	assert.Equal(t, root, FindProjectRoot(nested))
	assert.Equal(t, filepath.Join(root, ConfigFileNameAlt), FindConfigFile(root))
}

func TestApplySourceDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   source.Config
		want source.Config
	}{
		{
			name: "csv from extension",
			in:   source.Config{Path: "x.tsv"},
			want: source.Config{Type: "csv", Path: "x.tsv"},
		},
		{
			name: "explicit type kept",
			in:   source.Config{Type: "duckdb", Path: "x.csv"},
			want: source.Config{Type: "duckdb", Path: "x.csv"},
		},
		{
			name: "postgres port",
			in:   source.Config{Type: "postgres", Host: "db"},
			want: source.Config{Type: "postgres", Host: "db", Port: 5432},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			ApplySourceDefaults(&got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateSource(t *testing.T) {
	assert.NoError(t, ValidateSource(&source.Config{Type: "csv", Path: "x.csv"}))
	assert.ErrorContains(t, ValidateSource(&source.Config{}), "no data source")
	assert.ErrorContains(t, ValidateSource(&source.Config{Path: "x.bin"}), "cannot infer")

	err := ValidateSource(&source.Config{Type: "oracle"})
	var unknown *source.UnknownSourceError
	assert.ErrorAs(t, err, &unknown)
}
