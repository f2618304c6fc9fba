package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapcheck/internal/cli/config"
	"github.com/leapstack-labs/leapcheck/internal/cli/output"
	intconfig "github.com/leapstack-labs/leapcheck/internal/config"
	"github.com/leapstack-labs/leapcheck/internal/engine"
	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/rules"
)

// ErrIssuesFound is returned when --fail-on-issues is set and validation
// reported issues at or above the threshold. main maps it to exit code 1
// without printing it.
var ErrIssuesFound = errors.New("issues found")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	cleanup := func() {
		_ = eng.Close()
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that only read history or print static information.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	workers := intconfig.DefaultWorkers
	if n, err := strconv.Atoi(os.Getenv("LEAPCHECK_WORKERS")); err == nil && n > 0 {
		workers = n
	}
	var disabled []string
	if v := os.Getenv("LEAPCHECK_DISABLED_CHECKS"); v != "" {
		disabled = rules.ParseList(v)
	}

	return &config.Config{
		Rules:          getEnvOrDefault("LEAPCHECK_RULES", config.DefaultRulesFile),
		StatePath:      getEnvOrDefault("LEAPCHECK_STATE_PATH", config.DefaultStateFile),
		History:        os.Getenv("LEAPCHECK_HISTORY") != "false",
		Workers:        workers,
		DisabledChecks: disabled,
		Verbose:        os.Getenv("LEAPCHECK_VERBOSE") == "true",
		OutputFormat:   os.Getenv("LEAPCHECK_OUTPUT"),
		Serve: config.ServeConfig{
			Port:        intconfig.DefaultServePort,
			MaxUploadMB: intconfig.DefaultMaxUploadMB,
		},
		Watch: config.WatchConfig{Debounce: intconfig.DefaultDebounce},
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	return engine.New(engine.Config{
		StatePath:      cfg.HistoryPath(),
		Workers:        cfg.Workers,
		DisabledChecks: cfg.DisabledChecks,
		Logger:         logger,
	})
}

// loadRules reads the configured rules file. When the file is missing and
// was not named explicitly the built-in default rules are used.
func loadRules(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (core.RuleSet, error) {
	rs, err := rules.LoadFile(cfg.Rules)
	if err == nil {
		return rs, nil
	}
	if errors.Is(err, os.ErrNotExist) && !rulesFlagChanged(cmd) {
		logger.Warn("rules file not found, using default rules", slog.String("path", cfg.Rules))
		return rules.Default(), nil
	}
	return core.RuleSet{}, err
}

func rulesFlagChanged(cmd *cobra.Command) bool {
	f := cmd.Flags().Lookup("rules")
	return f != nil && f.Changed
}

// requireHistory fails when the run history is disabled.
func requireHistory(cmdCtx *CommandContext) error {
	if cmdCtx.Engine.Store() == nil {
		return errors.New("run history is disabled (history: false)")
	}
	return nil
}

// resolveStatePath returns the state database path from config or the default.
func resolveStatePath(cfg *config.Config) string {
	if cfg.StatePath != "" {
		return cfg.StatePath
	}
	return config.DefaultStateFile
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	if strings.HasSuffix(word, "s") {
		return fmt.Sprintf("%d %ses", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
