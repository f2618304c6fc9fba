// Package validate runs the data-quality checks against a dataset.
//
// A Validator evaluates the built-in checks in their fixed order, followed by
// any extra checks, collecting every issue into one ordered list and
// summarizing it. Validators hold no per-run state and may be shared between
// goroutines; each call owns its own issue collection.
package validate

import (
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapcheck/pkg/check"
	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// Result is the outcome of one validation.
type Result struct {
	Issues  []core.Issue `json:"issues"`
	Summary core.Summary `json:"summary"`
}

// Validator runs checks against datasets.
type Validator struct {
	config   *Config
	extra    []check.Def
	disabled []string
	logger   *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// WithChecks appends checks that run after the built-in ones.
func WithChecks(defs ...check.Def) Option {
	return func(v *Validator) {
		v.extra = append(v.extra, defs...)
	}
}

// WithDisabled skips checks by ID or name.
func WithDisabled(idsOrNames ...string) Option {
	return func(v *Validator) {
		v.disabled = append(v.disabled, idsOrNames...)
	}
}

// New creates a validator with optional configuration.
func New(config *Config, opts ...Option) *Validator {
	if config == nil {
		config = NewConfig()
	}
	v := &Validator{config: config}
	for _, opt := range opts {
		opt(v)
	}
	if len(v.disabled) > 0 {
		cfg := NewConfig()
		for id := range config.DisabledChecks {
			cfg.Disable(id)
		}
		v.config = cfg.Disable(v.disabled...)
	}
	if v.logger == nil {
		v.logger = slog.New(slog.DiscardHandler)
	}
	return v
}

// Checks returns the enabled checks in evaluation order.
func (v *Validator) Checks() []check.Def {
	var defs []check.Def
	for _, d := range append(check.All(), v.extra...) {
		if !v.config.IsDisabled(d) {
			defs = append(defs, d)
		}
	}
	return defs
}

// Validate evaluates rules against ds. The only error is a
// *core.StructureError for a dataset that is not a well-formed table;
// problems with individual rules are reported as issues.
func (v *Validator) Validate(ds *core.Dataset, rules core.RuleSet) (*Result, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	var issues core.Issues
	for _, d := range v.Checks() {
		before := issues.Len()
		d.Run(ds, rules, &issues)
		v.logger.Debug("check complete",
			slog.String("check", d.ID),
			slog.String("name", d.Name),
			slog.Int("issues", issues.Len()-before))
	}

	all := issues.All()
	summary := core.Summarize(ds, all)
	v.logger.Debug("validation complete",
		slog.String("dataset", ds.Name),
		slog.Int("rows", summary.Rows),
		slog.Int("issues", summary.TotalIssues),
		slog.Duration("elapsed", time.Since(start)))

	return &Result{Issues: all, Summary: summary}, nil
}

// Run validates ds with every built-in check enabled.
func Run(ds *core.Dataset, rules core.RuleSet) ([]core.Issue, core.Summary, error) {
	res, err := New(nil).Validate(ds, rules)
	if err != nil {
		return nil, core.Summary{}, err
	}
	return res.Issues, res.Summary, nil
}
