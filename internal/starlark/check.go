package starlark

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/leapstack-labs/leapcheck/pkg/check"
	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// DefaultMaxSteps bounds the work one expression may do on one row.
const DefaultMaxSteps = 100_000

// Compile checks the syntax of a custom check expression.
func Compile(c core.CustomCheck) error {
	if _, err := syntax.ParseExpr(c.Name, c.Expr, 0); err != nil { //nolint:staticcheck // SA1019: will migrate to FileOptions.ParseExpr later
		return err
	}
	return nil
}

// Evaluator runs the custom checks of a rule set against every row.
// It is safe for concurrent use.
type Evaluator struct {
	threads     *rowThreads
	predeclared starlark.StringDict
	workers     int
	maxSteps    uint64
	logger      *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithWorkers sets how many rows are evaluated concurrently.
func WithWorkers(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithMaxSteps overrides DefaultMaxSteps.
func WithMaxSteps(n uint64) Option {
	return func(e *Evaluator) {
		e.maxSteps = n
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// NewEvaluator creates an evaluator.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		predeclared: Predeclared(),
		workers:     runtime.GOMAXPROCS(0),
		maxSteps:    DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	e.threads = newRowThreads(e.workers, e.maxSteps)
	return e
}

// Def exposes the evaluator as a check that runs after the built-in ones.
func (e *Evaluator) Def() check.Def {
	return check.Def{
		ID:          "DQ08",
		Name:        "custom.expressions",
		Group:       "custom",
		Description: "Rows must satisfy every custom check expression.",
		Kinds:       []core.Kind{core.KindCheckFailed, core.KindCheckError, core.KindInvalidCheck},
		Check:       e.Run,
		Rationale: `Expressions see each identifier-named column as a global and the
whole row as the dict "row". A falsy result fails the row; a runtime error is
reported as check_error and a syntax error once as invalid_check.`,
		Example: `checks:
  - name: adult
    expr: num(age) >= 18`,
	}
}

type outcome struct {
	pass bool
	err  error
}

// Run evaluates every custom check of rules against ds, check by check,
// appending issues in row order.
func (e *Evaluator) Run(ds *core.Dataset, rules core.RuleSet, issues *core.Issues) {
	for _, c := range rules.Checks {
		if err := Compile(c); err != nil {
			issues.Add(core.NewIssue(core.KindInvalidCheck).
				WithValue(core.String(c.Name)).
				WithExpected(core.String(err.Error())))
			continue
		}

		failed, errored := 0, 0
		for i, out := range e.evalRows(ds, c) {
			switch {
			case out.err != nil:
				errored++
				issues.Add(core.NewIssue(core.KindCheckError).
					AtRow(i).
					WithValue(core.String(c.Name)).
					WithExpected(core.String(errorMessage(out.err))))
			case !out.pass:
				failed++
				issues.Add(core.NewIssue(core.KindCheckFailed).
					AtRow(i).
					WithValue(core.String(c.Name)).
					WithExpected(core.String(c.Expr)))
			}
		}
		e.logger.Debug("custom check evaluated",
			slog.String("check", c.Name),
			slog.Int("failed", failed),
			slog.Int("errors", errored))
	}
}

// evalRows evaluates c for every row, spreading rows over the workers.
func (e *Evaluator) evalRows(ds *core.Dataset, c core.CustomCheck) []outcome {
	n := ds.NumRows()
	results := make([]outcome, n)
	workers := e.workers
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for i := start; i < n; i += workers {
				results[i] = e.evalRow(ds, i, c)
			}
		}(w)
	}
	wg.Wait()
	return results
}

func (e *Evaluator) evalRow(ds *core.Dataset, i int, c core.CustomCheck) outcome {
	result, err := e.threads.eval(c.Name, c.Expr, rowGlobals(ds, i, e.predeclared))
	if err != nil {
		return outcome{err: err}
	}
	return outcome{pass: bool(result.Truth())}
}

// errorMessage strips the traceback from Starlark evaluation errors.
func errorMessage(err error) string {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Msg
	}
	return fmt.Sprint(err)
}
