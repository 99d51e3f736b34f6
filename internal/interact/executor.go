// Package interact implements resilient UI interactions. An interaction is
// performed by trying an ordered list of strategies until one succeeds, each
// attempt bounded by a timeout and the whole sequence bounded by a total
// time budget.
package interact

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cfranzen/webgrit/internal/log"
	"github.com/cfranzen/webgrit/internal/types"
)

const (
	DefaultAttemptTimeout = 5 * time.Second
	DefaultTotalBudget    = 20 * time.Second
)

// A Strategy is one concrete way of performing a UI interaction, eg a native
// click or a scripted click. Strategies are stateless; their only side effect
// is on the page itself.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context) error
}

type strategyFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (s *strategyFunc) Name() string                      { return s.name }
func (s *strategyFunc) Attempt(ctx context.Context) error { return s.fn(ctx) }

// NewStrategy wraps a function as a named Strategy.
func NewStrategy(name string, fn func(ctx context.Context) error) Strategy {
	return &strategyFunc{name: name, fn: fn}
}

// Options bound a single interaction call.
type Options struct {
	// AttemptTimeout limits one strategy attempt. Defaults to DefaultAttemptTimeout.
	AttemptTimeout time.Duration
	// TotalBudget limits the whole sequence. It is checked between attempts,
	// not preemptively inside one, so the actual elapsed time can overrun by
	// at most one in-flight attempt. Defaults to DefaultTotalBudget.
	TotalBudget time.Duration
	// Check verifies the caller's post-condition, eg an expected element
	// becoming visible. When set it runs once before the first attempt (a
	// passing check makes the whole call a no-op) and after every attempt
	// that did not itself fail.
	Check func(ctx context.Context) error
}

// WithDefaults fills in the documented default timeouts.
func (o Options) WithDefaults() Options {
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = DefaultAttemptTimeout
	}
	if o.TotalBudget <= 0 {
		o.TotalBudget = DefaultTotalBudget
	}
	return o
}

// ActionResult is the terminal outcome of one interaction call.
type ActionResult struct {
	Succeeded    bool
	StrategyUsed string
	Attempts     []types.AttemptRecord
}

// Run tries the given strategies in order until one succeeds or all are
// exhausted. Individual strategy failures never escape; the only errors
// returned are an ExhaustionError, a cancelled context or a failing
// pre-check. On success the returned result records exactly one successful
// attempt, the last one.
func Run(ctx context.Context, strategies []Strategy, opts Options) (*ActionResult, error) {
	opts = opts.WithDefaults()
	logger := log.LoggerFromContext(ctx)

	if opts.Check != nil {
		checkCtx, cancel := context.WithTimeout(ctx, opts.AttemptTimeout)
		err := opts.Check(checkCtx)
		cancel()
		if err == nil {
			logger.Debug("post-condition already satisfied, skipping interaction")
			return &ActionResult{Succeeded: true}, nil
		}
	}

	result := &ActionResult{}
	start := time.Now()
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return nil, &AbortError{Attempts: result.Attempts, Cause: err}
		}
		if time.Since(start) >= opts.TotalBudget {
			logger.Debug(fmt.Sprintf("total budget of %v exhausted after %d attempts", opts.TotalBudget, len(result.Attempts)))
			return nil, &ExhaustionError{Attempts: result.Attempts, BudgetExceeded: true, Budget: opts.TotalBudget}
		}

		record := runAttempt(ctx, s, opts)
		result.Attempts = append(result.Attempts, record)
		logger.Debug("interaction attempt",
			slog.String("strategy", record.Strategy),
			slog.String("outcome", string(record.Outcome)),
			slog.Duration("elapsed", record.Elapsed),
			slog.String("err", record.Error))

		if record.Outcome == types.OutcomeSuccess {
			result.Succeeded = true
			result.StrategyUsed = record.Strategy
			return result, nil
		}
	}
	return nil, &ExhaustionError{Attempts: result.Attempts}
}

func runAttempt(ctx context.Context, s Strategy, opts Options) types.AttemptRecord {
	attemptCtx, cancel := context.WithTimeout(ctx, opts.AttemptTimeout)
	defer cancel()

	record := types.AttemptRecord{Strategy: s.Name()}
	start := time.Now()
	if err := s.Attempt(attemptCtx); err != nil {
		record.Elapsed = time.Since(start)
		record.Outcome = types.OutcomeError
		record.Error = err.Error()
		return record
	}
	if opts.Check != nil {
		if err := opts.Check(attemptCtx); err != nil {
			record.Elapsed = time.Since(start)
			record.Outcome = types.OutcomeFailure
			record.Error = fmt.Sprintf("post-condition not met: %v", err)
			return record
		}
	}
	record.Elapsed = time.Since(start)
	record.Outcome = types.OutcomeSuccess
	return record
}

// ExhaustionError is returned when every strategy failed or the total budget
// ran out. It carries the full attempt log for diagnostics.
type ExhaustionError struct {
	Attempts       []types.AttemptRecord
	BudgetExceeded bool
	Budget         time.Duration
}

func (e *ExhaustionError) Error() string {
	var b strings.Builder
	if e.BudgetExceeded {
		fmt.Fprintf(&b, "interaction budget of %v exceeded after %d attempts", e.Budget, len(e.Attempts))
	} else {
		fmt.Fprintf(&b, "all %d interaction strategies failed", len(e.Attempts))
	}
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "\n  %s: %s", a.Strategy, a.Error)
	}
	return b.String()
}

// AbortError is returned when the surrounding context is cancelled between
// attempts. Like ExhaustionError it carries the attempts made so far, so a
// cancelled run still shows what was tried.
type AbortError struct {
	Attempts []types.AttemptRecord
	Cause    error
}

func (e *AbortError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "interaction aborted after %d attempts: %v", len(e.Attempts), e.Cause)
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "\n  %s: %s", a.Strategy, a.Error)
	}
	return b.String()
}

func (e *AbortError) Unwrap() error { return e.Cause }

// PreconditionError is returned when the target element does not resolve at
// all. It is not retried.
type PreconditionError struct {
	Target      string
	Suggestions []string
}

func (e *PreconditionError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("no element matches selector %q", e.Target)
	}
	return fmt.Sprintf("no element matches selector %q, did you mean one of [%s]?", e.Target, strings.Join(e.Suggestions, ", "))
}
