// Package recovery selects troubleshooting guides for authentication
// failures and runs recovery attempts through an injected collaborator.
// The engine records every attempt but never re-raises a failure: a broken
// recovery path must not make a bad situation worse.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// historyCap bounds the recovery history, oldest evicted first.
const historyCap = 100

// Context describes one authentication failure for recovery purposes.
type Context struct {
	Err              error
	Category         string
	FailurePoint     string
	Environment      map[string]string
	PreviousAttempts int
	AvailableMethods []Method
}

// Result is the outcome of one recovery attempt.
type Result struct {
	Success        bool
	MethodUsed     Method
	StepsCompleted []Step
	Elapsed        time.Duration
	Feedback       string
}

// Diagnostic is a detailed record of a failure for logging. It never drives
// control flow.
type Diagnostic struct {
	Timestamp        time.Time
	Category         string
	ErrorMessage     string
	FailurePoint     string
	Environment      map[string]string
	PreviousAttempts int
	AvailableMethods []Method
}

// Action performs the actual recovery mechanics (walking the user through
// steps, launching an alternative method). Browser and manual-entry
// mechanics live behind this interface, outside the engine.
type Action interface {
	Recover(ctx context.Context, guide Guide, rctx Context) (Result, error)
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(ctx context.Context, guide Guide, rctx Context) (Result, error)

func (f ActionFunc) Recover(ctx context.Context, guide Guide, rctx Context) (Result, error) {
	return f(ctx, guide, rctx)
}

// Engine owns the guide catalog and the recovery attempt history.
type Engine struct {
	action Action
	logger *slog.Logger

	mu      sync.Mutex
	history []Result

	// now is the clock for elapsed-time measurement; tests override it.
	now func() time.Time
}

// NewEngine creates an Engine delegating recovery mechanics to action.
func NewEngine(action Action, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{action: action, logger: logger, now: time.Now}
}

// GuideFor returns the troubleshooting guide for a failure category.
// Unknown categories resolve to the generic guide.
func (e *Engine) GuideFor(category string) Guide {
	if g, ok := catalog[category]; ok {
		return g
	}

	return genericGuide
}

// ContextualMessage builds a user-facing message from the failure category
// and, when known, the point in the flow where the failure happened.
func (e *Engine) ContextualMessage(rctx Context) string {
	msg, ok := basePhrases[rctx.Category]
	if !ok {
		msg = genericBasePhrase
	}

	if suffix, ok := failurePointSuffixes[rctx.FailurePoint]; ok {
		msg += suffix
	}

	return msg
}

// DetailedLog returns a diagnostics record for the failure.
func (e *Engine) DetailedLog(rctx Context) Diagnostic {
	var errMsg string
	if rctx.Err != nil {
		errMsg = rctx.Err.Error()
	}

	return Diagnostic{
		Timestamp:        e.now(),
		Category:         rctx.Category,
		ErrorMessage:     errMsg,
		FailurePoint:     rctx.FailurePoint,
		Environment:      rctx.Environment,
		PreviousAttempts: rctx.PreviousAttempts,
		AvailableMethods: rctx.AvailableMethods,
	}
}

// StartRecovery selects the guide for the failure, delegates to the
// action collaborator, records the attempt, and returns the result.
// Errors and panics from the action are converted into a failed Result —
// never propagated.
func (e *Engine) StartRecovery(ctx context.Context, rctx Context) Result {
	start := e.now()

	e.logger.Info("starting recovery workflow",
		slog.String("category", rctx.Category),
		slog.String("failure_point", rctx.FailurePoint),
		slog.Int("previous_attempts", rctx.PreviousAttempts),
	)

	guide := e.GuideFor(rctx.Category)
	result := e.runAction(ctx, guide, rctx)
	result.Elapsed = e.now().Sub(start)

	e.mu.Lock()
	e.history = append(e.history, result)
	if len(e.history) > historyCap {
		copy(e.history, e.history[1:])
		e.history = e.history[:historyCap]
	}
	e.mu.Unlock()

	e.logger.Info("recovery workflow finished",
		slog.String("category", rctx.Category),
		slog.Bool("success", result.Success),
		slog.Duration("elapsed", result.Elapsed),
	)

	return result
}

// runAction invokes the collaborator, converting errors and panics into a
// failed Result.
func (e *Engine) runAction(ctx context.Context, guide Guide, rctx Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("recovery action panicked", slog.Any("panic", r))
			result = Result{Feedback: fmt.Sprintf("recovery action panicked: %v", r)}
		}
	}()

	result, err := e.action.Recover(ctx, guide, rctx)
	if err != nil {
		e.logger.Error("recovery action failed", slog.String("error", err.Error()))
		return Result{Feedback: err.Error()}
	}

	return result
}

// History returns a copy of the recorded recovery attempts, oldest first.
func (e *Engine) History() []Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Result, len(e.history))
	copy(out, e.history)

	return out
}

// SuccessRate reports the fraction of recorded attempts that succeeded.
// ok is false when no attempts have been recorded.
func (e *Engine) SuccessRate() (rate float64, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.history) == 0 {
		return 0, false
	}

	succeeded := 0
	for _, r := range e.history {
		if r.Success {
			succeeded++
		}
	}

	return float64(succeeded) / float64(len(e.history)), true
}
