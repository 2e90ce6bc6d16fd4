package recovery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, action Action) *Engine {
	t.Helper()

	if action == nil {
		action = ActionFunc(func(_ context.Context, _ Guide, _ Context) (Result, error) {
			return Result{Success: true, MethodUsed: MethodManualURL, Feedback: "ok"}, nil
		})
	}

	return NewEngine(action, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGuideFor_UnknownCategoryIsGeneric(t *testing.T) {
	e := newTestEngine(t, nil)

	g := e.GuideFor("unknown_category_xyz")
	assert.Equal(t, "unknown", g.Category)
	assert.Equal(t, "Medium", g.Difficulty)
	assert.Len(t, g.Steps, 5)
	assert.InDelta(t, 0.70, g.SuccessRate, 0.001)
}

func TestGuideFor_KnownCategories(t *testing.T) {
	e := newTestEngine(t, nil)

	for _, category := range []string{"network", "browser_unavailable", "token_expired"} {
		g := e.GuideFor(category)
		assert.Equal(t, category, g.Category)
		assert.NotEmpty(t, g.Steps)
		assert.NotEmpty(t, g.AlternativeMethods)
	}
}

func TestContextualMessage_FailurePointSuffix(t *testing.T) {
	e := newTestEngine(t, nil)

	msg := e.ContextualMessage(Context{Category: "network", FailurePoint: "device_code_request"})
	assert.Equal(t, "Network connection issue detected while requesting device code", msg)
}

func TestContextualMessage_UnknownFailurePointAddsNothing(t *testing.T) {
	e := newTestEngine(t, nil)

	msg := e.ContextualMessage(Context{Category: "token_expired", FailurePoint: "warp_core_breach"})
	assert.Equal(t, "Your authentication token has expired", msg)
}

func TestContextualMessage_UnknownCategoryIsGeneric(t *testing.T) {
	e := newTestEngine(t, nil)

	msg := e.ContextualMessage(Context{Category: "nope", FailurePoint: "token_polling"})
	assert.Equal(t, "Authentication error occurred while waiting for authorization", msg)
}

func TestStartRecovery_RecordsResult(t *testing.T) {
	e := newTestEngine(t, nil)

	result := e.StartRecovery(context.Background(), Context{Category: "network"})
	assert.True(t, result.Success)
	assert.Equal(t, MethodManualURL, result.MethodUsed)

	history := e.History()
	require.Len(t, history, 1)
	assert.True(t, history[0].Success)
}

func TestStartRecovery_ActionErrorBecomesFailedResult(t *testing.T) {
	e := newTestEngine(t, ActionFunc(func(_ context.Context, _ Guide, _ Context) (Result, error) {
		return Result{}, errors.New("browser launch failed")
	}))

	result := e.StartRecovery(context.Background(), Context{Category: "browser_unavailable"})
	assert.False(t, result.Success)
	assert.Equal(t, "browser launch failed", result.Feedback)
	assert.Len(t, e.History(), 1)
}

func TestStartRecovery_ActionPanicNeverPropagates(t *testing.T) {
	e := newTestEngine(t, ActionFunc(func(_ context.Context, _ Guide, _ Context) (Result, error) {
		panic("boom")
	}))

	var result Result
	assert.NotPanics(t, func() {
		result = e.StartRecovery(context.Background(), Context{Category: "unknown_category_xyz"})
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Feedback, "boom")
}

func TestStartRecovery_MeasuresElapsed(t *testing.T) {
	e := newTestEngine(t, nil)

	clock := time.Unix(1700000000, 0)
	e.now = func() time.Time {
		clock = clock.Add(250 * time.Millisecond)
		return clock
	}

	result := e.StartRecovery(context.Background(), Context{Category: "network"})
	assert.Equal(t, 250*time.Millisecond, result.Elapsed)
}

func TestHistory_BoundedAt100(t *testing.T) {
	e := newTestEngine(t, nil)

	for range 120 {
		e.StartRecovery(context.Background(), Context{Category: "network"})
	}

	assert.Len(t, e.History(), 100)
}

func TestSuccessRate(t *testing.T) {
	failing := ActionFunc(func(_ context.Context, _ Guide, _ Context) (Result, error) {
		return Result{}, errors.New("nope")
	})

	e := newTestEngine(t, nil)

	_, ok := e.SuccessRate()
	assert.False(t, ok, "no attempts yet")

	e.StartRecovery(context.Background(), Context{Category: "network"})
	e.StartRecovery(context.Background(), Context{Category: "network"})

	e.action = failing
	e.StartRecovery(context.Background(), Context{Category: "network"})
	e.StartRecovery(context.Background(), Context{Category: "network"})

	rate, ok := e.SuccessRate()
	require.True(t, ok)
	assert.InDelta(t, 0.5, rate, 0.001)
}

func TestDetailedLog(t *testing.T) {
	e := newTestEngine(t, nil)
	e.now = func() time.Time { return time.Unix(1700000000, 0) }

	diag := e.DetailedLog(Context{
		Err:              errors.New("dial tcp: timeout"),
		Category:         "network",
		FailurePoint:     "token_polling",
		Environment:      map[string]string{"os": "linux"},
		PreviousAttempts: 2,
		AvailableMethods: []Method{MethodManualURL},
	})

	assert.Equal(t, time.Unix(1700000000, 0), diag.Timestamp)
	assert.Equal(t, "dial tcp: timeout", diag.ErrorMessage)
	assert.Equal(t, "token_polling", diag.FailurePoint)
	assert.Equal(t, 2, diag.PreviousAttempts)
	assert.Equal(t, "linux", diag.Environment["os"])
}
