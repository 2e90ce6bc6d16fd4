package main

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubcli/hubcli/internal/config"
	"github.com/hubcli/hubcli/internal/recovery"
)

// Global flag reset pattern: newRootCmd() binds flags via StringVar/BoolVar,
// which reset the global flag variables to their zero values. Tests set
// globals AFTER newRootCmd() returns, or use cmd.SetArgs() + cmd.Execute()
// so Cobra parses them.

// --- buildLogger tests ---

func withFlagState(t *testing.T) {
	t.Helper()

	oldVerbose := flagVerbose
	oldQuiet := flagQuiet

	t.Cleanup(func() {
		flagVerbose = oldVerbose
		flagQuiet = oldQuiet
	})
}

func TestBuildLogger_Default(t *testing.T) {
	withFlagState(t)

	flagVerbose = false
	flagQuiet = false

	logger := buildLogger(config.Default())

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_ConfigLevel(t *testing.T) {
	withFlagState(t)

	flagVerbose = false
	flagQuiet = false

	cfg := config.Default()
	cfg.Logging.LogLevel = "warn"

	logger := buildLogger(cfg)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
}

func TestBuildLogger_VerboseOverridesConfig(t *testing.T) {
	withFlagState(t)

	flagVerbose = true
	flagQuiet = false

	cfg := config.Default()
	cfg.Logging.LogLevel = "error"

	logger := buildLogger(cfg)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_QuietOverridesConfig(t *testing.T) {
	withFlagState(t)

	flagVerbose = false
	flagQuiet = true

	cfg := config.Default()
	cfg.Logging.LogLevel = "debug"

	logger := buildLogger(cfg)

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelError))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
}

// --- Cobra structure tests ---

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	expected := []string{"login", "logout", "whoami", "status", "repo", "issue"}
	for _, name := range expected {
		found := false

		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true

				break
			}
		}

		assert.True(t, found, "expected subcommand %q not found", name)
	}
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	cmd := newRootCmd()

	expectedFlags := []string{"config", "json", "verbose", "quiet", "no-cache"}
	for _, name := range expectedFlags {
		flag := cmd.PersistentFlags().Lookup(name)
		assert.NotNil(t, flag, "expected persistent flag %q not found", name)
	}
}

func TestNewRootCmd_ListSubcommands(t *testing.T) {
	cmd := newRootCmd()

	for _, parent := range []string{"repo", "issue"} {
		sub, _, err := cmd.Find([]string{parent, "list"})
		require.NoError(t, err)
		assert.Equal(t, "list", sub.Name(), "%s should have a list subcommand", parent)
	}
}

// --- defaultHTTPClient tests ---

func TestDefaultHTTPClient_HasTimeout(t *testing.T) {
	client := defaultHTTPClient()
	assert.Equal(t, httpClientTimeout, client.Timeout)
}

// --- guide display tests ---

func TestGuideDisplay_RendersStepsAndAlternatives(t *testing.T) {
	var buf strings.Builder
	display := newGuideDisplay(&buf)

	guide := recovery.Guide{
		Title:       "Token Expiration",
		Description: "Handle expired authentication tokens",
		Steps: []recovery.Step{
			recovery.StepClearCache,
			recovery.StepTryManualAuth,
		},
		AlternativeMethods: []recovery.Method{recovery.MethodPersonalAccessToken},
		EstimatedTime:      4 * time.Minute,
		Difficulty:         "Easy",
	}

	result, err := display.Recover(context.Background(), guide, recovery.Context{})
	require.NoError(t, err)
	assert.False(t, result.Success)

	out := buf.String()
	assert.Contains(t, out, "Token Expiration")
	assert.Contains(t, out, "1. Run 'hubcli logout'")
	assert.Contains(t, out, "2. Run 'hubcli login'")
	assert.Contains(t, out, "personal access token")
	assert.Contains(t, out, "difficulty: Easy")
}

func TestGuideDisplay_UnknownStepFallsBackToRawName(t *testing.T) {
	var buf strings.Builder
	display := newGuideDisplay(&buf)

	guide := recovery.Guide{
		Title: "Custom",
		Steps: []recovery.Step{"reticulate_splines"},
	}

	_, err := display.Recover(context.Background(), guide, recovery.Context{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "reticulate_splines")
}
