package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDefault_Values(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 300, cfg.Auth.WarningThresholdSeconds)
	assert.Equal(t, 3, cfg.Auth.MaxRetryAttempts)
	assert.Equal(t, 1000, cfg.Auth.RetryBaseDelayMS)
	assert.True(t, cfg.Auth.AutoRefresh)
	assert.Equal(t, "info", cfg.Logging.LogLevel)
}

func TestLoad_OverridesLayerOverDefaults(t *testing.T) {
	path := writeConfig(t, `
[auth]
warning_threshold_seconds = 600
max_retry_attempts = 5

[logging]
log_level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 600, cfg.Auth.WarningThresholdSeconds)
	assert.Equal(t, 5, cfg.Auth.MaxRetryAttempts)
	assert.Equal(t, 1000, cfg.Auth.RetryBaseDelayMS, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeConfig(t, `
[auth]
warnign_threshold_seconds = 600
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "zero threshold",
			content: "[auth]\nwarning_threshold_seconds = 0\n",
			wantErr: "warning_threshold_seconds",
		},
		{
			name:    "zero retries",
			content: "[auth]\nmax_retry_attempts = 0\n",
			wantErr: "max_retry_attempts",
		},
		{
			name:    "bad log level",
			content: "[logging]\nlog_level = \"loud\"\n",
			wantErr: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MalformedTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "[auth\nbroken"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}
