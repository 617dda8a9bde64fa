package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"NOVABOT_API_URL", "NOVABOT_API_TIMEOUT", "NOVABOT_DB_PATH", "NOVABOT_LOG_FILE", "NOVABOT_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	return home
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	home := isolateHome(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:5000", cfg.API.BaseURL)
	require.Equal(t, 30*time.Second, cfg.API.Timeout.Duration)
	require.Equal(t, filepath.Join(home, ".novabot", "novabot.db"), cfg.Storage.DBPath)
	require.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoad_FileThenEnv(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[api]
base_url = "https://api.nova.example"
timeout = "5s"

[log]
level = "debug"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://api.nova.example", cfg.API.BaseURL)
	require.Equal(t, 5*time.Second, cfg.API.Timeout.Duration)
	require.Equal(t, slog.LevelDebug, cfg.LogLevel())

	t.Setenv("NOVABOT_API_URL", "http://localhost:9000")
	t.Setenv("NOVABOT_API_TIMEOUT", "not-a-duration")
	cfg, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000", cfg.API.BaseURL)
	require.Equal(t, 5*time.Second, cfg.API.Timeout.Duration)
}

func TestLoad_InvalidFile(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api]\ntimeout = \"soon\"\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty url", func(c *Config) { c.API.BaseURL = "" }, "base_url cannot be empty"},
		{"bad scheme", func(c *Config) { c.API.BaseURL = "ftp://x" }, "http(s) URL"},
		{"negative timeout", func(c *Config) { c.API.Timeout = Duration{-time.Second} }, "negative"},
		{"empty db", func(c *Config) { c.Storage.DBPath = "" }, "db_path"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default(t.TempDir())
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default(t.TempDir())
	cfg.API.BaseURL = "https://api.nova.example"
	cfg.API.Timeout = Duration{12 * time.Second}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.API, loaded.API)
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelWarn, ParseLogLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLogLevel("ERROR"))
	require.Equal(t, slog.LevelInfo, ParseLogLevel("chatty"))
}

func TestSetupLoggerWithWriters_FansOut(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("chat query failed", "status", 500)

	require.Contains(t, stderr.String(), "chat query failed")
	require.NotContains(t, stderr.String(), "hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &rec))
	require.Equal(t, "chat query failed", rec["msg"])
	require.EqualValues(t, 500, rec["status"])
}

func TestSetupLogger_QuietWritesFileOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "novabot.log")
	logger, cleanup, err := SetupLogger(path, slog.LevelInfo, true)
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"hello"`)
}

func TestSetupLogger_UnopenableFile(t *testing.T) {
	// A regular file where the log directory should be.
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	path := filepath.Join(blocker, "novabot.log")

	logger, cleanup, err := SetupLogger(path, slog.LevelInfo, true)
	require.Error(t, err)
	require.Nil(t, logger)
	require.NoError(t, cleanup())

	logger, cleanup, err = SetupLogger(path, slog.LevelInfo, false)
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.NoError(t, cleanup())
}

func TestSave_ReportsWriteFailure(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "config.toml"), 0o700))

	err := Default(dir).Save(filepath.Join(dir, "config.toml"))
	require.ErrorContains(t, err, "config: write")
}
