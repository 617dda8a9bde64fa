// Package config loads the Nova-Bot client configuration.
//
// Sources, later ones winning: built-in defaults, ~/.novabot/config.toml, NOVABOT_* environment
// variables (a .env file in the working directory is loaded into the environment first).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	dirName  = ".novabot"
	fileName = "config.toml"
)

// Duration is a time.Duration written as "30s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config holds all client settings.
type Config struct {
	API     APIConfig     `toml:"api"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
}

type APIConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
}

type StorageConfig struct {
	// DBPath holds the session and the local identity accounts.
	DBPath string `toml:"db_path"`
}

type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// Dir returns ~/.novabot.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Default returns the built-in configuration rooted at dir.
func Default(dir string) *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://127.0.0.1:5000",
			Timeout: Duration{30 * time.Second},
		},
		Storage: StorageConfig{DBPath: filepath.Join(dir, "novabot.db")},
		Log: LogConfig{
			File:  filepath.Join(dir, "novabot.log"),
			Level: "INFO",
		},
	}
}

// Load reads the config file at path (the default path when empty), then environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = filepath.Join(dir, fileName)
	}

	cfg := Default(dir)
	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("config: stat %s: %w", path, statErr)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies NOVABOT_* variables. Unparseable values are ignored.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NOVABOT_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("NOVABOT_API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.API.Timeout = Duration{d}
		}
	}
	if v := os.Getenv("NOVABOT_DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("NOVABOT_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("NOVABOT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url cannot be empty")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url %q must be an http(s) URL", c.API.BaseURL)
	}
	if c.API.Timeout.Duration < 0 {
		return errors.New("api.timeout must not be negative")
	}
	if c.Storage.DBPath == "" {
		return errors.New("storage.db_path cannot be empty")
	}
	return nil
}

// LogLevel parses Log.Level, defaulting to INFO.
func (c *Config) LogLevel() slog.Level {
	return ParseLogLevel(c.Log.Level)
}

// Save writes the configuration as TOML, creating the directory if needed. An encoding failure
// leaves an existing file untouched.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
