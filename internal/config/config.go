// Package config loads vaultctl settings from an optional YAML file and
// the environment.
//
// The file is taken from, in order: the path passed to Load (the
// --config flag), $VAULTCTL_CONFIG, or ~/.config/vaultctl/config.yaml.
// A missing default file means built-in defaults; a file named
// explicitly must exist. Environment variables override the file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL       = "http://localhost:8080"
	DefaultTimeout       = 30 * time.Second
	DefaultUploadTimeout = 5 * time.Minute
	DefaultLogLevel      = "warn"
	DefaultLogFormat     = "text"
)

// Config holds every setting of the client.
type Config struct {
	// BaseURL is the storage service root.
	BaseURL string `yaml:"base_url"`
	// ShareOrigin is the origin share links are built on. Empty means BaseURL.
	ShareOrigin string `yaml:"share_origin"`
	// Timeout bounds each JSON API request. Uploads and downloads are exempt.
	Timeout time.Duration `yaml:"timeout"`
	// UploadTimeout bounds the upload of one file in a batch.
	UploadTimeout time.Duration `yaml:"upload_timeout"`
	// Timezone is the IANA zone filter dates are read in. Empty means local.
	Timezone string `yaml:"timezone"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// DownloadDir receives downloads. Empty means the working directory.
	DownloadDir string `yaml:"download_dir"`
	// SessionFile is where the login is kept. Empty means ~/.vaultctl.json.
	SessionFile string `yaml:"session_file"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		BaseURL:       DefaultBaseURL,
		Timeout:       DefaultTimeout,
		UploadTimeout: DefaultUploadTimeout,
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
	}
}

// DefaultPath returns ~/.config/vaultctl/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "vaultctl", "config.yaml"), nil
}

// Load reads the configuration file, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := true
	if path == "" {
		path = os.Getenv("VAULTCTL_CONFIG")
	}
	if path == "" {
		explicit = false
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("VAULTCTL_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("VAULTCTL_SHARE_ORIGIN"); v != "" {
		c.ShareOrigin = v
	}
	if v := os.Getenv("VAULTCTL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("VAULTCTL_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("VAULTCTL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks every setting and names the offending key.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url: %q is not an absolute URL", c.BaseURL)
	}
	if c.ShareOrigin != "" {
		u, err := url.Parse(c.ShareOrigin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("share_origin: %q is not an absolute URL", c.ShareOrigin)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout: must be positive, got %s", c.Timeout)
	}
	if c.UploadTimeout <= 0 {
		return fmt.Errorf("upload_timeout: must be positive, got %s", c.UploadTimeout)
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("log_format: invalid format %q, want json or text", c.LogFormat)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}

// Origin returns the share link origin.
func (c *Config) Origin() string {
	if c.ShareOrigin != "" {
		return c.ShareOrigin
	}
	return c.BaseURL
}

// Location returns the zone filter dates are read in.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid level %q, want debug, info, warn or error", s)
}

// SetupLogger builds the process logger, writing to w, and installs it as
// the slog default.
func SetupLogger(cfg *Config, w io.Writer) *slog.Logger {
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
