package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/vecdemo/internal/domain/feedback"
)

// Config holds the vecdemo frontend configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Backends BackendsConfig `yaml:"backends"`
	Pages    PagesConfig    `yaml:"pages"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxUploadBytes  int64 `yaml:"max_upload_bytes"`
}

// BackendsConfig holds the demo backends the pages talk to.
type BackendsConfig struct {
	Images     BackendConfig `yaml:"images"`
	Knowledge  BackendConfig `yaml:"knowledge"`
	TimeoutSec int           `yaml:"timeout_sec"`
}

// BackendConfig holds a single backend address.
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
}

// PagesConfig holds per-page presentation settings.
type PagesConfig struct {
	Images    PageConfig `yaml:"images"`
	Knowledge PageConfig `yaml:"knowledge"`
}

// PageConfig holds presentation settings of one page.
type PageConfig struct {
	Feedback string `yaml:"feedback"` // alert, inline
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	CookieName  string `yaml:"cookie_name"`
	TTLMin      int    `yaml:"ttl_min"`
	SweepSec    int    `yaml:"sweep_interval_sec"`
	MaxSessions int    `yaml:"max_sessions"` // least recently seen session is evicted beyond this
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	File       string `yaml:"file"`  // optional rotated log file, in addition to stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, if present, is loaded into the process environment first.
func Load(env string) (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		c.HTTP.MaxUploadBytes = 32 << 20
	}
	if c.Backends.TimeoutSec <= 0 {
		c.Backends.TimeoutSec = 30
	}
	if c.Pages.Images.Feedback == "" {
		c.Pages.Images.Feedback = string(feedback.Alert)
	}
	if c.Pages.Knowledge.Feedback == "" {
		c.Pages.Knowledge.Feedback = string(feedback.Inline)
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "vecdemo_session"
	}
	if c.Session.TTLMin <= 0 {
		c.Session.TTLMin = 30
	}
	if c.Session.SweepSec <= 0 {
		c.Session.SweepSec = 60
	}
	if c.Session.MaxSessions <= 0 {
		c.Session.MaxSessions = 10000
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 100
	}
	if c.Logging.MaxBackups <= 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAgeDays <= 0 {
		c.Logging.MaxAgeDays = 28
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if err := validateBaseURL("backends.images.base_url", c.Backends.Images.BaseURL); err != nil {
		return err
	}
	if err := validateBaseURL("backends.knowledge.base_url", c.Backends.Knowledge.BaseURL); err != nil {
		return err
	}
	if _, err := feedback.Parse(c.Pages.Images.Feedback); err != nil {
		return fmt.Errorf("pages.images.feedback: %w", err)
	}
	if _, err := feedback.Parse(c.Pages.Knowledge.Feedback); err != nil {
		return fmt.Errorf("pages.knowledge.feedback: %w", err)
	}
	return nil
}

func validateBaseURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", key, raw)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
