package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config carries the process-wide settings shared by the API client, the
// browser session and the reporting layer. It is built once at startup and
// treated as immutable afterwards; components receive it by value so no test
// can observe another test's overrides.
type Config struct {
	// Environment names the run environment (TEST, STAGING, ...).
	Environment string `json:"environment" yaml:"environment"`

	// APIBaseURL is the default base URL for API requests.
	APIBaseURL string `json:"api_base_url" yaml:"api_base_url"`

	// BaseURL is the default start URL for browser scenarios.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Headless controls whether the browser runs without a display.
	Headless bool `json:"headless" yaml:"headless"`

	// VerifyTLS controls TLS certificate verification on API requests.
	VerifyTLS bool `json:"verify_tls" yaml:"verify_tls"`

	// DefaultTimeout bounds a single API request or element wait.
	DefaultTimeout time.Duration `json:"default_timeout" yaml:"default_timeout"`

	// ImplicitWait is the default wait applied to element lookups.
	ImplicitWait time.Duration `json:"implicit_wait" yaml:"implicit_wait"`

	// PageLoadTimeout bounds a single page navigation.
	PageLoadTimeout time.Duration `json:"page_load_timeout" yaml:"page_load_timeout"`

	// ReportsDir is the root directory for JSON reports and screenshots.
	ReportsDir string `json:"reports_dir" yaml:"reports_dir"`
}

// DefaultConfig returns a Config populated with the defaults the harness has
// always shipped with.
func DefaultConfig() Config {
	return Config{
		Environment:     "TEST",
		APIBaseURL:      "https://jsonplaceholder.typicode.com",
		BaseURL:         "https://www.google.com",
		Headless:        true,
		VerifyTLS:       true,
		DefaultTimeout:  30 * time.Second,
		ImplicitWait:    10 * time.Second,
		PageLoadTimeout: 60 * time.Second,
		ReportsDir:      "reports",
	}
}

// FromEnv builds a Config from process environment variables, starting from
// DefaultConfig. A .env file at dotenvPath is loaded first when it exists;
// variables already present in the environment win over the file.
func FromEnv(dotenvPath string) (Config, error) {
	if dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			if err := godotenv.Load(dotenvPath); err != nil {
				return Config{}, fmt.Errorf("loading %s: %w", dotenvPath, err)
			}
		}
	}

	cfg := DefaultConfig()

	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("HEADLESS"); v != "" {
		cfg.Headless = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("VERIFY_TLS"); v != "" {
		cfg.VerifyTLS = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("REPORTS_DIR"); v != "" {
		cfg.ReportsDir = v
	}

	var err error
	if cfg.DefaultTimeout, err = secondsEnv("DEFAULT_TIMEOUT", cfg.DefaultTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ImplicitWait, err = secondsEnv("IMPLICIT_WAIT", cfg.ImplicitWait); err != nil {
		return Config{}, err
	}
	if cfg.PageLoadTimeout, err = secondsEnv("PAGE_LOAD_TIMEOUT", cfg.PageLoadTimeout); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFile overlays cfg with values from a JSON or YAML config file and
// returns the result. Unknown extensions are rejected; a missing file is an
// error so typos in -config don't silently run with defaults.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config file extension %q", ext)
	}

	return cfg, nil
}

// secondsEnv reads an integer number of seconds from the environment,
// falling back to def when unset.
func secondsEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, v)
	}
	return time.Duration(n) * time.Second, nil
}
