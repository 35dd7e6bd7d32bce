package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the harness settings. Values come from an optional .env file
// and the environment; CLI flags override them afterwards.
type Config struct {
	BaseURL      string
	Driver       string
	Headless     bool
	Timeout      time.Duration
	PollInterval time.Duration
	Workers      int
	FocusMode    string
	AllowedHosts []string
	ReportPath   string
	ArtifactDir  string
	LogLevel     logrus.Level

	// SuggestionSelector is a CSS selector for a page-rendered suggestion
	// list; empty means the browser's native popup
	SuggestionSelector string

	SeleniumURL  string
	DriverPath   string
	ChromeBinary string
	// SlowMo delays every browser operation (playwright only)
	SlowMo time.Duration
	// ProfileRoot holds the per-session browser profiles; os.TempDir when empty
	ProfileRoot string
}

// Default - settings used when nothing is configured
func Default() Config {
	return Config{
		BaseURL:      "http://localhost:8080",
		Driver:       "playwright",
		Headless:     true,
		Timeout:      5 * time.Second,
		PollInterval: 50 * time.Millisecond,
		Workers:      1,
		FocusMode:    "ignore",
		LogLevel:     logrus.InfoLevel,
	}
}

// Load - reads envFiles (".env" when none given) and then the environment.
// Missing env files are not an error.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup - builds a Config from Default overridden by lookup
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("E2E_BASE_URL", &cfg.BaseURL)
	str("E2E_DRIVER", &cfg.Driver)
	str("E2E_FOCUS_MODE", &cfg.FocusMode)
	str("E2E_REPORT_PATH", &cfg.ReportPath)
	str("E2E_ARTIFACT_DIR", &cfg.ArtifactDir)
	str("SELENIUM_URL", &cfg.SeleniumURL)
	str("BROWSER_DRIVER_PATH", &cfg.DriverPath)
	str("CHROME_BINARY_PATH", &cfg.ChromeBinary)
	str("E2E_SUGGESTION_SELECTOR", &cfg.SuggestionSelector)
	str("E2E_PROFILE_ROOT", &cfg.ProfileRoot)
	dur("E2E_TIMEOUT", &cfg.Timeout)
	dur("E2E_POLL_INTERVAL", &cfg.PollInterval)
	dur("E2E_SLOW_MO", &cfg.SlowMo)

	if v, ok := lookup("E2E_HEADLESS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("E2E_HEADLESS: %w", err))
		} else {
			cfg.Headless = b
		}
	}
	if v, ok := lookup("E2E_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("E2E_WORKERS: %w", err))
		} else {
			cfg.Workers = n
		}
	}
	if v, ok := lookup("E2E_ALLOWED_HOSTS"); ok {
		cfg.AllowedHosts = SplitList(v)
	}
	if v, ok := lookup("E2E_LOG_LEVEL"); ok && v != "" {
		level, err := logrus.ParseLevel(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("E2E_LOG_LEVEL: %w", err))
		} else {
			cfg.LogLevel = level
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate - checks values that cannot be checked while parsing
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base URL must be an absolute http(s) URL, got %q", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.SlowMo < 0 {
		return fmt.Errorf("slow-mo must not be negative, got %s", c.SlowMo)
	}
	if c.ProfileRoot != "" {
		info, err := os.Stat(c.ProfileRoot)
		if err != nil {
			return fmt.Errorf("profile root: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("profile root %s is not a directory", c.ProfileRoot)
		}
	}
	return nil
}

// SplitList - splits a comma separated list, dropping blanks
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
