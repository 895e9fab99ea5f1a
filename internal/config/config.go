package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvAddr            = "LUNCHWHEEL_ADDR"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFormat       = "LOG_FORMAT"
	EnvGoogleAPIKey    = "GOOGLE_API_KEY"
	EnvSigningSecret   = "GOOGLE_SIGNING_SECRET"
	EnvEnvironment     = "ENVIRONMENT"
	EnvNodeEnv         = "NODE_ENV"
	EnvAllowedOrigin   = "ALLOWED_ORIGIN"
	EnvRateLimitMax    = "RATE_LIMIT_MAX"
	EnvRateLimitWindow = "RATE_LIMIT_WINDOW"
	EnvUpstreamTimeout = "UPSTREAM_TIMEOUT"
)

// Production is the Environment value that restricts CORS to AllowedOrigin.
const Production = "production"

// ServerConfig holds configuration for the lunch wheel server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`       // Listen address (default ":8080")
	LogLevel  string `yaml:"log_level"`  // Log level: debug, info, warn, error
	LogFormat string `yaml:"log_format"` // Log format: text, json

	GoogleAPIKey  string `yaml:"google_api_key"`
	SigningSecret string `yaml:"google_signing_secret"` // optional; enables URL signing
	GeocodeURL    string `yaml:"geocode_url"`           // empty means the Google endpoint
	PlacesURL     string `yaml:"places_url"`

	Environment   string `yaml:"environment"`    // "production" restricts CORS
	AllowedOrigin string `yaml:"allowed_origin"` // CORS origin in production

	RateLimitMax    int           `yaml:"rate_limit_max"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		LogLevel:        "info",
		LogFormat:       "text",
		Environment:     "development",
		AllowedOrigin:   "https://icy-mushroom-0aa01d710.azurestaticapps.net",
		RateLimitMax:    100,
		RateLimitWindow: time.Minute,
		UpstreamTimeout: 10 * time.Second,
	}
}

// IsProduction reports whether the production CORS policy applies.
func (c ServerConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, Production)
}

// Secrets maps the required-configuration names to their values, for
// presence checks.
func (c ServerConfig) Secrets() map[string]string {
	return map[string]string{
		EnvGoogleAPIKey:  c.GoogleAPIKey,
		EnvSigningSecret: c.SigningSecret,
	}
}

// Load builds a ServerConfig from defaults, an optional YAML or TOML file
// (chosen by extension), then the environment. Later sources win.
func Load(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if strings.EqualFold(filepath.Ext(path), ".toml") {
			err = decodeTOML(data, &cfg)
		} else {
			err = yaml.Unmarshal(data, &cfg)
		}
		if err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the merged config. YAML values never pass through
// ApplyEnv, so limits and timeouts are checked again here.
func (c ServerConfig) Validate() error {
	var errs error
	if c.RateLimitMax <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("rate_limit_max: want a positive integer, got %d", c.RateLimitMax))
	}
	if c.RateLimitWindow <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("rate_limit_window: want a positive duration, got %s", c.RateLimitWindow))
	}
	if c.UpstreamTimeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("upstream_timeout: want a positive duration, got %s", c.UpstreamTimeout))
	}
	return errs
}

// tomlFile mirrors ServerConfig for TOML files, with durations as strings.
type tomlFile struct {
	Addr            string `toml:"addr"`
	LogLevel        string `toml:"log_level"`
	LogFormat       string `toml:"log_format"`
	GoogleAPIKey    string `toml:"google_api_key"`
	SigningSecret   string `toml:"google_signing_secret"`
	GeocodeURL      string `toml:"geocode_url"`
	PlacesURL       string `toml:"places_url"`
	Environment     string `toml:"environment"`
	AllowedOrigin   string `toml:"allowed_origin"`
	RateLimitMax    int    `toml:"rate_limit_max"`
	RateLimitWindow string `toml:"rate_limit_window"`
	UpstreamTimeout string `toml:"upstream_timeout"`
}

func decodeTOML(data []byte, c *ServerConfig) error {
	var f tomlFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return err
	}
	values := map[string]string{
		EnvAddr:            f.Addr,
		EnvLogLevel:        f.LogLevel,
		EnvLogFormat:       f.LogFormat,
		EnvGoogleAPIKey:    f.GoogleAPIKey,
		EnvSigningSecret:   f.SigningSecret,
		EnvEnvironment:     f.Environment,
		EnvAllowedOrigin:   f.AllowedOrigin,
		EnvRateLimitWindow: f.RateLimitWindow,
		EnvUpstreamTimeout: f.UpstreamTimeout,
	}
	if f.RateLimitMax != 0 {
		values[EnvRateLimitMax] = strconv.Itoa(f.RateLimitMax)
	}
	if f.GeocodeURL != "" {
		c.GeocodeURL = f.GeocodeURL
	}
	if f.PlacesURL != "" {
		c.PlacesURL = f.PlacesURL
	}
	return c.ApplyEnv(func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	})
}

// ApplyEnv overrides fields from environment variables found by lookup.
// Every malformed value is reported, not just the first.
func (c *ServerConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs error
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	str(EnvAddr, &c.Addr)
	str(EnvLogLevel, &c.LogLevel)
	str(EnvLogFormat, &c.LogFormat)
	str(EnvGoogleAPIKey, &c.GoogleAPIKey)
	str(EnvSigningSecret, &c.SigningSecret)
	str(EnvNodeEnv, &c.Environment)
	str(EnvEnvironment, &c.Environment)
	str(EnvAllowedOrigin, &c.AllowedOrigin)

	if v, ok := lookup(EnvRateLimitMax); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s: want a positive integer, got %q", EnvRateLimitMax, v))
		} else {
			c.RateLimitMax = n
		}
	}
	for name, dst := range map[string]*time.Duration{
		EnvRateLimitWindow: &c.RateLimitWindow,
		EnvUpstreamTimeout: &c.UpstreamTimeout,
	} {
		v, ok := lookup(name)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s: want a positive duration, got %q", name, v))
			continue
		}
		*dst = d
	}
	return errs
}
