// Package config loads and validates the application configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Providers ProvidersConfig
	Activity  ActivityConfig
	Store     StoreConfig
	Telemetry TelemetryConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	LogLevel    string `yaml:"log_level"`
	FrontendURL string `yaml:"frontend_url"`
}

// AuthConfig contains session token settings. The signing secret is loaded
// once at startup and shared process-wide.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	Issuer    string
}

// OAuthProviderConfig configures one external identity provider.
type OAuthProviderConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// ProvidersConfig contains all identity provider settings.
type ProvidersConfig struct {
	Google OAuthProviderConfig `yaml:"google"`
	GitHub OAuthProviderConfig `yaml:"github"`
}

// ActivityConfig configures GitHub activity fetching.
type ActivityConfig struct {
	APIBaseURL      string
	WindowDays      int
	PageSize        int
	RepoConcurrency int
	RequestTimeout  time.Duration
	RequestsPerSec  float64
}

// StoreConfig configures the document store backend.
type StoreConfig struct {
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
	Namespace string `yaml:"namespace"`
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	OTELEnabled          bool    `yaml:"otel_enabled"`
	OTELTraceMode        string  `yaml:"otel_trace_mode"`
	OTELTraceSampleRatio float64 `yaml:"otel_trace_sample_ratio"`
}

// Load parses YAML configuration from reader, applies defaults and
// environment overrides, and validates the result.
func Load(reader io.Reader) (Config, error) {
	raw, err := io.ReadAll(reader)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var parsed rawConfig
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg := parsed.toConfig()

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.FrontendURL == "" {
		c.Server.FrontendURL = "http://localhost:5173"
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "skillswap"
	}
	if c.Activity.WindowDays == 0 {
		c.Activity.WindowDays = 365
	}
	if c.Activity.PageSize == 0 {
		c.Activity.PageSize = 100
	}
	if c.Activity.RepoConcurrency == 0 {
		c.Activity.RepoConcurrency = 4
	}
	if c.Activity.RequestTimeout == 0 {
		c.Activity.RequestTimeout = 15 * time.Second
	}
	if c.Activity.RequestsPerSec == 0 {
		c.Activity.RequestsPerSec = 8
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Store.Namespace == "" {
		c.Store.Namespace = "skillswap"
	}
	if c.Telemetry.OTELTraceSampleRatio == 0 {
		c.Telemetry.OTELTraceSampleRatio = 0.1
	}
}

// Secrets may come from the environment so the config file can be committed
// without credentials.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SKILLSWAP_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		c.Providers.Google.ClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		c.Providers.Google.ClientSecret = v
	}
	if v := os.Getenv("GITHUB_CLIENT_ID"); v != "" {
		c.Providers.GitHub.ClientID = v
	}
	if v := os.Getenv("GITHUB_CLIENT_SECRET"); v != "" {
		c.Providers.GitHub.ClientSecret = v
	}
	if v := os.Getenv("SKILLSWAP_REDIS_ADDR"); v != "" {
		c.Store.RedisAddr = v
	}
}

// Validate checks invariants that would otherwise surface as runtime faults.
func (c *Config) Validate() error {
	var problems []string

	if !slices.Contains(validLogLevels, strings.ToLower(c.Server.LogLevel)) {
		problems = append(problems, fmt.Sprintf("server.log_level must be one of %v", validLogLevels))
	}
	if len(c.Auth.JWTSecret) < 16 {
		problems = append(problems, "auth.jwt_secret must be at least 16 characters")
	}
	if c.Auth.TokenTTL < time.Minute {
		problems = append(problems, "auth.token_ttl must be at least 1m")
	}
	if c.Activity.WindowDays < 1 || c.Activity.WindowDays > 366 {
		problems = append(problems, "activity.window_days must be in [1, 366]")
	}
	if c.Activity.PageSize < 1 || c.Activity.PageSize > 100 {
		problems = append(problems, "activity.page_size must be in [1, 100]")
	}
	if c.Activity.RepoConcurrency < 1 {
		problems = append(problems, "activity.repo_concurrency must be >= 1")
	}
	switch c.Store.Backend {
	case "memory":
	case "redis":
		if c.Store.RedisAddr == "" {
			problems = append(problems, "store.redis_addr is required when store.backend is redis")
		}
	default:
		problems = append(problems, fmt.Sprintf("store.backend %q is not supported", c.Store.Backend))
	}

	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Configured reports whether an OAuth provider has usable credentials.
func (p OAuthProviderConfig) Configured() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// duration decodes YAML duration strings such as "30s" or "24h". An absent
// or empty value decodes to zero so defaults can fill it in.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil || value.Kind == 0 || strings.TrimSpace(value.Value) == "" {
		d.Duration = 0
		return nil
	}

	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// rawConfig is the YAML-facing shape; duration fields carry the string
// decoder and are copied into the plain time.Duration fields of Config.
type rawConfig struct {
	Server    ServerConfig      `yaml:"server"`
	Auth      rawAuthConfig     `yaml:"auth"`
	Providers ProvidersConfig   `yaml:"providers"`
	Activity  rawActivityConfig `yaml:"activity"`
	Store     StoreConfig       `yaml:"store"`
	Telemetry TelemetryConfig   `yaml:"telemetry"`
}

type rawAuthConfig struct {
	JWTSecret string   `yaml:"jwt_secret"`
	TokenTTL  duration `yaml:"token_ttl"`
	Issuer    string   `yaml:"issuer"`
}

type rawActivityConfig struct {
	APIBaseURL      string   `yaml:"api_base_url"`
	WindowDays      int      `yaml:"window_days"`
	PageSize        int      `yaml:"page_size"`
	RepoConcurrency int      `yaml:"repo_concurrency"`
	RequestTimeout  duration `yaml:"request_timeout"`
	RequestsPerSec  float64  `yaml:"requests_per_sec"`
}

func (r rawConfig) toConfig() Config {
	return Config{
		Server: r.Server,
		Auth: AuthConfig{
			JWTSecret: r.Auth.JWTSecret,
			TokenTTL:  r.Auth.TokenTTL.Duration,
			Issuer:    r.Auth.Issuer,
		},
		Providers: r.Providers,
		Activity: ActivityConfig{
			APIBaseURL:      r.Activity.APIBaseURL,
			WindowDays:      r.Activity.WindowDays,
			PageSize:        r.Activity.PageSize,
			RepoConcurrency: r.Activity.RepoConcurrency,
			RequestTimeout:  r.Activity.RequestTimeout.Duration,
			RequestsPerSec:  r.Activity.RequestsPerSec,
		},
		Store:     r.Store,
		Telemetry: r.Telemetry,
	}
}
