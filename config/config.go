package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the hirograph client.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	// Profile selects the default entry in Profiles when a caller does not
	// name one explicitly.
	Profile  string             `yaml:"profile"`
	Profiles map[string]Profile `yaml:"profiles"`
	Cache    CacheConfig        `yaml:"cache"`
	Logging  LoggingConfig      `yaml:"logging"`
}

// Profile describes one HIRO platform instance and how to authenticate
// against it. A profile maps one-to-one onto a token handler plus the REST
// and WebSocket clients built from it.
type Profile struct {
	// RootURL is the base URL of the platform, e.g. "https://core.example.com".
	// Version discovery is performed against {RootURL}/api/version.
	RootURL string `yaml:"root_url"`

	Credentials CredentialsConfig `yaml:"credentials"`
	Client      ClientConfig      `yaml:"client"`
	Token       TokenConfig       `yaml:"token"`
	TLS         TLSConfig         `yaml:"tls"`
	HTTP        HTTPConfig        `yaml:"http"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Auth        AuthConfig        `yaml:"auth"`
}

// CredentialsConfig contains the account used for the password grant.
type CredentialsConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ClientConfig contains the OAuth client identity of this application.
type ClientConfig struct {
	ID     string `yaml:"id"`
	Secret string `yaml:"secret"`
}

// TokenConfig configures fixed- or environment-sourced tokens.
// When Fixed is set the profile uses an immutable token and never talks to
// the auth API. When EnvVar is set (or left to its default) the token is
// read from the named environment variable instead.
type TokenConfig struct {
	Fixed  string `yaml:"fixed"`
	EnvVar string `yaml:"env_var"`
}

// TLSConfig contains TLS verification settings for the platform endpoints.
type TLSConfig struct {
	// AcceptAll disables certificate verification. Development only.
	AcceptAll bool `yaml:"accept_all"`
}

// HTTPConfig contains HTTP transport settings.
type HTTPConfig struct {
	Timeout    int `yaml:"timeout"`     // seconds, per request
	MaxRetries int `yaml:"max_retries"` // bounded retry for retryable statuses
	RetryDelay int `yaml:"retry_delay"` // milliseconds, base backoff delay
}

// WebSocketConfig contains WebSocket session settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"` // seconds
	PongTimeout    int `yaml:"pong_timeout"`  // seconds
}

// AuthConfig contains token lifecycle settings.
type AuthConfig struct {
	// MinRefreshInterval collapses bursts of concurrent refresh triggers
	// into a single exchange. Milliseconds.
	MinRefreshInterval int `yaml:"min_refresh_interval"`
	// RefreshLeeway treats a token as expired this many seconds before its
	// actual expiry, so dependent connections refresh ahead of rejection.
	RefreshLeeway int `yaml:"refresh_leeway"`
}

// CacheConfig contains the optional on-disk token cache settings.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DefaultTokenEnvVar is the environment variable consulted by
// environment-sourced token handlers when a profile does not name one.
const DefaultTokenEnvVar = "HIRO_TOKEN"

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HIROGRAPH_SECTION_KEY
// For example: HIROGRAPH_USERNAME, HIROGRAPH_CLIENT_SECRET. Overrides apply
// to the selected default profile only.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultProfile returns the profile selected by cfg.Profile.
// The zero-value Profile is returned when the name is absent so callers can
// fail on validation rather than nil checks.
func (c *Config) DefaultProfile() Profile {
	return c.Profiles[c.Profile]
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Profile:  "default",
		Profiles: map[string]Profile{},
		Cache: CacheConfig{
			Path: "./data/hirograph-cache.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// DefaultProfileSettings returns a Profile with the default transport and
// lifecycle tuning applied. Used both for config loading and for callers
// constructing clients programmatically without a config file.
func DefaultProfileSettings() Profile {
	return Profile{
		Token: TokenConfig{
			EnvVar: DefaultTokenEnvVar,
		},
		HTTP: HTTPConfig{
			Timeout:    30,
			MaxRetries: 0,
			RetryDelay: 500,
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 1 << 20,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Auth: AuthConfig{
			MinRefreshInterval: 2000,
			RefreshLeeway:      30,
		},
	}
}

// applyDefaults fills zero-valued tuning fields in each profile.
// YAML unmarshalling cannot distinguish "absent" from "zero" for ints, so
// zero means "use the default" for every tuning knob here.
func applyDefaults(cfg *Config) {
	base := DefaultProfileSettings()
	for name, p := range cfg.Profiles {
		if p.Token.EnvVar == "" {
			p.Token.EnvVar = base.Token.EnvVar
		}
		if p.HTTP.Timeout == 0 {
			p.HTTP.Timeout = base.HTTP.Timeout
		}
		if p.HTTP.RetryDelay == 0 {
			p.HTTP.RetryDelay = base.HTTP.RetryDelay
		}
		if p.WebSocket.MaxMessageSize == 0 {
			p.WebSocket.MaxMessageSize = base.WebSocket.MaxMessageSize
		}
		if p.WebSocket.PingInterval == 0 {
			p.WebSocket.PingInterval = base.WebSocket.PingInterval
		}
		if p.WebSocket.PongTimeout == 0 {
			p.WebSocket.PongTimeout = base.WebSocket.PongTimeout
		}
		if p.Auth.MinRefreshInterval == 0 {
			p.Auth.MinRefreshInterval = base.Auth.MinRefreshInterval
		}
		if p.Auth.RefreshLeeway == 0 {
			p.Auth.RefreshLeeway = base.Auth.RefreshLeeway
		}
		cfg.Profiles[name] = p
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HIROGRAPH_SECTION_KEY and apply
// to the default profile.
func applyEnvOverrides(cfg *Config) {
	p, ok := cfg.Profiles[cfg.Profile]
	if !ok {
		return
	}

	if v := os.Getenv("HIROGRAPH_ROOT_URL"); v != "" {
		p.RootURL = v
	}
	if v := os.Getenv("HIROGRAPH_USERNAME"); v != "" {
		p.Credentials.Username = v
	}
	if v := os.Getenv("HIROGRAPH_PASSWORD"); v != "" {
		p.Credentials.Password = v
	}
	if v := os.Getenv("HIROGRAPH_CLIENT_ID"); v != "" {
		p.Client.ID = v
	}
	if v := os.Getenv("HIROGRAPH_CLIENT_SECRET"); v != "" {
		p.Client.Secret = v
	}

	cfg.Profiles[cfg.Profile] = p
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Profile == "" {
		errs = append(errs, "profile is required")
	}
	if len(c.Profiles) == 0 {
		errs = append(errs, "at least one profile is required")
	} else if _, ok := c.Profiles[c.Profile]; !ok {
		errs = append(errs, fmt.Sprintf("profile %q is not defined in profiles", c.Profile))
	}

	for name, p := range c.Profiles {
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("profile %q: %v", name, err))
		}
	}

	if c.Cache.Enabled && c.Cache.Path == "" {
		errs = append(errs, "cache.path is required when cache.enabled is true")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Validate checks a single profile for errors.
func (p Profile) Validate() error {
	var errs []string

	if p.RootURL == "" {
		errs = append(errs, "root_url is required")
	} else if !strings.HasPrefix(p.RootURL, "http://") && !strings.HasPrefix(p.RootURL, "https://") {
		errs = append(errs, "root_url must start with http:// or https://")
	}

	// A profile must carry exactly one authentication source: credentials,
	// a fixed token, or an environment variable. EnvVar always has a
	// default, so the credential/fixed variants take precedence when set.
	if p.Token.Fixed != "" && p.Credentials.Username != "" {
		errs = append(errs, "credentials and token.fixed are mutually exclusive")
	}
	if p.Credentials.Username != "" && p.Credentials.Password == "" {
		errs = append(errs, "credentials.password is required when credentials.username is set")
	}
	if p.Credentials.Username != "" && p.Client.ID == "" {
		errs = append(errs, "client.id is required for credential-based profiles")
	}

	if p.HTTP.MaxRetries < 0 {
		errs = append(errs, "http.max_retries must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}

// RequestTimeout returns the per-request HTTP timeout as a Duration.
func (p Profile) RequestTimeout() time.Duration {
	return time.Duration(p.HTTP.Timeout) * time.Second
}

// RetryDelay returns the base retry backoff delay as a Duration.
func (p Profile) RetryDelay() time.Duration {
	return time.Duration(p.HTTP.RetryDelay) * time.Millisecond
}

// MinRefreshInterval returns the refresh-storm collapse window as a Duration.
func (p Profile) MinRefreshInterval() time.Duration {
	return time.Duration(p.Auth.MinRefreshInterval) * time.Millisecond
}

// RefreshLeeway returns the pre-expiry refresh leeway as a Duration.
func (p Profile) RefreshLeeway() time.Duration {
	return time.Duration(p.Auth.RefreshLeeway) * time.Second
}

// PingInterval returns the WebSocket keepalive interval as a Duration.
func (p Profile) PingInterval() time.Duration {
	return time.Duration(p.WebSocket.PingInterval) * time.Second
}

// PongTimeout returns the WebSocket pong deadline as a Duration.
func (p Profile) PongTimeout() time.Duration {
	return time.Duration(p.WebSocket.PongTimeout) * time.Second
}
