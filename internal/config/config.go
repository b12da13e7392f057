package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gte=0"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format" validate:"omitempty,oneof=console json"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes" validate:"gt=0"`

	Presence   PresenceConfig   `mapstructure:"presence" yaml:"presence"`
	Moderation ModerationConfig `mapstructure:"moderation" yaml:"moderation"`
	Accounts   AccountsConfig   `mapstructure:"accounts" yaml:"accounts"`
	Relay      RelayConfig      `mapstructure:"relay" yaml:"relay"`
	WS         WSConfig         `mapstructure:"ws" yaml:"ws"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
}

// PresenceConfig controls disconnect reconciliation.
type PresenceConfig struct {
	DisconnectPolicy         string        `mapstructure:"disconnect_policy" yaml:"disconnect_policy" validate:"oneof=immediate grace"`
	GracePeriod              time.Duration `mapstructure:"grace_period" yaml:"grace_period" validate:"required_if=DisconnectPolicy grace,gte=0"`
	NotifyLogoutOnDisconnect bool          `mapstructure:"notify_logout_on_disconnect" yaml:"notify_logout_on_disconnect"`
}

// ModerationConfig points at the external "is blocked" backend.
type ModerationConfig struct {
	URL     string        `mapstructure:"url" yaml:"url" validate:"omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
}

// AccountsConfig points at the account service notified on logout.
type AccountsConfig struct {
	LogoutURL string        `mapstructure:"logout_url" yaml:"logout_url" validate:"omitempty,url"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
}

// RelayConfig authenticates trusted backends calling the HTTP API.
type RelayConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	APIKeyHash  string `mapstructure:"api_key_hash" yaml:"api_key_hash"`
}

// Open reports whether the backend endpoints accept unauthenticated calls.
func (r RelayConfig) Open() bool {
	return r.JWTSecret == "" && r.APIKeyHash == ""
}

// WSConfig tunes the websocket endpoint.
type WSConfig struct {
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute" validate:"gte=0"`
	AdminEnabled       bool     `mapstructure:"admin_enabled" yaml:"admin_enabled"`
	AllowedOrigins     []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// StoreConfig locates the local block list database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		MaxMessageBytes:   1 << 20,
		Presence: PresenceConfig{
			DisconnectPolicy:         "grace",
			GracePeriod:              7 * time.Second,
			NotifyLogoutOnDisconnect: true,
		},
		Moderation: ModerationConfig{Timeout: 3 * time.Second},
		Accounts:   AccountsConfig{Timeout: 3 * time.Second},
		WS:         WSConfig{AdminEnabled: true},
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.Presence.DisconnectPolicy != "" {
		c.Presence.DisconnectPolicy = other.Presence.DisconnectPolicy
	}
	if other.Presence.GracePeriod != 0 {
		c.Presence.GracePeriod = other.Presence.GracePeriod
	}
	if other.Moderation.URL != "" {
		c.Moderation.URL = other.Moderation.URL
	}
	if other.Accounts.LogoutURL != "" {
		c.Accounts.LogoutURL = other.Accounts.LogoutURL
	}
	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}
}
