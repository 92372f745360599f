package config

import (
	"errors"
	"fmt"
	"time"
)

// Signal policies.
const (
	SignalPolicyOpen      = "open"
	SignalPolicyConnected = "connected"
)

// Event sources.
const (
	EventSourceNone  = "none"
	EventSourceNATS  = "nats"
	EventSourceRedis = "redis"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	JWTSecret     string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer     string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience   string `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	SessionCookie string `mapstructure:"session_cookie" yaml:"session_cookie"`

	HandshakeTimeout   time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`
	KeepAliveInterval  time.Duration `mapstructure:"keep_alive_interval" yaml:"keep_alive_interval"`
	SendBuffer         int           `mapstructure:"send_buffer" yaml:"send_buffer"`
	MaxMessageBytes    int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	SignalPolicy   string `mapstructure:"signal_policy" yaml:"signal_policy"`
	DatabasePath   string `mapstructure:"database_path" yaml:"database_path"`
	InternalAPIKey string `mapstructure:"internal_api_key" yaml:"internal_api_key"`

	EventSource  string `mapstructure:"event_source" yaml:"event_source"`
	NATSURL      string `mapstructure:"nats_url" yaml:"nats_url"`
	NATSSubject  string `mapstructure:"nats_subject" yaml:"nats_subject"`
	RedisAddr    string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisChannel string `mapstructure:"redis_channel" yaml:"redis_channel"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		JWTSecret:          "change-me",
		SessionCookie:      "twin_session",
		HandshakeTimeout:   5 * time.Second,
		KeepAliveInterval:  30 * time.Second,
		SendBuffer:         64,
		MaxMessageBytes:    64 << 10,
		RateLimitPerMinute: 600,
		SignalPolicy:       SignalPolicyOpen,
		EventSource:        EventSourceNone,
		NATSURL:            "nats://localhost:4222",
		NATSSubject:        "twin.events.>",
		RedisAddr:          "localhost:6379",
		RedisChannel:       "twin:events:*",
	}
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
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.KeepAliveInterval != 0 {
		c.KeepAliveInterval = other.KeepAliveInterval
	}
	if other.SignalPolicy != "" {
		c.SignalPolicy = other.SignalPolicy
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.EventSource != "" {
		c.EventSource = other.EventSource
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if c.KeepAliveInterval <= 0 {
		return errors.New("keep_alive_interval must be positive")
	}
	if c.SendBuffer <= 0 {
		return errors.New("send_buffer must be positive")
	}

	switch c.SignalPolicy {
	case SignalPolicyOpen:
	case SignalPolicyConnected:
		if c.DatabasePath == "" {
			return errors.New("signal_policy \"connected\" requires database_path")
		}
	default:
		return fmt.Errorf("unknown signal_policy %q", c.SignalPolicy)
	}

	switch c.EventSource {
	case "", EventSourceNone, EventSourceNATS, EventSourceRedis:
	default:
		return fmt.Errorf("unknown event_source %q", c.EventSource)
	}

	return nil
}
