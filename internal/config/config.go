package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret    string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer    string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience  string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL       time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
	CookieSecure bool          `mapstructure:"cookie_secure" yaml:"cookie_secure"`

	// RequireToken makes the websocket handshake verify authToken.
	RequireToken    bool          `mapstructure:"require_token" yaml:"require_token"`
	DefaultRoom     string        `mapstructure:"default_room" yaml:"default_room"`
	EventBuffer     int           `mapstructure:"event_buffer" yaml:"event_buffer"`
	MaxMessageBytes int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	SnapshotTimeout time.Duration `mapstructure:"snapshot_timeout" yaml:"snapshot_timeout"`

	APIRateLimit   int           `mapstructure:"api_rate_limit" yaml:"api_rate_limit"`
	APIRateWindow  time.Duration `mapstructure:"api_rate_window" yaml:"api_rate_window"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	// RedisAddr enables cross-instance relay when set.
	RedisAddr          string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisDB            int    `mapstructure:"redis_db" yaml:"redis_db"`
	RedisChannelPrefix string `mapstructure:"redis_channel_prefix" yaml:"redis_channel_prefix"`

	MetricsEnabled bool `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":3001",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",

		DatabasePath: "whiteboard.db",

		JWTSecret:   "change-me",
		JWTIssuer:   "whiteboard",
		JWTAudience: "",
		JWTTTL:      7 * 24 * time.Hour,

		DefaultRoom:     "lobby",
		EventBuffer:     64,
		MaxMessageBytes: 8 << 20,
		SnapshotTimeout: 10 * time.Second,

		APIRateLimit:   100,
		APIRateWindow:  15 * time.Minute,
		AllowedOrigins: []string{"*"},

		RedisChannelPrefix: "whiteboard:room:",

		MetricsEnabled: true,
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
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.RedisAddr != "" {
		c.RedisAddr = other.RedisAddr
	}
}
