// Package config provides centralized configuration management for casesync.
// Settings come from environment variables with defaults, and everything is
// validated on startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	ShipHero   ShipHeroConfig
	Processing ProcessingConfig
	Upload     UploadConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
	Database   DatabaseConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including draining active runs (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-processing routes (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// ShipHeroConfig holds upstream API endpoints.
type ShipHeroConfig struct {
	// APIURL is the GraphQL endpoint used for product mutations
	APIURL string `env:"SHIPHERO_API_URL" default:"https://public-api.shiphero.com/graphql"`

	// AuthURL is the refresh-token exchange endpoint
	AuthURL string `env:"SHIPHERO_AUTH_URL" default:"https://public-api.shiphero.com/auth/refresh"`

	// Timeout is the per-call HTTP client timeout (default: 30s)
	Timeout time.Duration `env:"SHIPHERO_TIMEOUT" default:"30s"`

	// RefreshToken is only used by the CLI when --refresh-token is not given
	RefreshToken string `env:"SHIPHERO_REFRESH_TOKEN"`
}

// ProcessingConfig holds settings for the batch upload pipeline.
type ProcessingConfig struct {
	// BatchSize is the number of products per sequential batch (default: 10)
	BatchSize int `env:"PROCESS_BATCH_SIZE" default:"10"`

	// RowDelay is the pause after every upstream call (default: 100ms)
	RowDelay time.Duration `env:"PROCESS_ROW_DELAY" default:"100ms"`

	// Throttle selects the pacer: "fixed", "token_bucket" or "none" (default: fixed)
	Throttle string `env:"PROCESS_THROTTLE" default:"fixed"`

	// MaxErrors caps the error messages returned to the caller (default: 10)
	MaxErrors int `env:"PROCESS_MAX_ERRORS" default:"10"`

	// MaxConcurrent is the maximum number of runs processed at once (default: 3)
	MaxConcurrent int `env:"PROCESS_MAX_CONCURRENT" default:"3"`

	// MaxWaitTime is how long a run waits for a processing slot (default: 30s)
	MaxWaitTime time.Duration `env:"PROCESS_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single processing run (default: 30m)
	Timeout time.Duration `env:"PROCESS_TIMEOUT" default:"30m"`
}

// UploadConfig holds CSV file intake settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// FileTTL is how long a parsed file stays available for processing (default: 30m)
	FileTTL time.Duration `env:"UPLOAD_FILE_TTL" default:"30m"`

	// StashMaxFiles and StashMaxBytes bound the parsed files held in memory.
	// The oldest files are evicted first.
	StashMaxFiles int   `env:"UPLOAD_STASH_MAX_FILES" default:"100"`
	StashMaxBytes int64 `env:"UPLOAD_STASH_MAX_BYTES" default:"268435456"`
}

// RateLimitConfig holds inbound per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the sustained rate per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// Burst is the bucket size per IP (default: 20)
	Burst int `env:"RATE_LIMIT_BURST" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// DatabaseConfig holds the optional history database settings.
// When URL is empty, run history and mapping presets are disabled.
type DatabaseConfig struct {
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns int `env:"DB_MAX_CONNS" default:"5"`
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Run history older than HistoryRetention is pruned every PruneInterval.
	HistoryRetention time.Duration `env:"DB_HISTORY_RETENTION" default:"2160h"`
	PruneInterval    time.Duration `env:"DB_PRUNE_INTERVAL" default:"24h"`
}

// Enabled reports whether a history database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
