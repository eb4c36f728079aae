// Package config provides unified configuration for the tenantgate server
// and operator CLI.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (TENANTGATE_ prefix)
//  4. Deployment env var names kept for compatibility (PORT, DATABASE_URL,
//     SKIP_DB, SKIP_AUTH, BASIC_AUTH_USER, ...)
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import "time"

// Environment names with special meaning.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config holds all configuration for tenantgate.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 10s
	Environment     string        `yaml:"environment"`      // default: "development"
	MaxBodySize     int64         `yaml:"max_body_size"`    // bytes, default: 1 MiB
	CORSOrigins     []string      `yaml:"cors_origins"`     // empty reflects any origin
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string        `yaml:"dsn"`
	DSNFile        string        `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32         `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool          `yaml:"migrate_on_start"` // default: false
	QueryTimeout   time.Duration `yaml:"query_timeout"`    // default: 5s
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Enabled    bool             `yaml:"enabled"`   // default: true
	Realm      string           `yaml:"realm"`     // default: "App"
	StubMode   bool             `yaml:"stub_mode"` // run without a database
	Bypass     []string         `yaml:"bypass"`    // path prefixes that skip auth
	SuperAdmin SuperAdminConfig `yaml:"super_admin"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
}

// SuperAdminConfig is the environment-provided super administrator.
type SuperAdminConfig struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordFile string `yaml:"password_file"` // _file variant for password
}

// Configured reports whether both username and password are set.
func (s SuperAdminConfig) Configured() bool {
	return s.Username != "" && s.Password != ""
}

// RateLimitConfig holds rate limiter settings.
type RateLimitConfig struct {
	Enabled           bool           `yaml:"enabled"`             // default: true
	RequestsPerMinute int            `yaml:"requests_per_minute"` // default: 300
	Tiers             map[string]int `yaml:"tiers"`               // tier -> requests per minute
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds log settings. TENANTGATE_LOG_LEVEL and
// TENANTGATE_DEBUG take precedence at startup.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // default: "INFO"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
	Format string `yaml:"format"` // "text" or "json", default: "text"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     EnvDevelopment,
			MaxBodySize:     1 << 20,
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns:     25,
				QueryTimeout: 5 * time.Second,
			},
		},
		Auth: AuthConfig{
			Enabled: true,
			Realm:   "App",
			Bypass:  []string{"/api/health", "/api/signup"},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 300,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// Production reports whether the server runs in production mode, which
// hides error details from clients.
func (c *Config) Production() bool {
	return c.Server.Environment == EnvProduction
}
