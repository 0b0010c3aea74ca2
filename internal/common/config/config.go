// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Session  SessionConfig  `mapstructure:"session"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Wizard   WizardConfig   `mapstructure:"wizard"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// BackendConfig points at the royalty backend REST API.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout int           `mapstructure:"timeout"` // milliseconds
	Breaker BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	MaxRequests         uint32 `mapstructure:"max_requests"`
	Interval            int    `mapstructure:"interval"` // milliseconds
	Timeout             int    `mapstructure:"timeout"`  // milliseconds
	ConsecutiveFailures uint32 `mapstructure:"consecutive_failures"`
}

// SessionConfig controls the session cookie and its backing store.
type SessionConfig struct {
	Driver       string `mapstructure:"driver"` // redis | postgres
	CookieName   string `mapstructure:"cookie_name"`
	CookieSecure bool   `mapstructure:"cookie_secure"`
	TTL          int    `mapstructure:"ttl"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig.Address is host:port or a redis:// URL.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// CacheConfig holds settings for the (resource, realm) data cache.
type CacheConfig struct {
	Prefix string `mapstructure:"prefix"`
	TTL    int    `mapstructure:"ttl"` // milliseconds
}

// WizardConfig holds settings for the license selection wizard.
type WizardConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	StateTTL        int `mapstructure:"state_ttl"` // milliseconds
}

// OAuthConfig holds settings for the QuickBooks callback.
type OAuthConfig struct {
	ClaimTTL int `mapstructure:"claim_ttl"` // milliseconds
}

// BillingConfig holds settings for subscription checkout follow-up.
type BillingConfig struct {
	SuccessRecheckDelay int `mapstructure:"success_recheck_delay"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
