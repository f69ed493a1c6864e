package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/planora/planora/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Auth          AuthConfig          `yaml:"auth"`
	Authz         AuthzConfig         `yaml:"authz"`
	Audit         AuditConfig         `yaml:"audit"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL         string        `yaml:"url"`
	ReplicaURLs string        `yaml:"replica_urls"`
	MaxConns    int           `yaml:"max_conns"`
	MinConns    int           `yaml:"min_conns"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxLifetime time.Duration `yaml:"max_lifetime"`
	MaxIdleTime time.Duration `yaml:"max_idle_time"`
}

// RedisConfig holds Redis cache configuration
type RedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	MaxRetries int    `yaml:"max_retries"`
	PoolSize   int    `yaml:"pool_size"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	// OIDC provider settings for browser login
	OIDCIssuer       string `yaml:"oidc_issuer"`
	OIDCClientID     string `yaml:"oidc_client_id"`
	OIDCClientSecret string `yaml:"oidc_client_secret"`
	OIDCRedirectURL  string `yaml:"oidc_redirect_url"`

	// Opaque API token lifetime; zero means no expiry
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// AuthzConfig holds authorization guard cache configuration
type AuthzConfig struct {
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// AuditConfig holds audit trail configuration
type AuditConfig struct {
	Retention       time.Duration `yaml:"retention"`
	CleanupSchedule string        `yaml:"cleanup_schedule"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel `yaml:"-"`

	// String form used for YAML/env parsing
	LogLevelName string `yaml:"log_level"`

	MetricsEnabled bool `yaml:"metrics_enabled"`

	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// DefaultConfig returns a config populated with defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Database: DatabaseConfig{
			MaxConns:    25,
			MinConns:    5,
			Timeout:     10 * time.Second,
			MaxLifetime: 1 * time.Hour,
			MaxIdleTime: 10 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:    false,
			MaxRetries: 3,
			PoolSize:   10,
		},
		Auth: AuthConfig{
			TokenTTL: 90 * 24 * time.Hour,
		},
		Authz: AuthzConfig{
			CacheSize: 10000,
			CacheTTL:  30 * time.Second,
		},
		Audit: AuditConfig{
			Retention:       90 * 24 * time.Hour,
			CleanupSchedule: "0 3 * * *",
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.InfoLevel,
			LogLevelName:       "info",
			MetricsEnabled:     true,
			OTelEnabled:        false,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "planora-api",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig loads configuration from an optional YAML file (PLANORA_CONFIG_FILE)
// and environment variables. Environment variables take precedence.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("PLANORA_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.Observability.LogLevel = observability.ParseLevel(cfg.Observability.LogLevelName)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("PLANORA_HOST", c.Server.Host)
	c.Server.Port = getEnv("PLANORA_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("PLANORA_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("PLANORA_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("PLANORA_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("PLANORA_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.HealthPort = getEnv("PLANORA_HEALTH_PORT", c.Server.HealthPort)

	c.Database.URL = getEnv("PLANORA_POSTGRES_URL", c.Database.URL)
	c.Database.ReplicaURLs = getEnv("PLANORA_POSTGRES_REPLICA_URLS", c.Database.ReplicaURLs)
	c.Database.MaxConns = getEnvInt("PLANORA_POSTGRES_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvInt("PLANORA_POSTGRES_MIN_CONNS", c.Database.MinConns)
	c.Database.Timeout = getEnvDuration("PLANORA_POSTGRES_TIMEOUT", c.Database.Timeout)
	c.Database.MaxLifetime = getEnvDuration("PLANORA_POSTGRES_MAX_LIFETIME", c.Database.MaxLifetime)
	c.Database.MaxIdleTime = getEnvDuration("PLANORA_POSTGRES_MAX_IDLE_TIME", c.Database.MaxIdleTime)

	c.Redis.Enabled = getEnvBool("PLANORA_REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.URL = getEnv("PLANORA_REDIS_URL", c.Redis.URL)
	c.Redis.Password = getEnv("PLANORA_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("PLANORA_REDIS_DB", c.Redis.DB)
	c.Redis.MaxRetries = getEnvInt("PLANORA_REDIS_MAX_RETRIES", c.Redis.MaxRetries)
	c.Redis.PoolSize = getEnvInt("PLANORA_REDIS_POOL_SIZE", c.Redis.PoolSize)

	c.Auth.OIDCIssuer = getEnv("PLANORA_OIDC_ISSUER", c.Auth.OIDCIssuer)
	c.Auth.OIDCClientID = getEnv("PLANORA_OIDC_CLIENT_ID", c.Auth.OIDCClientID)
	c.Auth.OIDCClientSecret = getEnv("PLANORA_OIDC_CLIENT_SECRET", c.Auth.OIDCClientSecret)
	c.Auth.OIDCRedirectURL = getEnv("PLANORA_OIDC_REDIRECT_URL", c.Auth.OIDCRedirectURL)
	c.Auth.TokenTTL = getEnvDuration("PLANORA_TOKEN_TTL", c.Auth.TokenTTL)

	c.Authz.CacheSize = getEnvInt("PLANORA_AUTHZ_CACHE_SIZE", c.Authz.CacheSize)
	c.Authz.CacheTTL = getEnvDuration("PLANORA_AUTHZ_CACHE_TTL", c.Authz.CacheTTL)

	c.Audit.Retention = getEnvDuration("PLANORA_AUDIT_RETENTION", c.Audit.Retention)
	c.Audit.CleanupSchedule = getEnv("PLANORA_AUDIT_CLEANUP_SCHEDULE", c.Audit.CleanupSchedule)

	c.Observability.LogLevelName = getEnv("PLANORA_LOG_LEVEL", c.Observability.LogLevelName)
	c.Observability.MetricsEnabled = getEnvBool("PLANORA_METRICS_ENABLED", c.Observability.MetricsEnabled)
	c.Observability.OTelEnabled = getEnvBool("PLANORA_OTEL_ENABLED", c.Observability.OTelEnabled)
	c.Observability.OTelEndpoint = getEnv("PLANORA_OTEL_ENDPOINT", c.Observability.OTelEndpoint)
	c.Observability.OTelServiceName = getEnv("PLANORA_OTEL_SERVICE_NAME", c.Observability.OTelServiceName)
	c.Observability.OTelServiceVersion = getEnv("PLANORA_OTEL_SERVICE_VERSION", c.Observability.OTelServiceVersion)
	c.Observability.OTelInsecure = getEnvBool("PLANORA_OTEL_INSECURE", c.Observability.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("postgres min conns (%d) must not exceed max conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}

	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required when redis is enabled")
	}

	if c.Auth.OIDCIssuer != "" {
		if c.Auth.OIDCClientID == "" || c.Auth.OIDCClientSecret == "" {
			return fmt.Errorf("OIDC client ID and secret are required when an issuer is configured")
		}
		if c.Auth.OIDCRedirectURL == "" {
			return fmt.Errorf("OIDC redirect URL is required when an issuer is configured")
		}
	}

	if c.Authz.CacheSize <= 0 {
		return fmt.Errorf("authz cache size must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
