// Package config provides application configuration management from a YAML file
// and environment variables.
//
// # Overview
//
// This package loads and validates configuration with sensible defaults for all
// settings. An optional YAML file (PLANORA_CONFIG_FILE) is applied first, then
// environment variables override it.
//
// # Configuration Structure
//
// Server settings:
//
//	PLANORA_HOST="0.0.0.0"
//	PLANORA_PORT="8080"
//	PLANORA_HEALTH_PORT="9090"
//	PLANORA_READ_TIMEOUT="15s"
//	PLANORA_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	PLANORA_POSTGRES_URL="postgres://localhost/planora"
//	PLANORA_POSTGRES_REPLICA_URLS="postgres://replica1/planora,postgres://replica2/planora"
//	PLANORA_POSTGRES_MAX_CONNS="25"
//
// Cache settings:
//
//	PLANORA_REDIS_ENABLED="true"
//	PLANORA_REDIS_URL="redis://localhost:6379"
//	PLANORA_REDIS_POOL_SIZE="10"
//
// Auth settings:
//
//	PLANORA_OIDC_ISSUER="https://login.example.com"
//	PLANORA_OIDC_CLIENT_ID="planora"
//	PLANORA_OIDC_CLIENT_SECRET="..."
//	PLANORA_OIDC_REDIRECT_URL="https://app.example.com/auth/callback"
//	PLANORA_TOKEN_TTL="2160h"
//
// Observability settings:
//
//	PLANORA_LOG_LEVEL="info"  # debug, info, warn, error
//	PLANORA_METRICS_ENABLED="true"
//	PLANORA_OTEL_ENABLED="true"
//	PLANORA_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/storage/postgres: Uses database and redis configuration
//   - pkg/observability: Uses observability configuration
package config
