// Package observability provides structured logging, Prometheus metrics,
// health probes, graceful shutdown, and OpenTelemetry tracing.
//
// # Structured Logging
//
// Loggers emit JSON via slog; field chaining derives child loggers:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("workspace_id", id).Info("workspace created")
//
// Request-scoped loggers travel in the context; FromContext tags them with
// the request and user IDs the middleware installed:
//
//	observability.FromContext(ctx).Warn("invite code rejected")
//
// # Prometheus Metrics
//
// Metrics register on a caller-supplied registry:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.HTTPRequestsTotal.WithLabelValues("GET", "/workspaces", "200").Inc()
//	metrics.WorkspacesTotal.Set(float64(count))
//
// # Health Probes
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	observability.RegisterHealthRoutes(mux, checker)
//
// Postgres failures make readiness unhealthy (503); a Redis outage only
// degrades, since the membership cache is optional.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "planora-api",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
