package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/planora/planora/pkg/api"
	"github.com/planora/planora/pkg/audit"
	"github.com/planora/planora/pkg/auth"
	"github.com/planora/planora/pkg/authz"
	"github.com/planora/planora/pkg/config"
	"github.com/planora/planora/pkg/memberships"
	"github.com/planora/planora/pkg/middleware"
	"github.com/planora/planora/pkg/observability"
	"github.com/planora/planora/pkg/projects"
	"github.com/planora/planora/pkg/storage/postgres"
	"github.com/planora/planora/pkg/tasks"
	"github.com/planora/planora/pkg/workspaces"
)

const version = "1.0.0"

// gaugeInterval is how often the entity-count gauges are refreshed.
const gaugeInterval = time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "planora: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("version", version).Info("starting planora API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var providers *observability.OTelProviders
	if cfg.Observability.OTelEnabled {
		providers, err = observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	cm, err := postgres.NewConnectionManager(postgres.ConnectionConfig{
		PrimaryURL:  cfg.Database.URL,
		ReplicaURLs: postgres.ParseReplicaURLs(cfg.Database.ReplicaURLs),
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		Timeout:     cfg.Database.Timeout,
		MaxLifetime: cfg.Database.MaxLifetime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer cm.Close()
	db := cm.Primary()

	if err := postgres.RunMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	var redisClient *postgres.RedisClient
	var rawRedis *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = postgres.NewRedisClient(postgres.RedisConfig{
			URL:        cfg.Redis.URL,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			MaxRetries: cfg.Redis.MaxRetries,
			PoolSize:   cfg.Redis.PoolSize,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		rawRedis = redisClient.GetClient()
		logger.Info("redis connected; membership cache is two-level")
	}

	// Stores.
	authStore := auth.NewStore(db)
	auditStore := audit.NewStore(db)
	memberStore := memberships.NewPostgresStore(db)
	workspaceStore := workspaces.NewPostgresStore(db, memberStore)
	projectStore := projects.NewPostgresStore(db)
	taskStore := tasks.NewPostgresStore(db)

	guard := authz.NewGuard(authz.Deps{
		Members:    memberStore,
		Workspaces: workspaceStore,
		Projects:   projectStore,
		Tasks:      taskStore,
		Redis:      redisClient,
		Auditor:    auditStore,
		Logger:     logger,
		Metrics:    metrics,
		CacheSize:  cfg.Authz.CacheSize,
		CacheTTL:   cfg.Authz.CacheTTL,
	})

	// Services.
	workspaceSvc := workspaces.NewService(workspaceStore, guard, guard, auditStore, logger, metrics)
	memberSvc := memberships.NewService(memberStore, guard, guard, auditStore, logger)
	projectSvc := projects.NewService(projectStore, guard, auditStore, logger)
	taskSvc := tasks.NewService(taskStore, guard, memberStore, auditStore, logger)

	var oidc api.OIDCExchanger
	if cfg.Auth.OIDCIssuer != "" {
		client, err := auth.NewOIDCClient(ctx, auth.OIDCConfig{
			Issuer:       cfg.Auth.OIDCIssuer,
			ClientID:     cfg.Auth.OIDCClientID,
			ClientSecret: cfg.Auth.OIDCClientSecret,
			RedirectURL:  cfg.Auth.OIDCRedirectURL,
		})
		if err != nil {
			return fmt.Errorf("failed to configure OIDC: %w", err)
		}
		oidc = client
	} else {
		logger.Warn("no OIDC issuer configured; login routes disabled")
	}

	var rateLimit mux.MiddlewareFunc = middleware.NewRateLimitMiddleware().Handler
	if rawRedis != nil {
		rateLimit = middleware.NewDistributedRateLimitMiddleware(rawRedis).Handler
		logger.Info("rate limiting backed by redis")
	}

	server := api.NewServer(api.Config{
		Auth:          api.NewAuthHandlers(authStore, oidc),
		Workspaces:    workspaceSvc,
		Members:       memberSvc,
		Projects:      projectSvc,
		Tasks:         taskSvc,
		Audit:         auditStore,
		Guard:         guard,
		Authenticator: authStore,
		RateLimit:     rateLimit,
		Logger:        logger,
		Metrics:       metrics,
	})

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(cfg.Observability.OTelEnabled),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, rawRedis, version))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:        net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:     healthMux,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	scheduler, err := startMaintenance(ctx, cfg, authStore, auditStore, logger)
	if err != nil {
		return err
	}

	go collectGauges(ctx, db, metrics, logger)
	cm.StartHealthCheckRoutine(ctx, time.Minute)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sm := observability.NewShutdownManager(logger, apiServer, cfg.Server.ShutdownTimeout)
		sm.RegisterShutdownFunc(healthServer.Shutdown)
		sm.RegisterShutdownFunc(func(context.Context) error {
			scheduler.Stop()
			return nil
		})
		if providers != nil {
			sm.RegisterShutdownFunc(func(shutdownCtx context.Context) error {
				return observability.ShutdownOTel(shutdownCtx, providers, logger)
			})
		}
		err := sm.WaitForShutdown()
		cancel()
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		apiServer.Close()
		healthServer.Close()
		return nil
	})

	return g.Wait()
}

// startMaintenance schedules the expired-token purge and the audit
// retention sweep.
func startMaintenance(ctx context.Context, cfg *config.Config, authStore *auth.Store, auditStore *audit.Store, logger *observability.Logger) (*cron.Cron, error) {
	scheduler := cron.New()

	_, err := scheduler.AddFunc("@hourly", func() {
		purged, err := authStore.CleanupExpiredTokens(ctx)
		if err != nil {
			logger.WithError(err).Error("expired token purge failed")
			return
		}
		if purged > 0 {
			logger.WithField("purged", purged).Info("purged expired API tokens")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule token purge: %w", err)
	}

	policy := audit.RetentionPolicy{RetentionDays: int(cfg.Audit.Retention.Hours() / 24)}
	_, err = scheduler.AddFunc(cfg.Audit.CleanupSchedule, func() {
		removed, err := auditStore.Cleanup(ctx, policy)
		if err != nil {
			logger.WithError(err).Error("audit retention sweep failed")
			return
		}
		if removed > 0 {
			logger.WithField("removed", removed).Info("audit retention sweep complete")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule audit cleanup: %w", err)
	}

	scheduler.Start()
	return scheduler, nil
}

// collectGauges refreshes the entity-count gauges until ctx ends.
func collectGauges(ctx context.Context, db *sql.DB, metrics *observability.Metrics, logger *observability.Logger) {
	defer observability.RecoverPanic(logger, "gauge-collector")

	ticker := time.NewTicker(gaugeInterval)
	defer ticker.Stop()

	for {
		counts, err := postgres.CollectCounts(ctx, db)
		if err != nil {
			logger.WithError(err).Warn("entity gauge collection failed")
		} else {
			metrics.WorkspacesTotal.Set(float64(counts.Workspaces))
			metrics.MembershipsTotal.Set(float64(counts.Memberships))
			metrics.ProjectsTotal.Set(float64(counts.Projects))
			metrics.TasksTotal.Set(float64(counts.Tasks))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
