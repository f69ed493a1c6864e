package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const defaultShutdownTimeout = 30 * time.Second

// ShutdownFunc releases one resource during shutdown.
type ShutdownFunc func(context.Context) error

// ShutdownManager drains the HTTP server and runs registered hooks once the
// process receives SIGINT or SIGTERM. Hooks run concurrently; the whole
// sequence shares one timeout.
type ShutdownManager struct {
	logger  *Logger
	server  *http.Server
	timeout time.Duration

	mu    sync.Mutex
	hooks []ShutdownFunc
}

func NewShutdownManager(logger *Logger, server *http.Server, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &ShutdownManager{
		logger:  logger,
		server:  server,
		timeout: timeout,
	}
}

// RegisterShutdownFunc adds a hook to run after the HTTP server drains.
func (sm *ShutdownManager) RegisterShutdownFunc(fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.hooks = append(sm.hooks, fn)
}

// WaitForShutdown blocks until a termination signal arrives, then executes
// the shutdown sequence.
func (sm *ShutdownManager) WaitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	sm.logger.WithField("signal", sig.String()).Info("shutdown signal received")

	return sm.Execute()
}

// Execute drains the server and runs every registered hook within the
// configured timeout. Hook failures are collected rather than aborting the
// remaining hooks.
func (sm *ShutdownManager) Execute() error {
	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	if sm.server != nil {
		sm.logger.Info("draining http server")
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("http server drain failed")
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	sm.mu.Lock()
	hooks := sm.hooks
	sm.mu.Unlock()

	var wg sync.WaitGroup
	errCh := make(chan error, len(hooks))
	for _, fn := range hooks {
		if fn == nil {
			continue
		}
		wg.Add(1)
		go func(hook ShutdownFunc) {
			defer wg.Done()
			if err := hook(ctx); err != nil {
				errCh <- err
			}
		}(fn)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		sm.logger.Warn("shutdown deadline exceeded")
		return fmt.Errorf("shutdown timed out after %s", sm.timeout)
	}

	close(errCh)
	failed := 0
	for err := range errCh {
		sm.logger.WithError(err).Error("shutdown hook failed")
		failed++
	}
	if failed > 0 {
		return fmt.Errorf("shutdown finished with %d failed hooks", failed)
	}

	sm.logger.Info("shutdown complete")
	return nil
}
