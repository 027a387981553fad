package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/vk/streamgrid/internal/ctxlog"
)

// healthHandler answers 200 while the last update succeeded and 503 with the
// error once it failed.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	a.healthMu.Lock()
	lastErr := a.lastErr
	a.healthMu.Unlock()

	if lastErr != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "FAILED: %v\n", lastErr)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// recordOutcome stores the result of the latest update for the health check.
func (a *App) recordOutcome(err error) {
	a.healthMu.Lock()
	defer a.healthMu.Unlock()
	a.lastErr = err
}

// startHealthCheckServer runs the health check HTTP server in the background
// and returns the address it listens on. Port 0 in the configuration leaves
// it disabled.
func (a *App) startHealthCheckServer(ctx context.Context) (string, error) {
	logger := ctxlog.FromContext(ctx)
	if a.config.HealthcheckPort <= 0 {
		logger.Debug("Health check server not started: disabled")
		return "", nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.config.HealthcheckPort))
	if err != nil {
		return "", fmt.Errorf("failed to start health check server: %w", err)
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.healthMu.Lock()
	a.httpServer = server
	a.healthMu.Unlock()

	addr := ln.Addr().String()
	go func() {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://%s/health", addr))
		// Serve returns ErrServerClosed on graceful shutdown.
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
	return addr, nil
}

func (a *App) closeHealthCheckServer(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	a.healthMu.Lock()
	server := a.httpServer
	a.httpServer = nil
	a.healthMu.Unlock()

	if server == nil {
		logger.Debug("Health check server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down health check server...")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return err
	}
	logger.Debug("Health check server shut down gracefully.")
	return nil
}
