package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/proofreader/internal/config"
	httpadapter "github.com/aretw0/proofreader/pkg/adapters/http"
	"github.com/aretw0/proofreader/pkg/adapters/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds the graceful drain of in-flight requests.
const ShutdownTimeout = 5 * time.Second

// Serve runs the HTTP API on ln until ctx is done.
func Serve(ctx context.Context, cfg *config.Config, ln net.Listener, logger *slog.Logger) error {
	if NeedsAPIKey(cfg.Provider) {
		return fmt.Errorf("no API key for %s: set it in the config file or %s", providerName(cfg.Provider), config.EnvAPIKey)
	}
	generator, err := NewGenerator(cfg.Provider)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	backend, err := NewBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine, err := NewEngine(cfg, EngineOptions{
		Generator:  generator,
		Backend:    backend,
		Logger:     logger,
		Registerer: reg,
		LogTurns:   true,
	})
	if err != nil {
		return err
	}

	api := httpadapter.NewServer(engine,
		httpadapter.WithLogger(logger),
		httpadapter.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
	)
	defer api.Close()

	srv := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Proofreader server listening", "address", ln.Addr().String(), "store", cfg.Store.Type)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		logger.Info("Shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			closeErr := srv.Close()
			return errors.Join(fmt.Errorf("graceful shutdown did not complete in %v: %w", ShutdownTimeout, err), closeErr)
		}
		return nil
	})
	return g.Wait()
}

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// ServeMCP runs the MCP server over transport until ctx is done (SSE) or
// stdin closes (stdio).
func ServeMCP(ctx context.Context, cfg *config.Config, transport string, port int, logger *slog.Logger) error {
	if transport != TransportStdio && transport != TransportSSE {
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
	}
	if NeedsAPIKey(cfg.Provider) {
		return fmt.Errorf("no API key for %s: set it in the config file or %s", providerName(cfg.Provider), config.EnvAPIKey)
	}
	generator, err := NewGenerator(cfg.Provider)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	backend, err := NewBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	engine, err := NewEngine(cfg, EngineOptions{Generator: generator, Backend: backend, Logger: logger})
	if err != nil {
		return err
	}
	srv := mcp.NewServer(engine, logger)

	if transport == TransportStdio {
		logger.Info("Starting proofreader MCP server (stdio)")
		return srv.ServeStdio()
	}
	logger.Info("Starting proofreader MCP server (SSE)", "port", port)
	return srv.ServeSSE(ctx, port)
}
