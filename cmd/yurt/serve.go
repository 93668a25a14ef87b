package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/yurt/internal/cli"
	yurthttp "github.com/aretw0/yurt/pkg/adapters/http"
	"github.com/aretw0/yurt/pkg/config"
	"github.com/aretw0/yurt/pkg/observability"
	"github.com/aretw0/yurt/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the session HTTP server",
	Long: `Starts an HTTP server exposing the request's session under /session,
Prometheus metrics under /metrics and health probes under /live and /ready.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Listen = listen
		}
		wait, _ := cmd.Flags().GetDuration("wait")

		ctx := cmd.Context()
		store, err := cli.OpenStore(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer store.Close()

		if err := cli.WaitForStore(ctx, store, wait, logger); err != nil {
			return fmt.Errorf("session store is not reachable: %w", err)
		}

		srv := &http.Server{
			Addr:    cfg.Listen,
			Handler: newRouter(cfg, store, logger),
		}
		return run(srv, logger)
	},
}

func newRouter(cfg config.Config, store ports.SessionStore, logger *slog.Logger) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)
	hooks := observability.Combine(metrics.Hooks(), observability.LogHooks(logger))
	mgr := cli.NewManager(store, cfg, logger, hooks)

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))
	if p, ok := store.(ports.Pinger); ok {
		health.AddReadinessCheck("session-store", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return p.Ping(ctx)
		})
	}

	r := chi.NewRouter()
	r.Handle("/live", health)
	r.Handle("/ready", health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Mount("/", yurthttp.NewHandler(mgr, yurthttp.WithLogger(logger)))
	return r
}

// run serves until SIGINT or SIGTERM, then shuts down gracefully.
func run(srv *http.Server, logger *slog.Logger) error {
	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Starting yurt server", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt or terminate signals.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("Start shutdown", "signal", sig.String())

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		logger.Info("Yurt server stopped gracefully")
		return nil
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Address to listen on (overrides listen)")
	serveCmd.Flags().Duration("wait", 30*time.Second, "How long to wait for the session store at startup")
}
