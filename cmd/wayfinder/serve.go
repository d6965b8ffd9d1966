package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/wayfinder-dev/wayfinder/pkg/live"
	"github.com/wayfinder-dev/wayfinder/pkg/middleware"
	"github.com/wayfinder-dev/wayfinder/pkg/navigator"
)

func serveCmd() *cobra.Command {
	var (
		port         int
		host         string
		manifestPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the live resolution server",
		Long: `Start the WebSocket server that resolves locations for clients.

Clients connect to /ws, send navigate and refresh messages, and
receive resolutions. A broadcast refresh re-resolves every connected
session, so redirect rules that depend on external state take effect
without a reconnect.

Endpoints:
  /ws       WebSocket sessions
  /healthz  liveness and session count
  /metrics  Prometheus metrics (when telemetry.metrics is on)

Examples:
  wayfinder serve
  wayfinder serve --port=9000
  wayfinder serve --host=0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, host, manifestPath)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from wayfinder.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from wayfinder.json)")
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Path to the routes manifest (default from wayfinder.json)")

	return cmd
}

func runServe(port int, host, manifestPath string) error {
	cfg, m, err := loadProject(manifestPath)
	if err != nil {
		return err
	}

	// Apply command-line overrides
	if port > 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	tree, err := buildTree(m)
	if err != nil {
		return err
	}

	logger := cfg.Logger()

	navOpts := []navigator.Option{
		navigator.WithRedirectLimit(cfg.Resolve.RedirectLimit),
		navigator.WithLogger(logger),
	}
	var mws []navigator.Middleware
	if cfg.Telemetry.Tracing {
		mws = append(mws, middleware.OpenTelemetry())
	}
	if cfg.Telemetry.Metrics {
		mws = append(mws, middleware.Prometheus())
	}
	if len(mws) > 0 {
		navOpts = append(navOpts, navigator.WithMiddleware(mws...))
	}

	srv := live.New(tree, cfg.LiveConfig(), navOpts...)

	r := chi.NewRouter()
	srv.Mount(r)
	if cfg.Telemetry.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	httpServer := &http.Server{
		Addr:              cfg.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Print banner
	printBanner()
	fmt.Println()
	info("Routes:    " + fmt.Sprintf("%d from %s", m.Len(), cfg.Manifest))
	info("Listening: " + cfg.URL())
	info("Sessions:  ws://" + cfg.Address() + "/ws")
	fmt.Println()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\n\n  Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.LiveConfig().ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			errorMsg("Session shutdown: %s", err)
		}
		if err := httpServer.Shutdown(ctx); err != nil {
			errorMsg("HTTP shutdown: %s", err)
		}
	}()

	logger.Info("server starting", "addr", cfg.Address(), "routes", m.Len())

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	success("Server stopped")
	return nil
}
