package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/s3drop/internal/api"
	"github.com/abdul-hamid-achik/s3drop/internal/logger"
	"github.com/abdul-hamid-achik/s3drop/internal/metrics"
	"github.com/abdul-hamid-achik/s3drop/internal/tracing"
	"github.com/abdul-hamid-achik/s3drop/internal/version"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the upload HTTP API",
		Long: `Run the HTTP API:

  POST /v1/upload        multipart upload (file, key, fileType, fetchSignedUrl)
  GET  /v1/signed-url    presign a GET for ?key=
  GET  /v1/url           public URL for ?key=
  GET  /health/live      liveness
  GET  /health/ready     readiness (checks the bucket)
  GET  /metrics          Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}
			ctx, stop := signal.NotifyContext(a.context(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default: config port or 8080)")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logger.Init(a.out, cfg.LogLevel, logger.FormatJSON)

	shutdownTracing, err := tracing.Init(ctx, &tracing.Config{
		ServiceName:    "s3drop",
		ServiceVersion: version.Short(),
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TraceSampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()
	if cfg.TracingEnabled {
		log.Info("tracing enabled", "endpoint", cfg.OTLPEndpoint, "sample_rate", cfg.TraceSampleRate)
	}

	uploader, name, err := a.uploader(false)
	if err != nil {
		return err
	}
	metrics.SetAppInfo(version.Short(), cfg.Environment, name)

	var limiter *api.RateLimiter
	if cfg.RateLimit > 0 {
		limiter = api.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
		defer limiter.Stop()
	}

	router := api.NewRouter(&api.Config{
		Uploader:      uploader,
		Storage:       cfg.Storage(),
		MaxUploadSize: cfg.MaxUploadSize,
		Limiter:       limiter,
	})

	handler := api.SecurityHeaders(metrics.HTTPMetricsMiddleware(api.Recovery(api.RequestID(api.RequestLogger(router)))))
	if cfg.TracingEnabled {
		handler = tracing.HTTPMiddleware("s3drop")(handler)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	log.Info("server starting",
		"addr", ln.Addr().String(),
		"provider", name,
		"bucket", cfg.Bucket,
		"version", version.Short(),
	)
	return serve(ctx, server, ln, log)
}

// serve runs server on ln until ctx is done, then drains connections.
func serve(ctx context.Context, server *http.Server, ln net.Listener, log *slog.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Serve(ln)
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		_ = server.Close()
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}
