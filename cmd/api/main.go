package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	httpadapter "github.com/eliasbrown99/solicitation-dashboard/internal/adapters/http"
	"github.com/eliasbrown99/solicitation-dashboard/internal/bootstrap"
	"github.com/eliasbrown99/solicitation-dashboard/internal/config"
	"github.com/eliasbrown99/solicitation-dashboard/internal/observability/logging"
	"github.com/eliasbrown99/solicitation-dashboard/internal/observability/metrics"
)

const service = "dashboard-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	slog.SetDefault(logging.NewJSONLogger(service, cfg.LogLevel, os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, service)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	httpMetrics := metrics.NewHTTPServerMetrics(app.Metrics.Registry(), service)
	router := httpadapter.NewRouter(cfg, app.Uploads, app.Session).
		WithMetrics(httpMetrics, app.Metrics.Handler()).
		WithBaseContext(ctx).
		Handler()

	server := &http.Server{
		Addr:        ":" + cfg.APIPort,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// No write timeout: /v1/upload/events is a long-lived stream.
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("api_listening", "addr", server.Addr, "summarizer_url", cfg.SummarizerURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("api_stopped", "error", err)
		os.Exit(1)
	}
}
