package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/eliasbrown99/solicitation-dashboard/internal/config"
	"github.com/eliasbrown99/solicitation-dashboard/internal/core/ports"
	"github.com/eliasbrown99/solicitation-dashboard/internal/core/usecase"
	"github.com/eliasbrown99/solicitation-dashboard/internal/infrastructure/queue/nats"
	"github.com/eliasbrown99/solicitation-dashboard/internal/infrastructure/resilience"
	"github.com/eliasbrown99/solicitation-dashboard/internal/infrastructure/summarizer"
	"github.com/eliasbrown99/solicitation-dashboard/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Backend   *summarizer.Client
	Executor  *resilience.Executor
	Metrics   *metrics.ControllerMetrics
	Publisher *nats.Publisher
	Session   *usecase.SessionService
	Uploads   *usecase.UploadWorkflow

	closeFn func()
}

// New wires one controller: backend client, session store and upload
// workflow. The NATS publisher is attached only when NATS_URL is set.
func New(_ context.Context, cfg config.Config, service string) (*App, error) {
	controllerMetrics := metrics.NewControllerMetrics(service)

	policy := resilience.DefaultConfig()
	policy.RetryMaxAttempts = cfg.RetryMaxAttempts
	policy.BreakerEnabled = cfg.BreakerEnabled
	policy.OnBreakerChange = func(operation string, _, to gobreaker.State) {
		controllerMetrics.SetBreakerState(operation, int(to))
	}
	executor := resilience.NewExecutor(policy)

	backend := summarizer.New(cfg.SummarizerURL, summarizer.Options{
		Timeout:  cfg.SummarizerTimeout,
		Executor: executor,
		Limiter:  newBackendLimiter(cfg),
		Metrics:  controllerMetrics,
	})

	var (
		publisher     ports.SessionEventPublisher
		natsPublisher *nats.Publisher
	)
	if cfg.NATSURL != "" {
		p, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			return nil, fmt.Errorf("init session event publisher: %w", err)
		}
		natsPublisher = p
		publisher = p
		slog.Info("session_events_enabled", "subject", cfg.NATSSubject)
	}

	session := usecase.NewSessionService(backend, publisher, controllerMetrics)
	uploads := usecase.NewUploadWorkflow(backend, session, publisher, controllerMetrics)

	return &App{
		Config:    cfg,
		Backend:   backend,
		Executor:  executor,
		Metrics:   controllerMetrics,
		Publisher: natsPublisher,
		Session:   session,
		Uploads:   uploads,

		closeFn: func() {
			if natsPublisher != nil {
				natsPublisher.Close()
			}
		},
	}, nil
}

func newBackendLimiter(cfg config.Config) *rate.Limiter {
	if cfg.BackendRateLimitRPS <= 0 {
		return nil
	}
	burst := cfg.BackendRateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.BackendRateLimitRPS), burst)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
