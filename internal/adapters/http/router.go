package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/eliasbrown99/solicitation-dashboard/internal/config"
	"github.com/eliasbrown99/solicitation-dashboard/internal/core/ports"
	"github.com/eliasbrown99/solicitation-dashboard/internal/observability/metrics"
)

const (
	serviceName     = "dashboard-api"
	maxUploadBytes  = 64 << 20
	backpressureMax = 250 * time.Millisecond
)

// Router exposes one upload workflow and one session store to an external view.
type Router struct {
	cfg     config.Config
	uploads ports.UploadController
	session ports.SessionController

	httpMetrics    *metrics.HTTPServerMetrics
	metricsHandler http.Handler

	// baseCtx outlives single requests; background submissions run on it.
	baseCtx context.Context
}

func NewRouter(
	cfg config.Config,
	uploads ports.UploadController,
	session ports.SessionController,
) *Router {
	return &Router{
		cfg:     cfg,
		uploads: uploads,
		session: session,
		baseCtx: context.Background(),
	}
}

// WithMetrics instruments the handler chain and serves handler on /metrics.
func (rt *Router) WithMetrics(httpMetrics *metrics.HTTPServerMetrics, handler http.Handler) *Router {
	rt.httpMetrics = httpMetrics
	rt.metricsHandler = handler
	return rt
}

// WithBaseContext sets the context background uploads run under.
func (rt *Router) WithBaseContext(ctx context.Context) *Router {
	if ctx != nil {
		rt.baseCtx = ctx
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /v1/session", rt.getSession)
	api.HandleFunc("POST /v1/upload", rt.submitUpload)
	api.HandleFunc("POST /v1/upload/confirm", rt.confirmUpload)
	api.HandleFunc("POST /v1/upload/cancel", rt.cancelUpload)
	api.HandleFunc("GET /v1/documents", rt.listDocuments)
	api.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)
	api.HandleFunc("POST /v1/delete/cancel", rt.cancelDelete)
	api.HandleFunc("POST /v1/tabs/{id}", rt.openTab)
	api.HandleFunc("DELETE /v1/tabs/{id}", rt.closeTab)
	api.HandleFunc("POST /v1/view/{view}", rt.showView)

	var limited http.Handler = backpressureMiddleware(api, rt.cfg.APIMaxInFlight, backpressureMax)
	limited = rateLimitMiddleware(limited, newAPILimiter(rt.cfg))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	// The event stream holds its connection open and skips the in-flight gate.
	mux.HandleFunc("GET /v1/upload/events", rt.streamUploadEvents)
	if rt.metricsHandler != nil {
		mux.Handle("GET /metrics", rt.metricsHandler)
	}
	mux.Handle("/", limited)

	var handler http.Handler = mux
	if rt.httpMetrics != nil {
		handler = rt.httpMetrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func newAPILimiter(cfg config.Config) *rate.Limiter {
	if cfg.APIRateLimitRPS <= 0 {
		return nil
	}
	burst := cfg.APIRateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(cfg.APIRateLimitRPS), burst)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed", "request_id", requestIDFromContext(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{
		"error":      err.Error(),
		"request_id": requestIDFromContext(r.Context()),
	})
}
