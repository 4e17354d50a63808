package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mojomaniac/skillswap/internal/auth"
	"github.com/mojomaniac/skillswap/internal/telemetry"
)

// HTTPMetrics records served requests.
type HTTPMetrics interface {
	ObserveHTTPRequest(method, route string, statusCode int, duration time.Duration)
}

// RouterConfig wires the router's collaborators.
type RouterConfig struct {
	Handlers       *Handlers
	Verifier       auth.Verifier
	Metrics        HTTPMetrics
	MetricsHandler http.Handler
	HealthHandler  http.Handler
	FrontendURL    string
	Logger         *zap.Logger
}

// NewRouter builds the full HTTP surface: the JSON API, the Prometheus
// scrape endpoint, and the health probes.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := chi.NewRouter()
	router.Use(instrument(cfg.Metrics, logger))
	if cfg.FrontendURL != "" {
		router.Use(allowFrontendOrigin(cfg.FrontendURL))
	}

	requireSession := auth.RequireSession(cfg.Verifier, func(w http.ResponseWriter, _ *http.Request, err error) {
		writeError(w, err)
	})

	router.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(r chi.Router) {
			r.Get("/{provider}", cfg.Handlers.AuthURL)
			r.Post("/{provider}/callback", cfg.Handlers.Callback)
			r.Post("/register", cfg.Handlers.Register)
			r.Post("/login", cfg.Handlers.Login)
		})

		api.Get("/users", cfg.Handlers.ListUsers)
		api.Get("/skills", cfg.Handlers.ListSkills)
		api.Get("/leaderboard", cfg.Handlers.Leaderboard)

		api.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Get("/users/me", cfg.Handlers.Me)
			r.Get("/users/me/activity", cfg.Handlers.Activity)
			r.Put("/users/{id}", cfg.Handlers.UpdateUser)
			r.Put("/users/{id}/skills", cfg.Handlers.UpdateSkills)
			r.Put("/users/{id}/karma", cfg.Handlers.AwardKarma)
			r.Post("/skills", cfg.Handlers.CreateSkill)
			r.Get("/chat", cfg.Handlers.ListMessages)
			r.Post("/chat", cfg.Handlers.PostMessage)
		})

		api.Get("/users/{id}", cfg.Handlers.GetUser)
	})

	if cfg.MetricsHandler != nil {
		router.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.HealthHandler != nil {
		router.Handle("/livez", cfg.HealthHandler)
		router.Handle("/readyz", cfg.HealthHandler)
		router.Handle("/healthz", cfg.HealthHandler)
	}
	return router
}

// instrument captures status codes for metrics and, when the trace mode
// asks for it, wraps each request in a server span.
func instrument(metrics HTTPMetrics, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()

			var span trace.Span
			if telemetry.TraceMode() != "off" {
				ctx, span = otel.Tracer("skillswap/internal/handler").Start(
					ctx,
					"http.server.request",
					trace.WithAttributes(
						attribute.String("http.method", r.Method),
						attribute.String("http.target", r.URL.Path),
					),
				)
				defer span.End()
			}

			recorder := &statusCapturingResponseWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
			}
			next.ServeHTTP(recorder, r.WithContext(ctx))

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			if metrics != nil {
				metrics.ObserveHTTPRequest(r.Method, route, recorder.status, time.Since(start))
			}
			if span != nil {
				span.SetAttributes(attribute.Int("http.status_code", recorder.status))
				if recorder.status >= http.StatusInternalServerError {
					span.SetStatus(codes.Error, http.StatusText(recorder.status))
				} else {
					span.SetStatus(codes.Ok, "request completed")
				}
			}
			if recorder.status >= http.StatusInternalServerError {
				logger.Error("request failed",
					zap.String("method", r.Method),
					zap.String("route", route),
					zap.Int("status", recorder.status),
				)
			}
		})
	}
}

// allowFrontendOrigin admits cross-origin requests from the configured
// frontend only.
func allowFrontendOrigin(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Origin") == origin {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusCapturingResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusCapturingResponseWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
