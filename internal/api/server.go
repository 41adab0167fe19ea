// Package api exposes the ingestion triggers, adapters, and score webhook over HTTP.
package api

import (
	"context"

	"nflpickem/ingestion/internal/config"
	"nflpickem/ingestion/internal/ingest"
	"nflpickem/ingestion/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	corslib "github.com/rs/cors"
)

// Service is the ingestion pipeline behind the HTTP surface
type Service interface {
	SyncSchedule(ctx context.Context, season int) (ingest.ScheduleResult, error)
	ApplyScores(ctx context.Context, req ingest.ScoreRequest) (ingest.ScoreResult, error)
	EnsureTiebreakers(ctx context.Context, season int) (ingest.TiebreakerResult, error)
	NormalizeSchedule(ctx context.Context, season int) ([]models.ScheduleRow, error)
	ScoreboardRows(ctx context.Context, season, week int) ([]models.ScoreRow, error)
	ApplyScoreUpdate(ctx context.Context, u models.ScoreUpdate) (*models.Game, error)
	CurrentWeek(ctx context.Context, season int) (int, error)
}

// HealthChecker reports whether the store is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Header names carrying the shared secrets
const (
	CronSecretHeader    = "x-cron-secret"
	WebhookSecretHeader = "x-webhook-secret"
)

// NewRouter creates the chi router with middleware and routes
func NewRouter(svc Service, db HealthChecker, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	c := corslib.New(corslib.Options{
		AllowedOrigins: cfg.CORSAllowOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", CronSecretHeader, WebhookSecretHeader},
	})
	r.Use(c.Handler)

	if cfg.RateLimitRequests > 0 {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	h := NewHandler(svc, db, cfg)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RequireSecret(CronSecretHeader, cfg.CronSecret))
			r.Post("/cron/import-schedule", h.ImportSchedule)
			r.Post("/cron/score", h.SyncScores)
			r.Post("/cron/tiebreakers", h.EnsureTiebreakers)
		})

		r.With(RequireSecret(WebhookSecretHeader, cfg.WebhookSecret)).
			Post("/webhooks/score", h.ScoreWebhook)

		r.Get("/adapters/nflverse", h.NflverseAdapter)
		r.Get("/adapters/espn", h.ESPNAdapter)
		r.Get("/weeks/current", h.CurrentWeek)
	})

	return r
}
