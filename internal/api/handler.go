package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nflpickem/ingestion/internal/config"
	"nflpickem/ingestion/internal/feed"
	"nflpickem/ingestion/internal/ingest"
	"nflpickem/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

const maxWebhookBody = 1 << 20

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	svc Service
	db  HealthChecker
	cfg *config.Config
}

// NewHandler creates a Handler
func NewHandler(svc Service, db HealthChecker, cfg *config.Config) *Handler {
	return &Handler{svc: svc, db: db, cfg: cfg}
}

// HealthCheck returns basic health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Health(r.Context()); err != nil {
		log.Warn().Err(err).Msg("Database health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": "connected",
	})
}

// ImportSchedule handles POST /api/cron/import-schedule
func (h *Handler) ImportSchedule(w http.ResponseWriter, r *http.Request) {
	season, err := h.season(r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	res, err := h.svc.SyncSchedule(r.Context(), season)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":          true,
		"season":      res.Season,
		"count":       res.Games,
		"weeks":       res.Weeks,
		"skipped":     res.Skipped,
		"tiebreakers": res.Tiebreakers,
	})
}

// SyncScores handles POST /api/cron/score
func (h *Handler) SyncScores(w http.ResponseWriter, r *http.Request) {
	season, err := h.season(r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	week, err := optionalInt(r, "week")
	if err != nil {
		writeFailure(w, err)
		return
	}
	source, err := ingest.ParseScoreSource(r.URL.Query().Get("source"))
	if err != nil {
		writeFailure(w, err)
		return
	}

	res, err := h.svc.ApplyScores(r.Context(), ingest.ScoreRequest{
		Season:   season,
		Week:     week,
		AllWeeks: r.URL.Query().Get("allWeeks") == "true",
		Source:   source,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"season":  res.Season,
		"weeks":   res.Weeks,
		"updated": res.Updated,
		"by_week": res.ByWeek,
		"skipped": res.Skipped,
	})
}

// EnsureTiebreakers handles POST /api/cron/tiebreakers
func (h *Handler) EnsureTiebreakers(w http.ResponseWriter, r *http.Request) {
	season, err := h.season(r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	res, err := h.svc.EnsureTiebreakers(r.Context(), season)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"season":   season,
		"assigned": res.Assigned,
		"skipped":  res.Skipped,
	})
}

// NflverseAdapter serves the schedule feed as canonical CSV
func (h *Handler) NflverseAdapter(w http.ResponseWriter, r *http.Request) {
	season, err := h.season(r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	rows, err := h.svc.NormalizeSchedule(r.Context(), season)
	if err != nil {
		writeFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := feed.WriteCanonicalCSV(w, rows); err != nil {
		log.Warn().Err(err).Msg("Failed to write canonical CSV")
	}
}

// ESPNAdapter serves normalized scoreboard rows. Without season or week ESPN
// returns the current slate.
func (h *Handler) ESPNAdapter(w http.ResponseWriter, r *http.Request) {
	season, err := optionalInt(r, "season")
	if err != nil {
		writeFailure(w, err)
		return
	}
	week, err := optionalInt(r, "week")
	if err != nil {
		writeFailure(w, err)
		return
	}

	rows, err := h.svc.ScoreboardRows(r.Context(), season, week)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// ScoreWebhook handles POST /api/webhooks/score
func (h *Handler) ScoreWebhook(w http.ResponseWriter, r *http.Request) {
	var u models.ScoreUpdate
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err := dec.Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	game, err := h.svc.ApplyScoreUpdate(r.Context(), u)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"game": game,
	})
}

// CurrentWeek handles GET /api/weeks/current
func (h *Handler) CurrentWeek(w http.ResponseWriter, r *http.Request) {
	season, err := h.season(r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	week, err := h.svc.CurrentWeek(r.Context(), season)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"season": season, "week": week})
}

// season reads the season query parameter, defaulting to the configured season
func (h *Handler) season(r *http.Request) (int, error) {
	season, err := optionalInt(r, "season")
	if err != nil {
		return 0, err
	}
	if season == 0 {
		return h.cfg.DefaultSeason(), nil
	}
	return season, nil
}

// optionalInt parses a positive integer query parameter. Absent yields 0.
func optionalInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", ingest.ErrInvalidInput, name)
	}
	return n, nil
}
