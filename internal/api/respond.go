package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"nflpickem/ingestion/internal/ingest"

	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps err to a status and writes it
func writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	writeError(w, status, err.Error())
}

// statusFor classifies a pipeline error as an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, ingest.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrNoRows), errors.Is(err, ingest.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
