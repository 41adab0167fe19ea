package ingest

import (
	"context"
	"errors"

	"nflpickem/ingestion/internal/client"
	"nflpickem/ingestion/internal/models"
)

var (
	// ErrNoRows means the feed had no usable rows for the request.
	ErrNoRows = errors.New("no usable rows")

	// ErrInvalidInput means the request itself was malformed.
	ErrInvalidInput = errors.New("invalid input")

	ErrNotFound           = models.ErrNotFound
	ErrTiebreakerConflict = models.ErrTiebreakerConflict
)

// errorType classifies err for the error metric.
func errorType(err error) string {
	switch {
	case errors.Is(err, ErrNoRows):
		return "no_rows"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, client.ErrUpstream):
		return "upstream"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
