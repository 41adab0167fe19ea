package models

import "errors"

var (
	// ErrNotFound is returned when a game or week does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTiebreakerConflict is returned when another writer already holds the
	// tiebreaker for a week.
	ErrTiebreakerConflict = errors.New("tiebreaker already assigned")
)
