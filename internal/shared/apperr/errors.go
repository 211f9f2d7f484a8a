package apperr

import (
	"errors"
	"net/http"
)

// Queue domain errors. Callers match with errors.Is; services wrap with context.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrCapacityConflict  = errors.New("table capacity is smaller than party size")
	ErrAlreadyAssigned   = errors.New("table is already assigned to an active entry")
	ErrNotAQueueTable    = errors.New("table belongs to the reservation pool")
	ErrQueueDisabled     = errors.New("walk-in queue is disabled for this outlet")
	ErrNoCandidates      = errors.New("no waiting entries")
	ErrInvalidInput      = errors.New("invalid input")
)

// StatusCode maps a domain error to the HTTP status the API answers with
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrCapacityConflict),
		errors.Is(err, ErrAlreadyAssigned),
		errors.Is(err, ErrNoCandidates):
		return http.StatusConflict
	case errors.Is(err, ErrNotAQueueTable),
		errors.Is(err, ErrQueueDisabled):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a stable machine-readable code for the error
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrCapacityConflict):
		return "CAPACITY_CONFLICT"
	case errors.Is(err, ErrAlreadyAssigned):
		return "ALREADY_ASSIGNED"
	case errors.Is(err, ErrNotAQueueTable):
		return "NOT_A_QUEUE_TABLE"
	case errors.Is(err, ErrQueueDisabled):
		return "QUEUE_DISABLED"
	case errors.Is(err, ErrNoCandidates):
		return "NO_CANDIDATES"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	default:
		return "INTERNAL_ERROR"
	}
}
