package calculation

import "errors"

var (
	ErrRunNotFound        = errors.New("attendance calculation not found")
	ErrRunNotInProgress   = errors.New("attendance calculation is not in progress")
	ErrQueueUnavailable   = errors.New("background queue is unavailable, cannot perform calculation")
	ErrNoEmployees        = errors.New("no active employees match the calculation filters")
	ErrExternalSourceDown = errors.New("external attendance source is not configured")
)
