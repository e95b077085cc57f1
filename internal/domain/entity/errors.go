package entity

import "errors"

// Standard domain errors
var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded: too many estimates requested")
	ErrInternalServer    = errors.New("an internal error occurred")
	ErrInvalidRequest    = errors.New("invalid request parameters")

	// Classifier errors never reach the API; the engine turns them into a heuristic fallback.
	ErrNoClassifier       = errors.New("no classifier configured")
	ErrUnexpectedOutput   = errors.New("classifier output was unexpected")
	ErrClassifierNotReady = errors.New("classifier model is not available")
	ErrUpstreamTransient  = errors.New("upstream model temporarily unavailable")
)
