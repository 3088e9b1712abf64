package domain

import "errors"

var (
	// ErrNotReady is returned when a request is drained while the connection is not open.
	ErrNotReady = errors.New("connection not ready")

	// ErrRateLimited is returned by the protocol client when the provider pushes back.
	ErrRateLimited = errors.New("rate limited by provider")

	// ErrConnectionLost aborts a batch when the connection changes mid-generation.
	ErrConnectionLost = errors.New("connection lost during batch")

	// ErrExpired is returned for requests that waited in the queue for too long.
	ErrExpired = errors.New("request expired in queue")

	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrPhoneNotAllowed = errors.New("phone number not allowed")
	ErrQueueStopped    = errors.New("request queue stopped")
	ErrPersistence     = errors.New("failed to persist batch")
	ErrBatchNotFound   = errors.New("batch not found")
)
