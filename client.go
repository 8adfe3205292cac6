package actionbox

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Receipt is the remote service's acknowledgement of a delivered action.
type Receipt struct {
	// ServerID is the identifier the service assigned to the created resource.
	ServerID string
	// ServerTime is the service-side timestamp of the create.
	ServerTime time.Time
}

// Client maps an action to exactly one idempotent remote call. The
// idempotency key is the action's ID, so a redelivered request after a
// timeout is recognized server-side instead of duplicated.
type Client interface {
	CreateSubmission(ctx context.Context, idempotencyKey string, payload SubmissionPayload) (Receipt, error)
	CreateComment(ctx context.Context, idempotencyKey string, payload CommentPayload) (Receipt, error)
	StartJob(ctx context.Context, idempotencyKey string, payload StartJobPayload) (Receipt, error)
}

// APIError is a structured failure from the remote service.
type APIError struct {
	// StatusCode is the HTTP-level status, or 0 for transport failures.
	StatusCode int
	// Code is the service-specific error code, when present.
	Code string
	// Message is a human-readable failure reason.
	Message string
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("actionbox: remote error %s (status %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("actionbox: remote error (status %d): %s", e.StatusCode, e.Message)
}

// Transient reports whether the failure class is worth retrying. All
// failures consume retry budget identically; this is surfaced for logging
// and hooks only.
func (e *APIError) Transient() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// IsTransient classifies an error from a Client call. Unrecognized errors
// (network, context deadline) count as transient.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	return true
}
