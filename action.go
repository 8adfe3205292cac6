// Package actionbox provides a durable outbox for job actions created while
// a field device is offline. Actions are persisted locally, delivered to the
// remote service in creation order, and retried with backoff until they are
// acknowledged or permanently failed.
package actionbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind identifies the type of a queued action and selects its payload shape.
type Kind string

const (
	// KindSubmission is a production data submission for a job.
	KindSubmission Kind = "SUBMISSION"
	// KindComment is a free-text comment attached to a job.
	KindComment Kind = "COMMENT"
	// KindStartJob marks a job as started by the assigned worker.
	KindStartJob Kind = "START_JOB"
)

// Status is the delivery lifecycle state of an action.
type Status string

const (
	// StatusQueued means the action is waiting for a delivery pass.
	StatusQueued Status = "QUEUED"
	// StatusSending means a delivery attempt is in flight.
	StatusSending Status = "SENDING"
	// StatusSent means the remote service acknowledged the action. Sent
	// actions are removed from the queue, so this state is never persisted.
	StatusSent Status = "SENT"
	// StatusFailed means the retry budget is exhausted; only an explicit
	// retry or removal moves the action out of this state.
	StatusFailed Status = "FAILED"
)

// Payload is the kind-specific content of an action.
type Payload interface {
	// JobID returns the job the action belongs to.
	JobID() string
	// Kind reports which variant this payload is.
	Kind() Kind
	// validate rejects payloads that must never enter the queue.
	validate() error
}

// SubmissionPayload carries production data for a completed job.
type SubmissionPayload struct {
	Job         string  `json:"job_id"`
	Footage     float64 `json:"total_footage"`
	AnchorCount int     `json:"anchor_count"`
	CoilCount   int     `json:"coil_count"`
	Notes       string  `json:"notes,omitempty"`
	CompletedOn string  `json:"completed_on"`
}

// JobID implements Payload.
func (p SubmissionPayload) JobID() string { return p.Job }

// Kind implements Payload.
func (p SubmissionPayload) Kind() Kind { return KindSubmission }

func (p SubmissionPayload) validate() error {
	if p.Job == "" {
		return errors.New("actionbox: job id is required")
	}
	if p.CompletedOn == "" {
		return errors.New("actionbox: completion date is required")
	}
	if p.Footage < 0 {
		return errors.New("actionbox: footage must not be negative")
	}
	return nil
}

// CommentPayload carries a comment on a job.
type CommentPayload struct {
	Job  string `json:"job_id"`
	Text string `json:"text"`
}

// JobID implements Payload.
func (p CommentPayload) JobID() string { return p.Job }

// Kind implements Payload.
func (p CommentPayload) Kind() Kind { return KindComment }

func (p CommentPayload) validate() error {
	if p.Job == "" {
		return errors.New("actionbox: job id is required")
	}
	if p.Text == "" {
		return errors.New("actionbox: comment text is required")
	}
	return nil
}

// StartJobPayload records that work on a job has begun.
type StartJobPayload struct {
	Job string `json:"job_id"`
}

// JobID implements Payload.
func (p StartJobPayload) JobID() string { return p.Job }

// Kind implements Payload.
func (p StartJobPayload) Kind() Kind { return KindStartJob }

func (p StartJobPayload) validate() error {
	if p.Job == "" {
		return errors.New("actionbox: job id is required")
	}
	return nil
}

// Action is one queued unit of work. The ID doubles as the idempotency key
// sent to the remote service and is stable for the lifetime of the record.
type Action struct {
	ID            string
	Kind          Kind
	Payload       Payload
	Status        Status
	Error         string
	AttemptCount  int
	CreatedAt     time.Time
	LastAttemptAt time.Time
}

// actionJSON is the wire form of an Action in persisted snapshots.
type actionJSON struct {
	ID            string          `json:"id"`
	Kind          Kind            `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Error         string          `json:"error,omitempty"`
	AttemptCount  int             `json:"attempt_count"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (a Action) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return nil, fmt.Errorf("actionbox: failed to marshal payload: %w", err)
	}
	out := actionJSON{
		ID:           a.ID,
		Kind:         a.Kind,
		Payload:      payload,
		Status:       a.Status,
		Error:        a.Error,
		AttemptCount: a.AttemptCount,
		CreatedAt:    a.CreatedAt,
	}
	if !a.LastAttemptAt.IsZero() {
		t := a.LastAttemptAt
		out.LastAttemptAt = &t
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler, dispatching the payload decode
// on the kind tag so unknown kinds fail loudly instead of round-tripping as
// untyped maps.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw actionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	payload, err := decodePayload(raw.Kind, raw.Payload)
	if err != nil {
		return err
	}
	a.ID = raw.ID
	a.Kind = raw.Kind
	a.Payload = payload
	a.Status = raw.Status
	a.Error = raw.Error
	a.AttemptCount = raw.AttemptCount
	a.CreatedAt = raw.CreatedAt
	a.LastAttemptAt = time.Time{}
	if raw.LastAttemptAt != nil {
		a.LastAttemptAt = *raw.LastAttemptAt
	}
	return nil
}

func decodePayload(kind Kind, data json.RawMessage) (Payload, error) {
	switch kind {
	case KindSubmission:
		var p SubmissionPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case KindComment:
		var p CommentPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case KindStartJob:
		var p StartJobPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("actionbox: unknown action kind %q", kind)
	}
}
