package actionbox_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fieldline/actionbox"
)

func TestActionJSONRoundTrip(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	actions := []actionbox.Action{
		{
			ID:   "a-1",
			Kind: actionbox.KindSubmission,
			Payload: actionbox.SubmissionPayload{
				Job:         "job-1",
				Footage:     1250.5,
				AnchorCount: 4,
				CoilCount:   2,
				Notes:       "rough terrain",
				CompletedOn: "2026-08-29",
			},
			Status:        actionbox.StatusQueued,
			AttemptCount:  2,
			Error:         "temporary outage",
			CreatedAt:     now,
			LastAttemptAt: now.Add(time.Minute),
		},
		{
			ID:        "a-2",
			Kind:      actionbox.KindComment,
			Payload:   actionbox.CommentPayload{Job: "job-1", Text: "left gate open"},
			Status:    actionbox.StatusQueued,
			CreatedAt: now.Add(time.Second),
		},
		{
			ID:        "a-3",
			Kind:      actionbox.KindStartJob,
			Payload:   actionbox.StartJobPayload{Job: "job-2"},
			Status:    actionbox.StatusFailed,
			CreatedAt: now.Add(2 * time.Second),
		},
	}

	blob, err := actionbox.EncodeSnapshot(actions)
	if err != nil {
		t.Fatalf("EncodeSnapshot error: %v", err)
	}
	decoded, err := actionbox.DecodeSnapshot(blob)
	if err != nil {
		t.Fatalf("DecodeSnapshot error: %v", err)
	}
	if len(decoded) != len(actions) {
		t.Fatalf("decoded %d actions, want %d", len(decoded), len(actions))
	}
	for i := range actions {
		if decoded[i].ID != actions[i].ID || decoded[i].Kind != actions[i].Kind {
			t.Fatalf("action %d identity mismatch: %+v vs %+v", i, decoded[i], actions[i])
		}
		if decoded[i].Payload != actions[i].Payload {
			t.Fatalf("action %d payload mismatch: %+v vs %+v", i, decoded[i].Payload, actions[i].Payload)
		}
		if decoded[i].Status != actions[i].Status || decoded[i].AttemptCount != actions[i].AttemptCount {
			t.Fatalf("action %d state mismatch: %+v vs %+v", i, decoded[i], actions[i])
		}
		if !decoded[i].CreatedAt.Equal(actions[i].CreatedAt) {
			t.Fatalf("action %d created_at mismatch", i)
		}
		if !decoded[i].LastAttemptAt.Equal(actions[i].LastAttemptAt) {
			t.Fatalf("action %d last_attempt_at mismatch", i)
		}
	}
}

func TestDecodeSnapshotRejectsUnknownVersion(t *testing.T) {
	t.Parallel()
	if _, err := actionbox.DecodeSnapshot([]byte(`{"version":99,"actions":[]}`)); err == nil {
		t.Fatal("expected error for unknown snapshot version")
	}
}

func TestActionUnmarshalRejectsUnknownKind(t *testing.T) {
	t.Parallel()
	blob := []byte(`{"id":"a-1","kind":"PHOTO_UPLOAD","payload":{"job_id":"job-1"},"status":"QUEUED","attempt_count":0,"created_at":"2026-08-30T12:00:00Z"}`)
	var a actionbox.Action
	err := json.Unmarshal(blob, &a)
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if !strings.Contains(err.Error(), "unknown action kind") {
		t.Fatalf("error = %v, want unknown action kind", err)
	}
}

func TestEncodeSnapshotEmptyQueue(t *testing.T) {
	t.Parallel()
	blob, err := actionbox.EncodeSnapshot(nil)
	if err != nil {
		t.Fatalf("EncodeSnapshot error: %v", err)
	}
	if string(blob) != `{"version":1,"actions":[]}` {
		t.Fatalf("empty snapshot = %s", blob)
	}
	decoded, err := actionbox.DecodeSnapshot(blob)
	if err != nil {
		t.Fatalf("DecodeSnapshot error: %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("decoded %d actions, want 0", len(decoded))
	}
}
