package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fieldline/actionbox"
	"github.com/fieldline/actionbox/remote"
)

func TestClientCreateSubmission(t *testing.T) {
	t.Parallel()
	var gotPath, gotKey, gotAuth string
	var gotBody actionbox.SubmissionPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":        "srv-42",
			"timestamp": time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		})
	}))
	t.Cleanup(server.Close)

	client := remote.NewClient(server.URL, remote.WithToken("tok-1"))
	receipt, err := client.CreateSubmission(context.Background(), "key-1", actionbox.SubmissionPayload{
		Job:         "job-1",
		Footage:     210,
		AnchorCount: 3,
		CompletedOn: "2026-08-30",
	})
	if err != nil {
		t.Fatalf("CreateSubmission error: %v", err)
	}
	if gotPath != "/api/v2/jobs/job-1/submit-production" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotKey != "key-1" {
		t.Fatalf("idempotency key = %s, want key-1", gotKey)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("authorization = %s", gotAuth)
	}
	if gotBody.Footage != 210 || gotBody.AnchorCount != 3 {
		t.Fatalf("body = %+v", gotBody)
	}
	if receipt.ServerID != "srv-42" {
		t.Fatalf("server id = %s, want srv-42", receipt.ServerID)
	}
}

func TestClientCommentAndStartPaths(t *testing.T) {
	t.Parallel()
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)

	client := remote.NewClient(server.URL)
	if _, err := client.CreateComment(context.Background(), "k1", actionbox.CommentPayload{Job: "job-7", Text: "hi"}); err != nil {
		t.Fatalf("CreateComment error: %v", err)
	}
	if _, err := client.StartJob(context.Background(), "k2", actionbox.StartJobPayload{Job: "job-7"}); err != nil {
		t.Fatalf("StartJob error: %v", err)
	}
	want := []string{"/api/v2/jobs/job-7/comments", "/api/v2/jobs/job-7/start"}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
}

func TestClientMapsStructuredErrors(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"job_not_open","detail":"job already submitted"}`))
	}))
	t.Cleanup(server.Close)

	client := remote.NewClient(server.URL)
	_, err := client.CreateComment(context.Background(), "k1", actionbox.CommentPayload{Job: "job-1", Text: "hi"})
	var apiErr *actionbox.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *actionbox.APIError", err)
	}
	if apiErr.StatusCode != http.StatusConflict || apiErr.Code != "job_not_open" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
	if apiErr.Message != "job already submitted" {
		t.Fatalf("message = %s", apiErr.Message)
	}
	if apiErr.Transient() {
		t.Fatal("409 classified as transient")
	}
}

func TestClientClassifiesServerErrorsTransient(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client := remote.NewClient(server.URL)
	_, err := client.StartJob(context.Background(), "k1", actionbox.StartJobPayload{Job: "job-1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !actionbox.IsTransient(err) {
		t.Fatalf("502 classified as permanent: %v", err)
	}
}

func TestClientNetworkErrorIsTransient(t *testing.T) {
	t.Parallel()
	client := remote.NewClient("http://127.0.0.1:1")
	_, err := client.CreateComment(context.Background(), "k1", actionbox.CommentPayload{Job: "job-1", Text: "hi"})
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !actionbox.IsTransient(err) {
		t.Fatalf("network error classified as permanent: %v", err)
	}
}
