package actionbox_test

import (
	"testing"
	"time"

	"github.com/fieldline/actionbox"
)

func TestStepsBackoff(t *testing.T) {
	t.Parallel()
	backoff := actionbox.Steps(time.Second, 5*time.Second, 15*time.Second, time.Minute, 5*time.Minute)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: -1, want: time.Second},
		{attempt: 0, want: time.Second},
		{attempt: 1, want: time.Second},
		{attempt: 2, want: 5 * time.Second},
		{attempt: 3, want: 15 * time.Second},
		{attempt: 4, want: time.Minute},
		{attempt: 5, want: 5 * time.Minute},
		{attempt: 6, want: 5 * time.Minute}, // past the table
		{attempt: 50, want: 5 * time.Minute},
	}

	for _, tt := range tests {
		if got := backoff(tt.attempt); got != tt.want {
			t.Fatalf("backoff(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestExponentialBackoff(t *testing.T) {
	t.Parallel()
	backoff := actionbox.Exponential(100*time.Millisecond, 2, time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: -1, want: 100 * time.Millisecond},
		{attempt: 0, want: 100 * time.Millisecond},
		{attempt: 1, want: 100 * time.Millisecond},
		{attempt: 2, want: 200 * time.Millisecond},
		{attempt: 3, want: 400 * time.Millisecond},
		{attempt: 5, want: time.Second}, // capped by max
		{attempt: 10, want: time.Second},
	}

	for _, tt := range tests {
		if got := backoff(tt.attempt); got != tt.want {
			t.Fatalf("backoff(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}
