package metrics_test

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"testing"
	"time"

	"github.com/fieldline/actionbox"
	"github.com/fieldline/actionbox/metrics"
)

func TestStatsHookCountsEvents(t *testing.T) {
	hook := metrics.NewStatsHook("stats_hook_counts")
	ctx := context.Background()
	action := actionbox.Action{ID: "a-1", Kind: actionbox.KindComment}

	hook.OnPassStart(ctx, 3)
	hook.OnSendSuccess(ctx, action)
	hook.OnSendFailure(ctx, action, errors.New("boom"))
	hook.OnSendFailure(ctx, action, errors.New("boom"))
	hook.OnRetry(ctx, action, 1, time.Second)
	hook.OnFail(ctx, action, 5, errors.New("boom"))
	hook.OnStoreError(ctx, "save", errors.New("disk full"))
	hook.OnPassEnd(ctx, 25*time.Millisecond)

	stats := readStats(t, "stats_hook_counts")
	want := map[string]int64{
		"due":          3,
		"send_success": 1,
		"send_failure": 2,
		"retries":      1,
		"failures":     1,
		"store_errors": 1,
		"passes":       1,
	}
	for key, value := range want {
		if stats[key] != value {
			t.Errorf("%s = %d, want %d", key, stats[key], value)
		}
	}
	if stats["pass_latency_ns"] != (25 * time.Millisecond).Nanoseconds() {
		t.Errorf("pass_latency_ns = %d", stats["pass_latency_ns"])
	}
}

func TestStatsHookDefaultPrefix(t *testing.T) {
	metrics.NewStatsHook("")
	if expvar.Get("actionbox_stats") == nil {
		t.Fatal("empty prefix did not register actionbox_stats")
	}
}

func readStats(t *testing.T, prefix string) map[string]int64 {
	t.Helper()
	v := expvar.Get(prefix + "_stats")
	if v == nil {
		t.Fatalf("expvar entry %s_stats not registered", prefix)
	}
	var stats map[string]int64
	if err := json.Unmarshal([]byte(v.String()), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	return stats
}
