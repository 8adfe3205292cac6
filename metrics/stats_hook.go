// Package metrics publishes outbox counters via expvar.
package metrics

import (
	"context"
	"expvar"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fieldline/actionbox"
)

// StatsHook implements actionbox.Hooks with atomic counters exposed through
// an expvar entry.
type StatsHook struct {
	due           atomic.Int64
	sendSuccess   atomic.Int64
	sendFailure   atomic.Int64
	retries       atomic.Int64
	failures      atomic.Int64
	storeErrors   atomic.Int64
	passes        atomic.Int64
	passLatencyNs atomic.Int64
}

// NewStatsHook registers an expvar entry named "<prefix>_stats".
func NewStatsHook(prefix string) *StatsHook {
	if prefix == "" {
		prefix = "actionbox"
	}
	h := &StatsHook{}
	expvar.Publish(fmt.Sprintf("%s_stats", prefix), expvar.Func(func() any {
		return h.snapshot()
	}))
	return h
}

// OnPassStart tracks how many actions a delivery pass picked up.
func (h *StatsHook) OnPassStart(_ context.Context, due int) {
	h.due.Add(int64(due))
}

// OnSendSuccess increments successful deliveries.
func (h *StatsHook) OnSendSuccess(_ context.Context, _ actionbox.Action) {
	h.sendSuccess.Add(1)
}

// OnSendFailure increments failed deliveries before retry/fail handling.
func (h *StatsHook) OnSendFailure(_ context.Context, _ actionbox.Action, _ error) {
	h.sendFailure.Add(1)
}

// OnRetry increments retry counters.
func (h *StatsHook) OnRetry(_ context.Context, _ actionbox.Action, _ int, _ time.Duration) {
	h.retries.Add(1)
}

// OnFail increments permanent failures.
func (h *StatsHook) OnFail(_ context.Context, _ actionbox.Action, _ int, _ error) {
	h.failures.Add(1)
}

// OnStoreError increments the persistence error counter.
func (h *StatsHook) OnStoreError(_ context.Context, _ string, _ error) {
	h.storeErrors.Add(1)
}

// OnPassEnd records pass durations and counts.
func (h *StatsHook) OnPassEnd(_ context.Context, d time.Duration) {
	h.passes.Add(1)
	h.passLatencyNs.Add(d.Nanoseconds())
}

func (h *StatsHook) snapshot() map[string]int64 {
	return map[string]int64{
		"due":             h.due.Load(),
		"send_success":    h.sendSuccess.Load(),
		"send_failure":    h.sendFailure.Load(),
		"retries":         h.retries.Load(),
		"failures":        h.failures.Load(),
		"store_errors":    h.storeErrors.Load(),
		"passes":          h.passes.Load(),
		"pass_latency_ns": h.passLatencyNs.Load(),
	}
}
