package actionbox

import (
	"context"
	"time"
)

// Hooks receives engine lifecycle events for metrics. All methods run
// synchronously inside the engine; implementations must be fast.
type Hooks interface {
	// OnPassStart reports how many queued actions a delivery pass picked up.
	OnPassStart(ctx context.Context, due int)
	// OnSendSuccess fires when the remote service acknowledged an action.
	OnSendSuccess(ctx context.Context, action Action)
	// OnSendFailure fires on a failed delivery attempt, before retry/fail
	// handling.
	OnSendFailure(ctx context.Context, action Action, err error)
	// OnRetry fires when a failed action is requeued for another attempt.
	OnRetry(ctx context.Context, action Action, attempt int, delay time.Duration)
	// OnFail fires when an action exhausts its retry budget.
	OnFail(ctx context.Context, action Action, attempt int, err error)
	// OnStoreError fires when persisting the snapshot failed.
	OnStoreError(ctx context.Context, op string, err error)
	// OnPassEnd reports the duration of a completed delivery pass.
	OnPassEnd(ctx context.Context, d time.Duration)
}

// noopHooks ignores all events.
type noopHooks struct{}

func (noopHooks) OnPassStart(context.Context, int)                    {}
func (noopHooks) OnSendSuccess(context.Context, Action)               {}
func (noopHooks) OnSendFailure(context.Context, Action, error)        {}
func (noopHooks) OnRetry(context.Context, Action, int, time.Duration) {}
func (noopHooks) OnFail(context.Context, Action, int, error)          {}
func (noopHooks) OnStoreError(context.Context, string, error)         {}
func (noopHooks) OnPassEnd(context.Context, time.Duration)            {}
