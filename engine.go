package actionbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when an operation names an unknown action ID.
var ErrNotFound = errors.New("actionbox: action not found")

// ErrSending is returned when retrying an action with an attempt in flight.
var ErrSending = errors.New("actionbox: action has a delivery attempt in flight")

// Options configure Engine behaviour and tuning knobs.
type Options struct {
	// MaxAttempts is the number of total delivery tries before an action is
	// marked failed.
	MaxAttempts int
	// PassInterval is the period of the fallback delivery pass timer.
	PassInterval time.Duration
	// RequestTimeout bounds each remote call; a timeout counts as a
	// transient failure.
	RequestTimeout time.Duration
	// Backoff computes the minimum inter-attempt delay from the attempt
	// count. Actions attempted more recently than the delay are skipped by
	// the pass.
	Backoff Backoff
	// Logger emits structured logs for engine activity.
	Logger Logger
	// Hooks receives metric events.
	Hooks Hooks
	// Now supplies the current time; override for tests.
	Now func() time.Time
}

func (o *Options) setDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.PassInterval <= 0 {
		o.PassInterval = 30 * time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.Backoff == nil {
		o.Backoff = Steps(defaultBackoffSteps...)
	}
	if o.Logger == nil {
		o.Logger = noopLogger{}
	}
	if o.Hooks == nil {
		o.Hooks = noopHooks{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Engine owns the action queue. All mutations are serialized behind its
// mutex; delivery passes run one at a time on a background goroutine.
type Engine struct {
	store   Store
	client  Client
	monitor Monitor
	opts    Options
	bus     *Bus

	mu      sync.Mutex
	queue   []Action
	passing bool

	unsubscribe func()
}

// New loads the persisted queue and wires the connectivity subscription.
// Any action found persisted as SENDING is demoted to QUEUED: a prior
// process died mid-delivery and the outcome is unknown, which is safe
// because delivery is idempotent.
func New(ctx context.Context, store Store, client Client, monitor Monitor, opts Options) (*Engine, error) {
	opts.setDefaults()
	if store == nil {
		return nil, errors.New("actionbox: store is required")
	}
	if client == nil {
		return nil, errors.New("actionbox: client is required")
	}
	if monitor == nil {
		return nil, errors.New("actionbox: monitor is required")
	}

	queue, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("actionbox: failed to load persisted queue: %w", err)
	}
	demoted := 0
	for i := range queue {
		if queue[i].Status == StatusSending {
			queue[i].Status = StatusQueued
			demoted++
		}
	}
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].CreatedAt.Before(queue[j].CreatedAt)
	})

	e := &Engine{
		store:   store,
		client:  client,
		monitor: monitor,
		opts:    opts,
		bus:     NewBus(),
		queue:   queue,
	}
	if demoted > 0 {
		opts.Logger.Info(ctx, "demoted %d interrupted actions back to queued", demoted)
		e.persist(ctx)
	}
	e.unsubscribe = monitor.Subscribe(func(online bool) {
		if online {
			e.TriggerPass()
		}
	})
	return e, nil
}

// Run triggers delivery passes on a timer until the context is cancelled.
// Reconnect events and enqueues trigger passes independently; the timer is
// the fallback path and realizes the backoff cadence.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.opts.PassInterval)
	defer ticker.Stop()

	e.TriggerPass()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.TriggerPass()
		}
	}
}

// Close drops the connectivity subscription. In-flight passes finish on
// their own; the queue stays durable through the store.
func (e *Engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

// Subscribe registers a snapshot observer, delivering the current snapshot
// immediately.
func (e *Engine) Subscribe(fn func(Snapshot)) (cancel func()) {
	e.mu.Lock()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	fn(snap)
	cancel, _, _ = e.bus.add(fn)
	return cancel
}

// Enqueue validates the payload, appends a new action to the queue,
// persists it, and (when online) kicks off an asynchronous delivery pass.
// It never blocks on network I/O.
func (e *Engine) Enqueue(ctx context.Context, payload Payload) (string, error) {
	if payload == nil {
		return "", errors.New("actionbox: payload is required")
	}
	if err := payload.validate(); err != nil {
		return "", err
	}

	action := Action{
		ID:        newActionID(),
		Kind:      payload.Kind(),
		Payload:   payload,
		Status:    StatusQueued,
		CreatedAt: e.opts.Now().UTC(),
	}

	e.mu.Lock()
	e.queue = append(e.queue, action)
	e.persist(ctx)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.bus.Publish(snap)
	e.TriggerPass()
	return action.ID, nil
}

// Retry resets an action to QUEUED with a fresh retry budget. Valid for any
// status except an attempt currently in flight.
func (e *Engine) Retry(ctx context.Context, id string) error {
	e.mu.Lock()
	idx := e.indexLocked(id)
	if idx < 0 {
		e.mu.Unlock()
		return ErrNotFound
	}
	if e.queue[idx].Status == StatusSending {
		e.mu.Unlock()
		return ErrSending
	}
	e.queue[idx].Status = StatusQueued
	e.queue[idx].Error = ""
	e.queue[idx].AttemptCount = 0
	e.queue[idx].LastAttemptAt = time.Time{}
	e.persist(ctx)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.bus.Publish(snap)
	e.TriggerPass()
	return nil
}

// RetryAll applies Retry semantics to every failed action.
func (e *Engine) RetryAll(ctx context.Context) {
	e.mu.Lock()
	changed := false
	for i := range e.queue {
		if e.queue[i].Status != StatusFailed {
			continue
		}
		e.queue[i].Status = StatusQueued
		e.queue[i].Error = ""
		e.queue[i].AttemptCount = 0
		e.queue[i].LastAttemptAt = time.Time{}
		changed = true
	}
	if changed {
		e.persist(ctx)
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if changed {
		e.bus.Publish(snap)
		e.TriggerPass()
	}
}

// Remove deletes an action unconditionally, used for user-discarded items.
func (e *Engine) Remove(ctx context.Context, id string) error {
	e.mu.Lock()
	idx := e.indexLocked(id)
	if idx < 0 {
		e.mu.Unlock()
		return ErrNotFound
	}
	e.queue = append(e.queue[:idx], e.queue[idx+1:]...)
	e.persist(ctx)
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.bus.Publish(snap)
	return nil
}

// ItemsForJob returns the queued actions whose payload references the job.
func (e *Engine) ItemsForJob(jobID string) []Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Action
	for _, a := range e.queue {
		if a.Payload.JobID() == jobID {
			out = append(out, a)
		}
	}
	return out
}

// HasPendingSubmissionForJob reports whether a production submission for the
// job is still awaiting delivery.
func (e *Engine) HasPendingSubmissionForJob(jobID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range e.queue {
		if a.Kind != KindSubmission || a.Payload.JobID() != jobID {
			continue
		}
		if a.Status == StatusQueued || a.Status == StatusSending {
			return true
		}
	}
	return false
}

// Status returns the derived status summary.
func (e *Engine) Status() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summaryLocked()
}

// Snapshot returns a copy of the current queue in creation order.
func (e *Engine) Snapshot() []Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Action(nil), e.queue...)
}

// TriggerPass starts a delivery pass on a new goroutine. It is a no-op when
// a pass is already running or the monitor reports offline, so timers and
// reconnect callbacks may invoke it freely.
func (e *Engine) TriggerPass() {
	if !e.monitor.Current() {
		return
	}
	e.mu.Lock()
	if e.passing {
		e.mu.Unlock()
		return
	}
	e.passing = true
	e.mu.Unlock()

	go e.runPass(context.Background())
}

// runPass delivers every due action sequentially. Actions enqueued after the
// pass snapshot are deferred to the next pass, which bounds pass length and
// guarantees progress.
func (e *Engine) runPass(ctx context.Context) {
	started := e.opts.Now()

	e.mu.Lock()
	due := e.dueLocked()
	e.mu.Unlock()

	e.opts.Hooks.OnPassStart(ctx, len(due))
	if len(due) > 0 {
		e.opts.Logger.Info(ctx, "delivery pass started with %d actions", len(due))
	}

	for _, id := range due {
		e.deliver(ctx, id)
	}

	e.mu.Lock()
	e.passing = false
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.bus.Publish(snap)
	e.opts.Hooks.OnPassEnd(ctx, e.opts.Now().Sub(started))
}

// dueLocked snapshots the IDs of queued actions whose backoff floor has
// elapsed, in creation order.
func (e *Engine) dueLocked() []string {
	now := e.opts.Now().UTC()
	var due []string
	for _, a := range e.queue {
		if a.Status != StatusQueued {
			continue
		}
		if a.AttemptCount > 0 && !a.LastAttemptAt.IsZero() {
			if now.Sub(a.LastAttemptAt) < e.opts.Backoff(a.AttemptCount) {
				continue
			}
		}
		due = append(due, a.ID)
	}
	return due
}

// deliver attempts one action: mark SENDING, call the remote service with
// the action ID as idempotency key, and apply the outcome.
func (e *Engine) deliver(ctx context.Context, id string) {
	e.mu.Lock()
	idx := e.indexLocked(id)
	if idx < 0 || e.queue[idx].Status != StatusQueued {
		// Removed or retried away while the pass was running.
		e.mu.Unlock()
		return
	}
	e.queue[idx].Status = StatusSending
	action := e.queue[idx]
	e.persist(ctx)
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.bus.Publish(snap)

	callCtx, cancel := context.WithTimeout(ctx, e.opts.RequestTimeout)
	_, err := e.send(callCtx, action)
	cancel()
	if err != nil {
		e.opts.Hooks.OnSendFailure(ctx, action, err)
	}

	e.mu.Lock()
	idx = e.indexLocked(id)
	if idx < 0 {
		// Removed mid-flight; drop the outcome.
		e.mu.Unlock()
		return
	}
	now := e.opts.Now().UTC()
	if err == nil {
		e.queue = append(e.queue[:idx], e.queue[idx+1:]...)
		e.persist(ctx)
		snap = e.snapshotLocked()
		e.mu.Unlock()
		e.bus.Publish(snap)
		e.opts.Hooks.OnSendSuccess(ctx, action)
		e.opts.Logger.Info(ctx, "action %s delivered (kind=%s job=%s)", action.ID, action.Kind, action.Payload.JobID())
		return
	}

	attempt := e.queue[idx].AttemptCount + 1
	e.queue[idx].AttemptCount = attempt
	e.queue[idx].Error = err.Error()
	e.queue[idx].LastAttemptAt = now
	if attempt >= e.opts.MaxAttempts {
		e.queue[idx].Status = StatusFailed
		failed := e.queue[idx]
		e.persist(ctx)
		snap = e.snapshotLocked()
		e.mu.Unlock()
		e.bus.Publish(snap)
		e.opts.Hooks.OnFail(ctx, failed, attempt, err)
		e.opts.Logger.Warn(ctx, "action %s failed permanently after %d attempts: %v", action.ID, attempt, err)
		return
	}
	e.queue[idx].Status = StatusQueued
	requeued := e.queue[idx]
	delay := e.opts.Backoff(attempt)
	e.persist(ctx)
	snap = e.snapshotLocked()
	e.mu.Unlock()
	e.bus.Publish(snap)
	e.opts.Hooks.OnRetry(ctx, requeued, attempt, delay)
	e.opts.Logger.Warn(ctx, "action %s attempt %d failed, next try in >=%s: %v", action.ID, attempt, delay, err)
}

// send dispatches on the payload variant; the compiler keeps this exhaustive
// over the closed kind set.
func (e *Engine) send(ctx context.Context, action Action) (Receipt, error) {
	switch p := action.Payload.(type) {
	case SubmissionPayload:
		return e.client.CreateSubmission(ctx, action.ID, p)
	case CommentPayload:
		return e.client.CreateComment(ctx, action.ID, p)
	case StartJobPayload:
		return e.client.StartJob(ctx, action.ID, p)
	default:
		return Receipt{}, fmt.Errorf("actionbox: unknown payload type %T", action.Payload)
	}
}

// persist saves the queue under the engine lock. A save failure is logged
// and reported but does not lose in-memory state; the queue keeps operating
// degraded until a later save succeeds.
func (e *Engine) persist(ctx context.Context) {
	if err := e.store.Save(ctx, append([]Action(nil), e.queue...)); err != nil {
		e.opts.Logger.Error(ctx, "failed to persist queue: %v", err)
		e.opts.Hooks.OnStoreError(ctx, "save", err)
	}
}

func (e *Engine) indexLocked(id string) int {
	for i := range e.queue {
		if e.queue[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) summaryLocked() Summary {
	s := Summary{
		Online:  e.monitor.Current(),
		Syncing: e.passing,
	}
	for _, a := range e.queue {
		switch a.Status {
		case StatusQueued, StatusSending:
			s.PendingCount++
		case StatusFailed:
			s.FailedCount++
		}
	}
	return s
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Actions: append([]Action(nil), e.queue...),
		Summary: e.summaryLocked(),
	}
}
