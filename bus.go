package actionbox

import "sync"

// Summary is the derived status view of the outbox, never stored.
type Summary struct {
	// Online mirrors the connectivity monitor.
	Online bool
	// Syncing is true while a delivery pass is running.
	Syncing bool
	// PendingCount is the number of QUEUED and SENDING actions.
	PendingCount int
	// FailedCount is the number of FAILED actions.
	FailedCount int
}

// Snapshot is what subscribers receive after every queue mutation.
type Snapshot struct {
	Actions []Action
	Summary Summary
}

// Bus broadcasts queue snapshots to registered subscribers. Delivery is
// synchronous and last-value-wins; the queue itself is the source of truth,
// so a late subscriber just reads the current snapshot on registration.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Snapshot)
	last   Snapshot
	primed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Snapshot))}
}

// Subscribe registers a callback and immediately delivers the latest
// snapshot, if one was published. The returned cancel function removes the
// subscription.
func (b *Bus) Subscribe(fn func(Snapshot)) (cancel func()) {
	cancel, last, primed := b.add(fn)
	if primed {
		fn(last)
	}
	return cancel
}

// add registers a callback without priming it.
func (b *Bus) add(fn func(Snapshot)) (cancel func(), last Snapshot, primed bool) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	last, primed = b.last, b.primed
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}, last, primed
}

// Publish delivers the snapshot to all current subscribers.
func (b *Bus) Publish(snap Snapshot) {
	b.mu.Lock()
	b.last = snap
	b.primed = true
	fns := make([]func(Snapshot), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
