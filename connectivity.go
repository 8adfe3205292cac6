package actionbox

import "sync"

// Monitor reports network reachability and notifies on change. The engine
// only needs a boolean plus an edge-triggered callback.
type Monitor interface {
	// Current returns the latest known online state.
	Current() bool
	// Subscribe registers a callback invoked on every state change and
	// returns a cancel function removing it.
	Subscribe(fn func(online bool)) (cancel func())
}

// ManualMonitor is a Monitor driven by explicit SetOnline calls. It backs
// tests and UI-level airplane-mode toggles.
type ManualMonitor struct {
	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(bool)
}

// NewManualMonitor creates a monitor with the given initial state.
func NewManualMonitor(online bool) *ManualMonitor {
	return &ManualMonitor{
		online: online,
		subs:   make(map[int]func(bool)),
	}
}

// Current implements Monitor.
func (m *ManualMonitor) Current() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe implements Monitor.
func (m *ManualMonitor) Subscribe(fn func(online bool)) (cancel func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// SetOnline updates the state and notifies subscribers when it changed.
func (m *ManualMonitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	fns := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
}
