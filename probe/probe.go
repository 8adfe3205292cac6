// Package probe provides a connectivity monitor that derives online state
// from periodic HTTP reachability checks against the job service.
package probe

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"
)

// Monitor polls a reachability URL and reports online/offline transitions.
// It implements actionbox.Monitor.
type Monitor struct {
	url      string
	interval time.Duration
	client   *http.Client

	mu     sync.Mutex
	online bool
	known  bool
	nextID int
	subs   map[int]func(bool)
	stop   chan struct{}
	done   chan struct{}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval overrides the default probe interval (15s).
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithHTTPClient overrides the probe HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Monitor) {
		if client != nil {
			m.client = client
		}
	}
}

// New creates a monitor probing the given URL. Call Start to begin polling.
func New(url string, opts ...Option) *Monitor {
	m := &Monitor{
		url:      url,
		interval: 15 * time.Second,
		client:   &http.Client{Timeout: 5 * time.Second},
		subs:     make(map[int]func(bool)),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start probes once synchronously to seed the state, then polls in the
// background until Close.
func (m *Monitor) Start(ctx context.Context) {
	m.observe(m.check(ctx))
	go m.loop()
}

// Close stops the polling loop.
func (m *Monitor) Close() {
	close(m.stop)
	<-m.done
}

// Current implements actionbox.Monitor.
func (m *Monitor) Current() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe implements actionbox.Monitor.
func (m *Monitor) Subscribe(fn func(online bool)) (cancel func()) {
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

func (m *Monitor) loop() {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.observe(m.check(context.Background()))
		}
	}
}

// check reports whether the reachability URL answered at all. Any HTTP
// status counts as online; only transport errors count as offline.
func (m *Monitor) check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
	_ = resp.Body.Close()
	return true
}

// observe records the probe result and notifies subscribers on transitions.
func (m *Monitor) observe(online bool) {
	m.mu.Lock()
	if m.known && m.online == online {
		m.mu.Unlock()
		return
	}
	m.known = true
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
