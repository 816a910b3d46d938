// Package metrics holds the daemon's own in-process telemetry: per-command
// request and error counts, and connection counts, matching the ambient
// stack's own hand-rolled style rather than pulling in a metrics library
// the rest of the corpus doesn't otherwise reach for (see DESIGN.md).
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds counters for the daemon's connection governor and command
// handling path (§4.4: "per-daemon metrics (request counts, per-command-kind
// error counts, connection counts)").
type Metrics struct {
	mu sync.RWMutex

	commandCounts map[string]int64
	commandErrors map[string]int64

	activeConnections   int64
	totalConnections    int64
	rejectedConnections int64

	startTime time.Time
	ready     atomic.Bool
}

// New creates an empty Metrics collector.
func New() *Metrics {
	return &Metrics{
		commandCounts: make(map[string]int64),
		commandErrors: make(map[string]int64),
		startTime:     time.Now(),
	}
}

// RecordCommand records one handled command of the given kind, and whether
// World.Apply rejected it.
func (m *Metrics) RecordCommand(kind string, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commandCounts[kind]++
	if failed {
		m.commandErrors[kind]++
	}
}

// ConnectionAccepted records a session being admitted past the connection
// governor.
func (m *Metrics) ConnectionAccepted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeConnections++
	m.totalConnections++
}

// ConnectionClosed records a session ending.
func (m *Metrics) ConnectionClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeConnections--
}

// ConnectionRejected records the connection governor turning away a
// connection because the daemon is already at max_connections.
func (m *Metrics) ConnectionRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectedConnections++
}

// SetReady flips the readiness flag the /readyz endpoint reports. The
// daemon calls this once the World has been loaded from the save file and
// default seeding has run — distinct from /healthz, which only reports
// that the process is alive.
func (m *Metrics) SetReady(ready bool) {
	m.ready.Store(ready)
}

// Ready reports whether the World is loaded and the daemon is ready to
// accept sessions.
func (m *Metrics) Ready() bool {
	return m.ready.Load()
}

// Snapshot is a point-in-time, JSON-friendly copy of every counter, for the
// /metrics HTTP endpoint.
type Snapshot struct {
	UptimeSeconds       float64          `json:"uptime_seconds"`
	ActiveConnections   int64            `json:"active_connections"`
	TotalConnections    int64            `json:"total_connections"`
	RejectedConnections int64            `json:"rejected_connections"`
	CommandCounts       map[string]int64 `json:"command_counts"`
	CommandErrors       map[string]int64 `json:"command_errors"`
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int64, len(m.commandCounts))
	for k, v := range m.commandCounts {
		counts[k] = v
	}
	errs := make(map[string]int64, len(m.commandErrors))
	for k, v := range m.commandErrors {
		errs[k] = v
	}

	return Snapshot{
		UptimeSeconds:       time.Since(m.startTime).Seconds(),
		ActiveConnections:   m.activeConnections,
		TotalConnections:    m.totalConnections,
		RejectedConnections: m.rejectedConnections,
		CommandCounts:       counts,
		CommandErrors:       errs,
	}
}
