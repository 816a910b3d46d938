package session

import "golang.org/x/sync/semaphore"

// Governor bounds the number of concurrently served sessions. Excess
// connections are rejected immediately, never queued — §4.4's "no
// back-pressure beyond a bounded broadcast buffer" applies to connection
// admission too.
type Governor struct {
	sem *semaphore.Weighted
}

// NewGovernor returns a Governor admitting at most maxConnections
// concurrent sessions.
func NewGovernor(maxConnections int) *Governor {
	return &Governor{sem: semaphore.NewWeighted(int64(maxConnections))}
}

// TryAcquire attempts to admit one session, returning false immediately if
// the daemon is already at max_connections.
func (g *Governor) TryAcquire() bool {
	return g.sem.TryAcquire(1)
}

// Release frees one slot, to be called when a session ends.
func (g *Governor) Release() {
	g.sem.Release(1)
}
