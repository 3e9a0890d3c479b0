package nav

import (
	"sync"
	"time"
)

// StatusTracker retains the latest tick status for the presentation surfaces
// (HTTP handlers, MQTT publisher). It is the single consumer of a runner's
// status channel; the worker never reads back from it.
type StatusTracker struct {
	mu        sync.RWMutex
	latest    *StatusUpdate
	ticks     uint64
	startedAt time.Time
}

// NewStatusTracker creates an empty tracker.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{startedAt: time.Now()}
}

// Consume drains the channel until it closes, retaining the newest update.
// Run it on its own goroutine.
func (t *StatusTracker) Consume(ch <-chan StatusUpdate) {
	for update := range ch {
		t.Set(update)
	}
}

// Set stores an update as the latest.
func (t *StatusTracker) Set(update StatusUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest = &update
	t.ticks++
}

// Latest returns the most recent update, or false when none arrived yet.
func (t *StatusTracker) Latest() (StatusUpdate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.latest == nil {
		return StatusUpdate{}, false
	}
	return *t.latest, true
}

// Ticks returns the number of updates consumed.
func (t *StatusTracker) Ticks() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ticks
}

// Uptime returns the time since the tracker was created.
func (t *StatusTracker) Uptime() time.Duration {
	return time.Since(t.startedAt)
}
