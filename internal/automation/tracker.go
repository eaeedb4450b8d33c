package automation

import "sync"

// Tracker holds the last value seen on each channel. Entries are created on
// first sight and never removed.
//
// Thread Safety: all methods are safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	values map[string]float64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{values: make(map[string]float64)}
}

// Swap records value for channel and returns the reading it replaced.
func (t *Tracker) Swap(channel string, value float64) Reading {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.values[channel]
	t.values[channel] = value
	return Reading{Value: prev, Known: ok}
}

// Get returns the last reading for channel.
func (t *Tracker) Get(channel string) Reading {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v, ok := t.values[channel]
	return Reading{Value: v, Known: ok}
}

// Snapshot returns a copy of all tracked values.
func (t *Tracker) Snapshot() map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]float64, len(t.values))
	for k, v := range t.values {
		out[k] = v
	}
	return out
}

// Len returns the number of tracked channels.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.values)
}
