package timeseries

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Bindings maps provisioned telemetry channel ids to their writers.
//
// Thread Safety: all methods are safe for concurrent use.
type Bindings struct {
	mu       sync.RWMutex
	writers  map[string]*Writer
	feedback []string
}

func newBindings() *Bindings {
	return &Bindings{writers: make(map[string]*Writer)}
}

func (b *Bindings) bind(id string, w *Writer, feedback bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.writers[id] = w
	if feedback {
		b.feedback = append(b.feedback, id+FeedbackSuffix)
		sort.Strings(b.feedback)
	}
}

// Write appends value to channel at ts.
func (b *Bindings) Write(ctx context.Context, channel string, ts time.Time, value float64) error {
	b.mu.RLock()
	w, ok := b.writers[channel]
	b.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}
	return w.Write(ctx, ts, map[string]float64{channel: value})
}

// Has reports whether channel was provisioned.
func (b *Bindings) Has(channel string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.writers[channel]
	return ok
}

// Channels returns the provisioned channel ids, sorted.
func (b *Bindings) Channels() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]string, 0, len(b.writers))
	for id := range b.writers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FeedbackChannels returns the feedback channel names of all control
// channels, sorted.
func (b *Bindings) FeedbackChannels() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.feedback...)
}

// Close closes every writer.
func (b *Bindings) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for id, w := range b.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing writer %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// ControlID strips the feedback suffix from a feedback channel name.
func ControlID(feedbackChannel string) (string, bool) {
	id, ok := strings.CutSuffix(feedbackChannel, FeedbackSuffix)
	return id, ok && id != ""
}
