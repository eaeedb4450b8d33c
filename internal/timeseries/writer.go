package timeseries

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/influxdb"
)

// WriterConfig lists the channels a writer may touch and the authority it
// holds over each. Channels and Authorities are parallel slices.
type WriterConfig struct {
	Channels    []Channel
	Authorities []uint8
}

type boundChannel struct {
	channel   Channel
	index     string
	authority uint8
}

// Writer appends samples to a fixed set of channels. Every data channel's
// index channel must be bound to the same writer; the index receives the
// write timestamp.
//
// Thread Safety: Write and Close are safe for concurrent use.
type Writer struct {
	points PointWriter

	mu     sync.RWMutex
	bound  map[string]boundChannel
	closed bool
}

func newWriter(ctx context.Context, catalog *Catalog, points PointWriter, cfg WriterConfig) (*Writer, error) {
	if len(cfg.Channels) == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidWriter)
	}
	if len(cfg.Channels) != len(cfg.Authorities) {
		return nil, fmt.Errorf("%w: %d channels but %d authorities",
			ErrInvalidWriter, len(cfg.Channels), len(cfg.Authorities))
	}

	byKey := make(map[int64]Channel, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		byKey[ch.Key] = ch
	}

	bound := make(map[string]boundChannel, len(cfg.Channels))
	for i, ch := range cfg.Channels {
		if _, dup := bound[ch.Name]; dup {
			return nil, fmt.Errorf("%w: channel %s bound twice", ErrInvalidWriter, ch.Name)
		}
		bc := boundChannel{channel: ch, authority: cfg.Authorities[i]}
		if !ch.IsIndex {
			idx, ok := byKey[ch.Index]
			if !ok {
				// Not bound here; look it up only to report a useful name.
				name := fmt.Sprintf("key %d", ch.Index)
				if stored, err := catalog.Get(ctx, ch.Index); err == nil {
					name = stored.Name
				}
				return nil, fmt.Errorf("%w: index %s of %s is not bound", ErrInvalidWriter, name, ch.Name)
			}
			bc.index = idx.Name
		}
		bound[ch.Name] = bc
	}

	return &Writer{points: points, bound: bound}, nil
}

// Write appends one sample per entry of values at ts. All keys are checked
// before anything is written: unbound channels, channels without authority
// and index channels reject the whole write.
func (w *Writer) Write(ctx context.Context, ts time.Time, values map[string]float64) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrWriterClosed
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	points := make([]*write.Point, 0, len(names))
	for _, name := range names {
		bc, ok := w.bound[name]
		switch {
		case !ok:
			return fmt.Errorf("%w: %s", ErrChannelNotBound, name)
		case bc.channel.IsIndex:
			return fmt.Errorf("%w: %s", ErrIndexWrite, name)
		case bc.authority == AuthorityNone:
			return fmt.Errorf("%w: %s", ErrNoAuthority, name)
		}
		// float32 channels store the value at float32 precision
		value := float64(float32(values[name]))
		points = append(points, influxdb.NewSamplePoint(name, bc.index, ts, value))
	}

	if err := w.points.WritePoints(ctx, points...); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// Channels returns the names of the bound channels, sorted.
func (w *Writer) Channels() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	names := make([]string, 0, len(w.bound))
	for name := range w.bound {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases the writer. It is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}
