package timeseries

import (
	"context"
	"time"
)

// Streamer delivers new samples of a set of channels as a lazy, unbounded
// sequence of frames. It polls the sample store and remembers the newest
// sample time it has delivered for each channel, so a Streamer can be
// re-read after a failed Next without repeating samples. Each poll asks
// only for samples from the newest time seen on any channel onwards, so a
// silent channel does not hold the query window open.
//
// A Streamer is not safe for concurrent use.
type Streamer struct {
	samples  SampleQuerier
	channels []string
	interval time.Duration
	start    time.Time
	newest   time.Time
	last     map[string]time.Time
}

func newStreamer(samples SampleQuerier, channels []string, interval time.Duration, start time.Time) *Streamer {
	return &Streamer{
		samples:  samples,
		channels: append([]string(nil), channels...),
		interval: interval,
		start:    start,
		last:     make(map[string]time.Time, len(channels)),
	}
}

// Next blocks until at least one channel has a sample newer than the last
// one delivered for it, or ctx is done, or the store returns an error.
// The frame holds the latest new sample of each channel that advanced.
func (s *Streamer) Next(ctx context.Context) (Frame, error) {
	for {
		frame, err := s.poll(ctx)
		if err != nil {
			return nil, err
		}
		if len(frame) > 0 {
			return frame, nil
		}

		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Streamer) poll(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	samples, err := s.samples.QuerySamples(ctx, s.channels, s.cursor())
	if err != nil {
		return nil, err
	}

	frame := make(Frame)
	for _, smp := range samples {
		if last, ok := s.last[smp.Channel]; ok && !smp.Time.After(last) {
			continue
		}
		if cur, ok := frame[smp.Channel]; ok && !smp.Time.After(cur.Time) {
			continue
		}
		frame[smp.Channel] = Sample{Value: smp.Value, Time: smp.Time}
	}
	for name, smp := range frame {
		s.last[name] = smp.Time
		if smp.Time.After(s.newest) {
			s.newest = smp.Time
		}
	}
	return frame, nil
}

// cursor is the query window start: start until a sample has been seen,
// then just before the newest sample time seen on any channel. The
// nanosecond of overlap keeps a sample that shares that timestamp on
// another channel; per-channel last times drop the repeats.
func (s *Streamer) cursor() time.Time {
	if !s.newest.After(s.start) {
		return s.start
	}
	return s.newest.Add(-time.Nanosecond)
}
