package timeseries

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamer_DeliversLatestNewSamples(t *testing.T) {
	q := &mockQuerier{}
	base := time.Now()
	q.add("valveC-F", base.Add(time.Millisecond), 1)
	q.add("valveC-F", base.Add(2*time.Millisecond), 0)
	q.add("pumpB-F", base.Add(time.Millisecond), 5)
	q.add("tempA", base.Add(time.Millisecond), 99)

	s := newStreamer(q, []string{"valveC-F", "pumpB-F"}, time.Millisecond, base)

	frame, err := s.Next(t.Context())
	require.NoError(t, err)
	assert.Equal(t, Frame{
		"valveC-F": {Value: 0, Time: base.Add(2 * time.Millisecond)},
		"pumpB-F":  {Value: 5, Time: base.Add(time.Millisecond)},
	}, frame)

	q.add("pumpB-F", base.Add(3*time.Millisecond), 6)
	frame, err = s.Next(t.Context())
	require.NoError(t, err)
	assert.Equal(t, Frame{"pumpB-F": {Value: 6, Time: base.Add(3 * time.Millisecond)}}, frame)
}

func TestStreamer_IgnoresSamplesBeforeStart(t *testing.T) {
	q := &mockQuerier{}
	start := time.Now()
	q.add("valveC-F", start.Add(-time.Second), 1)

	s := newStreamer(q, []string{"valveC-F"}, time.Millisecond, start)

	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Millisecond)
	defer cancel()
	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStreamer_ErrorDoesNotLoseCursor(t *testing.T) {
	q := &mockQuerier{}
	base := time.Now()
	q.add("valveC-F", base.Add(time.Millisecond), 1)

	s := newStreamer(q, []string{"valveC-F"}, time.Millisecond, base)
	_, err := s.Next(t.Context())
	require.NoError(t, err)

	q.errs = []error{errStore}
	_, err = s.Next(t.Context())
	require.ErrorIs(t, err, errStore)

	q.add("valveC-F", base.Add(2*time.Millisecond), 0)
	frame, err := s.Next(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0.0, frame["valveC-F"].Value)
}

func TestService_OpenStreamerUsesLookback(t *testing.T) {
	q := &mockQuerier{}
	svc := setupService(t, &mockPoints{}, q)
	q.add("valveC-F", time.Now().Add(-time.Second), 1)

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()

	// default test service has a zero lookback
	svc.lookback = 2 * time.Second
	frame, err := svc.OpenStreamer([]string{"valveC-F"}).Next(ctx)
	require.NoError(t, err)
	assert.Contains(t, frame, "valveC-F")
}

func TestStreamer_SilentChannelDoesNotPinCursor(t *testing.T) {
	q := &mockQuerier{}
	start := time.Now()
	s := newStreamer(q, []string{"valveC-F", "pumpB-F"}, time.Millisecond, start)

	for i := 1; i <= 3; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		q.add("valveC-F", ts, float64(i))

		frame, err := s.Next(t.Context())
		require.NoError(t, err)
		assert.Equal(t, Frame{"valveC-F": {Value: float64(i), Time: ts}}, frame)
		assert.True(t, s.cursor().After(start.Add(time.Duration(i)*time.Hour-time.Second)), "cursor stuck at %s", s.cursor().Sub(start))
	}

	// the last query started at the second sample, not at start
	assert.True(t, q.since.Equal(start.Add(2*time.Hour-time.Nanosecond)), "since %s", q.since.Sub(start))

	// a late first sample on the silent channel is still delivered
	late := start.Add(3*time.Hour + time.Millisecond)
	q.add("pumpB-F", late, 7)
	frame, err := s.Next(t.Context())
	require.NoError(t, err)
	assert.Equal(t, Frame{"pumpB-F": {Value: 7, Time: late}}, frame)
}

func TestStreamer_SameTimestampAcrossChannels(t *testing.T) {
	q := &mockQuerier{}
	start := time.Now()
	ts := start.Add(time.Second)
	s := newStreamer(q, []string{"valveC-F", "pumpB-F"}, time.Millisecond, start)

	q.add("valveC-F", ts, 1)
	_, err := s.Next(t.Context())
	require.NoError(t, err)

	q.add("pumpB-F", ts, 2)
	frame, err := s.Next(t.Context())
	require.NoError(t, err)
	assert.Equal(t, Frame{"pumpB-F": {Value: 2, Time: ts}}, frame)
}
