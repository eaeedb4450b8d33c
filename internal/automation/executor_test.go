package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

type sample struct {
	Channel string
	Time    time.Time
	Value   float64
}

// mockSamples records writes to provisioned channels.
type mockSamples struct {
	mu          sync.Mutex
	provisioned map[string]bool
	writes      []sample
	failures    int // fail this many writes before succeeding
}

func newMockSamples(channels ...string) *mockSamples {
	m := &mockSamples{provisioned: make(map[string]bool)}
	for _, ch := range channels {
		m.provisioned[ch] = true
	}
	return m
}

func (m *mockSamples) Has(channel string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.provisioned[channel]
}

func (m *mockSamples) Write(_ context.Context, channel string, ts time.Time, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("influx unavailable")
	}
	m.writes = append(m.writes, sample{Channel: channel, Time: ts, Value: value})
	return nil
}

func (m *mockSamples) written() []sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sample(nil), m.writes...)
}

// mockPublisher captures published commands.
type mockPublisher struct {
	mu       sync.Mutex
	commands []Command
	err      error
}

func (m *mockPublisher) PublishCommand(_ context.Context, cmd Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.commands = append(m.commands, cmd)
	return nil
}

func (m *mockPublisher) published() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Command(nil), m.commands...)
}

var fastRetry = RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestExecutor_WritesAndPublishes(t *testing.T) {
	samples := newMockSamples("fanA")
	pub := &mockPublisher{}
	x := NewExecutor(samples, pub, fastRetry, nil)

	require.NoError(t, x.Execute(t.Context(), bangBang("tempA", "fanA", 80, 1)))

	writes := samples.written()
	require.Len(t, writes, 1)
	assert.Equal(t, "fanA", writes[0].Channel)
	assert.Equal(t, 1.0, writes[0].Value)
	assert.False(t, writes[0].Time.IsZero())

	assert.Equal(t, []Command{{Source: CommandSource, Data: map[string]float64{"fanA": 1}}}, pub.published())
}

func TestExecutor_UnprovisionedChannelStillPublishes(t *testing.T) {
	samples := newMockSamples()
	pub := &mockPublisher{}
	x := NewExecutor(samples, pub, fastRetry, nil)

	require.NoError(t, x.Execute(t.Context(), bangBang("tempA", "fanA", 80, 1)))
	assert.Empty(t, samples.written())
	assert.Len(t, pub.published(), 1)
}

func TestExecutor_NilSampleWriter(t *testing.T) {
	pub := &mockPublisher{}
	x := NewExecutor(nil, pub, fastRetry, nil)

	require.NoError(t, x.Execute(t.Context(), bangBang("tempA", "fanA", 80, 1)))
	assert.Len(t, pub.published(), 1)
}

func TestExecutor_RetriesTransientWriteFailure(t *testing.T) {
	samples := newMockSamples("fanA")
	samples.failures = 2
	pub := &mockPublisher{}
	x := NewExecutor(samples, pub, fastRetry, nil)

	require.NoError(t, x.Execute(t.Context(), bangBang("tempA", "fanA", 80, 1)))
	assert.Len(t, samples.written(), 1)
}

func TestExecutor_WriteFailureDoesNotSuppressCommand(t *testing.T) {
	samples := newMockSamples("fanA")
	samples.failures = 10
	pub := &mockPublisher{}
	x := NewExecutor(samples, pub, fastRetry, nil)

	err := x.Execute(t.Context(), bangBang("tempA", "fanA", 80, 1))
	require.ErrorIs(t, err, ErrActionFailed)
	assert.Contains(t, err.Error(), "writing fanA")
	assert.Len(t, pub.published(), 1)
}

func TestExecutor_PublishFailure(t *testing.T) {
	pub := &mockPublisher{err: errors.New("not connected")}
	x := NewExecutor(newMockSamples("fanA"), pub, RetryPolicy{MaxAttempts: 1}, nil)

	err := x.Execute(t.Context(), bangBang("tempA", "fanA", 80, 1))
	require.ErrorIs(t, err, ErrActionFailed)
	assert.Contains(t, err.Error(), "publishing fanA")
}
