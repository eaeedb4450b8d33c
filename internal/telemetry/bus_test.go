package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/telemetry-core/internal/automation"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/mqtt"
)

// fakeBus stands in for *mqtt.Client.
type fakeBus struct {
	mu         sync.Mutex
	handler    mqtt.AckHandler
	filter     string
	subErr     error
	published  []publishedMessage
	publishErr error
}

type publishedMessage struct {
	Topic   string
	Payload string
	QoS     byte
}

func (f *fakeBus) SubscribeManual(topic string, _ byte, handler mqtt.AckHandler) error {
	if f.subErr != nil {
		return f.subErr
	}
	f.filter = topic
	f.handler = handler
	return nil
}

func (f *fakeBus) Publish(topic string, payload []byte, qos byte, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, publishedMessage{topic, string(payload), qos})
	return nil
}

func (f *fakeBus) messages() []publishedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedMessage(nil), f.published...)
}

func TestCheckTopics(t *testing.T) {
	tests := []struct {
		filter  string
		command string
		wantErr error
	}{
		{"tlm", "cmd", nil},
		{"plant/tlm/#", "plant/cmd", nil},
		{"plant/#", "plant/cmd", ErrTopicCycle},
		{"+", "cmd", ErrTopicCycle},
		{"tlm", "tlm", ErrTopicCycle},
		{"tlm/#/x", "cmd", mqtt.ErrInvalidTopic},
	}
	for _, tt := range tests {
		t.Run(tt.filter+"|"+tt.command, func(t *testing.T) {
			err := CheckTopics(tt.filter, tt.command)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSubscribeTelemetry(t *testing.T) {
	bus := &fakeBus{}
	msgs, err := SubscribeTelemetry(t.Context(), bus, "tlm", 1, 4)
	require.NoError(t, err)
	assert.Equal(t, "tlm", bus.filter)

	acked := false
	bus.handler("tlm", []byte(`{"Data":{}}`), func() { acked = true })

	msg := <-msgs
	assert.Equal(t, "tlm", msg.Topic)
	assert.JSONEq(t, `{"Data":{}}`, string(msg.Payload))
	assert.False(t, acked, "handler must not ack")
	msg.Ack()
	assert.True(t, acked)
}

func TestSubscribeTelemetry_BlockedHandlerReleasedOnCancel(t *testing.T) {
	bus := &fakeBus{}
	ctx, cancel := context.WithCancel(t.Context())
	_, err := SubscribeTelemetry(ctx, bus, "tlm", 1, 1)
	require.NoError(t, err)

	bus.handler("tlm", nil, func() {}) // fills the buffer

	done := make(chan struct{})
	go func() {
		bus.handler("tlm", nil, func() {})
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler stayed blocked after cancel")
	}
}

func TestSubscribeTelemetry_Error(t *testing.T) {
	bus := &fakeBus{subErr: mqtt.ErrNotConnected}
	_, err := SubscribeTelemetry(t.Context(), bus, "tlm", 1, 4)
	assert.ErrorIs(t, err, mqtt.ErrNotConnected)
}

func TestCommandPublisher(t *testing.T) {
	bus := &fakeBus{}
	pub := NewCommandPublisher(bus, "cmd", 1)
	pub.now = func() time.Time { return time.Unix(0, 42) }

	err := pub.PublishCommand(t.Context(), automation.Command{Source: "automation", Data: map[string]float64{"fanA": 1}})
	require.NoError(t, err)

	require.Len(t, bus.published, 1)
	assert.Equal(t, "cmd", bus.published[0].Topic)
	assert.Equal(t, byte(1), bus.published[0].QoS)
	assert.JSONEq(t, `{"Source":"automation","Time Stamp":"42","Data":{"fanA":1}}`, bus.published[0].Payload)
}

func TestCommandPublisher_Errors(t *testing.T) {
	bus := &fakeBus{publishErr: mqtt.ErrPublishFailed}
	pub := NewCommandPublisher(bus, "cmd", 1)

	err := pub.PublishCommand(t.Context(), automation.Command{Source: "a", Data: map[string]float64{"x": 1}})
	assert.ErrorIs(t, err, mqtt.ErrPublishFailed)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err = pub.PublishCommand(ctx, automation.Command{})
	assert.True(t, errors.Is(err, context.Canceled))
}
