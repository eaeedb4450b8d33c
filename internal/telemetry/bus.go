package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/telemetry-core/internal/automation"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/mqtt"
)

// Subscriber is the subset of *mqtt.Client the ingest subscription needs.
type Subscriber interface {
	SubscribeManual(topic string, qos byte, handler mqtt.AckHandler) error
}

// Publisher is the subset of *mqtt.Client the command publisher needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// CheckTopics rejects a command topic that the telemetry filter would
// receive, which would feed the core's own commands back into ingest.
func CheckTopics(telemetryFilter, commandTopic string) error {
	if err := mqtt.ValidateFilter(telemetryFilter); err != nil {
		return fmt.Errorf("telemetry filter %q: %w", telemetryFilter, err)
	}
	if mqtt.MatchTopic(telemetryFilter, commandTopic) {
		return fmt.Errorf("%w: %q receives %q", ErrTopicCycle, telemetryFilter, commandTopic)
	}
	return nil
}

// SubscribeTelemetry subscribes to filter with manual acknowledgement and
// returns the channel the messages are delivered on. The subscription
// handler only enqueues; a full buffer blocks delivery until the ingest loop
// catches up or ctx is done. Messages dropped at shutdown are never acked,
// so the broker redelivers them to a persistent session.
func SubscribeTelemetry(ctx context.Context, sub Subscriber, filter string, qos byte, buffer int) (<-chan Message, error) {
	msgs := make(chan Message, max(buffer, 1))

	handler := func(topic string, payload []byte, ack func()) {
		msg := Message{Topic: topic, Payload: payload, Ack: ack}
		select {
		case msgs <- msg:
		case <-ctx.Done():
		}
	}

	if err := sub.SubscribeManual(filter, qos, handler); err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", filter, err)
	}
	return msgs, nil
}

// CommandPublisher publishes automation and feedback commands as envelopes
// on the command topic.
type CommandPublisher struct {
	client Publisher
	topic  string
	qos    byte
	now    func() time.Time
}

// NewCommandPublisher creates a publisher for topic.
func NewCommandPublisher(client Publisher, topic string, qos byte) *CommandPublisher {
	return &CommandPublisher{client: client, topic: topic, qos: qos, now: time.Now}
}

// PublishCommand encodes cmd with a nanosecond Time Stamp and publishes it.
func (p *CommandPublisher) PublishCommand(ctx context.Context, cmd automation.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := EncodeCommand(cmd.Source, p.now(), cmd.Data)
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}
	return p.client.Publish(p.topic, payload, p.qos, false)
}
