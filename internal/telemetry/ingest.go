package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/telemetry-core/internal/automation"
)

// Message is one received telemetry packet. Ack must be called exactly once,
// after the packet has been processed.
type Message struct {
	Topic   string
	Payload []byte
	Ack     func()
}

// ValueHandler reacts to a new channel value. *automation.Engine satisfies it.
type ValueHandler interface {
	HandleValue(ctx context.Context, channel string, previous automation.Reading, current float64) error
}

// Logger defines the logging interface used by the telemetry loops.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Ingestor consumes telemetry. For every numeric value, in channel order, it
// updates the tracker, appends a sample when the channel is provisioned, and
// hands the transition to the rule engine.
//
// A single Ingestor must be driven by one goroutine; the previous-value
// bookkeeping relies on messages being processed in arrival order.
type Ingestor struct {
	tracker *automation.Tracker
	samples automation.SampleWriter
	handler ValueHandler
	metrics *Metrics
	logger  Logger
	now     func() time.Time
}

// NewIngestor creates an ingestor. samples may be nil when no time-series
// store is configured.
func NewIngestor(tracker *automation.Tracker, samples automation.SampleWriter, handler ValueHandler, metrics *Metrics, logger Logger) *Ingestor {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Ingestor{
		tracker: tracker,
		samples: samples,
		handler: handler,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Run processes messages until ctx is done or msgs is closed. Every message
// is acknowledged after processing, malformed ones included.
func (i *Ingestor) Run(ctx context.Context, msgs <-chan Message) error {
	i.logger.Info("telemetry ingest started")
	defer i.logger.Info("telemetry ingest stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			i.handle(ctx, msg)
		}
	}
}

func (i *Ingestor) handle(ctx context.Context, msg Message) {
	if msg.Ack != nil {
		defer msg.Ack()
	}

	err := i.Process(ctx, msg.Payload)
	switch {
	case err == nil:
		i.metrics.message("processed")
	case errors.Is(err, ErrMalformedMessage):
		i.metrics.message("malformed")
		i.logger.Warn("dropping malformed telemetry", "topic", msg.Topic, "error", err)
	default:
		i.metrics.message("failed")
		i.logger.Error("telemetry processing failed", "topic", msg.Topic, "error", err)
	}
}

// Process handles one telemetry payload. It returns an error wrapping
// ErrMalformedMessage for payloads that are not envelopes. Per-value sample
// write failures are logged and do not stop rule evaluation.
func (i *Ingestor) Process(ctx context.Context, payload []byte) error {
	env, err := DecodeEnvelope(payload)
	if err != nil {
		return err
	}

	values, skipped := env.Values()
	for _, key := range skipped {
		i.metrics.skippedValue()
		i.logger.Warn("skipping non-numeric telemetry value", "channel", key, "source", env.Source)
	}

	ts := i.now()
	for _, v := range values {
		i.metrics.value()
		previous := i.tracker.Swap(v.Channel, v.Value)

		if i.samples != nil && i.samples.Has(v.Channel) {
			if err := i.samples.Write(ctx, v.Channel, ts, v.Value); err != nil {
				i.metrics.writeFailed()
				i.logger.Error("sample write failed", "channel", v.Channel, "error", err)
			}
		}

		if err := i.handler.HandleValue(ctx, v.Channel, previous, v.Value); err != nil {
			return err
		}
	}
	return nil
}
