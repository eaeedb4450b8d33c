package telemetry

import (
	"context"
	"sort"
	"time"

	"github.com/nerrad567/telemetry-core/internal/automation"
	"github.com/nerrad567/telemetry-core/internal/timeseries"
)

// EventFeedbackForwarded is broadcast for every republished feedback value.
const EventFeedbackForwarded = "feedback.forwarded"

// FrameStream is a lazy sequence of sample frames. *timeseries.Streamer
// satisfies it.
type FrameStream interface {
	Next(ctx context.Context) (timeseries.Frame, error)
}

// StreamOpener opens a stream over the named channels.
type StreamOpener func(channels []string) FrameStream

// FeedbackConfig configures a FeedbackLoop.
type FeedbackConfig struct {
	// Channels are the feedback channel names (<id>-F) to stream.
	Channels []string

	// Source is written into forwarded commands.
	Source string

	// ReconnectDelay is the pause before a failed stream is reopened.
	ReconnectDelay time.Duration

	// Retry bounds publish attempts per forwarded value.
	Retry automation.RetryPolicy
}

// FeedbackLoop streams operator-written feedback channels and republishes
// each new value as a command for the matching control id. It never reads
// the telemetry subscription, so forwarded commands cannot re-enter ingest.
type FeedbackLoop struct {
	open      StreamOpener
	publisher automation.CommandPublisher
	cfg       FeedbackConfig
	hub       automation.WSHub
	metrics   *Metrics
	logger    Logger

	// newest forwarded sample per feedback channel; Run is single-goroutine
	last map[string]time.Time
}

// NewFeedbackLoop creates a feedback loop. hub and metrics may be nil.
func NewFeedbackLoop(open StreamOpener, publisher automation.CommandPublisher, cfg FeedbackConfig, hub automation.WSHub, metrics *Metrics, logger Logger) *FeedbackLoop {
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	return &FeedbackLoop{
		open:      open,
		publisher: publisher,
		cfg:       cfg,
		hub:       hub,
		metrics:   metrics,
		logger:    logger,
		last:      make(map[string]time.Time),
	}
}

// Run streams until ctx is done. Stream errors are logged and the stream is
// reopened after ReconnectDelay. Run returns nil immediately when there are
// no feedback channels.
func (f *FeedbackLoop) Run(ctx context.Context) error {
	if len(f.cfg.Channels) == 0 {
		f.logger.Info("no feedback channels provisioned, feedback loop idle")
		return nil
	}

	f.logger.Info("feedback loop started", "channels", len(f.cfg.Channels))
	defer f.logger.Info("feedback loop stopped")

	for {
		err := f.forward(ctx, f.open(f.cfg.Channels))
		if ctx.Err() != nil {
			return nil
		}

		f.metrics.reconnect()
		f.logger.Warn("feedback stream failed, reopening",
			"error", err,
			"delay", f.cfg.ReconnectDelay,
		)

		timer := time.NewTimer(f.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (f *FeedbackLoop) forward(ctx context.Context, stream FrameStream) error {
	for {
		frame, err := stream.Next(ctx)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(frame))
		for name := range frame {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			f.forwardSample(ctx, name, frame[name])
		}
	}
}

func (f *FeedbackLoop) forwardSample(ctx context.Context, channel string, sample timeseries.Sample) {
	id, ok := timeseries.ControlID(channel)
	if !ok {
		f.logger.Debug("ignoring non-feedback channel in stream", "channel", channel)
		return
	}

	if last, seen := f.last[channel]; seen && !sample.Time.After(last) {
		f.metrics.duplicate()
		return
	}
	f.last[channel] = sample.Time

	cmd := automation.Command{
		Source: f.cfg.Source,
		Data:   map[string]float64{id: sample.Value},
	}
	err := f.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		return f.publisher.PublishCommand(ctx, cmd)
	})
	if err != nil {
		f.metrics.publishFailed()
		f.logger.Error("feedback publish failed", "channel", id, "error", err)
		return
	}

	f.metrics.forwarded()
	f.logger.Debug("feedback forwarded", "channel", id, "value", sample.Value)
	if f.hub != nil {
		f.hub.Broadcast(EventFeedbackForwarded, map[string]any{
			"channel": id,
			"value":   sample.Value,
			"time":    sample.Time,
		})
	}
}
