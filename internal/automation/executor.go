package automation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// CommandSource is the Command source for rule-driven commands.
const CommandSource = "automation"

// SampleWriter persists channel samples.
type SampleWriter interface {
	// Has reports whether channel has a provisioned writer.
	Has(channel string) bool

	// Write appends one timestamped sample to channel.
	Write(ctx context.Context, channel string, ts time.Time, value float64) error
}

// CommandPublisher sends commands to the outbound bus.
type CommandPublisher interface {
	PublishCommand(ctx context.Context, cmd Command) error
}

// Executor carries out a fired rule: a sample write to the do channel and a
// command on the bus. Each step is retried according to the retry policy.
type Executor struct {
	samples   SampleWriter
	publisher CommandPublisher
	retry     RetryPolicy
	logger    Logger
	now       func() time.Time
}

// NewExecutor creates an executor. samples may be nil when no time-series
// store is configured; the write step is then skipped.
func NewExecutor(samples SampleWriter, publisher CommandPublisher, retry RetryPolicy, logger Logger) *Executor {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Executor{
		samples:   samples,
		publisher: publisher,
		retry:     retry,
		logger:    logger,
		now:       time.Now,
	}
}

// Execute performs the rule's action. Both steps are always attempted; a
// failed write does not suppress the command. Failures are returned joined
// and wrapped in ErrActionFailed.
func (x *Executor) Execute(ctx context.Context, rule Rule) error {
	ts := x.now()
	var errs []error

	if x.samples != nil && x.samples.Has(rule.Do) {
		err := x.retry.Do(ctx, func(ctx context.Context) error {
			return x.samples.Write(ctx, rule.Do, ts, rule.DoValue)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("writing %s: %w", rule.Do, err))
		}
	} else {
		x.logger.Debug("action channel not provisioned, skipping write", "channel", rule.Do)
	}

	cmd := Command{
		Source: CommandSource,
		Data:   map[string]float64{rule.Do: rule.DoValue},
	}
	err := x.retry.Do(ctx, func(ctx context.Context) error {
		return x.publisher.PublishCommand(ctx, cmd)
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("publishing %s: %w", rule.Do, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrActionFailed, errors.Join(errs...))
	}
	return nil
}
