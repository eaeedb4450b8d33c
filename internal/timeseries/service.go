package timeseries

import (
	"context"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/influxdb"
)

// PointWriter is the sample sink. *influxdb.Client satisfies it.
type PointWriter interface {
	WritePoints(ctx context.Context, points ...*write.Point) error
}

// SampleQuerier reads samples back. *influxdb.Client satisfies it.
type SampleQuerier interface {
	QuerySamples(ctx context.Context, channels []string, since time.Time) ([]influxdb.Sample, error)
}

// Logger defines the logging interface used by the time-series layer.
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

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultLookback     = 5 * time.Second
)

// Service is the entry point to the time-series store: the channel
// catalogue plus writers and streamers over the sample store.
type Service struct {
	catalog      *Catalog
	points       PointWriter
	samples      SampleQuerier
	pollInterval time.Duration
	lookback     time.Duration
	logger       Logger
}

// NewService creates a time-series service.
func NewService(catalog *Catalog, points PointWriter, samples SampleQuerier, cfg config.TimeSeriesConfig, logger Logger) *Service {
	if logger == nil {
		logger = noopLogger{}
	}
	poll := time.Duration(cfg.StreamPollIntervalMS) * time.Millisecond
	if poll <= 0 {
		poll = defaultPollInterval
	}
	lookback := time.Duration(cfg.StreamLookbackSeconds) * time.Second
	if lookback < 0 {
		lookback = defaultLookback
	}
	return &Service{
		catalog:      catalog,
		points:       points,
		samples:      samples,
		pollInterval: poll,
		lookback:     lookback,
		logger:       logger,
	}
}

// CreateChannel creates a channel or retrieves the existing one with the
// same name. See Catalog.Create.
func (s *Service) CreateChannel(ctx context.Context, spec ChannelSpec) (Channel, error) {
	return s.catalog.Create(ctx, spec)
}

// Channels lists the catalogued channels.
func (s *Service) Channels(ctx context.Context) ([]Channel, error) {
	return s.catalog.List(ctx)
}

// OpenWriter opens an append-only writer over cfg.Channels.
func (s *Service) OpenWriter(ctx context.Context, cfg WriterConfig) (*Writer, error) {
	return newWriter(ctx, s.catalog, s.points, cfg)
}

// OpenStreamer opens a streamer delivering new samples of the named channels.
func (s *Service) OpenStreamer(channels []string) *Streamer {
	return newStreamer(s.samples, channels, s.pollInterval, time.Now().Add(-s.lookback))
}
