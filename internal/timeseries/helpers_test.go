package timeseries

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/database"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/telemetry-core/migrations"
)

// ─── Mock Dependencies ──────────────────────────────────────────────────────

// mockPoints records written points.
type mockPoints struct {
	mu     sync.Mutex
	points []*write.Point
	err    error
}

func (m *mockPoints) WritePoints(_ context.Context, points ...*write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.points = append(m.points, points...)
	return nil
}

func (m *mockPoints) written() []*write.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*write.Point(nil), m.points...)
}

// mockQuerier serves samples from memory, honouring the since cursor.
type mockQuerier struct {
	mu      sync.Mutex
	samples []influxdb.Sample
	errs    []error // returned, one per call, before serving samples
	calls   int
	since   time.Time // cursor of the latest call
}

func (m *mockQuerier) add(channel string, ts time.Time, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, influxdb.Sample{Channel: channel, Time: ts, Value: value})
}

func (m *mockQuerier) QuerySamples(_ context.Context, channels []string, since time.Time) ([]influxdb.Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.since = since
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}

	want := make(map[string]bool, len(channels))
	for _, ch := range channels {
		want[ch] = true
	}
	var out []influxdb.Sample
	for _, s := range m.samples {
		if want[s.Channel] && s.Time.After(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

var errStore = errors.New("store unavailable")

// setupService returns a Service over a migrated temp SQLite catalogue.
func setupService(t *testing.T, points PointWriter, samples SampleQuerier) *Service {
	t.Helper()

	db, err := database.Open(t.Context(), config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "ts.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	require.NoError(t, db.Migrate(t.Context(), migrations.FS))

	return NewService(NewCatalog(db.DB), points, samples, config.TimeSeriesConfig{
		StreamPollIntervalMS: 5,
	}, nil)
}

func pointTags(p *write.Point) map[string]string {
	tags := make(map[string]string)
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	return tags
}

func pointValue(p *write.Point) any {
	for _, f := range p.FieldList() {
		if f.Key == influxdb.SampleField {
			return f.Value
		}
	}
	return nil
}
