package influxdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSampleQuery(t *testing.T) {
	since := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)

	q := buildSampleQuery("telemetry", []string{"valveC-F", `odd"name`}, since)

	assert.Contains(t, q, `from(bucket: "telemetry")`)
	assert.Contains(t, q, `range(start: time(v: "2026-03-01T12:00:00.0000005Z"))`)
	assert.Contains(t, q, `r._measurement == "channel_samples" and r._field == "value"`)
	assert.Contains(t, q, `set: ["valveC-F", "odd\"name"]`)
	assert.Contains(t, q, `sort(columns: ["_time"])`)
}

func TestNewSamplePoint(t *testing.T) {
	ts := time.Unix(0, 1700000000000000000)

	p := NewSamplePoint("tempA", "tempA-T", ts, 21.5)

	assert.Equal(t, SampleMeasurement, p.Name())
	assert.Equal(t, ts, p.Time())

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"channel": "tempA", "index": "tempA-T"}, tags)

	fields := p.FieldList()
	require.Len(t, fields, 1)
	assert.Equal(t, "value", fields[0].Key)
	assert.Equal(t, 21.5, fields[0].Value)
}
