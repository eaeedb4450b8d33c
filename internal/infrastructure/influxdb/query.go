package influxdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sample is a single channel value read back from the sample measurement.
type Sample struct {
	Channel string
	Time    time.Time
	Value   float64
}

// QuerySamples returns samples of the given channels strictly newer than
// since, oldest first.
func (c *Client) QuerySamples(ctx context.Context, channels []string, since time.Time) ([]Sample, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	if len(channels) == 0 {
		return nil, nil
	}

	result, err := c.queryAPI.Query(ctx, buildSampleQuery(c.cfg.Bucket, channels, since))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer result.Close()

	var samples []Sample
	for result.Next() {
		rec := result.Record()
		if !rec.Time().After(since) {
			continue
		}
		value, ok := rec.Value().(float64)
		if !ok {
			continue
		}
		channel, _ := rec.ValueByKey(SampleTagChannel).(string)
		samples = append(samples, Sample{Channel: channel, Time: rec.Time(), Value: value})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	return samples, nil
}

// buildSampleQuery renders the Flux query used by QuerySamples.
// range() is inclusive of its start, so callers filter out since itself.
func buildSampleQuery(bucket string, channels []string, since time.Time) string {
	quoted := make([]string, len(channels))
	for i, ch := range channels {
		quoted[i] = strconv.Quote(ch)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", strconv.Quote(bucket))
	fmt.Fprintf(&b, "  |> range(start: time(v: %s))\n", strconv.Quote(since.UTC().Format(time.RFC3339Nano)))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %s and r._field == %s)\n",
		strconv.Quote(SampleMeasurement), strconv.Quote(SampleField))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => contains(value: r.%s, set: [%s]))\n",
		SampleTagChannel, strings.Join(quoted, ", "))
	b.WriteString("  |> group()\n")
	b.WriteString("  |> sort(columns: [\"_time\"])\n")
	return b.String()
}
