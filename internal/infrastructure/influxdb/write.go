package influxdb

import (
	"context"
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Sample schema. Each channel value is one point; the channel name and its
// index channel are tags so a query can select any set of channels.
const (
	SampleMeasurement = "channel_samples"
	SampleTagChannel  = "channel"
	SampleTagIndex    = "index"
	SampleField       = "value"
)

// NewSamplePoint builds the point for a single channel sample.
//
// Example:
//
//	p := influxdb.NewSamplePoint("tempA", "tempA-T", ts, 21.5)
func NewSamplePoint(channel, index string, ts time.Time, value float64) *write.Point {
	return write.NewPoint(
		SampleMeasurement,
		map[string]string{
			SampleTagChannel: channel,
			SampleTagIndex:   index,
		},
		map[string]interface{}{
			SampleField: value,
		},
		ts,
	)
}

// WritePoints writes points and waits for the server to accept them.
func (c *Client) WritePoints(ctx context.Context, points ...*write.Point) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if len(points) == 0 {
		return nil
	}

	if err := c.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}
