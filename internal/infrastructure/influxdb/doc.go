// Package influxdb stores and reads channel samples in InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library. Samples are written
// with the blocking write API so callers get per-write errors, and read back
// with Flux through QuerySamples.
//
// # Schema
//
//	measurement: channel_samples
//	tags:        channel, index
//	field:       value (float)
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	p := influxdb.NewSamplePoint("tempA", "tempA-T", time.Now(), 21.5)
//	err = client.WritePoints(ctx, p)
package influxdb
