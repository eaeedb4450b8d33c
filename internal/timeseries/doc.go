// Package timeseries provides the channel-oriented time-series store used by
// the telemetry core.
//
// Channel identity (name, data type, index relationship) lives in a SQLite
// catalogue. Samples live in InfluxDB as points of the channel_samples
// measurement, tagged with the channel and its index channel.
//
// Every telemetry id is provisioned as an index channel <id>-T and a data
// channel <id>; control ids also get a feedback channel <id>-F that
// operators write and the core streams back out as commands.
package timeseries
