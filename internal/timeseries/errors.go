package timeseries

import "errors"

// Sentinel errors for the time-series layer.
var (
	// ErrInvalidChannel is returned when a channel spec is incomplete or
	// inconsistent (bad data type, index pointing at a data channel, ...).
	ErrInvalidChannel = errors.New("timeseries: invalid channel")

	// ErrChannelNotFound is returned when a channel is not in the catalogue.
	ErrChannelNotFound = errors.New("timeseries: channel not found")

	// ErrChannelConflict is returned when a channel with the same name exists
	// with a different data type or index.
	ErrChannelConflict = errors.New("timeseries: channel exists with different definition")

	// ErrInvalidWriter is returned by OpenWriter for a malformed WriterConfig.
	ErrInvalidWriter = errors.New("timeseries: invalid writer config")

	// ErrChannelNotBound is returned when writing a channel the writer was not opened for.
	ErrChannelNotBound = errors.New("timeseries: channel not bound to writer")

	// ErrNoAuthority is returned when writing a channel bound with authority 0.
	ErrNoAuthority = errors.New("timeseries: writer has no authority over channel")

	// ErrIndexWrite is returned when a value is given for an index channel.
	// Index channels take the write timestamp implicitly.
	ErrIndexWrite = errors.New("timeseries: index channels cannot be written directly")

	// ErrWriterClosed is returned by Write after Close.
	ErrWriterClosed = errors.New("timeseries: writer closed")

	// ErrWriteFailed wraps store failures during Write.
	ErrWriteFailed = errors.New("timeseries: write failed")

	// ErrUnknownChannel is returned by Bindings for a channel that was not provisioned.
	ErrUnknownChannel = errors.New("timeseries: channel not provisioned")
)
