package timeseries

import (
	"fmt"
	"time"
)

// DataType is the stored type of a channel's samples.
type DataType string

// Supported data types.
const (
	DataTypeTimestamp DataType = "timestamp"
	DataTypeFloat32   DataType = "float32"
)

// Naming suffixes used when provisioning a telemetry channel.
const (
	IndexSuffix    = "-T"
	FeedbackSuffix = "-F"
)

// Writer authorities.
const (
	AuthorityNone     uint8 = 0
	AuthorityAbsolute uint8 = 255
)

// ChannelSpec describes a channel to create.
//
// Index channels carry timestamps and have no index of their own. Data
// channels must name the key of an existing index channel.
type ChannelSpec struct {
	Name     string
	DataType DataType
	IsIndex  bool
	Index    int64
}

// Channel is a catalogued channel.
type Channel struct {
	Key       int64     `json:"key"`
	Name      string    `json:"name"`
	DataType  DataType  `json:"data_type"`
	IsIndex   bool      `json:"is_index"`
	Index     int64     `json:"index,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Sample is one value of a channel at a point in time.
type Sample struct {
	Value float64   `json:"value"`
	Time  time.Time `json:"time"`
}

// Frame maps channel name to its latest sample within one streamer read.
type Frame map[string]Sample

// Validate checks the spec for internal consistency.
func (s ChannelSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidChannel)
	}
	switch s.DataType {
	case DataTypeTimestamp, DataTypeFloat32:
	default:
		return fmt.Errorf("%w: %s: unsupported data type %q", ErrInvalidChannel, s.Name, s.DataType)
	}
	if s.IsIndex {
		if s.DataType != DataTypeTimestamp {
			return fmt.Errorf("%w: %s: index channels must be timestamp", ErrInvalidChannel, s.Name)
		}
		if s.Index != 0 {
			return fmt.Errorf("%w: %s: index channels cannot have an index", ErrInvalidChannel, s.Name)
		}
		return nil
	}
	if s.Index == 0 {
		return fmt.Errorf("%w: %s: data channels need an index", ErrInvalidChannel, s.Name)
	}
	return nil
}

func (c Channel) matches(s ChannelSpec) bool {
	return c.DataType == s.DataType && c.IsIndex == s.IsIndex && c.Index == s.Index
}
