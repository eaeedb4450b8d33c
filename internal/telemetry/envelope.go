package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Envelope is the packet shape shared by telemetry and commands:
//
//	{"Source": "plc-1", "Time Stamp": "1718000000000000000", "Data": {"tempA": 21.5}}
//
// Time Stamp is carried through untouched; producers send it as a string or
// a number.
type Envelope struct {
	Source    string                     `json:"Source"`
	TimeStamp json.RawMessage            `json:"Time Stamp,omitempty"`
	Data      map[string]json.RawMessage `json:"Data"`
}

// Value is one numeric entry of an envelope's Data.
type Value struct {
	Channel string
	Value   float64
}

// DecodeEnvelope parses a telemetry payload. A payload that is not a JSON
// object, or whose Data is missing, null or not an object, is malformed.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Envelope{}, fmt.Errorf("%w: payload is not a JSON object", ErrMalformedMessage)
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if env.Data == nil {
		return Envelope{}, fmt.Errorf("%w: missing Data", ErrMalformedMessage)
	}
	return env, nil
}

// Values returns the numeric Data entries sorted by channel, and the keys
// that were skipped because their value is not a JSON number.
func (e Envelope) Values() (values []Value, skipped []string) {
	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		var v any
		if err := json.Unmarshal(e.Data[k], &v); err != nil {
			skipped = append(skipped, k)
			continue
		}
		f, ok := v.(float64)
		if !ok {
			skipped = append(skipped, k)
			continue
		}
		values = append(values, Value{Channel: k, Value: f})
	}
	return values, skipped
}

// commandEnvelope is the outbound form with a typed Data map.
type commandEnvelope struct {
	Source    string             `json:"Source"`
	TimeStamp string             `json:"Time Stamp"`
	Data      map[string]float64 `json:"Data"`
}

// EncodeCommand renders a command packet stamped with ts in nanoseconds.
func EncodeCommand(source string, ts time.Time, data map[string]float64) ([]byte, error) {
	return json.Marshal(commandEnvelope{
		Source:    source,
		TimeStamp: strconv.FormatInt(ts.UnixNano(), 10),
		Data:      data,
	})
}
