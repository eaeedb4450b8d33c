package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"Source":"plc-1","Time Stamp":1718000000,"Data":{"tempA":21.5,"tempB":-3}}`))
	require.NoError(t, err)
	assert.Equal(t, "plc-1", env.Source)
	assert.JSONEq(t, `1718000000`, string(env.TimeStamp))

	values, skipped := env.Values()
	assert.Equal(t, []Value{{"tempA", 21.5}, {"tempB", -3}}, values)
	assert.Empty(t, skipped)
}

func TestDecodeEnvelope_Malformed(t *testing.T) {
	for _, payload := range []string{
		``,
		`not json`,
		`[1, 2]`,
		`"tempA"`,
		`{"Data": [1, 2]}`,
		`{"Data": {"tempA": 1}`,
	} {
		t.Run(payload, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(payload))
			assert.ErrorIs(t, err, ErrMalformedMessage)
		})
	}
}

func TestEnvelope_ValuesSkipsNonNumeric(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"Source":"x","Data":{"a":"12","b":true,"c":null,"d":{"x":1},"e":7}}`))
	require.NoError(t, err)

	values, skipped := env.Values()
	assert.Equal(t, []Value{{"e", 7}}, values)
	assert.Equal(t, []string{"a", "b", "c", "d"}, skipped)
}

func TestEnvelope_MissingData(t *testing.T) {
	for _, payload := range []string{
		`{"Source":"x"}`,
		`{"Source":"x","Data":null}`,
	} {
		_, err := DecodeEnvelope([]byte(payload))
		assert.ErrorIs(t, err, ErrMalformedMessage, payload)
	}
}

func TestEnvelope_EmptyData(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"Source":"x","Data":{}}`))
	require.NoError(t, err)

	values, skipped := env.Values()
	assert.Empty(t, values)
	assert.Empty(t, skipped)
}

func TestEncodeCommand(t *testing.T) {
	ts := time.Unix(1718000000, 123)
	payload, err := EncodeCommand("automation", ts, map[string]float64{"fanA": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Source":"automation","Time Stamp":"1718000000000000123","Data":{"fanA":1}}`, string(payload))

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.Len(t, raw, 3)
}
