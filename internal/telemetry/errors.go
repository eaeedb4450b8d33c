package telemetry

import "errors"

// Sentinel errors for the telemetry package.
var (
	// ErrMalformedMessage is returned for a payload that is not a telemetry
	// envelope. Such messages are logged, counted and acknowledged.
	ErrMalformedMessage = errors.New("telemetry: malformed message")

	// ErrTopicCycle is returned when the command topic would be received by
	// the telemetry subscription.
	ErrTopicCycle = errors.New("telemetry: command topic matches telemetry filter")
)
