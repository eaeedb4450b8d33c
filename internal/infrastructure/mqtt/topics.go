package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used for system topics when no prefix is configured.
const DefaultTopicPrefix = "telemetrycore"

// Topics provides builders for the service's own MQTT topics.
// Telemetry and command topics come from configuration and are used verbatim.
//
//	topics := mqtt.Topics{Prefix: "plant1"}
//	topics.SystemStatus() // "plant1/system/status"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// SystemStatus returns the retained online/offline status topic (also the LWT topic).
//
// Example: telemetrycore/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.prefix())
}

// ValidateFilter reports whether filter is a well-formed MQTT topic filter:
// '#' only as the last level and '+' only as a whole level.
func ValidateFilter(filter string) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	levels := strings.Split(filter, "/")
	for i, level := range levels {
		if strings.Contains(level, "#") && (level != "#" || i != len(levels)-1) {
			return fmt.Errorf("%w: misplaced '#' in %q", ErrInvalidTopic, filter)
		}
		if strings.Contains(level, "+") && level != "+" {
			return fmt.Errorf("%w: misplaced '+' in %q", ErrInvalidTopic, filter)
		}
	}
	return nil
}

// MatchTopic reports whether a concrete topic matches a subscription filter
// using MQTT wildcard rules.
func MatchTopic(filter, topic string) bool {
	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")

	for i, f := range fl {
		if f == "#" {
			// Topics starting with '$' are not matched by a leading wildcard.
			return !(i == 0 && strings.HasPrefix(topic, "$"))
		}
		if i >= len(tl) {
			return false
		}
		if f == "+" {
			if i == 0 && strings.HasPrefix(tl[0], "$") {
				return false
			}
			continue
		}
		if f != tl[i] {
			return false
		}
	}
	return len(fl) == len(tl)
}
