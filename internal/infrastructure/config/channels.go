package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Channel kinds accepted in the channels file.
const (
	ChannelKindSensor  = "sensor"
	ChannelKindControl = "control"
)

// ChannelsFile is the on-disk shape of the channel provisioning file.
//
//	channels:
//	  boiler:
//	    channels:
//	      tempA:  {type: sensor}
//	      valveC: {type: control}
type ChannelsFile struct {
	Channels map[string]ChannelGroup `yaml:"channels"`
}

// ChannelGroup is a named group of channels.
type ChannelGroup struct {
	Channels map[string]ChannelProps `yaml:"channels"`
}

// ChannelProps describes a single channel entry.
type ChannelProps struct {
	Type string `yaml:"type"`
}

// ChannelEntry is a flattened, provisionable channel.
type ChannelEntry struct {
	ID    string
	Kind  string
	Group string
}

// LoadChannels reads the channel provisioning file and returns the sensor and
// control channels it lists, sorted by ID. Entries of any other type are
// skipped.
func LoadChannels(path string) ([]ChannelEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading channels file: %w", err)
	}
	return ParseChannels(data)
}

// ParseChannels parses channel provisioning YAML.
func ParseChannels(data []byte) ([]ChannelEntry, error) {
	var file ChannelsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing channels file: %w", err)
	}

	seen := make(map[string]string)
	var entries []ChannelEntry
	for groupName, group := range file.Channels {
		for id, props := range group.Channels {
			if props.Type != ChannelKindSensor && props.Type != ChannelKindControl {
				continue
			}
			if other, dup := seen[id]; dup {
				return nil, fmt.Errorf("channel %q declared in groups %q and %q", id, other, groupName)
			}
			seen[id] = groupName
			entries = append(entries, ChannelEntry{ID: id, Kind: props.Type, Group: groupName})
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}
