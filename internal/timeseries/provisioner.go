package timeseries

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
)

// Provisioner creates the channels listed in the channels file and opens a
// writer for each.
type Provisioner struct {
	service *Service
	logger  Logger
}

// NewProvisioner creates a provisioner.
func NewProvisioner(service *Service, logger Logger) *Provisioner {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Provisioner{service: service, logger: logger}
}

// Provision creates, for every entry:
//
//   - <id>-T: timestamp index channel
//   - <id>: float32 data channel indexed by <id>-T
//   - <id>-F: float32 feedback channel indexed by <id>-T (control entries only)
//
// and binds a writer holding authority 255 over <id>-T and <id>, and 0 over
// <id>-F. A failing entry is skipped and reported; the others are still
// provisioned. The returned Bindings is never nil.
func (p *Provisioner) Provision(ctx context.Context, entries []config.ChannelEntry) (*Bindings, error) {
	bindings := newBindings()

	var errs []error
	for _, entry := range entries {
		w, err := p.provisionOne(ctx, entry)
		if err != nil {
			p.logger.Error("channel provisioning failed", "channel", entry.ID, "error", err)
			errs = append(errs, fmt.Errorf("provisioning %s: %w", entry.ID, err))
			continue
		}
		bindings.bind(entry.ID, w, entry.Kind == config.ChannelKindControl)
		p.logger.Debug("channel provisioned", "channel", entry.ID, "kind", entry.Kind)
	}

	p.logger.Info("channels provisioned",
		"provisioned", len(bindings.Channels()),
		"failed", len(errs),
		"feedback", len(bindings.FeedbackChannels()),
	)
	return bindings, errors.Join(errs...)
}

func (p *Provisioner) provisionOne(ctx context.Context, entry config.ChannelEntry) (*Writer, error) {
	index, err := p.service.CreateChannel(ctx, ChannelSpec{
		Name:     entry.ID + IndexSuffix,
		DataType: DataTypeTimestamp,
		IsIndex:  true,
	})
	if err != nil {
		return nil, err
	}

	data, err := p.service.CreateChannel(ctx, ChannelSpec{
		Name:     entry.ID,
		DataType: DataTypeFloat32,
		Index:    index.Key,
	})
	if err != nil {
		return nil, err
	}

	cfg := WriterConfig{
		Channels:    []Channel{index, data},
		Authorities: []uint8{AuthorityAbsolute, AuthorityAbsolute},
	}

	if entry.Kind == config.ChannelKindControl {
		feedback, err := p.service.CreateChannel(ctx, ChannelSpec{
			Name:     entry.ID + FeedbackSuffix,
			DataType: DataTypeFloat32,
			Index:    index.Key,
		})
		if err != nil {
			return nil, err
		}
		cfg.Channels = append(cfg.Channels, feedback)
		cfg.Authorities = append(cfg.Authorities, AuthorityNone)
	}

	return p.service.OpenWriter(ctx, cfg)
}
