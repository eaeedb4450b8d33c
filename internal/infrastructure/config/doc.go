// Package config handles loading and validating Telemetry Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (TELEMETRYCORE_*)
//   - Validation of required fields
//   - Loading the channel provisioning file
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - Leaving security.jwt.secret empty disables admin API authentication
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	channels, err := config.LoadChannels(cfg.TimeSeries.ChannelsFile)
package config
