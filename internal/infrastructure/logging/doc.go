// Package logging provides structured logging for Telemetry Core.
//
// It wraps log/slog with default fields (service, version) and adds
// rotated file output via lumberjack.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, file, both
//	  file:
//	    path: "/var/log/telemetrycore/core.log"
//	    max_size: 50     # megabytes
//	    max_backups: 5
//	    max_age: 30      # days
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	defer logger.Close()
//	logger.Info("starting service", "port", 8500)
//
// Never log secrets, tokens, or passwords.
package logging
