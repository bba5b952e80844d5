// Package logging provides structured logging for the TerraTap hub.
//
// It wraps log/slog so every component logs with the same handler,
// level and default fields (service, version).
//
// Logging is configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("hub connected", "broker", addr)
//
// Never log the MQTT password or the InfluxDB token.
package logging
