// Package config handles loading and validating the TerraTap hub's service
// configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with TERRATAP_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Service configuration describes how the hub runs (broker, persistence,
// logging, optional InfluxDB and status API). The operator settings the
// modules publish live elsewhere: they are persisted objects managed by
// package persist and are not part of this file.
//
// Security Considerations:
//   - Credentials (MQTT password, InfluxDB token) should come from the environment
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.MQTT.Broker.Host)
package config
