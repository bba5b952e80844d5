// Package api implements the read-only status HTTP server of the TerraTap hub.
//
// This package provides:
//   - Health endpoint aggregating the health checks of the hub's dependencies
//   - State endpoint exposing the watering flag and the published settings
//   - Broker endpoint reporting the supervised MQTT broker process
//   - Prometheus metrics endpoint
//   - Middleware stack (request ID, logging, recovery)
//
// # Scope
//
// The server never mutates the hub. All control flows over MQTT; this
// surface exists for operators and monitoring.
package api
