// Package influxdb records watering transitions to InfluxDB.
//
// It wraps the influxdb-client-go v2 non-blocking write API. Every time the
// sensor module raises the watering-needed flag, or the watering module
// answers a query and clears it, one point is written to the
// "watering_events" measurement:
//
//	watering_events,module=sensor,event=flag_set needed=true
//	watering_events,module=watering,event=flag_consumed needed=true
//
// Writes are batched and never block the event loop; asynchronous write
// failures are reported through SetOnError.
//
// InfluxDB is optional. Connect returns ErrDisabled when the influxdb
// section is not enabled, and the hub runs without a recorder.
package influxdb
