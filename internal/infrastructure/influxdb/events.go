package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementWateringEvents is the measurement RecordWateringEvent writes to.
const MeasurementWateringEvents = "watering_events"

// RecordWateringEvent writes one watering transition. module is the module
// name ("sensor", "watering"), event is the transition ("flag_set",
// "flag_consumed") and needed is the flag value the event observed.
//
// It is a no-op on a nil or closed client.
func (c *Client) RecordWateringEvent(module, event string, needed bool) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(newWateringPoint(module, event, needed, time.Now()))
}

func newWateringPoint(module, event string, needed bool, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementWateringEvents,
		map[string]string{
			"module": module,
			"event":  event,
		},
		map[string]any{
			"needed": needed,
		},
		ts,
	)
}
