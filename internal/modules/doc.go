// Package modules holds the hub's concrete modules and the watering state
// machine they share.
//
// SensorModule owns "home/sensor". A "true" (any case) on
// home/sensor/watering_needed raises the shared watering-needed flag.
//
// WateringModule owns "home/watering". Any message on
// home/watering/watering_needed is a query: the module publishes the
// current flag ("true"/"false", QoS 2, not retained) to
// home/watering/watering_needed/response and clears the flag only if that
// publish was accepted. The flag lock is held from the read until the
// clear, so concurrent queries cannot both observe "true".
//
// Both modules derive their published settings from settings.Settings;
// the sensor checks five minutes before the configured check time.
package modules
