// Package state holds the cross-module state of the TerraTap hub.
//
// There is exactly one SharedState per process. It carries a single flag,
// watering_needed, set by the sensor module and read-and-cleared by the
// watering module. Every read and write goes through one exclusive lock;
// callers must not keep a copy of the flag across calls.
//
// The lock only serialises individual operations. A "sensor sets" followed
// by a "watering consumes" is two operations, and nothing makes that pair
// atomic against other publishers.
package state
