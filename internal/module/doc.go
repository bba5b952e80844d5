// Package module defines the capability every TerraTap hub module provides.
//
// A module owns a topic prefix (for example "home/sensor"), exposes its
// settings as a flat string map, and handles the messages the hub routes
// to it. The hub's registry holds modules behind the Module interface, so
// new modules plug in without changes to the dispatcher.
//
// # Settings flattening
//
// Flatten turns a module's exported JSON form into one string per
// top-level field. Numbers and booleans keep their canonical JSON text,
// strings are unquoted, nested values stay as compact JSON, and null
// becomes the empty string ("no value", which the registry never
// publishes).
//
// # Usage
//
//	type PumpModule struct {
//	    module.Base `json:"-"`
//	    FlowRate uint64 `json:"flow_rate"`
//	}
//
//	func (p *PumpModule) Settings() (map[string]string, error) {
//	    return module.Flatten(p)
//	}
package module
