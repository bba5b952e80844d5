// Package settings holds the operator-tunable parameters of the TerraTap hub.
//
// Settings are loaded once at startup through the persistence contract
// (see package persist), treated as read-only while the hub runs, and saved
// once at shutdown. Modules derive their own view from a Settings value;
// nothing mutates Settings after registration.
//
// # Time encoding
//
// The check time is stored with minute precision as "HH:MM" (two digits
// each, no seconds, no timezone). ClockTime implements JSON and YAML
// marshalling in that form so both the persisted file and the published
// retained settings carry the same text.
package settings
