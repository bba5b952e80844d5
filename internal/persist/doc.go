// Package persist loads and saves the hub's two persisted objects,
// settings.Settings and state.State.
//
// Loading never fails: a missing, unreadable or invalid copy is logged and
// replaced by the type's default. Saving returns an error and is done once,
// at shutdown, after the event loop has stopped.
//
// Two backends implement Store:
//   - FileStore keeps one JSON file per object (settings.json, state.json)
//   - SQLiteStore keeps the same JSON in the documents table
package persist
