// Package store persists device snapshots between runs.
//
// The snapshot is a single JSON document under a fixed filename, suitable for
// committing back to the repository the checker runs in. Writes go through a
// temp-file-and-rename so a failed persist never corrupts the previous state.
// An advisory file lock next to the snapshot serializes overlapping runs with
// a bounded wait.
package store
