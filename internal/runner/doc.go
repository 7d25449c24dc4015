// Package runner coordinates one check run.
//
// A run walks a fixed state machine: idle, fetching, diffing, notifying,
// persisting, done, with failed reachable from any step. The state store is
// locked for the whole window, the snapshot is persisted at most once per
// run, and a failed run leaves the previously committed state untouched so
// the next run diffs from a consistent baseline.
package runner
