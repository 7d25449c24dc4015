package device

import (
	"sort"
	"time"
)

// Snapshot is the complete last-known state of all tracked devices, persisted
// between runs.
type Snapshot struct {
	Devices   map[string]*Device `json:"devices"` // keyed by Device.Key
	UpdatedAt string             `json:"updated_at"`
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Devices: make(map[string]*Device),
	}
}

// ChangeType classifies a detected difference between two snapshots.
type ChangeType string

const (
	ChangeNew     ChangeType = "new"
	ChangeStatus  ChangeType = "status"
	ChangeRemoved ChangeType = "removed"
)

// Change is one detected difference for one device. Changes are derived per
// run and handed to the notifier; only the change log keeps a trace of them.
type Change struct {
	Key        string     `json:"key"`
	Source     string     `json:"source"`
	Type       ChangeType `json:"type"`
	Title      string     `json:"title"`
	Old        string     `json:"old,omitempty"`
	New        string     `json:"new,omitempty"`
	DetectedAt time.Time  `json:"detected_at"`
}

// Diff compares the current observations against a previous snapshot and
// returns the changes, sorted by source then key. It is a pure function: the
// same previous snapshot, observations, fetched set, and timestamp always
// yield the same sequence.
//
// Policy:
//   - a key present in observed but absent from previous is a "new" change
//   - a status transition for a known key is a "status" change; a device that
//     was marked removed and shows up again transitions from "removed"
//   - a key present in previous but missing from observed is a "removed"
//     change, but only when its source is in fetched — a source that failed
//     this run says nothing about its devices
func Diff(previous *Snapshot, observed []*Device, fetched map[string]bool, now time.Time) []*Change {
	if previous == nil {
		previous = NewSnapshot()
	}

	changes := make([]*Change, 0)
	seen := make(map[string]bool, len(observed))

	for _, dev := range observed {
		seen[dev.Key] = true

		prev, exists := previous.Devices[dev.Key]
		if !exists {
			changes = append(changes, &Change{
				Key:        dev.Key,
				Source:     dev.Source,
				Type:       ChangeNew,
				Title:      dev.Title,
				New:        dev.Status,
				DetectedAt: now,
			})
			continue
		}

		old := prev.Status
		if prev.Removed() {
			old = StatusRemoved
		}
		if old != dev.Status {
			changes = append(changes, &Change{
				Key:        dev.Key,
				Source:     dev.Source,
				Type:       ChangeStatus,
				Title:      dev.Title,
				Old:        old,
				New:        dev.Status,
				DetectedAt: now,
			})
		}
	}

	for _, prev := range previous.Devices {
		if seen[prev.Key] || prev.Removed() || !fetched[prev.Source] {
			continue
		}
		changes = append(changes, &Change{
			Key:        prev.Key,
			Source:     prev.Source,
			Type:       ChangeRemoved,
			Title:      prev.Title,
			Old:        prev.Status,
			New:        StatusRemoved,
			DetectedAt: now,
		})
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Source != changes[j].Source {
			return changes[i].Source < changes[j].Source
		}
		return changes[i].Key < changes[j].Key
	})

	return changes
}

// Advance builds the snapshot to persist after a run. Known devices keep
// their FirstSeen, new ones are stamped with now, and devices missing from a
// successfully fetched source get RemovedAt set. Devices from failed sources
// are carried over untouched.
func Advance(previous *Snapshot, observed []*Device, fetched map[string]bool, now time.Time) *Snapshot {
	if previous == nil {
		previous = NewSnapshot()
	}

	next := NewSnapshot()
	next.UpdatedAt = now.UTC().Format(time.RFC3339)

	for key, prev := range previous.Devices {
		next.Devices[key] = prev
	}

	seen := make(map[string]bool, len(observed))
	for _, dev := range observed {
		seen[dev.Key] = true

		cur := *dev
		if prev, exists := previous.Devices[dev.Key]; exists {
			cur.FirstSeen = prev.FirstSeen
		} else {
			cur.FirstSeen = now.UTC()
		}
		cur.RemovedAt = time.Time{}
		next.Devices[dev.Key] = &cur
	}

	for key, prev := range previous.Devices {
		if seen[key] || prev.Removed() || !fetched[prev.Source] {
			continue
		}
		gone := *prev
		gone.RemovedAt = now.UTC()
		next.Devices[key] = &gone
	}

	return next
}
