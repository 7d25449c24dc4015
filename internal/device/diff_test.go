package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)

func snapshotOf(devices ...*Device) *Snapshot {
	snap := NewSnapshot()
	for _, dev := range devices {
		snap.Devices[dev.Key] = dev
	}
	return snap
}

func allFetched(devices ...*Device) map[string]bool {
	fetched := make(map[string]bool)
	for _, dev := range devices {
		fetched[dev.Source] = true
	}
	return fetched
}

func TestDiffNewDevice(t *testing.T) {
	devA := New("nbtc", "Device A", "available", "row-a", []string{"A"})
	devB := New("nbtc", "Device B", "available", "row-b", []string{"B"})

	previous := snapshotOf(devA)
	observed := []*Device{devA, devB}

	changes := Diff(previous, observed, allFetched(devA), testNow)

	require.Len(t, changes, 1)
	assert.Equal(t, ChangeNew, changes[0].Type)
	assert.Equal(t, devB.Key, changes[0].Key)
	assert.Equal(t, "available", changes[0].New)
	assert.Empty(t, changes[0].Old)
}

func TestDiffStatusTransition(t *testing.T) {
	prev := New("nbtc", "Device A", "sold", "row-a", []string{"A"})
	cur := New("nbtc", "Device A", "available", "row-a", []string{"A"})

	changes := Diff(snapshotOf(prev), []*Device{cur}, allFetched(cur), testNow)

	require.Len(t, changes, 1)
	assert.Equal(t, ChangeStatus, changes[0].Type)
	assert.Equal(t, "sold", changes[0].Old)
	assert.Equal(t, "available", changes[0].New)
}

func TestDiffNoChanges(t *testing.T) {
	dev := New("nbtc", "Device A", "available", "row-a", []string{"A"})

	changes := Diff(snapshotOf(dev), []*Device{dev}, allFetched(dev), testNow)

	assert.Empty(t, changes)
}

func TestDiffRemoval(t *testing.T) {
	devA := New("nbtc", "Device A", "available", "row-a", []string{"A"})
	devB := New("nbtc", "Device B", "available", "row-b", []string{"B"})

	t.Run("missing from fetched source", func(t *testing.T) {
		changes := Diff(snapshotOf(devA, devB), []*Device{devA}, map[string]bool{"nbtc": true}, testNow)

		require.Len(t, changes, 1)
		assert.Equal(t, ChangeRemoved, changes[0].Type)
		assert.Equal(t, devB.Key, changes[0].Key)
		assert.Equal(t, "available", changes[0].Old)
		assert.Equal(t, StatusRemoved, changes[0].New)
	})

	t.Run("missing from failed source is not a removal", func(t *testing.T) {
		changes := Diff(snapshotOf(devA, devB), nil, map[string]bool{}, testNow)
		assert.Empty(t, changes)
	})

	t.Run("already removed device is not re-reported", func(t *testing.T) {
		gone := *devB
		gone.RemovedAt = testNow.Add(-24 * time.Hour)
		changes := Diff(snapshotOf(devA, &gone), []*Device{devA}, map[string]bool{"nbtc": true}, testNow)
		assert.Empty(t, changes)
	})

	t.Run("removed device reappearing is a status change", func(t *testing.T) {
		gone := *devB
		gone.RemovedAt = testNow.Add(-24 * time.Hour)
		changes := Diff(snapshotOf(&gone), []*Device{devB}, map[string]bool{"nbtc": true}, testNow)

		require.Len(t, changes, 1)
		assert.Equal(t, ChangeStatus, changes[0].Type)
		assert.Equal(t, StatusRemoved, changes[0].Old)
		assert.Equal(t, "available", changes[0].New)
	})
}

func TestDiffDeterministic(t *testing.T) {
	devs := []*Device{
		New("qi-wpc", "Charger X", "certified", "row-x", []string{"X"}),
		New("nbtc", "Device A", "available", "row-a", []string{"A"}),
		New("nbtc", "Device B", "available", "row-b", []string{"B"}),
	}
	previous := snapshotOf(devs[0])

	first := Diff(previous, devs, allFetched(devs...), testNow)
	second := Diff(previous, devs, allFetched(devs...), testNow)

	require.Equal(t, first, second)

	// Sorted by source, then key.
	for i := 1; i < len(first); i++ {
		a, b := first[i-1], first[i]
		assert.True(t, a.Source < b.Source || (a.Source == b.Source && a.Key < b.Key))
	}
}

func TestDiffNilPrevious(t *testing.T) {
	dev := New("nbtc", "Device A", "available", "row-a", []string{"A"})

	changes := Diff(nil, []*Device{dev}, allFetched(dev), testNow)

	require.Len(t, changes, 1)
	assert.Equal(t, ChangeNew, changes[0].Type)
}

func TestAdvance(t *testing.T) {
	devA := New("nbtc", "Device A", "available", "row-a", []string{"A"})
	devB := New("nbtc", "Device B", "available", "row-b", []string{"B"})

	firstSeen := testNow.Add(-48 * time.Hour)
	prevA := *devA
	prevA.FirstSeen = firstSeen

	t.Run("carries FirstSeen and stamps new devices", func(t *testing.T) {
		next := Advance(snapshotOf(&prevA), []*Device{devA, devB}, allFetched(devA), testNow)

		require.Len(t, next.Devices, 2)
		assert.Equal(t, firstSeen, next.Devices[devA.Key].FirstSeen)
		assert.Equal(t, testNow, next.Devices[devB.Key].FirstSeen)
		assert.Equal(t, testNow.Format(time.RFC3339), next.UpdatedAt)
	})

	t.Run("marks missing devices removed instead of deleting", func(t *testing.T) {
		next := Advance(snapshotOf(&prevA, devB), []*Device{devA}, map[string]bool{"nbtc": true}, testNow)

		require.Len(t, next.Devices, 2)
		assert.True(t, next.Devices[devB.Key].Removed())
		assert.Equal(t, "available", next.Devices[devB.Key].Status)
	})

	t.Run("keeps devices of failed sources untouched", func(t *testing.T) {
		next := Advance(snapshotOf(&prevA, devB), nil, map[string]bool{}, testNow)

		require.Len(t, next.Devices, 2)
		assert.False(t, next.Devices[devB.Key].Removed())
	})

	t.Run("does not mutate the previous snapshot", func(t *testing.T) {
		previous := snapshotOf(&prevA, devB)
		Advance(previous, []*Device{devA}, map[string]bool{"nbtc": true}, testNow)
		assert.False(t, previous.Devices[devB.Key].Removed())
	})
}

func TestGenerateKey(t *testing.T) {
	key1 := GenerateKey("nbtc", []string{"Pixel", "10"})
	key2 := GenerateKey("nbtc", []string{"Pixel", "10"})
	key3 := GenerateKey("nbtc", []string{"10", "Pixel"})
	key4 := GenerateKey("qi-wpc", []string{"Pixel", "10"})

	assert.Equal(t, key1, key2)
	assert.NotEqual(t, key1, key3)
	assert.NotEqual(t, key1, key4)
}

func TestNewDefaultsStatus(t *testing.T) {
	dev := New("nbtc", " Device A ", "", "row-a", []string{"A"})

	assert.Equal(t, StatusListed, dev.Status)
	assert.Equal(t, "Device A", dev.Title)
	assert.True(t, dev.FirstSeen.IsZero())
}
