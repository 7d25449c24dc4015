package device

import (
	"crypto/sha1"
	"fmt"
	"strings"
	"time"
)

// StatusListed is the default status for a device observed at a source that
// carries no explicit status column.
const StatusListed = "listed"

// StatusRemoved is the synthetic status reported in a removal change. Devices
// are never deleted from a snapshot; they keep their last status and get a
// RemovedAt timestamp instead.
const StatusRemoved = "removed"

// Device represents one tracked listing observed at a source.
type Device struct {
	Key       string    `json:"key"`
	Source    string    `json:"source"`
	Status    string    `json:"status"`
	Title     string    `json:"title"`
	Raw       string    `json:"raw"`
	FirstSeen time.Time `json:"first_seen"`
	RemovedAt time.Time `json:"removed_at,omitempty"`
}

// GenerateKey creates a deterministic key for a device from its source name
// and the identifying field values. Fields are joined with "|" before hashing
// so reordering a source's columns produces a different key on purpose.
func GenerateKey(source string, fields []string) string {
	h := sha1.New()
	h.Write([]byte(source + "|" + strings.Join(fields, "|")))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// New creates a Device with its Key populated from the identifying fields.
// FirstSeen is left zero; the snapshot advance stamps it for genuinely new
// devices so repeated observations stay byte-identical.
func New(source, title, status, raw string, fields []string) *Device {
	if status == "" {
		status = StatusListed
	}
	return &Device{
		Key:    GenerateKey(source, fields),
		Source: source,
		Status: status,
		Title:  strings.TrimSpace(title),
		Raw:    raw,
	}
}

// Removed reports whether the device has disappeared from its source.
func (d *Device) Removed() bool {
	return !d.RemovedAt.IsZero()
}
