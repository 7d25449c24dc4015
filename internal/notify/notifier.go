package notify

import (
	"fmt"

	"github.com/pababhi7/device-checker/internal/device"
)

// Notifier delivers detected changes to an external channel.
type Notifier interface {
	// Notify delivers one message per change. Implementations must not stop
	// on a single delivery failure and must send nothing for an empty slice.
	Notify(changes []*device.Change) error

	// Announce delivers a standalone text message (run summary, first-run
	// activation).
	Announce(text string) error
}

// NotifyError reports failed deliveries within one Notify call. Delivery
// failures never abort the run; the coordinator logs this and moves on.
type NotifyError struct {
	Failed int
	Total  int
	Err    error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("delivering notifications: %d of %d failed: %v", e.Failed, e.Total, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }
