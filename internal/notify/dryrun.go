package notify

import (
	"fmt"
	"io"
	"os"

	"github.com/pababhi7/device-checker/internal/device"
	"github.com/pababhi7/device-checker/internal/telegram"
)

// DryRunNotifier prints what would be sent without delivering anything.
type DryRunNotifier struct {
	out io.Writer
}

// NewDryRunNotifier creates a dry-run notifier writing to stdout.
func NewDryRunNotifier() *DryRunNotifier {
	return &DryRunNotifier{out: os.Stdout}
}

// Notify prints the messages that would be sent.
func (n *DryRunNotifier) Notify(changes []*device.Change) error {
	for i, change := range changes {
		msg := telegram.FormatChange(change)
		fmt.Fprintf(n.out, "--- Message %d/%d ---\n", i+1, len(changes))
		fmt.Fprintln(n.out, msg)
		fmt.Fprintf(n.out, "\n(Length: %d characters)\n\n", len(msg))
	}
	return nil
}

// Announce prints the standalone message that would be sent.
func (n *DryRunNotifier) Announce(text string) error {
	fmt.Fprintf(n.out, "--- Announcement ---\n%s\n\n", text)
	return nil
}
