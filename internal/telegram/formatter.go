package telegram

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/pababhi7/device-checker/internal/device"
)

// FormatChange renders one detected change as an HTML Telegram message.
func FormatChange(c *device.Change) string {
	var msg strings.Builder

	switch c.Type {
	case device.ChangeNew:
		msg.WriteString(fmt.Sprintf("🆕 <b>New device in %s list:</b>\n", html.EscapeString(c.Source)))
		msg.WriteString(html.EscapeString(c.Title))
		msg.WriteString(fmt.Sprintf("\n<b>Status:</b> %s", html.EscapeString(c.New)))
	case device.ChangeStatus:
		msg.WriteString(fmt.Sprintf("🔄 <b>Status change in %s list:</b>\n", html.EscapeString(c.Source)))
		msg.WriteString(html.EscapeString(c.Title))
		msg.WriteString(fmt.Sprintf("\n<b>%s</b> → <b>%s</b>",
			html.EscapeString(c.Old), html.EscapeString(c.New)))
	case device.ChangeRemoved:
		msg.WriteString(fmt.Sprintf("❌ <b>Removed from %s list:</b>\n", html.EscapeString(c.Source)))
		msg.WriteString(html.EscapeString(c.Title))
		msg.WriteString(fmt.Sprintf("\n<b>Last status:</b> %s", html.EscapeString(c.Old)))
	default:
		msg.WriteString(html.EscapeString(c.Title))
	}

	return msg.String()
}

// Summary aggregates one run's outcome for the completion message.
type Summary struct {
	CheckedAt time.Time
	Tracked   map[string]int // devices per source
	New       int
	Changed   int
	Removed   int
	Failed    []string // sources that could not be fetched
}

// FormatSummary renders the run completion message. Callers only send it
// when there were changes, so a quiet run produces no traffic at all.
func FormatSummary(s Summary) string {
	var msg strings.Builder

	msg.WriteString("✅ <b>Device check completed</b>\n")
	msg.WriteString(fmt.Sprintf("Time: %s\n\n", s.CheckedAt.UTC().Format("2006-01-02 15:04:05 MST")))

	msg.WriteString("📱 <b>Changes:</b>\n")
	msg.WriteString(fmt.Sprintf("• New: %d\n", s.New))
	msg.WriteString(fmt.Sprintf("• Status changes: %d\n", s.Changed))
	msg.WriteString(fmt.Sprintf("• Removed: %d\n", s.Removed))

	msg.WriteString("\n📊 <b>Devices tracked:</b>\n")
	for _, src := range sortedKeys(s.Tracked) {
		msg.WriteString(fmt.Sprintf("• %s: %d\n", html.EscapeString(src), s.Tracked[src]))
	}

	if len(s.Failed) > 0 {
		msg.WriteString("\n⚠️ <b>Sources not reachable:</b>\n")
		for _, src := range s.Failed {
			msg.WriteString(fmt.Sprintf("• %s\n", html.EscapeString(src)))
		}
	}

	return strings.TrimRight(msg.String(), "\n")
}

// FormatActivation renders the first-run message sent instead of a flood of
// per-device notifications when no prior snapshot exists.
func FormatActivation(tracked map[string]int) string {
	var msg strings.Builder

	msg.WriteString("🚀 <b>Device checker is now active!</b>\n")
	msg.WriteString("You will receive notifications for new devices from now on.\n\n")
	msg.WriteString("Currently tracking:\n")
	for _, src := range sortedKeys(tracked) {
		msg.WriteString(fmt.Sprintf("• %s: %d devices\n", html.EscapeString(src), tracked[src]))
	}

	return strings.TrimRight(msg.String(), "\n")
}

// FormatOverflow renders the trailer sent when the per-run message cap cut
// off individual notifications.
func FormatOverflow(skipped int) string {
	return fmt.Sprintf("… and %d more changes. See the change log for the full list.", skipped)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
