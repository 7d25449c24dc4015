package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pababhi7/device-checker/internal/device"
)

type fakeSender struct {
	sent    []string
	failOn  map[int]bool // 0-based call index → fail
	failAll bool
	calls   int
}

func (f *fakeSender) SendMessage(text string) error {
	idx := f.calls
	f.calls++
	if f.failAll || f.failOn[idx] {
		return errors.New("delivery rejected")
	}
	f.sent = append(f.sent, text)
	return nil
}

func newTestNotifier(s *fakeSender) *TelegramNotifier {
	return &TelegramNotifier{client: s, maxMessages: DefaultMaxMessages}
}

func changeN(n int) []*device.Change {
	changes := make([]*device.Change, n)
	for i := range changes {
		changes[i] = &device.Change{
			Key:    string(rune('a' + i)),
			Source: "nbtc",
			Type:   device.ChangeNew,
			Title:  "Device",
			New:    "listed",
		}
	}
	return changes
}

func TestNotifyEmptySendsNothing(t *testing.T) {
	s := &fakeSender{}
	n := newTestNotifier(s)

	require.NoError(t, n.Notify(nil))
	require.NoError(t, n.Notify([]*device.Change{}))
	assert.Zero(t, s.calls)
}

func TestNotifyOneMessagePerChange(t *testing.T) {
	s := &fakeSender{}
	n := newTestNotifier(s)

	require.NoError(t, n.Notify(changeN(3)))
	assert.Len(t, s.sent, 3)
}

func TestNotifySingleStatusChangeSendsExactlyOne(t *testing.T) {
	s := &fakeSender{}
	n := newTestNotifier(s)

	err := n.Notify([]*device.Change{{
		Key:    "a",
		Source: "github",
		Type:   device.ChangeStatus,
		Title:  "Device A",
		Old:    "sold",
		New:    "available",
	}})

	require.NoError(t, err)
	require.Len(t, s.sent, 1)
	assert.Contains(t, s.sent[0], "sold")
	assert.Contains(t, s.sent[0], "available")
}

func TestNotifyContinuesPastFailures(t *testing.T) {
	s := &fakeSender{failOn: map[int]bool{1: true}}
	n := newTestNotifier(s)

	err := n.Notify(changeN(3))

	var notifyErr *NotifyError
	require.ErrorAs(t, err, &notifyErr)
	assert.Equal(t, 1, notifyErr.Failed)
	assert.Equal(t, 3, notifyErr.Total)
	assert.Len(t, s.sent, 2) // the other two still went out
}

func TestNotifyCapsMessages(t *testing.T) {
	s := &fakeSender{}
	n := newTestNotifier(s)
	n.SetMaxMessages(2)

	require.NoError(t, n.Notify(changeN(5)))

	require.Len(t, s.sent, 3) // 2 changes + overflow trailer
	assert.Contains(t, s.sent[2], "3 more changes")
}

func TestAnnounce(t *testing.T) {
	s := &fakeSender{}
	n := newTestNotifier(s)

	require.NoError(t, n.Announce("checker active"))
	require.Len(t, s.sent, 1)

	s.failAll = true
	assert.Error(t, n.Announce("checker active"))
}
