package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelWarn, &buf)

	l.Debug("debug msg", nil)
	l.Info("info msg", nil)
	l.Warn("warn msg", nil)
	l.Error("error msg", nil, errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "warn msg")
	assert.Contains(t, lines[1], "boom")
}

func TestLoggerStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelInfo, &buf)

	l.Info("devices fetched", Fields{"source": "nbtc", "count": 42})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "devices fetched", entry["message"])

	fields, ok := entry["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "nbtc", fields["source"])
	assert.Equal(t, float64(42), fields["count"])
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.Add("changes.new", 3)
	m.Add("changes.new", 2)
	m.RecordTiming("stage.fetch", 100*time.Millisecond)
	m.RecordTiming("stage.fetch", 50*time.Millisecond)

	snap := m.Snapshot()

	counters := snap["counters"].(map[string]int64)
	assert.Equal(t, int64(5), counters["changes.new"])

	timings := snap["timings"].(map[string]string)
	assert.Equal(t, "150ms", timings["stage.fetch"])
}
