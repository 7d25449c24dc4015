package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pababhi7/device-checker/internal/device"
	"github.com/pababhi7/device-checker/internal/runner"
)

func sampleResult() *runner.Result {
	return &runner.Result{
		RunID:   "run-1",
		State:   runner.StateDone,
		Tracked: map[string]int{"nbtc": 12, "github": 340},
		Changes: []*device.Change{
			{Key: "k1", Source: "nbtc", Type: device.ChangeNew, Title: "Pixel 10", New: "listed"},
			{Key: "k2", Source: "github", Type: device.ChangeStatus, Title: "Galaxy S26", Old: "sold", New: "available"},
			{Key: "k3", Source: "nbtc", Type: device.ChangeRemoved, Title: "Old Phone", Old: "listed"},
		},
		Started:  time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC),
		Finished: time.Date(2026, 2, 14, 9, 1, 0, 0, time.UTC),
	}
}

func TestWriteResultText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, sampleResult(), FormatText))

	out := buf.String()
	assert.Contains(t, out, "352 devices tracked")
	assert.Contains(t, out, "3 changes detected")
	assert.Contains(t, out, "+ [nbtc] Pixel 10 (listed)")
	assert.Contains(t, out, "~ [github] Galaxy S26: sold -> available")
	assert.Contains(t, out, "- [nbtc] Old Phone (was listed)")
}

func TestWriteResultTextNoChanges(t *testing.T) {
	result := sampleResult()
	result.Changes = nil

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, result, FormatText))
	assert.Contains(t, buf.String(), "No changes detected.")
}

func TestWriteResultJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, sampleResult(), FormatJSON))

	var decoded runner.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Len(t, decoded.Changes, 3)
}

func TestRootCmdRejectsBadFormat(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"--format", "xml", "--config", "does-not-matter.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestVersionCmd(t *testing.T) {
	cmd := NewRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), Version)
}
