package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pababhi7/device-checker/internal/device"
	"github.com/pababhi7/device-checker/internal/runner"
)

// OutputFormat selects how a run result is printed.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// writeResult prints a completed run result in the requested format.
func writeResult(w io.Writer, result *runner.Result, format OutputFormat) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if result.FirstRun {
		fmt.Fprintln(w, "First run: baseline snapshot created.")
	}

	total := 0
	for _, n := range result.Tracked {
		total += n
	}
	fmt.Fprintf(w, "Checked %d sources, %d devices tracked.\n", len(result.Tracked)+len(result.SourceErrors), total)

	for name, msg := range result.SourceErrors {
		fmt.Fprintf(w, "WARNING: source %s failed: %s\n", name, msg)
	}

	if len(result.Changes) == 0 {
		fmt.Fprintln(w, "No changes detected.")
		return nil
	}

	fmt.Fprintf(w, "%d changes detected:\n", len(result.Changes))
	for _, c := range result.Changes {
		switch c.Type {
		case device.ChangeNew:
			fmt.Fprintf(w, "  + [%s] %s (%s)\n", c.Source, c.Title, c.New)
		case device.ChangeStatus:
			fmt.Fprintf(w, "  ~ [%s] %s: %s -> %s\n", c.Source, c.Title, c.Old, c.New)
		case device.ChangeRemoved:
			fmt.Fprintf(w, "  - [%s] %s (was %s)\n", c.Source, c.Title, c.Old)
		}
	}
	return nil
}
