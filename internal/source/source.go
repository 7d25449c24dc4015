package source

import (
	"fmt"
	"strings"
)

// Kind selects the parser applied to a source's payload.
type Kind string

const (
	KindCSV       Kind = "csv"
	KindHTMLTable Kind = "html-table"
)

// DefaultSelector is the row selector used for html-table sources when the
// config does not override it.
const DefaultSelector = "table tbody tr"

// Source describes one remote listing to track.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	Kind Kind   `yaml:"kind"`

	// Selector is the goquery row selector for html-table sources.
	Selector string `yaml:"selector,omitempty"`

	// KeyColumns names the CSV header columns that identify a row. Empty
	// means every column participates in the key.
	KeyColumns []string `yaml:"key_columns,omitempty"`

	// StatusColumn names the CSV column carrying a row's status. Empty means
	// rows get the default "listed" status.
	StatusColumn string `yaml:"status_column,omitempty"`
}

// Validate checks the descriptor is usable.
func (s Source) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("source name is required")
	}
	if strings.TrimSpace(s.URL) == "" {
		return fmt.Errorf("source %q: url is required", s.Name)
	}
	switch s.Kind {
	case KindCSV, KindHTMLTable:
	default:
		return fmt.Errorf("source %q: unknown kind %q", s.Name, s.Kind)
	}
	return nil
}

// RowSelector returns the configured selector or the default.
func (s Source) RowSelector() string {
	if s.Selector != "" {
		return s.Selector
	}
	return DefaultSelector
}

// FetchError reports that a source could not be retrieved after the bounded
// retry budget was spent.
type FetchError struct {
	Source   string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s (after %d attempts): %v", e.Source, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports that a source's payload did not have the expected shape.
// Parse errors are not retried; the payload will not improve on its own.
type ParseError struct {
	Source string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("parsing %s: %s", e.Source, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }
