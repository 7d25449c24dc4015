package source

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pababhi7/device-checker/internal/device"
)

// parse dispatches a payload to the parser matching the source kind.
func parse(src Source, body []byte) ([]*device.Device, error) {
	switch src.Kind {
	case KindCSV:
		return parseCSV(src, body)
	case KindHTMLTable:
		return parseHTMLTable(src, body)
	default:
		return nil, &ParseError{Source: src.Name, Reason: "unknown source kind " + string(src.Kind)}
	}
}

// parseCSV extracts devices from a CSV payload. The first record is the
// header; KeyColumns selects the identifying columns by header name
// (case-insensitive), falling back to the whole row.
func parseCSV(src Source, body []byte) ([]*device.Device, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &ParseError{Source: src.Name, Reason: "invalid CSV", Err: err}
	}
	if len(records) < 2 {
		return nil, &ParseError{Source: src.Name, Reason: "no data rows"}
	}

	header := records[0]
	keyIdx := columnIndexes(header, src.KeyColumns)
	statusIdx := -1
	if src.StatusColumn != "" {
		if idx, ok := columnIndex(header, src.StatusColumn); ok {
			statusIdx = idx
		}
	}

	devices := make([]*device.Device, 0, len(records)-1)
	for _, row := range records[1:] {
		if emptyRow(row) {
			continue
		}

		fields := pick(row, keyIdx)
		status := ""
		if statusIdx >= 0 && statusIdx < len(row) {
			status = strings.TrimSpace(row[statusIdx])
		}

		title := strings.TrimSpace(strings.Join(fields, " "))
		raw := strings.Join(row, " | ")
		devices = append(devices, device.New(src.Name, title, status, raw, fields))
	}

	if len(devices) == 0 {
		return nil, &ParseError{Source: src.Name, Reason: "no data rows"}
	}
	return dedupe(devices), nil
}

// parseHTMLTable extracts devices from table rows in an HTML payload. Every
// cell participates in the key, mirroring how listing sites present one
// device per row.
func parseHTMLTable(src Source, body []byte) ([]*device.Device, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Source: src.Name, Reason: "invalid HTML", Err: err}
	}

	devices := make([]*device.Device, 0)
	doc.Find(src.RowSelector()).Each(func(i int, row *goquery.Selection) {
		cells := make([]string, 0)
		row.Find("td").Each(func(j int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if emptyRow(cells) {
			return
		}

		raw := strings.Join(cells, " | ")
		devices = append(devices, device.New(src.Name, raw, "", raw, cells))
	})

	if len(devices) == 0 {
		return nil, &ParseError{Source: src.Name, Reason: "no table rows matched " + src.RowSelector()}
	}
	return dedupe(devices), nil
}

// columnIndex finds a header column by name, case-insensitively.
func columnIndex(header []string, name string) (int, bool) {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), strings.TrimSpace(name)) {
			return i, true
		}
	}
	return 0, false
}

// columnIndexes resolves the configured key columns to header indexes. An
// empty or unresolvable configuration selects every column.
func columnIndexes(header []string, names []string) []int {
	idx := make([]int, 0, len(names))
	for _, name := range names {
		if i, ok := columnIndex(header, name); ok {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		idx = make([]int, len(header))
		for i := range header {
			idx[i] = i
		}
	}
	return idx
}

func pick(row []string, idx []int) []string {
	fields := make([]string, 0, len(idx))
	for _, i := range idx {
		if i < len(row) {
			fields = append(fields, strings.TrimSpace(row[i]))
		}
	}
	return fields
}

func emptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// dedupe drops repeated keys, keeping the first occurrence.
func dedupe(devices []*device.Device) []*device.Device {
	seen := make(map[string]bool, len(devices))
	unique := make([]*device.Device, 0, len(devices))
	for _, dev := range devices {
		if !seen[dev.Key] {
			seen[dev.Key] = true
			unique = append(unique, dev)
		}
	}
	return unique
}
