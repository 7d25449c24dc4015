package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSVKeyColumnFallback(t *testing.T) {
	// Key columns that don't match any header fall back to the whole row.
	body := []byte("model,region\nPixel 10,EU\nPixel 10,US\n")

	devices, err := parseCSV(Source{Name: "github", Kind: KindCSV, KeyColumns: []string{"nosuch"}}, body)

	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.NotEqual(t, devices[0].Key, devices[1].Key)
}

func TestParseCSVDeduplicates(t *testing.T) {
	body := []byte("model,region\nPixel 10,EU\nPixel 10,US\n")

	devices, err := parseCSV(Source{Name: "github", Kind: KindCSV, KeyColumns: []string{"model"}}, body)

	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestParseCSVErrors(t *testing.T) {
	t.Run("header only", func(t *testing.T) {
		_, err := parseCSV(Source{Name: "github", Kind: KindCSV}, []byte("model,region\n"))
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
	})

	t.Run("malformed quoting", func(t *testing.T) {
		_, err := parseCSV(Source{Name: "github", Kind: KindCSV}, []byte("a,b\n\"unterminated\n"))
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
	})
}

func TestParseHTMLTableCustomSelector(t *testing.T) {
	body := []byte(`<html><body>
<table class="other"><tbody><tr><td>ignored</td></tr></tbody></table>
<table class="devices"><tbody><tr><td>Pixel 10</td><td>A123</td></tr></tbody></table>
</body></html>`)

	devices, err := parseHTMLTable(Source{
		Name:     "nbtc",
		Kind:     KindHTMLTable,
		Selector: "table.devices tbody tr",
	}, body)

	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "Pixel 10 | A123", devices[0].Raw)
}

func TestParseHTMLTableNoRows(t *testing.T) {
	_, err := parseHTMLTable(Source{Name: "nbtc", Kind: KindHTMLTable}, []byte("<html><body><p>moved</p></body></html>"))

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Error(), "no table rows")
}
