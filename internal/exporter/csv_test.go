package exporter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundcli/pkg/contracts/domain"
)

func TestCSVWriter_WriteResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "etfs.csv")
	w := NewCSVWriter(nil)

	err := w.WriteResults(path, []domain.ResultRecord{
		{
			Ticker:         "VTI",
			Family:         "Vanguard",
			Name:           "Total Stock Market ETF",
			Category:       "US Total Market",
			ISIN:           "US9229087690",
			CUSIP:          "922908769",
			ReportingSince: "01/01/2010",
		},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.True(t, strings.HasPrefix(content, "\xEF\xBB\xBF"), "expected UTF-8 BOM")
	assert.Contains(t, content, "Ticker,Family,Name,ISIN,Reporting Since,Category")
	assert.Contains(t, content, "VTI,Vanguard,Total Stock Market ETF,US9229087690,01/01/2010,US Total Market")
}

func TestCSVWriter_WriteSiblings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "siblings.csv")
	w := NewCSVWriter(nil)

	err := w.WriteSiblings(path, []domain.SiblingRecord{
		{Ref: "R7", Family: "Vanguard", Name: "Orphaned Fund", ISIN: "US1111111116", CUSIP: "111111111"},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Share Class Ref,Family,Name,ISIN,CUSIP")
	assert.Contains(t, string(data), "R7,Vanguard,Orphaned Fund,US1111111116,111111111")
}

func TestCSVWriter_QuotesEmbeddedCommas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := NewCSVWriter(nil)

	err := w.WriteCSV(path, WriteOptions{
		Headers: []string{"a", "b"},
		Records: [][]string{{"hello, world", "plain"}},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hello, world",plain`)
}
