package category

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundcli/pkg/contracts/domain"
)

func writeCategoryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fund-categories.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func enriched(isin, cusip, ticker string) domain.EnrichedRecord {
	return domain.EnrichedRecord{
		EligibleRecord: domain.EligibleRecord{ISIN: isin, CUSIP: cusip},
		Ticker:         ticker,
	}
}

func TestReadTable(t *testing.T) {
	path := writeCategoryFile(t,
		"CUSIP,Category\n"+
			"922908769,US Total Market\n"+
			"037833100,\n"+
			",ignored blank key\n")

	table, err := ReadTable(path, nil)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, "US Total Market", table["922908769"])

	// Present with a blank category: reviewed and deliberately excluded.
	cat, ok := table["037833100"]
	assert.True(t, ok)
	assert.Empty(t, cat)
}

func TestReadTable_DuplicateKeyIsFatal(t *testing.T) {
	path := writeCategoryFile(t,
		"CUSIP,Category\n"+
			"922908769,US Total Market\n"+
			"922908769,US Large Blend\n")

	_, err := ReadTable(path, nil)
	require.Error(t, err)

	var dup *DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "922908769", dup.Key)
}

func TestReadTable_MissingColumns(t *testing.T) {
	path := writeCategoryFile(t, "ISIN,Notes\nUS9229087690,hello\n")
	_, err := ReadTable(path, nil)
	assert.Error(t, err)
}

func TestAssign(t *testing.T) {
	table := Table{
		"922908769": "US Total Market",
		"037833100": "", // excluded
	}
	records := []domain.EnrichedRecord{
		enriched("US9229087690", "922908769", "VTI"),
		enriched("US0378331005", "037833100", "AAPL"),
	}

	assignment, err := Assign(records, table)
	require.NoError(t, err)
	assert.Equal(t, "US Total Market", assignment["US9229087690"])

	cat, ok := assignment["US0378331005"]
	assert.True(t, ok)
	assert.Empty(t, cat)
}

func TestAssign_UncategorizedFundsAreFatal(t *testing.T) {
	table := Table{"922908769": "US Total Market"}
	records := []domain.EnrichedRecord{
		enriched("US9229087690", "922908769", "VTI"),
		enriched("US4642872000", "464287200", "IVV"),
	}

	assignment, err := Assign(records, table)
	require.Error(t, err)

	var uncat *UncategorizedError
	require.ErrorAs(t, err, &uncat)
	require.Len(t, uncat.Funds, 1)
	assert.Equal(t, "US4642872000", uncat.Funds[0].ISIN)
	assert.Equal(t, "IVV", uncat.Funds[0].Ticker)

	// The assignment for the categorized records is still usable when the
	// caller explicitly overrides.
	assert.Equal(t, "US Total Market", assignment["US9229087690"])
	_, ok := assignment["US4642872000"]
	assert.False(t, ok)
}

func TestInverse(t *testing.T) {
	table := Table{
		"922908769": "US Total Market",
		"464287200": "US Large Blend",
		"037833100": "",
	}

	inv := Inverse(table)
	require.Len(t, inv, 3)
	assert.Empty(t, inv["922908769"])
	assert.Empty(t, inv["464287200"])
	assert.Equal(t, ExcludedLabel, inv["037833100"])
}

func TestInverse_IsExactComplement(t *testing.T) {
	table := Table{
		"922908769": "US Total Market",
		"037833100": "",
		"464287200": "US Large Blend",
		"808524797": "",
	}
	inv := Inverse(table)

	require.Len(t, inv, len(table))
	for cusip, cat := range table {
		invCat, ok := inv[cusip]
		require.True(t, ok)
		if cat == "" {
			assert.NotEmpty(t, invCat, "excluded fund %s must be published by the inverse list", cusip)
		} else {
			assert.Empty(t, invCat, "published fund %s must be excluded from the inverse list", cusip)
		}
	}
}

func TestUncategorizedError_Message(t *testing.T) {
	err := &UncategorizedError{Funds: []UncategorizedFund{
		{ISIN: "US4642872000", CUSIP: "464287200", Ticker: "IVV"},
	}}
	assert.Contains(t, err.Error(), "IVV (464287200)")
	assert.Contains(t, err.Error(), "1 uncategorized fund(s)")
}
