package family

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fund-families.txt")
	require.NoError(t, os.WriteFile(path, []byte(
		"# order matters: first matching prefix wins\n"+
			"Vanguard Index Funds = Vanguard\n"+
			"Vanguard\n"+
			"\n"+
			"iShares\n"), 0644))

	aliases, err := ReadAliases(path, nil)
	require.NoError(t, err)
	require.Len(t, aliases, 3)

	assert.Equal(t, Alias{Prefix: "Vanguard Index Funds", Name: "Vanguard"}, aliases[0])
	assert.Equal(t, Alias{Prefix: "Vanguard", Name: "Vanguard"}, aliases[1])
	assert.Equal(t, Alias{Prefix: "iShares", Name: "iShares"}, aliases[2])
}

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer([]Alias{
		{Prefix: "Vanguard Index Funds", Name: "Vanguard"},
		{Prefix: "Vanguard", Name: "Vanguard"},
		{Prefix: "iShares", Name: "iShares"},
	}, nil)

	tests := []struct {
		name       string
		parent     string
		fund       string
		wantFamily string
		wantName   string
	}{
		{
			name:       "prefix match shortens family",
			parent:     "Vanguard Index Funds plc",
			fund:       "Total Stock Market ETF",
			wantFamily: "Vanguard",
			wantName:   "Total Stock Market ETF",
		},
		{
			name:       "family stripped from fund name",
			parent:     "Vanguard Funds",
			fund:       "Vanguard Total Stock Market ETF",
			wantFamily: "Vanguard",
			wantName:   "Total Stock Market ETF",
		},
		{
			name:       "case-insensitive match",
			parent:     "VANGUARD FUNDS PLC",
			fund:       "S&P 500 UCITS ETF",
			wantFamily: "Vanguard",
			wantName:   "S&P 500 UCITS ETF",
		},
		{
			name:       "first alias in file order wins",
			parent:     "Vanguard Index Funds - US",
			fund:       "Growth ETF",
			wantFamily: "Vanguard",
			wantName:   "Growth ETF",
		},
		{
			name:       "no alias keeps raw parent",
			parent:     "Dimensional Fund Advisors Ltd",
			fund:       "US Core Equity",
			wantFamily: "Dimensional Fund Advisors Ltd",
			wantName:   "US Core Equity",
		},
		{
			name:       "share class boilerplate stripped",
			parent:     "iShares Trust",
			fund:       "Core S&P Total U.S. Stock Market ETF - Institutional Shares",
			wantFamily: "iShares",
			wantName:   "Core S&P Total U.S. Stock Market ETF",
		},
		{
			name:       "class suffix stripped",
			parent:     "iShares Trust",
			fund:       "MSCI EAFE ETF - Class K",
			wantFamily: "iShares",
			wantName:   "MSCI EAFE ETF",
		},
		{
			name:       "partial word prefix does not match",
			parent:     "Vanguardian Capital",
			fund:       "Balanced Fund",
			wantFamily: "Vanguardian Capital",
			wantName:   "Balanced Fund",
		},
		{
			name:       "dash without share wording kept",
			parent:     "iShares Trust",
			fund:       "MSCI All Country ex-US ETF",
			wantFamily: "iShares",
			wantName:   "MSCI All Country ex-US ETF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			family, name := n.Normalize(tt.parent, tt.fund)
			assert.Equal(t, tt.wantFamily, family)
			assert.Equal(t, tt.wantName, name)
		})
	}
}
