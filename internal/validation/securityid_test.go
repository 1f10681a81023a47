package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCUSIP(t *testing.T) {
	tests := []struct {
		name  string
		cusip string
		want  bool
	}{
		{name: "VTI", cusip: "922908769", want: true},
		{name: "Apple", cusip: "037833100", want: true},
		{name: "with letters", cusip: "38259P508", want: true},
		{name: "wrong check digit", cusip: "922908768", want: false},
		{name: "too short", cusip: "92290876", want: false},
		{name: "too long", cusip: "9229087690", want: false},
		{name: "empty", cusip: "", want: false},
		{name: "non-digit check position", cusip: "92290876X", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidCUSIP(tt.cusip))
		})
	}
}

func TestValidCUSIP_SingleCharMutations(t *testing.T) {
	// Every single-character mutation of a valid CUSIP must fail the
	// checksum.
	const valid = "922908769"
	for i := 0; i < len(valid); i++ {
		for c := byte('0'); c <= '9'; c++ {
			if valid[i] == c {
				continue
			}
			mutated := valid[:i] + string(c) + valid[i+1:]
			assert.False(t, ValidCUSIP(mutated), "mutation %s should fail", mutated)
		}
	}
}

func TestValidISIN(t *testing.T) {
	tests := []struct {
		name string
		isin string
		want bool
	}{
		{name: "VTI", isin: "US9229087690", want: true},
		{name: "Apple", isin: "US0378331005", want: true},
		{name: "non-US valid", isin: "GB0002634946", want: true},
		{name: "wrong check digit", isin: "US9229087691", want: false},
		{name: "too short", isin: "US922908769", want: false},
		{name: "digit country code", isin: "129229087690", want: false},
		{name: "empty", isin: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidISIN(tt.isin))
		})
	}
}

func TestValidISIN_SingleCharMutations(t *testing.T) {
	const valid = "US9229087690"
	for i := 2; i < len(valid); i++ {
		for c := byte('0'); c <= '9'; c++ {
			if valid[i] == c {
				continue
			}
			mutated := valid[:i] + string(c) + valid[i+1:]
			assert.False(t, ValidISIN(mutated), "mutation %s should fail", mutated)
		}
	}
}

func TestIsUSISIN(t *testing.T) {
	assert.True(t, IsUSISIN("US9229087690"))
	assert.False(t, IsUSISIN("GB0002634946"))
	assert.False(t, IsUSISIN("US9229087691")) // bad checksum is not a US ISIN
}

func TestISINFromCUSIP(t *testing.T) {
	assert.Equal(t, "US9229087690", ISINFromCUSIP("922908769"))
	assert.Equal(t, "US0378331005", ISINFromCUSIP("037833100"))
	assert.Equal(t, "", ISINFromCUSIP("92290876"))
}

func TestCUSIPFromISIN(t *testing.T) {
	assert.Equal(t, "922908769", CUSIPFromISIN("US9229087690"))
	assert.Equal(t, "", CUSIPFromISIN("US92290876"))
}

func TestCleanIdentifier(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercase with spaces", in: " us922908 7690 ", want: "US9229087690"},
		{name: "punctuation stripped", in: "922-908-769", want: "922908769"},
		{name: "already clean", in: "US9229087690", want: "US9229087690"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanIdentifier(tt.in))
		})
	}
}
