package validation

import (
	"strings"
)

// Security identifier validation for the HMRC extract. CUSIPs and ISINs in
// the sheet are frequently garbled (wrong column, missing check digit,
// national identifiers that are not CUSIPs at all), so callers clean and
// validate every identifier before trusting it. Validators report malformed
// input by returning false, never by returning an error.

// CleanIdentifier uppercases s and strips everything outside [0-9A-Z].
func CleanIdentifier(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// cusipCharValue maps a CUSIP character to its numeric value: digits map to
// themselves, letters to alphabet position plus 9, then the three special
// placeholder characters.
func cusipCharValue(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, true
	case c == '*':
		return 36, true
	case c == '@':
		return 37, true
	case c == '#':
		return 38, true
	}
	return 0, false
}

// CUSIPCheckDigit computes the check digit expected as the ninth character
// of a CUSIP, given its first eight characters. Returns -1 if base8 is not
// eight valid CUSIP characters.
func CUSIPCheckDigit(base8 string) int {
	if len(base8) != 8 {
		return -1
	}
	sum := 0
	for i := 0; i < 8; i++ {
		v, ok := cusipCharValue(base8[i])
		if !ok {
			return -1
		}
		if (i+1)%2 == 0 { // double every second character, 1-indexed
			v *= 2
		}
		sum += v/10 + v%10
	}
	return (10 - sum%10) % 10
}

// ValidCUSIP reports whether s is a nine-character CUSIP whose ninth
// character matches the computed check digit.
func ValidCUSIP(s string) bool {
	if len(s) != 9 {
		return false
	}
	last := s[8]
	if last < '0' || last > '9' {
		return false
	}
	return CUSIPCheckDigit(s[:8]) == int(last-'0')
}

// ISINCheckDigit computes the check digit expected as the twelfth character
// of an ISIN, given its first eleven characters. Letters expand to their
// two-digit values (A=10 .. Z=35) and the Luhn sum runs over the expanded
// digit string from the right. Returns -1 on invalid input.
func ISINCheckDigit(base11 string) int {
	if len(base11) != 11 {
		return -1
	}
	var digits []int
	for i := 0; i < 11; i++ {
		c := base11[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, int(c-'0'))
		case c >= 'A' && c <= 'Z':
			v := int(c-'A') + 10
			digits = append(digits, v/10, v%10)
		default:
			return -1
		}
	}
	sum := 0
	for i := len(digits) - 1; i >= 0; i-- {
		v := digits[i]
		if (len(digits)-1-i)%2 == 0 { // rightmost expanded digit is doubled
			v *= 2
		}
		sum += v/10 + v%10
	}
	return (10 - sum%10) % 10
}

// ValidISIN reports whether s is a twelve-character ISIN: two-letter
// country code, nine-character national code, and a matching check digit.
func ValidISIN(s string) bool {
	if len(s) != 12 {
		return false
	}
	if s[0] < 'A' || s[0] > 'Z' || s[1] < 'A' || s[1] > 'Z' {
		return false
	}
	last := s[11]
	if last < '0' || last > '9' {
		return false
	}
	return ISINCheckDigit(s[:11]) == int(last-'0')
}

// IsUSISIN reports whether s is a valid ISIN with country code "US".
func IsUSISIN(s string) bool {
	return ValidISIN(s) && strings.HasPrefix(s, "US")
}

// ISINFromCUSIP derives the US ISIN embedding the given nine-character
// CUSIP: "US" + CUSIP + check digit. Returns "" if cusip is not nine valid
// characters.
func ISINFromCUSIP(cusip string) string {
	if len(cusip) != 9 {
		return ""
	}
	base := "US" + cusip
	d := ISINCheckDigit(base)
	if d < 0 {
		return ""
	}
	return base + string(rune('0'+d))
}

// CUSIPFromISIN returns the nine-character national code embedded in an
// ISIN, without validating the checksum.
func CUSIPFromISIN(isin string) string {
	if len(isin) != 12 {
		return ""
	}
	return isin[2:11]
}
