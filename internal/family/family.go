// Package family maps legal parent-entity names onto canonical fund-family
// names and strips family boilerplate from sub-fund display names.
package family

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Alias maps a parent-entity name prefix to a canonical short family name.
type Alias struct {
	Prefix string
	Name   string
}

// Normalizer applies an ordered alias list. The first alias whose prefix
// matches wins, so file order is load-bearing: put the more specific
// entries ("Vanguard Index Funds") above the general ones ("Vanguard").
type Normalizer struct {
	aliases []Alias
	logger  *slog.Logger
}

// ReadAliases loads the alias file: one entry per line, either a bare
// family name (prefix and canonical name are the same) or
// "prefix = canonical name". Blank lines and lines starting with # are
// skipped. Line order is preserved.
func ReadAliases(path string, logger *slog.Logger) ([]Alias, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open family alias file: %w", err)
	}
	defer f.Close()

	var aliases []Alias
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if prefix, name, ok := strings.Cut(line, "="); ok {
			aliases = append(aliases, Alias{
				Prefix: strings.TrimSpace(prefix),
				Name:   strings.TrimSpace(name),
			})
			continue
		}
		aliases = append(aliases, Alias{Prefix: line, Name: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read family alias file: %w", err)
	}

	logger.Info("fund family aliases read",
		slog.String("file", path),
		slog.Int("count", len(aliases)))
	return aliases, nil
}

// NewNormalizer creates a normalizer over an ordered alias list.
func NewNormalizer(aliases []Alias, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{aliases: aliases, logger: logger}
}

// Normalize resolves the canonical family for a parent-entity name and
// cleans the sub-fund display name. When no alias matches, the parent name
// is returned unchanged and only the trailing share-class boilerplate is
// stripped from the fund name.
func (n *Normalizer) Normalize(parent, fundName string) (family, displayName string) {
	family = strings.TrimSpace(parent)
	displayName = strings.TrimSpace(fundName)

	for _, a := range n.aliases {
		if !hasPrefixFold(family, a.Prefix) {
			continue
		}
		family = a.Name
		displayName = stripLeading(displayName, a.Prefix)
		displayName = stripLeading(displayName, a.Name)
		break
	}

	displayName = stripShareClassSuffix(displayName)
	return family, displayName
}

// hasPrefixFold reports whether s begins with prefix, case-insensitively,
// at a word boundary.
func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return false
	}
	// Reject partial-word matches like "Vanguardian".
	if len(s) > len(prefix) {
		next := s[len(prefix)]
		if next != ' ' && next != '-' && next != ',' && next != '.' && next != '(' {
			return false
		}
	}
	return true
}

// stripLeading removes a leading occurrence of name from s along with any
// separator punctuation immediately following it.
func stripLeading(s, name string) string {
	if !hasPrefixFold(s, name) {
		return s
	}
	rest := s[len(name):]
	return strings.TrimLeft(rest, " \t-–,.")
}

// shareClassSuffix matches a trailing " - ..." segment that talks about
// shares or a share class, e.g. "Fund Name - Institutional Class Shares".
var shareClassSuffix = regexp.MustCompile(`(?i)(\s+-\s*|\s*-\s+)[^-]*\b(shares?|class)\b[^-]*$`)

// stripShareClassSuffix drops the sheet's share-class boilerplate from the
// end of a fund name.
func stripShareClassSuffix(s string) string {
	return strings.TrimSpace(shareClassSuffix.ReplaceAllString(s, ""))
}
