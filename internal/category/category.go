// Package category assigns curated categories to resolved funds and
// derives the inverse assignment used for the complementary list.
// Classification is always explicit human-curated data; nothing here
// infers a category.
package category

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"fundcli/internal/extract"
	"fundcli/pkg/contracts/domain"
)

// ExcludedLabel is the category given to every deliberately excluded fund
// when the inverse assignment is rendered as its own list.
const ExcludedLabel = "Excluded funds"

var (
	categoryPattern = regexp.MustCompile(`(?i)\bcategory\b`)
	cusipPattern    = regexp.MustCompile(`(?i)\bCUSIP\b`)
)

// Table maps a fund's CUSIP (the national code of its canonical ISIN) to
// its curated category. A present key with a blank category means the fund
// was reviewed and deliberately excluded, which is different from an
// absent key: absent means nobody has made a decision yet.
type Table map[string]string

// DuplicateKeyError reports a CUSIP appearing twice in the category file.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate CUSIP %q in category file", e.Key)
}

// UncategorizedFund is one fund awaiting a curation decision.
type UncategorizedFund struct {
	ISIN   string
	CUSIP  string
	Ticker string
}

// UncategorizedError carries every fund that resolved to a ticker but has
// no entry in the category table. It is fatal by default; a caller that
// explicitly opts to continue publishes without the listed funds.
type UncategorizedError struct {
	Funds []UncategorizedFund
}

func (e *UncategorizedError) Error() string {
	pairs := make([]string, len(e.Funds))
	for i, f := range e.Funds {
		pairs[i] = fmt.Sprintf("%s (%s)", f.Ticker, f.CUSIP)
	}
	return fmt.Sprintf("%d uncategorized fund(s) need curation: %s",
		len(e.Funds), strings.Join(pairs, ", "))
}

// ReadTable parses the category CSV: a CUSIP column and a Category column
// located by header match, one row per fund. A duplicate CUSIP is corrupt
// curated data and fails the read.
func ReadTable(path string, logger *slog.Logger) (Table, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open category file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read category header: %w", err)
	}
	cusipCol := extract.ColumnIndex(header, cusipPattern)
	categoryCol := extract.ColumnIndex(header, categoryPattern)
	if cusipCol < 0 || categoryCol < 0 {
		return nil, fmt.Errorf("category file %s needs a \"CUSIP\" column and a \"Category\" column", path)
	}

	table := make(Table)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read category row: %w", err)
		}

		cusip := strings.TrimSpace(extract.Cell(row, cusipCol))
		if cusip == "" {
			continue
		}
		if _, seen := table[cusip]; seen {
			return nil, &DuplicateKeyError{Key: cusip}
		}
		table[cusip] = strings.TrimSpace(extract.Cell(row, categoryCol))
	}

	logger.Info("fund categories read",
		slog.String("file", path),
		slog.Int("count", len(table)))
	return table, nil
}

// Assignment maps each canonical ISIN to its category. A blank category
// means excluded; an ISIN simply absent was never categorized. Each ISIN
// appears at most once.
type Assignment map[string]string

// Assign looks up every enriched record in the table. The returned
// assignment covers the records found in the table (including blank
// "excluded" entries); records absent from the table are collected into an
// UncategorizedError so a human can curate them before anything is
// published.
func Assign(records []domain.EnrichedRecord, table Table) (Assignment, error) {
	assignment := make(Assignment, len(records))
	var missing []UncategorizedFund

	for _, rec := range records {
		cat, ok := table[rec.CUSIP]
		if !ok {
			missing = append(missing, UncategorizedFund{
				ISIN:   rec.ISIN,
				CUSIP:  rec.CUSIP,
				Ticker: rec.Ticker,
			})
			continue
		}
		assignment[rec.ISIN] = cat
	}

	if len(missing) > 0 {
		return assignment, &UncategorizedError{Funds: missing}
	}
	return assignment, nil
}

// Inverse derives the complement table: every categorized fund becomes
// excluded (blank), every excluded fund gets the fixed excluded-funds
// label, and CUSIPs absent from the table stay absent. Running the
// pipeline with the inverse table therefore publishes exactly the funds
// the primary list leaves out, and still surfaces the same uncategorized
// funds.
func Inverse(table Table) Table {
	inv := make(Table, len(table))
	for cusip, cat := range table {
		if cat == "" {
			inv[cusip] = ExcludedLabel
		} else {
			inv[cusip] = ""
		}
	}
	return inv
}
