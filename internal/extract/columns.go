package extract

import (
	"regexp"
)

// Column header patterns for the HMRC extract. The errata and category
// files reuse the same headings, so the patterns live here and the CSV
// readers share them. HMRC renames headings between publications, which is
// why these are regex matches instead of exact strings.
var (
	refPattern    = regexp.MustCompile(`(?i)\bshare\s+class\s+ref`)
	parentPattern = regexp.MustCompile(`(?i)\bparent\s+fund\b`)
	subPattern    = regexp.MustCompile(`(?i)\bsub\W+fund\b`)
	isinPattern   = regexp.MustCompile(`(?i)\bISIN\b`)
	cusipPattern  = regexp.MustCompile(`(?i)\bCUSIP\b`)
	fromPattern   = regexp.MustCompile(`(?i)\bwith\s+effect\s+from\b`)
	ceasedPattern = regexp.MustCompile(`(?i)\bceased\b`)
)

// ColumnIndex returns the index of the first cell in row matching pattern,
// or -1 if no cell matches.
func ColumnIndex(row []string, pattern *regexp.Regexp) int {
	for i, cell := range row {
		if pattern.MatchString(cell) {
			return i
		}
	}
	return -1
}

// Columns holds the located column indexes for one extract-shaped table.
// An index of -1 means the column is absent.
type Columns struct {
	Ref    int
	Parent int
	Sub    int
	ISIN   int
	CUSIP  int
	From   int
	Ceased int
}

// FindColumns locates the extract columns in a header row.
func FindColumns(row []string) Columns {
	return Columns{
		Ref:    ColumnIndex(row, refPattern),
		Parent: ColumnIndex(row, parentPattern),
		Sub:    ColumnIndex(row, subPattern),
		ISIN:   ColumnIndex(row, isinPattern),
		CUSIP:  ColumnIndex(row, cusipPattern),
		From:   ColumnIndex(row, fromPattern),
		Ceased: ColumnIndex(row, ceasedPattern),
	}
}

// Complete reports whether every extract column was located.
func (c Columns) Complete() bool {
	return c.Ref >= 0 && c.Parent >= 0 && c.Sub >= 0 &&
		c.ISIN >= 0 && c.CUSIP >= 0 && c.From >= 0 && c.Ceased >= 0
}

// Cell returns row[idx], or "" when the column is absent or the row is too
// short. Spreadsheet rows are routinely ragged.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
