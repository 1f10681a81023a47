// Package extract reads the HMRC reporting-funds workbook into raw
// records. Header rows are located by pattern matching because HMRC moves
// columns and reworks headings between publications.
package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"fundcli/pkg/contracts/domain"
)

// ParseWorkbook reads the first sheet containing a recognizable header row
// and returns every data row below it as a RawRecord. Rows with no content
// in any mapped column are skipped; everything else is kept verbatim for
// the errata filter to judge.
func ParseWorkbook(path string, logger *slog.Logger) ([]domain.RawRecord, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			logger.Warn("skipping unreadable sheet",
				slog.String("sheet", sheet),
				slog.String("error", err.Error()))
			continue
		}

		records, found := parseRows(rows)
		if !found {
			continue
		}
		logger.Info("parsed reporting funds sheet",
			slog.String("file", path),
			slog.String("sheet", sheet),
			slog.Int("rows", len(records)))
		return records, nil
	}

	return nil, fmt.Errorf("no sheet in %s contains the reporting funds columns", path)
}

// parseRows scans for the header row and converts everything below it.
// found is false when no complete header row exists in the sheet.
func parseRows(rows [][]string) (records []domain.RawRecord, found bool) {
	var cols Columns
	for _, row := range rows {
		if !found {
			cols = FindColumns(row)
			found = cols.Complete()
			continue
		}

		rec := domain.RawRecord{
			Ref:           strings.TrimSpace(Cell(row, cols.Ref)),
			ParentFund:    strings.TrimSpace(Cell(row, cols.Parent)),
			SubFund:       strings.TrimSpace(Cell(row, cols.Sub)),
			ISIN:          strings.TrimSpace(Cell(row, cols.ISIN)),
			CUSIP:         strings.TrimSpace(Cell(row, cols.CUSIP)),
			EffectiveFrom: strings.TrimSpace(Cell(row, cols.From)),
			CeasedOn:      strings.TrimSpace(Cell(row, cols.Ceased)),
		}
		if rec == (domain.RawRecord{}) {
			continue
		}
		records = append(records, rec)
	}
	return records, found
}
