// Package errata merges the curated errata file into the raw HMRC extract
// and selects the rows eligible for publication: still-reporting funds
// carrying a checksum-valid CUSIP or a valid US ISIN.
package errata

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"fundcli/internal/extract"
	"fundcli/internal/validation"
	"fundcli/pkg/contracts/domain"
)

// DuplicateRefError reports a share-class reference appearing twice in the
// errata file. Curated data is hand-edited, so a duplicate means the file
// is corrupt and the run must not continue on it.
type DuplicateRefError struct {
	Ref string
}

func (e *DuplicateRefError) Error() string {
	return fmt.Sprintf("duplicate share class reference %q in errata file", e.Ref)
}

// ReadErrata parses the errata CSV. The header must contain a share-class
// reference column; the remaining columns are matched against the extract
// headings and any subset is accepted. Blank cells mean "no override".
func ReadErrata(path string, logger *slog.Logger) (map[string]domain.Erratum, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open errata file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read errata header: %w", err)
	}
	cols := extract.FindColumns(header)
	if cols.Ref < 0 {
		return nil, fmt.Errorf("errata file %s needs a \"Share Class Ref\" column", path)
	}

	result := make(map[string]domain.Erratum)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read errata row: %w", err)
		}

		ref := strings.TrimSpace(extract.Cell(row, cols.Ref))
		if ref == "" {
			continue
		}
		if _, seen := result[ref]; seen {
			return nil, &DuplicateRefError{Ref: ref}
		}
		result[ref] = domain.Erratum{
			Ref:           ref,
			ParentFund:    extract.Cell(row, cols.Parent),
			SubFund:       extract.Cell(row, cols.Sub),
			ISIN:          extract.Cell(row, cols.ISIN),
			CUSIP:         extract.Cell(row, cols.CUSIP),
			EffectiveFrom: extract.Cell(row, cols.From),
			CeasedOn:      extract.Cell(row, cols.Ceased),
		}
	}

	logger.Info("errata rows read",
		slog.String("file", path),
		slog.Int("count", len(result)))
	return result, nil
}

// Apply copies raw and overwrites each field for which the erratum carries
// a non-blank value. An all-blank erratum returns raw unchanged.
func Apply(raw domain.RawRecord, e domain.Erratum) domain.RawRecord {
	out := raw
	if strings.TrimSpace(e.ParentFund) != "" {
		out.ParentFund = e.ParentFund
	}
	if strings.TrimSpace(e.SubFund) != "" {
		out.SubFund = e.SubFund
	}
	if strings.TrimSpace(e.ISIN) != "" {
		out.ISIN = e.ISIN
	}
	if strings.TrimSpace(e.CUSIP) != "" {
		out.CUSIP = e.CUSIP
	}
	if strings.TrimSpace(e.EffectiveFrom) != "" {
		out.EffectiveFrom = e.EffectiveFrom
	}
	if strings.TrimSpace(e.CeasedOn) != "" {
		out.CeasedOn = e.CeasedOn
	}
	return out
}

// Filter applies errata to the raw records and keeps the eligible ones.
// Output order follows input order. Rejected rows are returned for audit
// and logged, never treated as an error: the sheet always contains rows we
// cannot use.
//
// Identifier cleanup mirrors what the sheet actually needs: identifiers
// are uppercased and stripped of punctuation, an eight-character CUSIP or
// eleven-character US ISIN gets its missing check digit appended, and an
// identifier failing its checksum is treated as absent. A non-US ISIN is
// also treated as absent; the CUSIP, when valid, still identifies the US
// listing. Every eligible record leaves with its canonical ISIN and the
// CUSIP embedded in it.
func Filter(raws []domain.RawRecord, errata map[string]domain.Erratum, logger *slog.Logger) ([]domain.EligibleRecord, []domain.DroppedRecord) {
	if logger == nil {
		logger = slog.Default()
	}

	var eligible []domain.EligibleRecord
	var dropped []domain.DroppedRecord
	seenISINs := make(map[string]bool)

	drop := func(ref, reason string) {
		dropped = append(dropped, domain.DroppedRecord{Ref: ref, Reason: reason})
		logger.Debug("record dropped from eligibility",
			slog.String("ref", ref),
			slog.String("reason", reason))
	}

	for _, raw := range raws {
		rec := raw
		if e, ok := errata[raw.Ref]; ok {
			rec = Apply(raw, e)
		}

		cusip := cleanCUSIP(rec.CUSIP)
		isin := cleanISIN(rec.ISIN)

		if strings.TrimSpace(rec.CeasedOn) != "" {
			drop(rec.Ref, "ceased reporting")
			continue
		}
		if isin == "" && cusip == "" {
			drop(rec.Ref, "no valid CUSIP or US ISIN")
			continue
		}

		// Canonicalize: the ISIN identifies the record; the CUSIP is the
		// national code embedded in it. A sheet CUSIP disagreeing with the
		// ISIN loses to it.
		if isin == "" {
			isin = validation.ISINFromCUSIP(cusip)
		} else if cusip != "" && cusip != validation.CUSIPFromISIN(isin) {
			logger.Warn("CUSIP disagrees with ISIN, using the ISIN",
				slog.String("ref", rec.Ref),
				slog.String("isin", isin),
				slog.String("cusip", cusip))
		}
		cusip = validation.CUSIPFromISIN(isin)

		// Duplicate ISINs really occur in the HMRC sheet; publish the
		// first row only.
		if seenISINs[isin] {
			drop(rec.Ref, "duplicate ISIN")
			continue
		}
		seenISINs[isin] = true

		eligible = append(eligible, domain.EligibleRecord{
			Ref:           rec.Ref,
			ParentFund:    rec.ParentFund,
			SubFund:       rec.SubFund,
			ISIN:          isin,
			CUSIP:         cusip,
			EffectiveFrom: rec.EffectiveFrom,
		})
	}

	logger.Info("eligibility filter complete",
		slog.Int("eligible", len(eligible)),
		slog.Int("dropped", len(dropped)))
	return eligible, dropped
}

// cleanCUSIP normalizes a sheet CUSIP value; "" means no usable CUSIP.
func cleanCUSIP(s string) string {
	c := validation.CleanIdentifier(s)
	switch {
	case c == "":
		return ""
	case len(c) == 8:
		// Check digit sometimes missing in the sheet.
		d := validation.CUSIPCheckDigit(c)
		if d < 0 {
			return ""
		}
		return c + string(rune('0'+d))
	case len(c) != 9:
		// Non-CUSIP national identifiers end up in this column.
		return ""
	case !validation.ValidCUSIP(c):
		return ""
	}
	return c
}

// cleanISIN normalizes a sheet ISIN value; "" means no usable US ISIN.
func cleanISIN(s string) string {
	c := validation.CleanIdentifier(s)
	switch {
	case c == "":
		return ""
	case !strings.HasPrefix(c, "US"):
		// Non-US domicile; the row may still qualify through its CUSIP.
		return ""
	case len(c) == 11:
		d := validation.ISINCheckDigit(c)
		if d < 0 {
			return ""
		}
		return c + string(rune('0'+d))
	case len(c) != 12:
		return ""
	case !validation.ValidISIN(c):
		return ""
	}
	return c
}
