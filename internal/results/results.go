// Package results joins resolved, normalized, categorized funds into the
// final result sets and flags same-family funds that fell out of both
// lists.
package results

import (
	"log/slog"
	"sort"

	"fundcli/internal/category"
	"fundcli/pkg/contracts/domain"
)

// Join emits one ResultRecord for every enriched record carrying a
// resolved ticker and a non-blank category. Records without a ticker or
// with a blank/absent category are dropped with an informational log;
// drops here are never fatal. Output is sorted by (category, family,
// name) so successive runs diff cleanly.
func Join(records []domain.EnrichedRecord, assignment category.Assignment, logger *slog.Logger) []domain.ResultRecord {
	if logger == nil {
		logger = slog.Default()
	}

	out := make([]domain.ResultRecord, 0, len(records))
	for _, rec := range records {
		if rec.Ticker == "" {
			logger.Info("skipping fund without a resolved ticker",
				slog.String("ref", rec.Ref),
				slog.String("isin", rec.ISIN))
			continue
		}
		cat := assignment[rec.ISIN]
		if cat == "" {
			logger.Info("skipping excluded fund",
				slog.String("ref", rec.Ref),
				slog.String("ticker", rec.Ticker))
			continue
		}
		out = append(out, domain.ResultRecord{
			Ticker:         rec.Ticker,
			Family:         rec.Family,
			Name:           rec.DisplayName,
			Category:       cat,
			ISIN:           rec.ISIN,
			CUSIP:          rec.CUSIP,
			ReportingSince: rec.EffectiveFrom,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		if out[i].Family != out[j].Family {
			return out[i].Family < out[j].Family
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Siblings flags every enriched record whose family appears in the
// primary or secondary result set but whose ISIN (and CUSIP) made it into
// neither. These are usually funds knocked out by reorganizations,
// liquidations or sheet anomalies; the report is for manual review and
// never feeds back into categorization. Output order follows the input.
func Siblings(records []domain.EnrichedRecord, primary, secondary []domain.ResultRecord) []domain.SiblingRecord {
	families := make(map[string]struct{})
	published := make(map[string]struct{})
	for _, sets := range [][]domain.ResultRecord{primary, secondary} {
		for _, r := range sets {
			families[r.Family] = struct{}{}
			published[r.ISIN] = struct{}{}
			published[r.CUSIP] = struct{}{}
		}
	}

	var out []domain.SiblingRecord
	for _, rec := range records {
		if _, ok := families[rec.Family]; !ok {
			continue
		}
		if _, ok := published[rec.ISIN]; ok {
			continue
		}
		if _, ok := published[rec.CUSIP]; ok {
			continue
		}
		out = append(out, domain.SiblingRecord{
			Ref:    rec.Ref,
			Family: rec.Family,
			Name:   rec.DisplayName,
			ISIN:   rec.ISIN,
			CUSIP:  rec.CUSIP,
		})
	}
	return out
}
