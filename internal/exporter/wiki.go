package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"fundcli/pkg/contracts/domain"
)

// WikiWriter renders a result set as MediaWiki table markup, one sortable
// table per category, ready to paste into a wiki page.
type WikiWriter struct {
	logger *slog.Logger
}

// NewWikiWriter creates a new MediaWiki renderer.
func NewWikiWriter(logger *slog.Logger) *WikiWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WikiWriter{logger: logger}
}

// WriteFile renders the result set to path, or to stdout when path is
// blank.
func (w *WikiWriter) WriteFile(path string, results []domain.ResultRecord) error {
	if path == "" {
		w.logger.Info("writing MediaWiki output to stdout")
		return w.Write(os.Stdout, results)
	}

	w.logger.Info("writing MediaWiki output",
		slog.String("path", path),
		slog.Int("record_count", len(results)))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wiki output file: %w", err)
	}
	defer f.Close()

	return w.Write(f, results)
}

// Write renders the result set to out, grouped by category. Categories
// are ordered case-insensitively; the {{mw-datatable}} template include
// is emitted once, before the first table.
func (w *WikiWriter) Write(out io.Writer, results []domain.ResultRecord) error {
	seen := make(map[string]struct{})
	var categories []string
	for _, r := range results {
		if _, ok := seen[r.Category]; !ok {
			seen[r.Category] = struct{}{}
			categories = append(categories, r.Category)
		}
	}
	sort.Slice(categories, func(i, j int) bool {
		return strings.ToLower(categories[i]) < strings.ToLower(categories[j])
	})

	first := true
	for _, category := range categories {
		if _, err := fmt.Fprintf(out, "=== %s ===\n", EscapeWiki(category)); err != nil {
			return fmt.Errorf("failed to write wiki output: %w", err)
		}
		if first {
			if _, err := fmt.Fprintln(out, "{{mw-datatable}}"); err != nil {
				return fmt.Errorf("failed to write wiki output: %w", err)
			}
			first = false
		}
		if _, err := fmt.Fprintln(out, `{| class="wikitable sortable mw-datatable"`); err != nil {
			return fmt.Errorf("failed to write wiki output: %w", err)
		}
		if _, err := fmt.Fprintln(out, "! Ticker || Fund Family || Fund Name || CUSIP || HMRC Reporting Since"); err != nil {
			return fmt.Errorf("failed to write wiki output: %w", err)
		}
		for _, r := range results {
			if r.Category != category {
				continue
			}
			cells := []string{
				fmt.Sprintf("[https://etf.com/%s %s]", r.Ticker, r.Ticker),
				EscapeWiki(r.Family),
				EscapeWiki(r.Name),
				fmt.Sprintf("<span title=\"ISIN: %s\">%s</span>", r.ISIN, r.CUSIP),
				ReformatDate(r.ReportingSince),
			}
			if _, err := fmt.Fprintf(out, "|-\n| %s\n", strings.Join(cells, " || ")); err != nil {
				return fmt.Errorf("failed to write wiki output: %w", err)
			}
		}
		if _, err := fmt.Fprint(out, "|}\n\n"); err != nil {
			return fmt.Errorf("failed to write wiki output: %w", err)
		}
	}
	return nil
}

// EscapeWiki replaces markup-significant characters and non-ASCII runes
// with numeric character entities so free-text cell values cannot break
// the table markup.
func EscapeWiki(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '&' || r == '<' || r == '>' || r == '{' || r == '}' ||
			r == '[' || r == ']' || r == '\\' || r >= 0x7f:
			fmt.Fprintf(&b, "&#%d;", r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ReformatDate turns the sheet's dd/mm/yyyy dates into the wiki's
// "dd Mon yyyy" form. Anything unparsable passes through unchanged.
func ReformatDate(s string) string {
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return s
	}
	return t.Format("02 Jan 2006")
}
