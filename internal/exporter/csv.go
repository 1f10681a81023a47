package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fundcli/pkg/contracts/domain"
)

// CSVWriter provides CSV export functionality.
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance.
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteOptions configures CSV writing behavior.
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options.
func (w *CSVWriter) WriteCSV(path string, options WriteOptions) error {
	w.logger.Info("writing CSV file",
		slog.String("path", path),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return writer.Error()
}

// WriteResults writes one result set as a CSV report.
func (w *CSVWriter) WriteResults(path string, results []domain.ResultRecord) error {
	records := make([][]string, len(results))
	for i, r := range results {
		records[i] = []string{r.Ticker, r.Family, r.Name, r.ISIN, r.ReportingSince, r.Category}
	}
	return w.WriteCSV(path, WriteOptions{
		Headers:   []string{"Ticker", "Family", "Name", "ISIN", "Reporting Since", "Category"},
		Records:   records,
		BOMPrefix: true,
	})
}

// WriteSiblings writes the sibling report as a CSV file.
func (w *CSVWriter) WriteSiblings(path string, siblings []domain.SiblingRecord) error {
	records := make([][]string, len(siblings))
	for i, s := range siblings {
		records[i] = []string{s.Ref, s.Family, s.Name, s.ISIN, s.CUSIP}
	}
	return w.WriteCSV(path, WriteOptions{
		Headers:   []string{"Share Class Ref", "Family", "Name", "ISIN", "CUSIP"},
		Records:   records,
		BOMPrefix: true,
	})
}
