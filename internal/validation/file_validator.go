package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileValidator checks the curated input files (errata, families,
// categories) and output locations before the pipeline starts, so a bad
// path fails up front instead of mid-run.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a file validator. A nil logger falls back to
// slog.Default.
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateInputFile checks that path exists, is a regular file, and is
// readable.
func (v *FileValidator) ValidateInputFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("input file does not exist", slog.String("file", path))
		return fmt.Errorf("input file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("input file %s is not readable: %w", path, err)
	}
	f.Close()

	v.logger.Debug("input file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures the directory for an output file exists
// (creating it if needed) and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe := filepath.Join(dir, ".write_test")
	f, err := os.Create(probe)
	if err != nil {
		v.logger.Error("output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	f.Close()
	os.Remove(probe)
	return nil
}
