// Package pipeline runs the generator's stages in order and classifies
// their failures. Stages run strictly sequentially; the first failure
// halts the run before any later stage writes its output, leaving
// upstream outputs in place.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Stage is one named step of the run.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner executes stages sequentially with per-stage logging.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a stage runner.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// Run executes the stages in order. The first error is classified,
// wrapped with its stage name and returned; remaining stages do not run.
func (r *Runner) Run(ctx context.Context, stages []Stage) error {
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run cancelled before stage %s: %w", stage.Name, err)
		}

		r.logger.Info("stage starting", slog.String("stage", stage.Name))
		start := time.Now()

		if err := stage.Run(ctx); err != nil {
			wrapped := Wrap(stage.Name, err)
			r.logger.Error("stage failed",
				slog.String("stage", stage.Name),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("error", wrapped.Error()))
			return wrapped
		}

		r.logger.Info("stage complete",
			slog.String("stage", stage.Name),
			slog.Duration("elapsed", time.Since(start)))
	}
	return nil
}
