package pipeline

import (
	"errors"
	"fmt"

	"fundcli/internal/category"
	"fundcli/internal/errata"
	"fundcli/internal/figi"
)

// Kind classifies a stage failure for logging and exit-code mapping.
type Kind string

const (
	// KindValidation covers malformed input rows; these are logged and
	// dropped inside their stage and only surface here when a whole file
	// is unusable.
	KindValidation Kind = "validation"
	// KindIntegrity covers corrupt curated data, e.g. duplicate keys.
	KindIntegrity Kind = "integrity"
	// KindTransient covers retryable service failures that exhausted
	// their retries.
	KindTransient Kind = "transient"
	// KindService covers permanent mapping-service failures.
	KindService Kind = "service"
	// KindUncategorized covers funds awaiting a curation decision.
	KindUncategorized Kind = "uncategorized"
	// KindCache covers unreadable resolver cache files.
	KindCache Kind = "cache"
	// KindExecution covers everything else.
	KindExecution Kind = "execution"
)

// StageError wraps a stage failure with its classification and the stage
// name, so callers can decide what to do without string matching.
type StageError struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Wrap classifies err and attaches the stage name. A nil err wraps to
// nil; an err already carrying a StageError is returned as-is.
func Wrap(stage string, err error) error {
	if err == nil {
		return nil
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return err
	}
	return &StageError{Kind: Classify(err), Stage: stage, Err: err}
}

// Classify maps an error from any stage onto its kind.
func Classify(err error) Kind {
	var (
		dupRef  *errata.DuplicateRefError
		dupKey  *category.DuplicateKeyError
		uncat   *category.UncategorizedError
		service *figi.ServiceError
	)
	switch {
	case errors.As(err, &dupRef), errors.As(err, &dupKey):
		return KindIntegrity
	case errors.As(err, &uncat):
		return KindUncategorized
	case errors.Is(err, figi.ErrCacheCorrupt):
		return KindCache
	case errors.As(err, &service):
		if service.Transient {
			return KindTransient
		}
		return KindService
	default:
		return KindExecution
	}
}
