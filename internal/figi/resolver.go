package figi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"fundcli/pkg/contracts/domain"
)

// Default tuning for the public OpenFIGI tier; runs with an API key should
// raise JobsPerCall and CallsPerMinute through configuration.
const (
	DefaultJobsPerCall    = 10
	DefaultCallsPerMinute = 25
	DefaultMaxAttempts    = 4
	DefaultRetryBaseDelay = 2 * time.Second
)

// Mapper is the batch mapping call the resolver drives. *Client satisfies
// it; tests substitute counters and fakes.
type Mapper interface {
	MapISINs(ctx context.Context, isins []string) ([]*domain.FigiEntry, error)
}

// Config carries the resolver's operational tuning. Rate and batch limits
// are service-imposed operational values, not algorithmic constants, so
// they are configurable; batch submission is strictly sequential no matter
// what they are set to.
type Config struct {
	JobsPerCall    int
	CallsPerMinute float64
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// DefaultConfig returns the tuning for unauthenticated OpenFIGI access.
func DefaultConfig() Config {
	return Config{
		JobsPerCall:    DefaultJobsPerCall,
		CallsPerMinute: DefaultCallsPerMinute,
		MaxAttempts:    DefaultMaxAttempts,
		RetryBaseDelay: DefaultRetryBaseDelay,
	}
}

// Resolver resolves ISIN sets against the mapping service, backed by a
// persistent cache.
type Resolver struct {
	mapper  Mapper
	store   Store
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewResolver creates a resolver over the given mapper and cache store.
func NewResolver(mapper Mapper, store Store, cfg Config, logger *slog.Logger) *Resolver {
	if cfg.JobsPerCall <= 0 {
		cfg.JobsPerCall = DefaultJobsPerCall
	}
	if cfg.CallsPerMinute <= 0 {
		cfg.CallsPerMinute = DefaultCallsPerMinute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		mapper:  mapper,
		store:   store,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.CallsPerMinute/60.0), 1),
		logger:  logger,
	}
}

// Resolve maps every ISIN in isins to its cached or freshly resolved
// entry. Cached ISINs, including explicit no-match markers, are used
// verbatim and cost no service calls. Uncached ISINs are submitted in
// sequential batches; after each successful batch the results are merged
// into the store and flushed, so a failure later in the run does not lose
// them. Any error aborts the whole resolution: a partial identifier map
// would silently miscategorize funds downstream.
func (r *Resolver) Resolve(ctx context.Context, isins []string) (map[string]*domain.FigiEntry, error) {
	result := make(map[string]*domain.FigiEntry, len(isins))

	var uncached []string
	seen := make(map[string]bool, len(isins))
	for _, isin := range isins {
		if seen[isin] {
			continue
		}
		seen[isin] = true
		if entry, ok := r.store.Get(isin); ok {
			result[isin] = entry
			continue
		}
		uncached = append(uncached, isin)
	}

	if len(uncached) == 0 {
		r.logger.Info("all ISINs served from cache", slog.Int("count", len(result)))
		return result, nil
	}

	r.logger.Info("resolving ISINs",
		slog.Int("cached", len(result)),
		slog.Int("to_query", len(uncached)),
		slog.Int("jobs_per_call", r.cfg.JobsPerCall))

	for start := 0; start < len(uncached); start += r.cfg.JobsPerCall {
		end := start + r.cfg.JobsPerCall
		if end > len(uncached) {
			end = len(uncached)
		}
		batch := uncached[start:end]

		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait interrupted: %w", err)
		}

		entries, err := r.mapBatch(ctx, batch)
		if err != nil {
			return nil, err
		}

		for i, isin := range batch {
			r.store.Put(isin, entries[i])
			result[isin] = entries[i]
		}
		if err := r.store.Flush(); err != nil {
			return nil, fmt.Errorf("failed to persist resolver cache: %w", err)
		}

		r.logger.Debug("batch resolved",
			slog.Int("batch_size", len(batch)),
			slog.Int("resolved_total", start+len(batch)))
	}

	return result, nil
}

// mapBatch submits one batch, retrying transient failures with exponential
// backoff up to the configured attempt count.
func (r *Resolver) mapBatch(ctx context.Context, batch []string) ([]*domain.FigiEntry, error) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		entries, err := r.mapper.MapISINs(ctx, batch)
		if err == nil {
			return entries, nil
		}
		lastErr = err

		var svcErr *ServiceError
		if !errors.As(err, &svcErr) || !svcErr.Transient {
			return nil, fmt.Errorf("identifier resolution aborted: %w", err)
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}

		delay := r.cfg.RetryBaseDelay << (attempt - 1)
		r.logger.Warn("transient mapping failure, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", r.cfg.MaxAttempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("identifier resolution failed after %d attempts: %w", r.cfg.MaxAttempts, lastErr)
}
