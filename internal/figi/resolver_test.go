package figi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundcli/pkg/contracts/domain"
)

// fakeMapper records every batch it receives and replays scripted
// responses.
type fakeMapper struct {
	batches   [][]string
	responses map[string]*domain.FigiEntry
	errs      []error // consumed first, one per call
}

func (m *fakeMapper) MapISINs(ctx context.Context, isins []string) ([]*domain.FigiEntry, error) {
	m.batches = append(m.batches, append([]string(nil), isins...))
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	entries := make([]*domain.FigiEntry, len(isins))
	for i, isin := range isins {
		entries[i] = m.responses[isin]
	}
	return entries, nil
}

func fastConfig() Config {
	return Config{
		JobsPerCall:    2,
		CallsPerMinute: 600000, // effectively unpaced in tests
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
	}
}

func TestResolver_Resolve(t *testing.T) {
	mapper := &fakeMapper{responses: map[string]*domain.FigiEntry{
		"US9229087690": {Ticker: "VTI", ExchCode: "US"},
		"US0378331005": {Ticker: "AAPL", ExchCode: "US"},
		// US1111111116 resolves to no match
	}}
	store := NewMemStore()
	r := NewResolver(mapper, store, fastConfig(), nil)

	result, err := r.Resolve(context.Background(), []string{"US9229087690", "US0378331005", "US1111111116"})
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, "VTI", result["US9229087690"].Ticker)
	assert.Nil(t, result["US1111111116"])

	// Batches bounded by JobsPerCall and submitted in order.
	require.Len(t, mapper.batches, 2)
	assert.Equal(t, []string{"US9229087690", "US0378331005"}, mapper.batches[0])
	assert.Equal(t, []string{"US1111111116"}, mapper.batches[1])

	// Every result, including the no-match, landed in the cache.
	assert.Equal(t, 3, store.Len())
	entry, ok := store.Get("US1111111116")
	assert.True(t, ok)
	assert.Nil(t, entry)
}

func TestResolver_WarmCacheIssuesNoCalls(t *testing.T) {
	mapper := &fakeMapper{}
	store := NewMemStore()
	store.Put("US9229087690", &domain.FigiEntry{Ticker: "VTI"})
	store.Put("US1111111116", nil)

	r := NewResolver(mapper, store, fastConfig(), nil)

	first, err := r.Resolve(context.Background(), []string{"US9229087690", "US1111111116"})
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), []string{"US9229087690", "US1111111116"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Empty(t, mapper.batches, "warm cache must not touch the service")
}

func TestResolver_DeduplicatesInput(t *testing.T) {
	mapper := &fakeMapper{responses: map[string]*domain.FigiEntry{
		"US9229087690": {Ticker: "VTI"},
	}}
	r := NewResolver(mapper, NewMemStore(), fastConfig(), nil)

	result, err := r.Resolve(context.Background(), []string{"US9229087690", "US9229087690", "US9229087690"})
	require.NoError(t, err)
	assert.Len(t, result, 1)
	require.Len(t, mapper.batches, 1)
	assert.Len(t, mapper.batches[0], 1)
}

func TestResolver_TransientFailureRetriedThenSucceeds(t *testing.T) {
	mapper := &fakeMapper{
		responses: map[string]*domain.FigiEntry{"US9229087690": {Ticker: "VTI"}},
		errs: []error{
			&ServiceError{StatusCode: 503, Transient: true},
			&ServiceError{StatusCode: 429, Transient: true},
			nil,
		},
	}
	r := NewResolver(mapper, NewMemStore(), fastConfig(), nil)

	result, err := r.Resolve(context.Background(), []string{"US9229087690"})
	require.NoError(t, err)
	assert.Equal(t, "VTI", result["US9229087690"].Ticker)
	assert.Len(t, mapper.batches, 3)
}

func TestResolver_TransientFailureExhaustsRetries(t *testing.T) {
	mapper := &fakeMapper{errs: []error{
		&ServiceError{StatusCode: 503, Transient: true},
		&ServiceError{StatusCode: 503, Transient: true},
		&ServiceError{StatusCode: 503, Transient: true},
	}}
	r := NewResolver(mapper, NewMemStore(), fastConfig(), nil)

	_, err := r.Resolve(context.Background(), []string{"US9229087690"})
	require.Error(t, err)

	var svcErr *ServiceError
	assert.ErrorAs(t, err, &svcErr)
	assert.Len(t, mapper.batches, 3)
}

func TestResolver_PermanentFailureAbortsImmediately(t *testing.T) {
	mapper := &fakeMapper{errs: []error{
		&ServiceError{StatusCode: 401, Transient: false},
	}}
	r := NewResolver(mapper, NewMemStore(), fastConfig(), nil)

	_, err := r.Resolve(context.Background(), []string{"US9229087690"})
	require.Error(t, err)
	assert.Len(t, mapper.batches, 1, "permanent failures must not be retried")
}

func TestResolver_PartialProgressSurvivesFailure(t *testing.T) {
	// First batch succeeds, second batch fails permanently: the first
	// batch's results must already be in the store.
	mapper := &fakeMapper{
		responses: map[string]*domain.FigiEntry{
			"US9229087690": {Ticker: "VTI"},
			"US0378331005": {Ticker: "AAPL"},
		},
		errs: []error{nil, &ServiceError{StatusCode: 400, Transient: false}},
	}
	store := NewMemStore()
	r := NewResolver(mapper, store, fastConfig(), nil)

	_, err := r.Resolve(context.Background(), []string{
		"US9229087690", "US0378331005", // batch 1
		"US1111111116", // batch 2, fails
	})
	require.Error(t, err)

	entry, ok := store.Get("US9229087690")
	require.True(t, ok)
	assert.Equal(t, "VTI", entry.Ticker)
	_, ok = store.Get("US1111111116")
	assert.False(t, ok)
}

func TestResolver_ContextCancellation(t *testing.T) {
	mapper := &fakeMapper{errs: []error{
		&ServiceError{StatusCode: 503, Transient: true},
	}}
	cfg := fastConfig()
	cfg.RetryBaseDelay = time.Minute // force the retry wait to block

	ctx, cancel := context.WithCancel(context.Background())
	r := NewResolver(mapper, NewMemStore(), cfg, nil)

	done := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, []string{"US9229087690"})
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("resolver did not honor cancellation")
	}
}
