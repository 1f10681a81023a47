package figi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"fundcli/pkg/contracts/domain"
)

// DefaultEndpointURL is the OpenFIGI v3 mapping endpoint.
const DefaultEndpointURL = "https://api.openfigi.com/v3/mapping"

// ServiceError reports a failed mapping call. Transient errors (network,
// 429, 5xx) may be retried; everything else is permanent, because partial
// identifier data silently miscategorizes funds downstream.
type ServiceError struct {
	StatusCode int // zero for network-level failures
	Transient  bool
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("openfigi request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("openfigi request failed: %v", e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// mappingJob is one entry of an OpenFIGI mapping request.
type mappingJob struct {
	IDType       string `json:"idType"`
	IDValue      string `json:"idValue"`
	SecurityType string `json:"securityType,omitempty"`
}

// mappingResult is one entry of an OpenFIGI mapping response, positionally
// matching the submitted job.
type mappingResult struct {
	Data  []figiMatch `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type figiMatch struct {
	Ticker   string `json:"ticker"`
	ExchCode string `json:"exchCode"`
	Name     string `json:"name"`
}

// Client submits batch mapping requests to the OpenFIGI API.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an OpenFIGI client. An empty endpoint uses
// DefaultEndpointURL; an empty API key sends unauthenticated requests at
// the lower public rate tier.
func NewClient(endpoint, apiKey string, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpointURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// MapISINs submits one batch of ISINs and returns one entry per ISIN, in
// order. A nil entry means the service had no acceptable match for that
// ISIN.
func (c *Client) MapISINs(ctx context.Context, isins []string) ([]*domain.FigiEntry, error) {
	jobs := make([]mappingJob, len(isins))
	for i, isin := range isins {
		jobs[i] = mappingJob{IDType: "ID_ISIN", IDValue: isin, SecurityType: "ETP"}
	}

	body, err := json.Marshal(jobs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mapping jobs: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build mapping request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-OPENFIGI-APIKEY", c.apiKey)
	}

	c.logger.Debug("calling openfigi mapping endpoint",
		slog.String("endpoint", c.endpoint),
		slog.Int("jobs", len(jobs)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, &ServiceError{StatusCode: resp.StatusCode, Transient: transient}
	}

	var results []mappingResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode mapping response: %w", err)
	}
	if len(results) != len(isins) {
		return nil, fmt.Errorf("mapping response has %d results for %d jobs", len(results), len(isins))
	}

	entries := make([]*domain.FigiEntry, len(results))
	for i, res := range results {
		entries[i] = bestMatch(res)
	}
	return entries, nil
}

// bestMatch picks the single listing worth publishing: the composite "US"
// exchange code wins outright, otherwise the first listing on AMEX, NYSE,
// NASDAQ or ARCA. Anything else is treated as no match.
func bestMatch(res mappingResult) *domain.FigiEntry {
	var fallback *domain.FigiEntry
	for _, m := range res.Data {
		if m.Ticker == "" {
			continue
		}
		entry := &domain.FigiEntry{Ticker: m.Ticker, ExchCode: m.ExchCode, Name: m.Name}
		switch m.ExchCode {
		case "US":
			return entry
		case "UA", "UN", "UP", "UR":
			if fallback == nil {
				fallback = entry
			}
		}
	}
	return fallback
}
