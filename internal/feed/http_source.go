// Package feed adapts upstream transfer APIs to the typed domain model.
// Adapters either map a response completely or fail with a classified
// error; callers never see partial or untyped data.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"token-feature-engine/internal/domain"
)

// Default configuration values.
const (
	DefaultCallTimeout   = 15 * time.Second
	DefaultMaxRetries    = 3
	DefaultInitialDelay  = 500 * time.Millisecond
	DefaultMaxRetryDelay = 10 * time.Second
)

// TransferSource fetches transfer history for one token.
type TransferSource interface {
	// GetTransfers returns events at or after sinceMs, ascending by
	// timestamp. Failures are ErrUpstreamUnavailable, ErrUpstreamMalformed
	// or ErrTokenNotFound.
	GetTransfers(ctx context.Context, tokenID string, sinceMs int64) ([]*domain.TransferEvent, error)
}

// HTTPSource implements TransferSource over a JSON HTTP API with a bounded
// retry policy.
type HTTPSource struct {
	endpoint     string
	client       *http.Client
	callTimeout  time.Duration
	maxRetries   uint64
	initialDelay time.Duration
	maxDelay     time.Duration
	logger       *log.Logger
}

// SourceOption configures HTTPSource.
type SourceOption func(*HTTPSource)

// WithCallTimeout sets the per-call timeout.
func WithCallTimeout(d time.Duration) SourceOption {
	return func(s *HTTPSource) {
		s.callTimeout = d
	}
}

// WithMaxRetries sets maximum retry attempts per call.
func WithMaxRetries(n uint64) SourceOption {
	return func(s *HTTPSource) {
		s.maxRetries = n
	}
}

// WithRetryDelay sets the initial and maximum backoff delays.
func WithRetryDelay(initial, max time.Duration) SourceOption {
	return func(s *HTTPSource) {
		s.initialDelay = initial
		s.maxDelay = max
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) SourceOption {
	return func(s *HTTPSource) {
		s.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) SourceOption {
	return func(s *HTTPSource) {
		s.logger = logger
	}
}

// NewHTTPSource creates a transfer source for the given API endpoint.
func NewHTTPSource(endpoint string, opts ...SourceOption) *HTTPSource {
	s := &HTTPSource{
		endpoint:     endpoint,
		client:       &http.Client{},
		callTimeout:  DefaultCallTimeout,
		maxRetries:   DefaultMaxRetries,
		initialDelay: DefaultInitialDelay,
		maxDelay:     DefaultMaxRetryDelay,
		logger:       log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetTransfers fetches and maps the transfer history for tokenID.
// Transient failures (network, timeout, 429, 5xx) are retried with
// exponential backoff up to the configured attempt limit, then surface as
// ErrUpstreamUnavailable. Shape errors are never retried.
func (s *HTTPSource) GetTransfers(ctx context.Context, tokenID string, sinceMs int64) ([]*domain.TransferEvent, error) {
	if _, err := decodePubkey(tokenID); err != nil {
		return nil, fmt.Errorf("%w: token id: %v", ErrUpstreamMalformed, err)
	}

	var events []*domain.TransferEvent
	op := func() error {
		var err error
		events, err = s.fetch(ctx, tokenID, sinceMs)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.initialDelay
	bo.MaxInterval = s.maxDelay
	bo.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, s.maxRetries), ctx))
	if err != nil {
		return nil, err
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].TimestampMs != events[j].TimestampMs {
			return events[i].TimestampMs < events[j].TimestampMs
		}
		return events[i].Signature < events[j].Signature
	})
	return events, nil
}

// fetch performs a single attempt. Returned errors are retryable unless
// wrapped in backoff.Permanent.
func (s *HTTPSource) fetch(ctx context.Context, tokenID string, sinceMs int64) ([]*domain.TransferEvent, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/transfers?mint=%s&since=%d", s.endpoint, url.QueryEscape(tokenID), sinceMs)
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: create request: %v", ErrUpstreamUnavailable, err))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		// Timeouts included: treated as unavailable, retried until the
		// attempt limit.
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUpstreamUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrTokenNotFound, tokenID))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("%w: unexpected status %d", ErrUpstreamUnavailable, resp.StatusCode))
	}

	var wire []transferWire
	if err := json.Unmarshal(body, &wire); err != nil {
		s.logger.Printf("malformed transfer response for %s: %v", tokenID, err)
		return nil, backoff.Permanent(fmt.Errorf("%w: %v", ErrUpstreamMalformed, err))
	}

	events := make([]*domain.TransferEvent, 0, len(wire))
	for _, w := range wire {
		ev, err := mapTransfer(w)
		if err != nil {
			s.logger.Printf("malformed transfer record for %s: %v", tokenID, err)
			return nil, backoff.Permanent(err)
		}
		events = append(events, ev)
	}
	return events, nil
}
