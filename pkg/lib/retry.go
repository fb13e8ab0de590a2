package lib

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrRetriesExceeded is returned when every attempt was throttled.
var ErrRetriesExceeded = errors.New("max retries exceeded for throttled request")

// RetryClient retries requests the upstream rejected as throttled (429) or
// overloaded (503). It implements RequestDoer.
type RetryClient struct {
	client     RequestDoer
	logger     *zerolog.Logger
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func NewRetryClient(client RequestDoer, logger *zerolog.Logger, maxRetries int) *RetryClient {
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &RetryClient{
		client:     client,
		logger:     logger,
		maxRetries: maxRetries,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   30 * time.Second,
	}
}

// WithBackoff overrides the exponential backoff bounds.
func (r *RetryClient) WithBackoff(base, max time.Duration) *RetryClient {
	r.baseDelay = base
	r.maxDelay = max
	return r
}

func (r *RetryClient) Do(req *http.Request) (*http.Response, error) {
	for attempt := range r.maxRetries {
		if attempt > 0 {
			clonedReq, err := cloneRequest(req)
			if err != nil {
				return nil, fmt.Errorf("clone request: %w", err)
			}
			req = clonedReq
		}

		resp, err := r.client.Do(req)
		if err != nil {
			r.logger.Debug().
				Err(err).
				Str("host", req.URL.Host).
				Int("attempt", attempt).
				Msg("Request failed")
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
			r.logger.Trace().
				Str("host", req.URL.Host).
				Int("status_code", resp.StatusCode).
				Int("attempt", attempt).
				Msg("Request completed")
			return resp, nil
		}

		resp.Body.Close()

		delay := r.backoff(attempt, resp.Header.Get("Retry-After"))
		r.logger.Debug().
			Str("host", req.URL.Host).
			Int("status_code", resp.StatusCode).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Upstream throttled request, retrying with backoff")

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}
	}

	return nil, ErrRetriesExceeded
}

func (r *RetryClient) backoff(attempt int, retryAfter string) time.Duration {
	if d := parseRetryAfter(retryAfter); d > 0 {
		return min(d, r.maxDelay)
	}

	delay := r.baseDelay * time.Duration(1<<attempt)
	if r.baseDelay > 0 {
		delay += time.Duration(rand.Int64N(int64(r.baseDelay)))
	}

	return min(delay, r.maxDelay)
}

// parseRetryAfter understands both delta-seconds and HTTP-date forms.
func parseRetryAfter(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second
	}

	if t, err := http.ParseTime(s); err == nil {
		return time.Until(t)
	}

	return 0
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	clonedReq := req.Clone(req.Context())
	if req.Body != nil && req.Body != http.NoBody {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		clonedReq.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}
	return clonedReq, nil
}
