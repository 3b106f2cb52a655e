// Package leetcode implements the LeetCode GraphQL client used to pull
// public profile statistics.
package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/codeclub/leetboard/internal/domain/profile"
	"github.com/codeclub/leetboard/internal/domain/shared"
	"github.com/codeclub/leetboard/pkg/logger"
	"github.com/codeclub/leetboard/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// DefaultEndpoint is the public LeetCode GraphQL endpoint.
const DefaultEndpoint = "https://leetcode.com/graphql"

// ClientConfig contains configuration for the LeetCode client.
type ClientConfig struct {
	// Endpoint is the GraphQL URL.
	Endpoint string

	// Timeout is the hard limit for a single request, including the wait
	// for the rate limiter.
	Timeout time.Duration

	// RequestsPerSecond and Burst configure outbound pacing.
	// RequestsPerSecond <= 0 disables the limiter.
	RequestsPerSecond float64
	Burst             int

	// ValidateMaxRetries is the number of retries after the first attempt
	// made by Validate. Fetch never retries.
	ValidateMaxRetries int

	// ValidateBackoffStep is the linear backoff unit: attempt*step.
	ValidateBackoffStep time.Duration

	UserAgent string

	// Recorder receives every Fetch outcome (optional).
	Recorder Recorder

	// HTTPClient overrides the transport (optional).
	HTTPClient *http.Client

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:            DefaultEndpoint,
		Timeout:             5 * time.Second,
		RequestsPerSecond:   4,
		Burst:               4,
		ValidateMaxRetries:  2,
		ValidateBackoffStep: 500 * time.Millisecond,
		UserAgent:           "leetboard/1.0",
	}
}

// Recorder observes fetch outcomes.
type Recorder interface {
	ObserveFetch(outcome profile.Outcome, reason profile.FailureReason, d time.Duration)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// RequestError is a failed request with its classified reason.
type RequestError struct {
	Reason     profile.FailureReason
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("leetcode request failed (%s, status %d): %v", e.Reason, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("leetcode request failed (%s): %v", e.Reason, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Retryable reports whether the same request may succeed later.
// Client errors (4xx, including 429) are never retried.
func (e *RequestError) Retryable() bool {
	switch e.Reason {
	case profile.ReasonTimeout, profile.ReasonServerError, profile.ReasonNetwork:
		return true
	default:
		return false
	}
}

var errUserNotFound = errors.New("leetcode: user does not exist")

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the LeetCode GraphQL client.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	validator  *retry.Retrier
	logger     *slog.Logger
}

// NewClient creates a new LeetCode client.
func NewClient(config ClientConfig) *Client {
	defaults := DefaultClientConfig()
	if config.Endpoint == "" {
		config.Endpoint = defaults.Endpoint
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.ValidateMaxRetries < 0 {
		config.ValidateMaxRetries = 0
	}
	if config.ValidateBackoffStep <= 0 {
		config.ValidateBackoffStep = defaults.ValidateBackoffStep
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		limiter:    limiter,
		validator:  retry.ProfileValidationRetrier(config.ValidateMaxRetries, config.ValidateBackoffStep),
		logger:     logger.With("component", "leetcode_client"),
	}
}

// Fetch retrieves stats for username with a single attempt bounded by
// the configured timeout. It never returns an error: every outcome,
// including timeouts and malformed responses, is reported in FetchResult.
func (c *Client) Fetch(ctx context.Context, username string) profile.FetchResult {
	started := time.Now()
	result := profile.FetchResult{Username: username}

	stats, err := c.fetchOnce(ctx, username)
	result.Duration = time.Since(started)

	switch {
	case err == nil:
		result.Outcome = profile.OutcomeFound
		result.Stats = *stats
	case errors.Is(err, errUserNotFound):
		result.Outcome = profile.OutcomeNotFound
	default:
		result.Outcome = profile.OutcomeFailed
		result.Reason = profile.ReasonNetwork
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			result.Reason = reqErr.Reason
		}
		result.Err = err
		c.logger.Warn("profile fetch failed",
			logger.Username(username),
			"reason", result.Reason,
			"duration", result.Duration,
			logger.Err(err),
		)
	}

	if c.config.Recorder != nil {
		c.config.Recorder.ObserveFetch(result.Outcome, result.Reason, result.Duration)
	}
	return result
}

// Validate checks that username exists and returns its current stats.
// Timeouts, network errors and 5xx responses are retried with linear
// backoff; other 4xx responses and not-found are not. Returned errors
// are human-readable: shared.ErrProfileNotFound or
// shared.ErrProfileVerificationFailed.
func (c *Client) Validate(ctx context.Context, username string) (*profile.Stats, error) {
	attempts := 0
	stats, err := retry.DoWithData(ctx, c.validator, func(ctx context.Context) (*profile.Stats, error) {
		attempts++
		stats, err := c.fetchOnce(ctx, username)
		if err == nil {
			return stats, nil
		}
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.Retryable() {
			c.logger.Debug("profile validation attempt failed",
				logger.Username(username),
				"attempt", attempts,
				"reason", reqErr.Reason,
			)
			return nil, retry.Retryable(err)
		}
		return nil, retry.Permanent(err)
	})
	if err == nil {
		return stats, nil
	}

	if errors.Is(err, errUserNotFound) {
		return nil, shared.ErrProfileNotFound
	}

	c.logger.Warn("profile validation failed",
		logger.Username(username),
		"attempts", attempts,
		logger.Err(err),
	)
	return nil, shared.ErrProfileVerificationFailed.Wrap(err)
}

// fetchOnce performs one bounded request and maps the response.
func (c *Client) fetchOnce(ctx context.Context, username string) (*profile.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, &RequestError{Reason: profile.ReasonCanceled, Err: err}
		}
		// the limiter refuses early when the wait would outlast the deadline
		return nil, &RequestError{Reason: profile.ReasonTimeout, Err: shared.ErrLeetCodeTimeout.Wrap(err)}
	}

	var resp ProfileResponseDTO
	if err := c.doRequest(ctx, newProfileRequest(username), &resp); err != nil {
		return nil, err
	}

	if resp.Data == nil {
		if len(resp.Errors) > 0 {
			return nil, &RequestError{Reason: profile.ReasonDecode, Err: shared.ErrLeetCodeInvalidResponse.Wrap(resp.Errors[0])}
		}
		return nil, &RequestError{Reason: profile.ReasonDecode, Err: shared.ErrLeetCodeInvalidResponse}
	}
	if resp.Data.MatchedUser == nil {
		return nil, errUserNotFound
	}

	stats := StatsFromDTO(resp.Data.MatchedUser, resp.Data.UserContestRanking)
	return &stats, nil
}

// doRequest performs a single GraphQL POST.
func (c *Client) doRequest(ctx context.Context, body GraphQLRequestDTO, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Referer", "https://leetcode.com")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(ctx, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RequestError{Reason: profile.ReasonRateLimited, StatusCode: resp.StatusCode, Err: shared.ErrLeetCodeRateLimited}
	case resp.StatusCode >= 500:
		return &RequestError{Reason: profile.ReasonServerError, StatusCode: resp.StatusCode, Err: shared.ErrLeetCodeUnavailable}
	case resp.StatusCode >= 400:
		return &RequestError{Reason: profile.ReasonHTTPStatus, StatusCode: resp.StatusCode, Err: shared.ErrLeetCodeRejected}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return &RequestError{Reason: profile.ReasonDecode, StatusCode: resp.StatusCode, Err: shared.ErrLeetCodeInvalidResponse.Wrap(err)}
	}
	return nil
}

// classifyTransportError distinguishes timeouts and cancellation from other
// network failures.
func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &RequestError{Reason: profile.ReasonTimeout, Err: shared.ErrLeetCodeTimeout.Wrap(err)}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &RequestError{Reason: profile.ReasonTimeout, Err: shared.ErrLeetCodeTimeout.Wrap(err)}
	}
	if errors.Is(err, context.Canceled) {
		return &RequestError{Reason: profile.ReasonCanceled, Err: err}
	}
	return &RequestError{Reason: profile.ReasonNetwork, Err: shared.ErrLeetCodeUnavailable.Wrap(err)}
}
