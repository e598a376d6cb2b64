// Package scorer is the HTTP client for the external recommendation engine.
// Each call is a single POST /recommend with an explicit timeout; calls are
// never retried. A circuit breaker stops dialing a scorer that keeps failing.
package scorer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	defaultBaseURL          = "http://localhost:5000"
	defaultTimeout          = 10 * time.Second
	defaultFailureThreshold = 5
	defaultOpenTimeout      = 30 * time.Second
	maxResponseBody         = 4 << 20
)

// Config configures the scorer client.
type Config struct {
	BaseURL string
	// Timeout bounds a single call, including reading the response.
	Timeout time.Duration
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before letting a probe through.
	OpenTimeout time.Duration
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]Recommendation]
	metrics    *Metrics
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger, metrics *Metrics) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = defaultFailureThreshold
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = defaultOpenTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL: baseURL,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]Recommendation](gobreaker.Settings{
		Name:        "scorer",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// The caller giving up or sending a request the scorer rejects
			// says nothing about the scorer's health.
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var upstreamErr *UpstreamError
			return errors.As(err, &upstreamErr) && upstreamErr.StatusCode >= 400 && upstreamErr.StatusCode < 500
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Scorer circuit breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if c.metrics != nil {
				if to == gobreaker.StateOpen {
					c.metrics.BreakerState.Set(1)
				} else {
					c.metrics.BreakerState.Set(0)
				}
			}
		},
	})

	return c
}

// Recommend sends the seed songs to the scorer and returns its
// recommendations exactly as received. Any failure reaching or reading the
// scorer is an *UpstreamError.
func (c *Client) Recommend(ctx context.Context, req Request) ([]Recommendation, error) {
	start := time.Now()
	recs, err := c.breaker.Execute(func() ([]Recommendation, error) {
		return c.doRecommend(ctx, req)
	})
	c.observe(start, err)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &UpstreamError{Err: err}
	}
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *Client) doRecommend(ctx context.Context, payload Request) ([]Recommendation, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("scorer: marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recommend", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("scorer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Sending songs to recommendation service",
		zap.Int("songs", len(payload.Songs)),
		zap.Int("n_recommendations", payload.NRecommendations))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Recommendation service request failed", zap.Error(err))
		return nil, &UpstreamError{Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		c.logger.Error("Reading recommendation service response failed", zap.Error(err))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Timeout: isTimeout(err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("Recommendation service returned an error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       trimBody(respBody),
			Err:        fmt.Errorf("scorer: unexpected status %d", resp.StatusCode),
		}
	}

	var parsed response
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		c.logger.Error("Decoding recommendation service response failed", zap.Error(err))
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       "malformed response",
			Err:        fmt.Errorf("scorer: decode response: %w", err),
		}
	}

	if parsed.Recommendations == nil {
		parsed.Recommendations = []Recommendation{}
	}
	return parsed.Recommendations, nil
}

func (c *Client) observe(start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.CallDuration.Observe(time.Since(start).Seconds())

	outcome := "success"
	var upstreamErr *UpstreamError
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "rejected"
	case errors.As(err, &upstreamErr) && upstreamErr.Timeout:
		outcome = "timeout"
	default:
		outcome = "error"
	}
	c.metrics.CallsTotal.WithLabelValues(outcome).Inc()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
