// Package chat provides a client for the facility question-answering
// backend. Only the answer text and the facility names it references are
// consumed by the map.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client defines the chat backend operations.
type Client interface {
	// Ask posts a question and returns the backend's answer.
	Ask(ctx context.Context, question string) (*Response, error)
}

// Response is the backend answer. Only Synthesis and FacilityNames are
// guaranteed; the rest is passed through when present.
type Response struct {
	Synthesis     string           `json:"synthesis"`
	FacilityNames []string         `json:"facility_names"`
	Intent        string           `json:"intent,omitempty"`
	Elapsed       float64          `json:"elapsed,omitempty"`
	Citations     []map[string]any `json:"citations,omitempty"`
	Filters       *Filters         `json:"filters,omitempty"`
}

// Filters are the map filters the backend extracted from the question.
type Filters struct {
	Specialty string   `json:"specialty,omitempty"`
	Types     []string `json:"types,omitempty"`
}

type queryRequest struct {
	Question string `json:"question"`
}

// Option configures the chat client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit throttles requests to rps. Zero or less disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithBackoff sets the initial retry backoff.
func WithBackoff(d time.Duration) Option {
	return func(c *httpClient) {
		c.backoff = d
	}
}

// WithBreaker stops calling the backend for reset after threshold
// consecutive failed questions. A zero threshold disables the breaker.
func WithBreaker(threshold int, reset time.Duration) Option {
	return func(c *httpClient) {
		if threshold > 0 {
			c.breaker = newBreaker(threshold, reset)
		} else {
			c.breaker = nil
		}
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	backoff time.Duration
	breaker *breaker
}

// NewClient creates a chat client for the backend at baseURL. Questions
// take a while to answer, so the default timeout is a minute.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: rate.NewLimiter(2, 2),
		backoff: time.Second,
		breaker: newBreaker(5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

// retryDo executes req with exponential backoff on transient failures. The
// body is rewound from GetBody before each retry.
func (c *httpClient) retryDo(ctx context.Context, req *http.Request) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := c.backoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		retryReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, 0, eris.Wrap(err, "chat: rewind request body")
			}
			retryReq.Body = body
		}

		resp, err := c.http.Do(retryReq)
		if err != nil {
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				return nil, resp.StatusCode, eris.Wrap(readErr, "chat: read response body")
			}
			if !retryableStatusCode(resp.StatusCode) || attempt == maxAttempts {
				return body, resp.StatusCode, nil
			}
			lastErr = eris.Errorf("chat: status %d: %s", resp.StatusCode, string(body))
		}

		if attempt == maxAttempts {
			break
		}
		zap.L().Debug("chat: retrying", zap.Int("attempt", attempt), zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, 0, lastErr
}

func (c *httpClient) Ask(ctx context.Context, question string) (*Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, eris.New("chat: empty question")
	}
	if c.breaker == nil {
		return c.ask(ctx, question)
	}
	if err := c.breaker.allow(); err != nil {
		return nil, err
	}
	resp, err := c.ask(ctx, question)
	if ctx.Err() != nil {
		c.breaker.abandon()
	} else {
		c.breaker.record(err)
	}
	return resp, err
}

func (c *httpClient) ask(ctx context.Context, question string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "chat: rate limit")
		}
	}

	payload, err := json.Marshal(queryRequest{Question: question})
	if err != nil {
		return nil, eris.Wrap(err, "chat: marshal request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/query", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "chat: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	body, statusCode, err := c.retryDo(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "chat: request failed")
	}
	if statusCode != http.StatusOK {
		return nil, eris.Errorf("chat: unexpected status %d: %s", statusCode, string(body))
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "chat: unmarshal response")
	}
	if out.FacilityNames == nil {
		out.FacilityNames = []string{}
	}

	zap.L().Info("chat: answered",
		zap.String("intent", out.Intent),
		zap.Int("facility_names", len(out.FacilityNames)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &out, nil
}
