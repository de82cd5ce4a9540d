// Package upstream is the shared JSON-over-HTTP client used for every
// external read: a per-upstream timeout, token-bucket rate limit and
// circuit breaker, with Prometheus accounting.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/web3-frozen/aptos-yield-monitor/internal/metrics"
)

// StatusError is a non-2xx response.
type StatusError struct {
	Upstream string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s API status: %d", e.Upstream, e.Code)
	}
	return fmt.Sprintf("%s API status: %d: %s", e.Upstream, e.Code, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

type Options struct {
	Timeout time.Duration
	// RatePerSecond <= 0 disables limiting.
	RatePerSecond float64
	Burst         int
	// Consecutive failures before the breaker opens; 0 means 5.
	FailureThreshold uint32
	// How long the breaker stays open; 0 means 30s.
	OpenTimeout time.Duration
	Headers     map[string]string
}

type Client struct {
	name    string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	headers map[string]string
}

func New(name string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}

	c := &Client{
		name:    name,
		http:    &http.Client{Timeout: opts.Timeout},
		headers: opts.Headers,
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	threshold := opts.FailureThreshold
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	return c
}

func (c *Client) Name() string { return c.name }

// GetJSON issues a GET and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s request: %w", c.name, err)
	}
	return c.Do(req, headers, out)
}

// PostJSON marshals body, POSTs it and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, body any, headers map[string]string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", c.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(req, headers, out)
}

// Do sends req through the limiter and breaker. out may be nil.
func (c *Client) Do(req *http.Request, headers map[string]string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return fmt.Errorf("%s rate limit: %w", c.name, err)
		}
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.send(req, out)
	})
	metrics.UpstreamDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())

	status := "ok"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		status = "breaker_open"
		err = fmt.Errorf("%s API: %w", c.name, err)
	case err != nil:
		status = "error"
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(c.name, status).Inc()
	return err
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s API: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Upstream: c.name, Code: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", c.name, err)
	}
	return nil
}
