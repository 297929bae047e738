// Package api is the HTTP+JSON client for the Sideline backend.
//
// All responses are decoded into the Raw* shapes in types.go, which keep every
// field optional. Canonicalization happens in package feed, not here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/sideline/internal/httpclient"
)

// ErrUnauthorized matches any 401 response and any locally expired token.
var ErrUnauthorized = errors.New("api: unauthorized")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Code)
	}
	return fmt.Sprintf("api: status %d: %s", e.Code, e.Message)
}

// Is lets errors.Is(err, ErrUnauthorized) match HTTP 401.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Code == http.StatusUnauthorized
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	// RequestsPerSecond caps outgoing requests. Zero means 8/s.
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// Client talks to the backend. Safe for concurrent use.
type Client struct {
	baseURL  string
	creds    Credentials
	client   *http.Client
	limiter  *rate.Limiter
	backoffs []time.Duration
	now      func() time.Time
}

// New creates a Client. An opaque (non-JWT) token is sent as-is.
func New(opts Options) *Client {
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 8
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = httpclient.Default()
	}
	creds, _ := ParseToken(opts.Token)
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		creds:    creds,
		client:   hc,
		limiter:  rate.NewLimiter(rate.Limit(rps), 4),
		backoffs: []time.Duration{500 * time.Millisecond, 1 * time.Second, 2 * time.Second},
		now:      time.Now,
	}
}

// Credentials returns the parsed bearer token.
func (c *Client) Credentials() Credentials {
	return c.creds
}

// requireAuth fails fast for actions that need a live session.
func (c *Client) requireAuth() error {
	if c.creds.Token == "" {
		return fmt.Errorf("api: no token: %w", ErrUnauthorized)
	}
	if c.creds.Expired(c.now()) {
		return fmt.Errorf("api: token expired at %s: %w", c.creds.Expires.Format(time.RFC3339), ErrUnauthorized)
	}
	return nil
}

// personalized paths must never be served from an intermediary cache.
func personalized(path string) bool {
	return path == "/me" || strings.HasPrefix(path, "/users/")
}

// do sends one request and decodes a 2xx body into out (when non-nil).
// GETs are retried on 429 and 5xx; mutations are sent exactly once.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: marshal %s %s: %w", method, path, err)
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	retries := 0
	if method == http.MethodGet {
		retries = len(c.backoffs)
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("api: rate limiter wait: %w", err)
		}

		var rdr io.Reader
		if payload != nil {
			rdr = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, rdr)
		if err != nil {
			return fmt.Errorf("api: build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.creds.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.creds.Token)
		}
		if personalized(path) {
			req.Header.Set("Cache-Control", "no-store")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("api: %s %s cancelled: %w", method, path, ctx.Err())
			}
			return fmt.Errorf("api: %s %s: %w", method, path, err)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("api: read %s %s: %w", method, path, err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if out == nil || len(bytes.TrimSpace(data)) == 0 {
				return nil
			}
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("api: decode %s %s: %w", method, path, err)
			}
			return nil
		}

		lastErr = &StatusError{Code: resp.StatusCode, Message: errorMessage(data)}
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if !retryable || attempt >= retries {
			break
		}

		wait := c.backoffs[attempt]
		if resp.StatusCode == http.StatusTooManyRequests {
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
				wait = time.Duration(secs) * time.Second
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("api: %s %s cancelled during retry: %w", method, path, ctx.Err())
		case <-time.After(wait):
		}
	}
	return lastErr
}

// errorMessage extracts {"error"} or {"message"} from a failure body, falling
// back to the raw text.
func errorMessage(data []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
