// Package api is the HTTP client core for the TaskFlow server. Every
// outbound call carries the current access token, and access-token expiry is
// invisible to callers: an intercepted 401/403 triggers a single shared
// refresh, after which the original request is retried exactly once.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-taskflow-client/store"
)

// DefaultTimeout is the fixed per-request timeout. A timed-out request
// surfaces as a connectivity error, not an auth failure, and therefore never
// enters the refresh path.
const DefaultTimeout = 30 * time.Second

// SessionNotifier receives the two session signals raised by the refresh
// protocol. The events.Bus satisfies it; injecting the interface keeps the
// client free of ambient globals.
type SessionNotifier interface {
	NotifySessionExpired(reason string, err error)
	NotifyTokenRefreshed()
}

// Client makes authenticated JSON calls against the TaskFlow API.
type Client struct {
	baseURL   string
	http      *http.Client
	store     store.Store
	refresher *refresher
	log       zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (primarily for tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
		c.refresher.http = h
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.log = logger
		c.refresher.log = logger
	}
}

// New creates a Client for the given base URL. The store supplies the
// current tokens; the notifier is told about refreshes and session expiry.
func New(baseURL string, st store.Store, notifier SessionNotifier, options ...Option) *Client {
	httpClient := &http.Client{Timeout: DefaultTimeout}
	client := &Client{
		baseURL: baseURL,
		http:    httpClient,
		store:   st,
		log:     zerolog.Nop(),
	}
	client.refresher = &refresher{
		baseURL:  baseURL,
		http:     httpClient,
		store:    st,
		notifier: notifier,
		log:      client.log,
	}

	for _, opt := range options {
		opt(client)
	}
	return client
}

// Response is the envelope every endpoint answers with: a declared success
// flag plus an optional message.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (r Response) ok() bool { return r.Success }

func (r Response) failureMessage() string { return r.Message }

type envelope interface {
	ok() bool
	failureMessage() string
}

// EnsureAccessToken returns an access token believed valid, refreshing
// proactively when the stored one is missing, expired, or about to expire.
// Used before opening the realtime connection.
func (c *Client) EnsureAccessToken(ctx context.Context) (string, error) {
	token, err := c.store.Get(ctx, store.AccessTokenKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	if token != "" && !expiresWithin(token, tokenExpiryLeeway) {
		return token, nil
	}
	return c.refresher.refresh(ctx)
}

// do performs one API call: send with the stored access token, and on an
// auth failure run the refresh protocol and retry exactly once with the new
// token. A second auth failure passes through unchanged.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request body: %w", err)
		}
	}

	status, raw, err := c.send(ctx, method, path, payload, "")
	if err != nil {
		return err
	}

	if isAuthStatus(status) {
		c.log.Debug().Int("status", status).Str("path", path).Msg("auth failure, entering refresh")

		token, refreshErr := c.refresher.refresh(ctx)
		if refreshErr != nil {
			return refreshErr
		}

		status, raw, err = c.send(ctx, method, path, payload, token)
		if err != nil {
			return err
		}
	}

	return decode(status, raw, out)
}

// send issues a single HTTP request. The access token is read from the
// store unless an explicit one is supplied (the retry after a refresh);
// absence of a token simply sends the request unauthenticated.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	if token == "" {
		stored, err := c.store.Get(ctx, store.AccessTokenKey)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			c.log.Warn().Err(err).Msg("reading access token from store")
		}
		token = stored
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log.Debug().Str("request_id", requestID).Str("method", method).Str("path", path).Msg("api request")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s %s: %v", ErrConnectivity, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read response: %v", ErrConnectivity, err)
	}
	return resp.StatusCode, raw, nil
}

// decode maps an HTTP response onto out. HTTP-level failures and declared
// failures (success=false) both become *Error carrying the server message.
func decode(status int, raw []byte, out any) error {
	if status >= http.StatusBadRequest {
		var env Response
		_ = json.Unmarshal(raw, &env)
		return &Error{StatusCode: status, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	if env, ok := out.(envelope); ok && !env.ok() {
		return &Error{StatusCode: status, Message: env.failureMessage()}
	}
	return nil
}
