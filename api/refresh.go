package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/go-taskflow-client/store"
)

// refreshPath is called directly, outside the interception in Client.do, so
// a failing refresh can never recurse into another refresh.
const refreshPath = "/api/auth/refresh"

// refresher owns the single-flight token rotation. However many requests
// fail with an auth status at once, at most one refresh call reaches the
// server, and every waiter shares that call's outcome. Without the guard, N
// concurrent 401s would race N refresh calls and invalidate the session for
// all but one of them.
type refresher struct {
	baseURL  string
	http     *http.Client
	store    store.Store
	notifier SessionNotifier
	log      zerolog.Logger

	group singleflight.Group
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Response
	AccessToken string `json:"accessToken"`
}

// refresh exchanges the stored refresh token for a new access token and
// persists it. On any failure the session is torn down: all stored keys are
// removed and the session-expired signal is broadcast with a reason that
// distinguishes inactivity (403) from generic expiry.
func (r *refresher) refresh(ctx context.Context) (string, error) {
	token, err, shared := r.group.Do("refresh", func() (any, error) {
		// Detached from the triggering request's context: the outcome is
		// shared by every queued caller, so one caller cancelling must not
		// fail the rest. The HTTP client timeout still bounds the call.
		return r.refreshOnce(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	if shared {
		r.log.Debug().Msg("refresh outcome shared with queued request")
	}
	return token.(string), nil
}

func (r *refresher) refreshOnce(ctx context.Context) (string, error) {
	refreshToken, err := r.store.Get(ctx, store.RefreshTokenKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", r.fail(ctx, 0, ErrNoRefreshToken)
		}
		return "", r.fail(ctx, 0, err)
	}

	status, accessToken, err := r.call(ctx, refreshToken)
	if err != nil {
		return "", r.fail(ctx, status, err)
	}

	if err := r.store.Set(ctx, store.AccessTokenKey, accessToken); err != nil {
		return "", r.fail(ctx, 0, fmt.Errorf("persist access token: %w", err))
	}

	r.log.Debug().Msg("access token refreshed")
	r.notifier.NotifyTokenRefreshed()
	return accessToken, nil
}

// call posts the refresh token to the refresh endpoint with a bare request,
// bypassing Client.do.
func (r *refresher) call(ctx context.Context, refreshToken string) (status int, accessToken string, err error) {
	payload, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return 0, "", fmt.Errorf("encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+refreshPath, bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("%w: refresh call: %v", ErrConnectivity, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("%w: read refresh response: %v", ErrConnectivity, err)
	}

	var body refreshResponse
	if resp.StatusCode >= http.StatusBadRequest {
		_ = json.Unmarshal(raw, &body)
		return resp.StatusCode, "", &Error{StatusCode: resp.StatusCode, Message: body.Message}
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return resp.StatusCode, "", fmt.Errorf("decode refresh response: %w", err)
	}
	if !body.ok() {
		return resp.StatusCode, "", &Error{StatusCode: resp.StatusCode, Message: body.Message}
	}
	if body.AccessToken == "" {
		return resp.StatusCode, "", errors.New("refresh response missing access token")
	}
	return resp.StatusCode, body.AccessToken, nil
}

// fail tears down the session: clear all stored keys, broadcast
// session-expired, and wrap the cause so callers can inspect it.
func (r *refresher) fail(ctx context.Context, status int, cause error) error {
	var apiErr *Error
	if errors.As(cause, &apiErr) && status == 0 {
		status = apiErr.StatusCode
	}

	refreshErr := &RefreshError{StatusCode: status, cause: cause}

	if err := store.Clear(ctx, r.store); err != nil {
		r.log.Err(err).Msg("clearing session store after refresh failure")
	}

	r.log.Warn().Err(cause).Int("status", status).Msg("token refresh failed, session expired")
	r.notifier.NotifySessionExpired(refreshErr.Reason(), refreshErr)
	return refreshErr
}
