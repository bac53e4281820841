package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Session-loss reasons surfaced to the user verbatim. A 403 from the refresh
// endpoint means the refresh token was invalidated server-side for
// inactivity; anything else is generic expiry.
const (
	ReasonInactivity = "Your session expired due to inactivity"
	ReasonExpired    = "Your session has expired"
)

var (
	// ErrNoRefreshToken is the refresh failure raised when the store holds
	// no refresh token.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrConnectivity marks transport failures: the request never completed.
	ErrConnectivity = errors.New("cannot reach the server")
)

// Error is a declared API failure: the server answered but reported the
// operation unsuccessful. Message is the server-provided text.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// RefreshError is terminal for the session: the refresh attempt itself
// failed. It wraps the underlying cause and records the refresh endpoint's
// status code (0 when the call never completed).
type RefreshError struct {
	StatusCode int
	cause      error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.cause)
}

func (e *RefreshError) Unwrap() error { return e.cause }

// Reason maps the failure onto the user-visible session-loss message.
func (e *RefreshError) Reason() string {
	if e.StatusCode == http.StatusForbidden {
		return ReasonInactivity
	}
	return ReasonExpired
}

// isAuthStatus reports whether the status code triggers the refresh
// protocol. Unauthorized and forbidden/invalid-token are treated alike.
func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// UserMessage reduces any error from this package to a single
// human-readable message suitable for direct display.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	var refreshErr *RefreshError
	if errors.As(err, &refreshErr) {
		return refreshErr.Reason()
	}
	if errors.Is(err, ErrConnectivity) {
		return "Cannot reach the server. Check your connection and try again."
	}
	return err.Error()
}
