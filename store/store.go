// Package store defines the secure key-value storage used to persist the
// credential pair and the cached user record between runs.
package store

import (
	"context"
	"errors"
)

// Well-known keys. The access and refresh tokens are opaque strings owned by
// the auth manager; the user key holds the cached user record as JSON.
const (
	AccessTokenKey  = "taskflow_access_token"
	RefreshTokenKey = "taskflow_refresh_token"
	UserKey         = "taskflow_user_data"
)

// ErrNotFound is returned by Get when the key has no stored value.
var ErrNotFound = errors.New("store: key not found")

// Store is a persistent string key-value store. Implementations must be safe
// for concurrent use; Delete on an absent key is a no-op.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Clear removes every session key. Missing keys are ignored so that a clear
// during teardown is idempotent.
func Clear(ctx context.Context, s Store) error {
	var firstErr error
	for _, key := range []string{AccessTokenKey, RefreshTokenKey, UserKey} {
		if err := s.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
