// Package auth owns the authenticated-user state: it orchestrates login,
// registration, logout, and startup session restoration, persists the
// credential pair, and reacts to the session-expired broadcast.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-taskflow-client/api"
	"github.com/jrsteele09/go-taskflow-client/events"
	"github.com/jrsteele09/go-taskflow-client/store"
)

// Status is the session state machine:
// Unknown -> Checking -> {Authenticated, Unauthenticated}, with
// Authenticated -> Unauthenticated via Logout, LogoutAll, or a received
// session-expired signal.
type Status int

const (
	StatusUnknown Status = iota
	StatusChecking
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusChecking:
		return "checking"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Routes the manager navigates to. The Router maps them onto whatever
// navigation the host UI has.
const (
	RouteHome  = "/"
	RouteLogin = "/login"
)

// Router receives navigation requests. Replace swaps the current screen so
// a signed-out user cannot navigate back into the app.
type Router interface {
	Replace(route string)
}

// Hook runs after a session transition. OnAuthenticated receives the user
// that just signed in (or was restored); OnUnauthenticated runs after every
// local session teardown.
type Hooks struct {
	OnAuthenticated   func(user api.User)
	OnUnauthenticated func()
}

// Manager is the auth session manager.
type Manager struct {
	api       *api.Client
	store     store.Store
	router    Router
	hooks     Hooks
	validator *Validator
	log       zerolog.Logger

	offExpired func()

	lock        sync.RWMutex
	status      Status
	user        *api.User
	lastMessage string
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.log = logger }
}

// WithHooks registers session transition hooks. The composition root uses
// these to connect the realtime client and bind collection listeners.
func WithHooks(hooks Hooks) Option {
	return func(m *Manager) { m.hooks = hooks }
}

// NewManager creates a Manager and subscribes it to the session-expired
// signal on the bus. Call Close to unsubscribe.
func NewManager(apiClient *api.Client, st store.Store, bus *events.Bus, router Router, options ...Option) *Manager {
	m := &Manager{
		api:       apiClient,
		store:     st,
		router:    router,
		validator: NewValidator(),
		log:       zerolog.Nop(),
		status:    StatusUnknown,
	}
	for _, opt := range options {
		opt(m)
	}

	m.offExpired = bus.OnSessionExpired(m.handleSessionExpired)
	return m
}

// Close unsubscribes the manager from the event bus.
func (m *Manager) Close() {
	if m.offExpired != nil {
		m.offExpired()
		m.offExpired = nil
	}
}

// Status returns the current session status.
func (m *Manager) Status() Status {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.status
}

// User returns the authenticated user, or nil.
func (m *Manager) User() *api.User {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// IsAuthenticated reports whether a user is signed in.
func (m *Manager) IsAuthenticated() bool {
	return m.Status() == StatusAuthenticated
}

// LastSessionMessage returns the most recent session-loss reason, verbatim
// from the signal, for display on the login screen.
func (m *Manager) LastSessionMessage() string {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.lastMessage
}

// CheckAuth restores a previous session at startup. It always re-derives
// state from storage plus the verify endpoint, never from in-memory cache,
// so re-invoking it is idempotent.
func (m *Manager) CheckAuth(ctx context.Context) error {
	m.setStatus(StatusChecking)

	accessToken, errAccess := m.store.Get(ctx, store.AccessTokenKey)
	refreshToken, errRefresh := m.store.Get(ctx, store.RefreshTokenKey)
	userJSON, errUser := m.store.Get(ctx, store.UserKey)

	if errAccess != nil || errRefresh != nil || errUser != nil ||
		accessToken == "" || refreshToken == "" || userJSON == "" {
		m.log.Debug().Msg("no stored session, routing to login")
		m.becomeUnauthenticated(ctx)
		return nil
	}

	var user api.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		m.log.Warn().Err(err).Msg("stored user record is corrupt")
		m.becomeUnauthenticated(ctx)
		return nil
	}

	if err := m.api.Verify(ctx); err != nil {
		// A connectivity error is not a verdict on the session, but without
		// the server we cannot trust the tokens either. Treat as signed out;
		// the next CheckAuth will retry.
		m.log.Warn().Err(err).Msg("token verification failed")
		m.becomeUnauthenticated(ctx)
		return nil
	}

	m.becomeAuthenticated(user)
	return nil
}

// Login signs the user in. On failure the session state is unchanged and
// the returned error carries a single human-readable message (via
// api.UserMessage).
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if err := m.validator.ValidateLogin(email, password); err != nil {
		return err
	}

	result, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.log.Warn().Str("email", email).Msg("login failed")
		return err
	}
	return m.persistSession(ctx, result)
}

// Register creates an account and signs the user in.
func (m *Manager) Register(ctx context.Context, name, email, password string) error {
	if err := m.validator.ValidateRegistration(name, email, password); err != nil {
		return err
	}

	result, err := m.api.Register(ctx, name, email, password)
	if err != nil {
		m.log.Warn().Str("email", email).Msg("registration failed")
		return err
	}
	return m.persistSession(ctx, result)
}

// Logout invalidates the current refresh token server-side on a best-effort
// basis, then always clears the local session and routes to login. Server
// unreachability never blocks the local sign-out.
func (m *Manager) Logout(ctx context.Context) {
	m.revokeAndClear(ctx, m.api.Logout)
}

// LogoutAll is Logout for every session of the user: all refresh tokens are
// invalidated server-side, best effort.
func (m *Manager) LogoutAll(ctx context.Context) {
	m.revokeAndClear(ctx, m.api.LogoutAll)
}

func (m *Manager) revokeAndClear(ctx context.Context, revoke func(context.Context, string) error) {
	refreshToken, err := m.store.Get(ctx, store.RefreshTokenKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		m.log.Warn().Err(err).Msg("reading refresh token for logout")
	}

	if refreshToken != "" {
		if err := revoke(ctx, refreshToken); err != nil {
			// Accepted risk: the token stays valid server-side until expiry.
			m.log.Warn().Err(err).Msg("server-side token revocation failed, continuing local logout")
		}
	}

	m.becomeUnauthenticated(ctx)
}

// handleSessionExpired reacts to the broadcast from the refresh protocol:
// the store has already been cleared, so only in-memory state and
// navigation remain.
func (m *Manager) handleSessionExpired(event events.SessionExpired) {
	m.log.Info().Str("reason", event.Reason).Msg("session expired signal received")

	m.lock.Lock()
	m.status = StatusUnauthenticated
	m.user = nil
	m.lastMessage = event.Reason
	m.lock.Unlock()

	if m.hooks.OnUnauthenticated != nil {
		m.hooks.OnUnauthenticated()
	}
	m.router.Replace(RouteLogin)
}

func (m *Manager) persistSession(ctx context.Context, result *api.AuthResult) error {
	userJSON, err := json.Marshal(result.User)
	if err != nil {
		return err
	}

	if err := m.store.Set(ctx, store.AccessTokenKey, result.Credentials.AccessToken); err != nil {
		return err
	}
	if err := m.store.Set(ctx, store.RefreshTokenKey, result.Credentials.RefreshToken); err != nil {
		return err
	}
	if err := m.store.Set(ctx, store.UserKey, string(userJSON)); err != nil {
		return err
	}

	m.becomeAuthenticated(result.User)
	return nil
}

func (m *Manager) becomeAuthenticated(user api.User) {
	m.lock.Lock()
	m.status = StatusAuthenticated
	m.user = &user
	m.lastMessage = ""
	m.lock.Unlock()

	m.log.Info().Int64("user_id", user.ID).Msg("authenticated")
	if m.hooks.OnAuthenticated != nil {
		m.hooks.OnAuthenticated(user)
	}
	m.router.Replace(RouteHome)
}

func (m *Manager) becomeUnauthenticated(ctx context.Context) {
	if err := store.Clear(ctx, m.store); err != nil {
		m.log.Err(err).Msg("clearing session store")
	}

	m.lock.Lock()
	m.status = StatusUnauthenticated
	m.user = nil
	m.lock.Unlock()

	if m.hooks.OnUnauthenticated != nil {
		m.hooks.OnUnauthenticated()
	}
	m.router.Replace(RouteLogin)
}

func (m *Manager) setStatus(status Status) {
	m.lock.Lock()
	m.status = status
	m.lock.Unlock()
}
