package auth_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-taskflow-client/api"
	"github.com/jrsteele09/go-taskflow-client/auth"
	"github.com/jrsteele09/go-taskflow-client/events"
	"github.com/jrsteele09/go-taskflow-client/store"
	"github.com/jrsteele09/go-taskflow-client/store/storefakes"
)

const (
	testEmail    = "john.doe@example.com"
	testPassword = "password123"
	testName     = "John Doe"
)

// routerSpy records navigation requests.
type routerSpy struct {
	lock   sync.Mutex
	routes []string
}

func (r *routerSpy) Replace(route string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.routes = append(r.routes, route)
}

func (r *routerSpy) last() string {
	r.lock.Lock()
	defer r.lock.Unlock()
	if len(r.routes) == 0 {
		return ""
	}
	return r.routes[len(r.routes)-1]
}

type authServer struct {
	*httptest.Server

	loginCalls     atomic.Int64
	logoutCalls    atomic.Int64
	logoutAllCalls atomic.Int64
	rejectLogin    bool
	rejectVerify   bool
}

func newAuthServer(t *testing.T) *authServer {
	t.Helper()

	as := &authServer{}
	mux := http.NewServeMux()

	issueSession := func(w http.ResponseWriter) {
		fmt.Fprint(w, `{
			"success": true,
			"accessToken": "access-1",
			"refreshToken": "refresh-1",
			"user": {"id": 7, "name": "John Doe", "email": "john.doe@example.com", "initials": "JD", "avatar_color": "#336699"}
		}`)
	}

	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		as.loginCalls.Add(1)

		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if as.rejectLogin || body.Email != testEmail || body.Password != testPassword {
			fmt.Fprint(w, `{"success":false,"message":"wrong email or password"}`)
			return
		}
		issueSession(w)
	})
	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, _ *http.Request) {
		issueSession(w)
	})
	mux.HandleFunc("/api/auth/verify", func(w http.ResponseWriter, _ *http.Request) {
		if as.rejectVerify {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"success":false,"message":"invalid token"}`)
			return
		}
		fmt.Fprint(w, `{"success":true}`)
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"success":false,"message":"refresh token invalid"}`)
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		as.logoutCalls.Add(1)
		fmt.Fprint(w, `{"success":true}`)
	})
	mux.HandleFunc("/api/auth/logout-all", func(w http.ResponseWriter, _ *http.Request) {
		as.logoutAllCalls.Add(1)
		fmt.Fprint(w, `{"success":true}`)
	})

	as.Server = httptest.NewServer(mux)
	t.Cleanup(as.Server.Close)
	return as
}

type managerFixture struct {
	server  *authServer
	store   *storefakes.FakeStore
	bus     *events.Bus
	router  *routerSpy
	manager *auth.Manager

	lock            sync.Mutex
	authenticated   []api.User
	unauthenticated int
}

func setupManager(t *testing.T) *managerFixture {
	t.Helper()

	f := &managerFixture{
		server: newAuthServer(t),
		store:  storefakes.NewFakeStore(),
		bus:    events.NewBus(),
		router: &routerSpy{},
	}
	f.manager = f.newManager(t)
	t.Cleanup(f.manager.Close)
	return f
}

// newManager builds a manager over the fixture's store, used both for the
// initial manager and for the simulated process restart.
func (f *managerFixture) newManager(t *testing.T) *auth.Manager {
	t.Helper()

	client := api.New(f.server.URL, f.store, f.bus)
	return auth.NewManager(client, f.store, f.bus, f.router,
		auth.WithHooks(auth.Hooks{
			OnAuthenticated: func(user api.User) {
				f.lock.Lock()
				defer f.lock.Unlock()
				f.authenticated = append(f.authenticated, user)
			},
			OnUnauthenticated: func() {
				f.lock.Lock()
				defer f.lock.Unlock()
				f.unauthenticated++
			},
		}),
	)
}

func TestLoginPersistsSessionAndRoutesHome(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	require.NoError(t, f.manager.Login(ctx, testEmail, testPassword))

	require.Equal(t, auth.StatusAuthenticated, f.manager.Status())
	require.True(t, f.manager.IsAuthenticated())
	require.Equal(t, auth.RouteHome, f.router.last())

	user := f.manager.User()
	require.NotNil(t, user)
	require.Equal(t, testName, user.Name)

	access, err := f.store.Get(ctx, store.AccessTokenKey)
	require.NoError(t, err)
	require.Equal(t, "access-1", access)
	refresh, err := f.store.Get(ctx, store.RefreshTokenKey)
	require.NoError(t, err)
	require.Equal(t, "refresh-1", refresh)
	userJSON, err := f.store.Get(ctx, store.UserKey)
	require.NoError(t, err)
	require.Contains(t, userJSON, testEmail)

	f.lock.Lock()
	defer f.lock.Unlock()
	require.Len(t, f.authenticated, 1)
}

func TestLoginFailureLeavesStateUnchanged(t *testing.T) {
	f := setupManager(t)
	f.server.rejectLogin = true

	err := f.manager.Login(context.Background(), testEmail, testPassword)
	require.Error(t, err)
	require.Equal(t, "wrong email or password", api.UserMessage(err))

	require.Equal(t, auth.StatusUnknown, f.manager.Status())
	require.Nil(t, f.manager.User())
	require.Equal(t, 0, f.store.Len())
	require.Empty(t, f.router.last())
}

func TestLoginValidationRejectsBeforeNetwork(t *testing.T) {
	f := setupManager(t)

	err := f.manager.Login(context.Background(), "not-an-email", testPassword)
	require.ErrorIs(t, err, auth.ErrInvalidEmail)

	err = f.manager.Login(context.Background(), testEmail, "short")
	require.ErrorIs(t, err, auth.ErrPasswordTooWeak)

	require.EqualValues(t, 0, f.server.loginCalls.Load())
}

func TestRegisterSignsIn(t *testing.T) {
	f := setupManager(t)

	require.NoError(t, f.manager.Register(context.Background(), testName, testEmail, testPassword))
	require.Equal(t, auth.StatusAuthenticated, f.manager.Status())
	require.Equal(t, auth.RouteHome, f.router.last())
}

func TestRegisterValidationRequiresName(t *testing.T) {
	f := setupManager(t)

	err := f.manager.Register(context.Background(), "", testEmail, testPassword)
	require.ErrorIs(t, err, auth.ErrNameRequired)
}

func TestCheckAuthRestoresSessionAfterRestart(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	require.NoError(t, f.manager.Login(ctx, testEmail, testPassword))
	loggedInUser := f.manager.User()

	// Simulated restart: a fresh manager over the same store contents.
	restarted := f.newManager(t)
	defer restarted.Close()
	require.Equal(t, auth.StatusUnknown, restarted.Status())

	require.NoError(t, restarted.CheckAuth(ctx))
	require.Equal(t, auth.StatusAuthenticated, restarted.Status())
	require.Equal(t, loggedInUser, restarted.User())
	require.Equal(t, auth.RouteHome, f.router.last())
}

func TestCheckAuthWithoutStoredSessionRoutesToLogin(t *testing.T) {
	f := setupManager(t)

	require.NoError(t, f.manager.CheckAuth(context.Background()))
	require.Equal(t, auth.StatusUnauthenticated, f.manager.Status())
	require.Equal(t, auth.RouteLogin, f.router.last())
}

func TestCheckAuthClearsSessionWhenVerifyRejects(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	require.NoError(t, f.manager.Login(ctx, testEmail, testPassword))
	f.server.rejectVerify = true

	require.NoError(t, f.manager.CheckAuth(ctx))
	require.Equal(t, auth.StatusUnauthenticated, f.manager.Status())
	require.Equal(t, 0, f.store.Len())
	require.Equal(t, auth.RouteLogin, f.router.last())
}

func TestLogoutRevokesAndClears(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	require.NoError(t, f.manager.Login(ctx, testEmail, testPassword))
	f.manager.Logout(ctx)

	require.EqualValues(t, 1, f.server.logoutCalls.Load())
	require.Equal(t, auth.StatusUnauthenticated, f.manager.Status())
	require.Nil(t, f.manager.User())
	require.Equal(t, 0, f.store.Len())
	require.Equal(t, auth.RouteLogin, f.router.last())
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	require.NoError(t, f.manager.Login(ctx, testEmail, testPassword))
	f.manager.LogoutAll(ctx)

	require.EqualValues(t, 1, f.server.logoutAllCalls.Load())
	require.Equal(t, auth.StatusUnauthenticated, f.manager.Status())
	require.Equal(t, 0, f.store.Len())
}

func TestLogoutWhileOfflineStillClearsLocally(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	require.NoError(t, f.manager.Login(ctx, testEmail, testPassword))

	// Server becomes unreachable before logout.
	f.server.Close()
	f.manager.Logout(ctx)

	require.Equal(t, auth.StatusUnauthenticated, f.manager.Status())
	require.Nil(t, f.manager.User())
	require.Equal(t, 0, f.store.Len())
	require.Equal(t, auth.RouteLogin, f.router.last())
}

func TestSessionExpiredSignalClearsStateAndSurfacesReason(t *testing.T) {
	f := setupManager(t)
	ctx := context.Background()

	require.NoError(t, f.manager.Login(ctx, testEmail, testPassword))

	f.bus.EmitSessionExpired(events.SessionExpired{Reason: api.ReasonInactivity})

	require.Equal(t, auth.StatusUnauthenticated, f.manager.Status())
	require.Nil(t, f.manager.User())
	require.Equal(t, api.ReasonInactivity, f.manager.LastSessionMessage())
	require.Equal(t, auth.RouteLogin, f.router.last())

	f.lock.Lock()
	defer f.lock.Unlock()
	require.Equal(t, 1, f.unauthenticated)
}
