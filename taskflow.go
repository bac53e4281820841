// Package taskflow is the composition root for the TaskFlow client: it
// wires the secure store, the event bus, the HTTP client with its refresh
// protocol, the auth session manager, the realtime push client, and the
// project collection into one assembled App.
package taskflow

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-taskflow-client/api"
	"github.com/jrsteele09/go-taskflow-client/auth"
	"github.com/jrsteele09/go-taskflow-client/events"
	"github.com/jrsteele09/go-taskflow-client/projects"
	"github.com/jrsteele09/go-taskflow-client/realtime"
	"github.com/jrsteele09/go-taskflow-client/store"
)

// App holds the assembled client components.
type App struct {
	Store    store.Store
	Bus      *events.Bus
	API      *api.Client
	Auth     *auth.Manager
	Realtime *realtime.Client
	Projects *projects.Collection

	log zerolog.Logger
}

// Options configures New.
type Options struct {
	APIBaseURL string
	SocketURL  string
	Store      store.Store
	Router     auth.Router
	Logger     zerolog.Logger
}

// New wires the client. Dependency flow is explicit: the refresh protocol
// notifies the bus, the auth manager subscribes to it, and the manager's
// session hooks (passed here at construction, not patched in at runtime)
// connect the socket and bind the collection's push listeners.
func New(opts Options) *App {
	bus := events.NewBus()
	apiClient := api.New(opts.APIBaseURL, opts.Store, bus, api.WithLogger(opts.Logger))
	rt := realtime.New(opts.SocketURL, realtime.WithLogger(opts.Logger))
	collection := projects.NewCollection(apiClient, projects.WithLogger(opts.Logger))

	app := &App{
		Store:    opts.Store,
		Bus:      bus,
		API:      apiClient,
		Realtime: rt,
		Projects: collection,
		log:      opts.Logger,
	}

	app.Auth = auth.NewManager(apiClient, opts.Store, bus, opts.Router,
		auth.WithLogger(opts.Logger),
		auth.WithHooks(auth.Hooks{
			OnAuthenticated:   app.startSession,
			OnUnauthenticated: app.endSession,
		}),
	)
	return app
}

// startSession runs after login, registration, or a restored session: it
// opens the push connection with a valid access token, binds the project
// listeners, and loads the user's projects.
func (a *App) startSession(user api.User) {
	ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
	defer cancel()

	token, err := a.API.EnsureAccessToken(ctx)
	if err != nil {
		a.log.Err(err).Msg("no valid access token for realtime connect")
		return
	}
	if err := a.Realtime.Connect(ctx, token); err != nil {
		a.log.Err(err).Msg("realtime connect failed")
	}

	a.Projects.BindListeners(a.Realtime)

	if err := a.Projects.Fetch(ctx, user.ID); err != nil {
		a.log.Err(err).Msg("initial project fetch failed")
	}
}

// endSession runs after logout or session expiry.
func (a *App) endSession() {
	a.Projects.Clear()
	a.Realtime.Disconnect()
}

// Close releases subscriptions and the push connection.
func (a *App) Close() {
	a.Auth.Close()
	a.Realtime.Disconnect()
}
