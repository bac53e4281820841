// Package realtime is the reconnecting WebSocket client that delivers
// server push events (entity created/updated/deleted, membership changes)
// to subscribed handlers.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
)

const (
	maxReadBytes = 1 << 20

	defaultDialTimeout       = 10 * time.Second
	defaultWriteTimeout      = 10 * time.Second
	defaultReconnectDelay    = time.Second
	defaultReconnectAttempts = 5
)

// ErrNotConnected is returned by Emit when no connection is established.
var ErrNotConnected = errors.New("realtime: not connected")

type registration struct {
	id      int
	handler Handler
}

// Client maintains one WebSocket connection to the push endpoint. Dropped
// connections are re-dialed with the same token a bounded number of times.
// Safe for concurrent use; handlers run on the read-loop goroutine.
type Client struct {
	url               string
	log               zerolog.Logger
	dialTimeout       time.Duration
	writeTimeout      time.Duration
	reconnectDelay    time.Duration
	reconnectAttempts int

	lock      sync.Mutex
	conn      *websocket.Conn
	token     string
	connected bool
	ready     bool
	closing   bool
	nextID    int
	handlers  map[string][]registration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.log = logger }
}

// WithReconnect overrides the reconnect policy.
func WithReconnect(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.reconnectAttempts = attempts
		c.reconnectDelay = delay
	}
}

// New creates a Client for the given WebSocket URL.
func New(url string, options ...Option) *Client {
	c := &Client{
		url:               url,
		log:               zerolog.Nop(),
		dialTimeout:       defaultDialTimeout,
		writeTimeout:      defaultWriteTimeout,
		reconnectDelay:    defaultReconnectDelay,
		reconnectAttempts: defaultReconnectAttempts,
		handlers:          make(map[string][]registration),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Connect dials the push endpoint authenticated with the access token and
// starts the read loop. Connecting while connected is a no-op.
func (c *Client) Connect(ctx context.Context, token string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.connected {
		c.log.Debug().Msg("already connected")
		return nil
	}

	conn, err := c.dial(ctx, token)
	if err != nil {
		return err
	}

	c.conn = conn
	c.token = token
	c.connected = true
	c.closing = false

	go c.readLoop(conn)
	return nil
}

func (c *Client) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{HTTPHeader: header})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	conn.SetReadLimit(maxReadBytes)
	c.log.Debug().Str("url", c.url).Msg("socket connected")
	return conn, nil
}

// Disconnect closes the connection and removes every listener, so a
// subsequent Connect starts from a clean registry.
func (c *Client) Disconnect() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.closing = true
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "client disconnect")
		c.conn = nil
	}
	c.connected = false
	c.ready = false
	c.token = ""
	c.handlers = make(map[string][]registration)
}

// Connected reports whether a connection is currently established.
func (c *Client) Connected() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.connected
}

// Ready reports whether the server has acknowledged the connection with
// connection:ready.
func (c *Client) Ready() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.ready
}

// On registers a handler for a named event and returns its remover. The
// same logical handler registered twice is delivered twice; use
// RemoveAllListeners before re-registering a domain's handlers to keep
// setup idempotent.
func (c *Client) On(event string, handler Handler) (off func()) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.nextID++
	id := c.nextID
	c.handlers[event] = append(c.handlers[event], registration{id: id, handler: handler})

	return func() {
		c.lock.Lock()
		defer c.lock.Unlock()
		regs := c.handlers[event]
		for i, reg := range regs {
			if reg.id == id {
				c.handlers[event] = append(regs[:i], regs[i+1:]...)
				return
			}
		}
	}
}

// RemoveAllListeners removes every handler for the named events, or every
// handler entirely when no event is named.
func (c *Client) RemoveAllListeners(eventNames ...string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if len(eventNames) == 0 {
		c.handlers = make(map[string][]registration)
		return
	}
	for _, event := range eventNames {
		delete(c.handlers, event)
	}
}

// Emit sends a named event with a JSON payload to the server.
func (c *Client) Emit(event string, payload any) error {
	c.lock.Lock()
	conn := c.conn
	c.lock.Unlock()

	if conn == nil {
		c.log.Warn().Str("event", event).Msg("emit while disconnected")
		return ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, Envelope{Event: event, Data: data})
}

// JoinProjects subscribes this connection to push events for the projects.
func (c *Client) JoinProjects(projectIDs []int64) error {
	return c.Emit(EventJoinProjects, joinProjectsPayload{ProjectIDs: projectIDs})
}

// JoinProject subscribes this connection to one project's push events.
func (c *Client) JoinProject(projectID int64) error {
	return c.Emit(EventJoinProject, projectPayload{ProjectID: projectID})
}

// LeaveProject unsubscribes this connection from one project.
func (c *Client) LeaveProject(projectID int64) error {
	return c.Emit(EventLeaveProject, projectPayload{ProjectID: projectID})
}

// ConnectedUsers asks the server for the users currently connected to a
// project; the answer arrives as a push event.
func (c *Client) ConnectedUsers(projectID int64) error {
	return c.Emit(EventGetConnectedUsers, projectPayload{ProjectID: projectID})
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		messageType, data, err := conn.Read(context.Background())
		if err != nil {
			c.handleReadFailure(conn, err)
			return
		}
		if messageType != websocket.MessageText {
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn().Err(err).Msg("discarding malformed push frame")
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env Envelope) {
	c.lock.Lock()
	if env.Event == EventConnectionReady {
		c.ready = true
	}
	regs := make([]registration, len(c.handlers[env.Event]))
	copy(regs, c.handlers[env.Event])
	c.lock.Unlock()

	c.log.Debug().Str("event", env.Event).Int("handlers", len(regs)).Msg("push event")
	for _, reg := range regs {
		reg.handler(env.Data)
	}
}

func (c *Client) handleReadFailure(conn *websocket.Conn, err error) {
	c.lock.Lock()
	if c.closing || c.conn != conn {
		c.lock.Unlock()
		return
	}
	c.connected = false
	c.ready = false
	c.conn = nil
	token := c.token
	c.lock.Unlock()

	c.log.Warn().Err(err).Msg("socket disconnected")
	c.reconnect(token)
}

// reconnect re-dials with the last token, a bounded number of attempts with
// a fixed delay between them. The listener registry survives the reconnect,
// so handlers keep receiving events without re-registering. A connection
// established by Connect in the meantime wins: the loop stands down rather
// than install a second live connection.
func (c *Client) reconnect(token string) {
	for attempt := 1; attempt <= c.reconnectAttempts; attempt++ {
		time.Sleep(c.reconnectDelay)

		c.lock.Lock()
		if c.closing || c.connected {
			c.lock.Unlock()
			return
		}
		c.lock.Unlock()

		conn, err := c.dial(context.Background(), token)
		if err != nil {
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("reconnect failed")
			continue
		}

		c.lock.Lock()
		if c.closing || c.connected {
			c.lock.Unlock()
			_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
			return
		}
		c.conn = conn
		c.connected = true
		c.lock.Unlock()

		c.log.Info().Int("attempt", attempt).Msg("socket reconnected")
		go c.readLoop(conn)
		return
	}

	c.log.Error().Int("attempts", c.reconnectAttempts).Msg("giving up on reconnect")
}
