package projects

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-taskflow-client/api"
	"github.com/jrsteele09/go-taskflow-client/events"
	"github.com/jrsteele09/go-taskflow-client/realtime"
	"github.com/jrsteele09/go-taskflow-client/store/storefakes"
)

func payload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

// TestOptimisticInsertAndPushEventConverge covers the delivery race after a
// create: this client's optimistic insert and the server's push echo carry
// the same id, and whichever arrives second must be a no-op.
func TestOptimisticInsertAndPushEventConverge(t *testing.T) {
	created := api.Project{ID: 42, Name: "new board"}

	orders := map[string][]func(c *Collection){
		"optimistic insert first": {
			func(c *Collection) { c.InsertIfAbsent(created) },
			func(c *Collection) { c.onCreated(payload(t, realtime.ProjectEvent{Project: created})) },
		},
		"push event first": {
			func(c *Collection) { c.onCreated(payload(t, realtime.ProjectEvent{Project: created})) },
			func(c *Collection) { c.InsertIfAbsent(created) },
		},
	}

	for name, steps := range orders {
		t.Run(name, func(t *testing.T) {
			c := NewCollection(nil)
			for _, step := range steps {
				step(c)
			}

			got := c.Projects()
			require.Len(t, got, 1)
			require.EqualValues(t, 42, got[0].ID)
		})
	}
}

func TestPushHandlersReconcileCollection(t *testing.T) {
	c := NewCollection(nil)
	c.InsertIfAbsent(api.Project{ID: 1, Name: "alpha"})

	c.onUpdated(payload(t, realtime.ProjectEvent{Project: api.Project{ID: 1, Name: "alpha renamed"}}))
	require.Equal(t, "alpha renamed", c.Projects()[0].Name)

	c.onMemberAdded(payload(t, realtime.MemberAdded{
		ProjectID: 1,
		Member:    api.Member{User: api.User{ID: 10, Name: "Alice"}},
	}))
	require.Len(t, c.Projects()[0].Members, 1)

	c.onMemberRemoved(payload(t, realtime.MemberRemoved{ProjectID: 1, UserID: 10}))
	require.Empty(t, c.Projects()[0].Members)

	c.onLeft(payload(t, realtime.ProjectRef{ProjectID: 1}))
	require.Empty(t, c.Projects())

	c.onCreated(payload(t, realtime.ProjectEvent{Project: api.Project{ID: 2, Name: "beta"}}))
	c.onDeleted(payload(t, realtime.ProjectRef{ProjectID: 2}))
	require.Empty(t, c.Projects())
}

func TestMalformedPushPayloadIsDiscarded(t *testing.T) {
	c := NewCollection(nil)
	c.InsertIfAbsent(api.Project{ID: 1, Name: "alpha"})

	c.onUpdated(json.RawMessage(`{not json`))
	c.onDeleted(json.RawMessage(`"a string"`))

	require.Len(t, c.Projects(), 1)
	require.Equal(t, "alpha", c.Projects()[0].Name)
}

func TestJoinedEventWithoutOwnerDoesNotFetch(t *testing.T) {
	var fetches atomic.Int64
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		fmt.Fprint(w, `{"success":true,"data":[]}`)
	}))
	defer apiServer.Close()

	c := NewCollection(newAPIClient(t, apiServer.URL))
	c.onJoined(nil)

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 0, fetches.Load())
}

// TestBindListenersTwiceDeliversEventsOnce drives a real socket: binding the
// listeners again must not double deliveries. InsertIfAbsent hides a double
// delivery, so the refetch triggered by project:joined is the detector: a
// doubled handler would fetch twice.
func TestBindListenersTwiceDeliversEventsOnce(t *testing.T) {
	var fetches atomic.Int64
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		fmt.Fprint(w, `{"success":true,"data":[{"id":1,"name":"alpha"}]}`)
	}))
	defer apiServer.Close()

	push := make(chan realtime.Envelope, 4)
	wsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ctx := conn.CloseRead(r.Context())
		for {
			select {
			case env := <-push:
				if err := wsjson.Write(ctx, conn, env); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}))
	defer wsServer.Close()

	rt := realtime.New(strings.Replace(wsServer.URL, "http", "ws", 1))
	require.NoError(t, rt.Connect(context.Background(), "token"))
	defer rt.Disconnect()

	c := NewCollection(newAPIClient(t, apiServer.URL))
	require.NoError(t, c.Fetch(context.Background(), 7))
	require.EqualValues(t, 1, fetches.Load())

	c.BindListeners(rt)
	c.BindListeners(rt)

	push <- realtime.Envelope{
		Event: realtime.EventProjectJoined,
		Data:  payload(t, realtime.ProjectRef{ProjectID: 2}),
	}

	require.Eventually(t, func() bool {
		return fetches.Load() == 2
	}, 2*time.Second, 10*time.Millisecond, "joined event should trigger exactly one refetch")

	// Give a doubled handler time to show up before asserting.
	time.Sleep(100 * time.Millisecond)
	require.EqualValues(t, 2, fetches.Load())
}

func newAPIClient(t *testing.T, baseURL string) *api.Client {
	t.Helper()
	st := storefakes.NewFakeStore()
	require.NoError(t, st.Set(context.Background(), "taskflow_access_token", "token"))
	return api.New(baseURL, st, events.NewBus())
}
