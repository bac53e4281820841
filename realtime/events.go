package realtime

import (
	"encoding/json"

	"github.com/jrsteele09/go-taskflow-client/api"
)

// Server push events.
const (
	EventConnectionReady      = "connection:ready"
	EventProjectCreated       = "project:created"
	EventProjectUpdated       = "project:updated"
	EventProjectDeleted       = "project:deleted"
	EventProjectMemberAdded   = "project:member:added"
	EventProjectMemberRemoved = "project:member:removed"
	EventProjectJoined        = "project:joined"
	EventProjectLeft          = "project:left"
)

// Client emit events.
const (
	EventJoinProjects      = "join:projects"
	EventJoinProject       = "join:project"
	EventLeaveProject      = "leave:project"
	EventGetConnectedUsers = "get:connected-users"
)

// Envelope is the wire frame: a named event plus a JSON payload. The wire
// protocol beyond this frame is the server's business.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives the payload of one delivered event.
type Handler func(data json.RawMessage)

// ConnectionReady is the payload of connection:ready.
type ConnectionReady struct {
	ProjectsJoined int `json:"projects_joined"`
}

// ProjectEvent is the payload of project:created and project:updated.
type ProjectEvent struct {
	Project api.Project `json:"project"`
}

// ProjectRef is the payload of project:deleted, project:joined, and
// project:left.
type ProjectRef struct {
	ProjectID int64 `json:"project_id"`
}

// MemberAdded is the payload of project:member:added.
type MemberAdded struct {
	ProjectID int64      `json:"project_id"`
	Member    api.Member `json:"member"`
}

// MemberRemoved is the payload of project:member:removed.
type MemberRemoved struct {
	ProjectID int64 `json:"project_id"`
	UserID    int64 `json:"user_id"`
}

type joinProjectsPayload struct {
	ProjectIDs []int64 `json:"project_ids"`
}

type projectPayload struct {
	ProjectID int64 `json:"project_id"`
}
