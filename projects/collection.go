// Package projects keeps the client-local project collection consistent
// under two independent mutation sources: optimistic writes after this
// client's own API calls, and push events describing the same entities as
// changed by any client. Every same-id operation is idempotent, so the two
// sources can arrive in either order.
package projects

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-taskflow-client/api"
)

// Collection is the id-keyed, display-ordered (newest first) project list.
type Collection struct {
	api *api.Client
	log zerolog.Logger

	lock    sync.RWMutex
	items   []api.Project
	loading bool
	ownerID int64
	unbind  []func()
}

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the collection logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Collection) { c.log = logger }
}

// NewCollection creates an empty Collection backed by the API client.
func NewCollection(apiClient *api.Client, options ...Option) *Collection {
	c := &Collection{
		api: apiClient,
		log: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Projects returns a snapshot of the collection in display order.
func (c *Collection) Projects() []api.Project {
	c.lock.RLock()
	defer c.lock.RUnlock()

	out := make([]api.Project, len(c.items))
	copy(out, c.items)
	return out
}

// Loading reports whether a Fetch is in flight.
func (c *Collection) Loading() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.loading
}

// Fetch replaces the collection with the server's project list for the
// user. The owner id is remembered so a project:joined push can refetch.
func (c *Collection) Fetch(ctx context.Context, userID int64) error {
	c.lock.Lock()
	c.loading = true
	c.ownerID = userID
	c.lock.Unlock()

	projects, err := c.api.ProjectsByUser(ctx, userID)

	c.lock.Lock()
	c.loading = false
	if err == nil {
		c.items = projects
	}
	c.lock.Unlock()

	if err != nil {
		return err
	}
	c.log.Debug().Int("count", len(projects)).Msg("projects fetched")
	return nil
}

// Create creates a project and applies the optimistic insert. The server's
// own echo of the creation arrives as a push event later; InsertIfAbsent
// makes the second arrival a no-op.
func (c *Collection) Create(ctx context.Context, req api.ProjectRequest) (*api.Project, error) {
	project, err := c.api.CreateProject(ctx, req)
	if err != nil {
		return nil, err
	}
	c.InsertIfAbsent(*project)
	return project, nil
}

// Update updates a project and applies the optimistic merge.
func (c *Collection) Update(ctx context.Context, projectID int64, req api.ProjectRequest) (*api.Project, error) {
	project, err := c.api.UpdateProject(ctx, projectID, req)
	if err != nil {
		return nil, err
	}
	c.UpsertByID(*project)
	return project, nil
}

// Delete deletes a project and applies the optimistic removal.
func (c *Collection) Delete(ctx context.Context, projectID, userID int64) error {
	if err := c.api.DeleteProject(ctx, projectID, userID); err != nil {
		return err
	}
	c.RemoveByID(projectID)
	return nil
}

// InsertIfAbsent prepends the project unless its id is already present.
func (c *Collection) InsertIfAbsent(project api.Project) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.indexOf(project.ID) >= 0 {
		c.log.Debug().Int64("project_id", project.ID).Msg("insert skipped, id present")
		return
	}
	c.items = append([]api.Project{project}, c.items...)
}

// UpsertByID merges the incoming snapshot into the existing entry,
// preserving its display position. Scalar fields are always taken from the
// incoming snapshot; the membership list only when the snapshot carries
// one, so an update event without membership data does not wipe it.
//
// An absent id is ignored: an update implies prior existence, and a missing
// id means an out-of-order or already handled delete.
func (c *Collection) UpsertByID(project api.Project) {
	c.lock.Lock()
	defer c.lock.Unlock()

	i := c.indexOf(project.ID)
	if i < 0 {
		c.log.Debug().Int64("project_id", project.ID).Msg("upsert skipped, id absent")
		return
	}

	existing := &c.items[i]
	existing.Name = project.Name
	existing.Description = project.Description
	existing.Collaborative = project.Collaborative
	if project.Members != nil {
		existing.Members = project.Members
	}
}

// RemoveByID removes the project; removing an absent id is a no-op.
func (c *Collection) RemoveByID(projectID int64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	i := c.indexOf(projectID)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
}

// AddMember adds a member to the project's nested membership list, keyed by
// the member's user id. Sibling projects are untouched; a duplicate user id
// is a no-op.
func (c *Collection) AddMember(projectID int64, member api.Member) {
	c.lock.Lock()
	defer c.lock.Unlock()

	i := c.indexOf(projectID)
	if i < 0 {
		return
	}
	for _, m := range c.items[i].Members {
		if m.User.ID == member.User.ID {
			return
		}
	}
	c.items[i].Members = append(c.items[i].Members, member)
}

// RemoveMember removes a member by user id; absent ids are a no-op.
func (c *Collection) RemoveMember(projectID, userID int64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	i := c.indexOf(projectID)
	if i < 0 {
		return
	}
	members := c.items[i].Members
	for j, m := range members {
		if m.User.ID == userID {
			c.items[i].Members = append(members[:j], members[j+1:]...)
			return
		}
	}
}

// Clear unbinds the push handlers and empties the collection. Called on
// logout.
func (c *Collection) Clear() {
	c.lock.Lock()
	unbind := c.unbind
	c.unbind = nil
	c.items = nil
	c.ownerID = 0
	c.lock.Unlock()

	for _, off := range unbind {
		off()
	}
}

// indexOf returns the position of the id or -1. Callers hold the lock.
func (c *Collection) indexOf(projectID int64) int {
	for i := range c.items {
		if c.items[i].ID == projectID {
			return i
		}
	}
	return -1
}
