package projects

import (
	"context"
	"encoding/json"

	"github.com/jrsteele09/go-taskflow-client/api"
	"github.com/jrsteele09/go-taskflow-client/realtime"
)

// projectEvents are the push events this collection reconciles.
var projectEvents = []string{
	realtime.EventProjectCreated,
	realtime.EventProjectUpdated,
	realtime.EventProjectDeleted,
	realtime.EventProjectMemberAdded,
	realtime.EventProjectMemberRemoved,
	realtime.EventProjectJoined,
	realtime.EventProjectLeft,
}

// BindListeners attaches the push-event handlers. All previously attached
// handlers for the same events are removed first, so calling this again
// (login after logout, app resume) never causes duplicate delivery.
func (c *Collection) BindListeners(rt *realtime.Client) {
	rt.RemoveAllListeners(projectEvents...)

	c.lock.Lock()
	for _, off := range c.unbind {
		off()
	}
	c.unbind = nil
	c.lock.Unlock()

	offs := []func(){
		rt.On(realtime.EventProjectCreated, c.onCreated),
		rt.On(realtime.EventProjectUpdated, c.onUpdated),
		rt.On(realtime.EventProjectDeleted, c.onDeleted),
		rt.On(realtime.EventProjectMemberAdded, c.onMemberAdded),
		rt.On(realtime.EventProjectMemberRemoved, c.onMemberRemoved),
		rt.On(realtime.EventProjectJoined, c.onJoined),
		rt.On(realtime.EventProjectLeft, c.onLeft),
	}

	c.lock.Lock()
	c.unbind = offs
	c.lock.Unlock()

	c.log.Debug().Msg("project push listeners bound")
}

func (c *Collection) onCreated(data json.RawMessage) {
	var event realtime.ProjectEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.log.Warn().Err(err).Msg("bad project:created payload")
		return
	}
	c.InsertIfAbsent(event.Project)
}

func (c *Collection) onUpdated(data json.RawMessage) {
	var event realtime.ProjectEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.log.Warn().Err(err).Msg("bad project:updated payload")
		return
	}
	c.UpsertByID(event.Project)
}

func (c *Collection) onDeleted(data json.RawMessage) {
	var event realtime.ProjectRef
	if err := json.Unmarshal(data, &event); err != nil {
		c.log.Warn().Err(err).Msg("bad project:deleted payload")
		return
	}
	c.RemoveByID(event.ProjectID)
}

func (c *Collection) onMemberAdded(data json.RawMessage) {
	var event realtime.MemberAdded
	if err := json.Unmarshal(data, &event); err != nil {
		c.log.Warn().Err(err).Msg("bad project:member:added payload")
		return
	}
	c.AddMember(event.ProjectID, event.Member)
}

func (c *Collection) onMemberRemoved(data json.RawMessage) {
	var event realtime.MemberRemoved
	if err := json.Unmarshal(data, &event); err != nil {
		c.log.Warn().Err(err).Msg("bad project:member:removed payload")
		return
	}
	c.RemoveMember(event.ProjectID, event.UserID)
}

// onJoined means this user was added to a project by someone else; the new
// project is not in the collection, so refetch the whole list.
func (c *Collection) onJoined(_ json.RawMessage) {
	c.lock.RLock()
	ownerID := c.ownerID
	c.lock.RUnlock()

	if ownerID == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), api.DefaultTimeout)
		defer cancel()
		if err := c.Fetch(ctx, ownerID); err != nil {
			c.log.Warn().Err(err).Msg("refetch after project:joined failed")
		}
	}()
}

func (c *Collection) onLeft(data json.RawMessage) {
	var event realtime.ProjectRef
	if err := json.Unmarshal(data, &event); err != nil {
		c.log.Warn().Err(err).Msg("bad project:left payload")
		return
	}
	c.RemoveByID(event.ProjectID)
}
