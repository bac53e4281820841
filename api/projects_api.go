package api

import (
	"context"
	"fmt"
	"net/http"
)

// ProjectRequest is the payload for creating or updating a project.
type ProjectRequest struct {
	Name          string  `json:"name"`
	Description   *string `json:"description,omitempty"`
	Collaborative bool    `json:"collaborative"`
	OwnerID       int64   `json:"owner_id"`
}

// MemberRequest adds a user to a project with a role.
type MemberRequest struct {
	UserID int64 `json:"user_id"`
	RoleID int64 `json:"role_id"`
}

type deleteProjectRequest struct {
	UserID int64 `json:"user_id"`
}

type projectResponse struct {
	Response
	Data Project `json:"data"`
}

type projectsResponse struct {
	Response
	Data []Project `json:"data"`
}

type memberResponse struct {
	Response
	Data Member `json:"data"`
}

// ProjectsByUser fetches every project the user owns or is a member of.
func (c *Client) ProjectsByUser(ctx context.Context, userID int64) ([]Project, error) {
	var resp projectsResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/projects/user/%d", userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CreateProject creates a project and returns the server's snapshot of it.
func (c *Client) CreateProject(ctx context.Context, req ProjectRequest) (*Project, error) {
	var resp projectResponse
	if err := c.do(ctx, http.MethodPost, "/api/projects", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// UpdateProject updates a project and returns the updated snapshot.
func (c *Client) UpdateProject(ctx context.Context, projectID int64, req ProjectRequest) (*Project, error) {
	var resp projectResponse
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/projects/%d", projectID), req, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// DeleteProject deletes a project on behalf of the given user.
func (c *Client) DeleteProject(ctx context.Context, projectID, userID int64) error {
	var resp Response
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/projects/%d", projectID), deleteProjectRequest{UserID: userID}, &resp)
}

// AddProjectMember adds a member and returns the created membership.
func (c *Client) AddProjectMember(ctx context.Context, projectID int64, req MemberRequest) (*Member, error) {
	var resp memberResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/projects/%d/members", projectID), req, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// RemoveProjectMember removes one member from a project.
func (c *Client) RemoveProjectMember(ctx context.Context, projectID, userID int64) error {
	var resp Response
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/projects/%d/members/%d", projectID, userID), nil, &resp)
}

// RemoveAllProjectMembers removes every member from a project.
func (c *Client) RemoveAllProjectMembers(ctx context.Context, projectID int64) error {
	var resp Response
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/projects/%d/members", projectID), nil, &resp)
}
