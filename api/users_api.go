package api

import (
	"context"
	"fmt"
	"net/http"
)

type usersResponse struct {
	Response
	Data []User `json:"data"`
}

type rolesResponse struct {
	Response
	Data []Role `json:"data"`
}

type tagsResponse struct {
	Response
	Data []Tag `json:"data"`
}

// Users fetches all registered users.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var resp usersResponse
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// AvailableUsers fetches the users not yet members of the given project.
func (c *Client) AvailableUsers(ctx context.Context, projectID int64) ([]User, error) {
	var resp usersResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/users/available/%d", projectID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Roles fetches the assignable project roles.
func (c *Client) Roles(ctx context.Context) ([]Role, error) {
	var resp rolesResponse
	if err := c.do(ctx, http.MethodGet, "/api/users/roles", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Tags fetches all task tags.
func (c *Client) Tags(ctx context.Context) ([]Tag, error) {
	var resp tagsResponse
	if err := c.do(ctx, http.MethodGet, "/api/tags", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
