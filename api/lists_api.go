package api

import (
	"context"
	"fmt"
	"net/http"
)

// ListRequest is the payload for creating a list.
type ListRequest struct {
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	Order     int    `json:"order"`
}

// ListUpdateRequest is the payload for renaming or reordering a list.
type ListUpdateRequest struct {
	Name  string `json:"name"`
	Order *int   `json:"order,omitempty"`
}

type listResponse struct {
	Response
	Data List `json:"data"`
}

type listsResponse struct {
	Response
	Data []List `json:"data"`
}

// ListsByProject fetches the lists of a project in display order.
func (c *Client) ListsByProject(ctx context.Context, projectID int64) ([]List, error) {
	var resp listsResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/lists/project/%d", projectID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CreateList creates a list within a project.
func (c *Client) CreateList(ctx context.Context, req ListRequest) (*List, error) {
	var resp listResponse
	if err := c.do(ctx, http.MethodPost, "/api/lists", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// UpdateList renames or reorders a list.
func (c *Client) UpdateList(ctx context.Context, listID int64, req ListUpdateRequest) (*List, error) {
	var resp listResponse
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/lists/%d", listID), req, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// DeleteList deletes a list.
func (c *Client) DeleteList(ctx context.Context, listID int64) error {
	var resp Response
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/lists/%d", listID), nil, &resp)
}
