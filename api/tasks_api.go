package api

import (
	"context"
	"fmt"
	"net/http"
)

// TaskRequest is the payload for creating a task.
type TaskRequest struct {
	ListID      int64   `json:"list_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	AssigneeID  *int64  `json:"assignee_id,omitempty"`
}

// TaskUpdateRequest patches a task; nil fields are left unchanged.
type TaskUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	AssigneeID  *int64  `json:"assignee_id,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// TaskMoveRequest moves a task to a new list position (drag and drop).
type TaskMoveRequest struct {
	ListID int64 `json:"list_id"`
	Order  int   `json:"order"`
}

type taskResponse struct {
	Response
	Data Task `json:"data"`
}

type tasksResponse struct {
	Response
	Data []Task `json:"data"`
}

// TasksByList fetches the tasks of a list.
func (c *Client) TasksByList(ctx context.Context, listID int64) ([]Task, error) {
	var resp tasksResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/list/%d", listID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, req TaskRequest) (*Task, error) {
	var resp taskResponse
	if err := c.do(ctx, http.MethodPost, "/api/tasks", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// UpdateTask patches a task.
func (c *Client) UpdateTask(ctx context.Context, taskID int64, req TaskUpdateRequest) (*Task, error) {
	var resp taskResponse
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/tasks/%d", taskID), req, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// MoveTask moves a task to a new list and position.
func (c *Client) MoveTask(ctx context.Context, taskID int64, req TaskMoveRequest) (*Task, error) {
	var resp taskResponse
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/tasks/%d/move", taskID), req, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID int64) error {
	var resp Response
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", taskID), nil, &resp)
}
