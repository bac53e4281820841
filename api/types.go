package api

// User is the cached user record. It is a read-mostly snapshot: after login
// it is only existence-checked as a proxy for a previously established
// session, never re-validated field by field.
type User struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Initials    string `json:"initials"`
	AvatarColor string `json:"avatar_color"`
}

// Credentials is the access/refresh token pair. Both are opaque strings;
// the access token is short-lived and sent on every request, the refresh
// token is long-lived and only ever sent to the refresh and logout
// endpoints.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Role describes a member's role within a project.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Member is a user's membership in a project.
type Member struct {
	User User `json:"user"`
	Role Role `json:"role"`
}

// Project is a project snapshot including its membership list.
type Project struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Description   *string  `json:"description"`
	Collaborative bool     `json:"collaborative"`
	Members       []Member `json:"members"`
}

// List is a task list within a project.
type List struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	Order     int    `json:"order"`
}

// Task is a single task within a list.
type Task struct {
	ID          int64   `json:"id"`
	ListID      int64   `json:"list_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	DueDate     *string `json:"due_date"`
	AssigneeID  *int64  `json:"assignee_id"`
	Completed   bool    `json:"completed"`
}

// Tag is a label that can be attached to tasks.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
