package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/existflow/projectmate/internal/account"
	"github.com/existflow/projectmate/internal/board"
	"github.com/existflow/projectmate/internal/invite"
	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/pagination"
	"github.com/existflow/projectmate/internal/project"
	"github.com/existflow/projectmate/internal/view"
)

// Session is the result of register and login.
type Session struct {
	User      model.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, in account.RegisterInput) (Session, error) {
	var s Session
	_, err := c.do(ctx, http.MethodPost, "/auth/register", nil, in, &s)
	return s, err
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var s Session
	_, err := c.do(ctx, http.MethodPost, "/auth/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &s)
	return s, err
}

// Me returns the logged in user with project summaries.
func (c *Client) Me(ctx context.Context) (view.Me, error) {
	var me view.Me
	_, err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &me)
	return me, err
}

// UpdateProfile changes the logged in user's profile.
func (c *Client) UpdateProfile(ctx context.Context, patch account.ProfilePatch) (model.User, error) {
	var u model.User
	_, err := c.do(ctx, http.MethodPut, "/auth/profile", nil, patch, &u)
	return u, err
}

// ChangePassword replaces the logged in user's password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	_, err := c.do(ctx, http.MethodPut, "/auth/change-password", nil, map[string]string{
		"currentPassword": current,
		"newPassword":     next,
	}, nil)
	return err
}

// Deactivate deactivates the logged in account.
func (c *Client) Deactivate(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPut, "/auth/deactivate", nil, nil, nil)
	return err
}

// ProjectFilter narrows ListProjects.
type ProjectFilter struct {
	Status model.ProjectStatus
	Search string
	Page   int
	Limit  int
}

// ListProjects returns a page of projects the user belongs to.
func (c *Client) ListProjects(ctx context.Context, f ProjectFilter) ([]view.Project, *pagination.Page, error) {
	q := pageQuery(f.Page, f.Limit)
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	var out []view.Project
	page, err := c.do(ctx, http.MethodGet, "/projects", q, nil, &out)
	return out, page, err
}

// CreateProject creates a project owned by the user.
func (c *Client) CreateProject(ctx context.Context, in project.CreateInput) (view.Project, error) {
	var p view.Project
	_, err := c.do(ctx, http.MethodPost, "/projects", nil, in, &p)
	return p, err
}

// GetProject returns one project.
func (c *Client) GetProject(ctx context.Context, id string) (view.Project, error) {
	var p view.Project
	_, err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(id), nil, nil, &p)
	return p, err
}

// UpdateProject applies a partial update.
func (c *Client) UpdateProject(ctx context.Context, id string, patch project.Patch) (view.Project, error) {
	var p view.Project
	_, err := c.do(ctx, http.MethodPut, "/projects/"+url.PathEscape(id), nil, patch, &p)
	return p, err
}

// DeleteProject deletes a project with its tasks and invitations.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/projects/"+url.PathEscape(id), nil, nil, nil)
	return err
}

// AddMember adds a user to a project directly.
func (c *Client) AddMember(ctx context.Context, projectID string, in project.MemberInput) (view.Project, error) {
	var p view.Project
	_, err := c.do(ctx, http.MethodPost, "/projects/"+url.PathEscape(projectID)+"/members", nil, in, &p)
	return p, err
}

// RemoveMember removes a user from a project.
func (c *Client) RemoveMember(ctx context.Context, projectID, userID string) (view.Project, error) {
	var p view.Project
	_, err := c.do(ctx, http.MethodDelete, "/projects/"+url.PathEscape(projectID)+"/members/"+url.PathEscape(userID), nil, nil, &p)
	return p, err
}

// TaskFilter narrows ListTasks.
type TaskFilter struct {
	Status     model.TaskStatus
	AssigneeID string
	Priority   model.Priority
	Page       int
	Limit      int
}

// ListTasks returns a page of a project's tasks in board order.
func (c *Client) ListTasks(ctx context.Context, projectID string, f TaskFilter) ([]view.Task, *pagination.Page, error) {
	q := pageQuery(f.Page, f.Limit)
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.AssigneeID != "" {
		q.Set("assignedTo", f.AssigneeID)
	}
	if f.Priority != "" {
		q.Set("priority", string(f.Priority))
	}
	var out []view.Task
	page, err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/tasks", q, nil, &out)
	return out, page, err
}

// CreateTask adds a task at the end of the project's to-do lane.
func (c *Client) CreateTask(ctx context.Context, projectID string, in board.CreateTaskInput) (view.Task, error) {
	var t view.Task
	_, err := c.do(ctx, http.MethodPost, "/projects/"+url.PathEscape(projectID)+"/tasks", nil, in, &t)
	return t, err
}

// ReorderTasks sets positions (and optionally statuses) for many tasks.
func (c *Client) ReorderTasks(ctx context.Context, projectID string, items []board.ReorderItem) (board.ReorderResult, error) {
	var res board.ReorderResult
	_, err := c.do(ctx, http.MethodPut, "/projects/"+url.PathEscape(projectID)+"/tasks/reorder", nil,
		map[string]any{"tasks": items}, &res)
	return res, err
}

// GetTask returns one task.
func (c *Client) GetTask(ctx context.Context, id string) (view.Task, error) {
	var t view.Task
	_, err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, nil, &t)
	return t, err
}

// UpdateTask applies a partial update.
func (c *Client) UpdateTask(ctx context.Context, id string, patch board.TaskPatch) (view.Task, error) {
	var t view.Task
	_, err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), nil, patch, &t)
	return t, err
}

// MoveTask changes a task's status and/or position.
func (c *Client) MoveTask(ctx context.Context, id string, in board.MoveInput) (view.Task, error) {
	var t view.Task
	_, err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id)+"/status", nil, in, &t)
	return t, err
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, nil)
	return err
}

// AddComment appends a comment to a task.
func (c *Client) AddComment(ctx context.Context, id, content string) (view.Task, error) {
	var t view.Task
	_, err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/comments", nil,
		map[string]string{"content": content}, &t)
	return t, err
}

// InvitationFilter narrows invitation listings.
type InvitationFilter struct {
	Status model.InvitationStatus
	Page   int
	Limit  int
}

func (f InvitationFilter) query() url.Values {
	q := pageQuery(f.Page, f.Limit)
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	return q
}

// ListInvitations returns invitations addressed to the user.
func (c *Client) ListInvitations(ctx context.Context, f InvitationFilter) ([]view.Invitation, *pagination.Page, error) {
	var out []view.Invitation
	page, err := c.do(ctx, http.MethodGet, "/invitations", f.query(), nil, &out)
	return out, page, err
}

// ListProjectInvitations returns the invitations sent for a project.
func (c *Client) ListProjectInvitations(ctx context.Context, projectID string, f InvitationFilter) ([]view.Invitation, *pagination.Page, error) {
	var out []view.Invitation
	page, err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/invitations", f.query(), nil, &out)
	return out, page, err
}

// SendInvitation invites a user to a project.
func (c *Client) SendInvitation(ctx context.Context, projectID string, in invite.SendInput) (view.Invitation, error) {
	var inv view.Invitation
	_, err := c.do(ctx, http.MethodPost, "/projects/"+url.PathEscape(projectID)+"/invitations", nil, in, &inv)
	return inv, err
}

// GetInvitation returns one invitation.
func (c *Client) GetInvitation(ctx context.Context, id string) (view.Invitation, error) {
	var inv view.Invitation
	_, err := c.do(ctx, http.MethodGet, "/invitations/"+url.PathEscape(id), nil, nil, &inv)
	return inv, err
}

// RespondInvitation accepts or declines an invitation.
func (c *Client) RespondInvitation(ctx context.Context, id string, response model.Response) (view.Invitation, error) {
	var inv view.Invitation
	_, err := c.do(ctx, http.MethodPut, "/invitations/"+url.PathEscape(id)+"/respond", nil,
		map[string]model.Response{"response": response}, &inv)
	return inv, err
}

// CancelInvitation withdraws a pending invitation.
func (c *Client) CancelInvitation(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/invitations/"+url.PathEscape(id), nil, nil, nil)
	return err
}
