// Package store declares the repository contracts the services persist
// through. Implementations live in sqlstore (SQLite, PostgreSQL) and
// mongostore (MongoDB).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/existflow/projectmate/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist or a conditional
	// write matched no row.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("store: duplicate")
)

// ProjectQuery filters project listings.
type ProjectQuery struct {
	MemberID string
	Status   model.ProjectStatus
	Search   string
	Skip     int
	Limit    int
}

// TaskQuery filters task listings. Results are ordered by position
// ascending, then newest first.
type TaskQuery struct {
	ProjectID  string
	Status     model.TaskStatus
	AssigneeID string
	Priority   model.Priority
	Skip       int
	Limit      int
}

// InvitationQuery filters invitation listings. Results are newest first.
type InvitationQuery struct {
	ProjectID     string
	InvitedUserID string
	Status        model.InvitationStatus
	Skip          int
	Limit         int
}

// UserRepository persists users and their project sets.
type UserRepository interface {
	GetUser(ctx context.Context, id string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUsers(ctx context.Context, ids []string) ([]model.User, error)
	CreateUser(ctx context.Context, u model.User) error
	UpdateUser(ctx context.Context, u model.User) error
	AddUserProject(ctx context.Context, userID, projectID string) error
	RemoveUserProject(ctx context.Context, userID, projectID string) error
	RemoveProjectFromUsers(ctx context.Context, projectID string) error
}

// ProjectRepository persists projects, their members and task lists.
type ProjectRepository interface {
	GetProject(ctx context.Context, id string) (model.Project, error)
	ListProjects(ctx context.Context, q ProjectQuery) ([]model.Project, error)
	CountProjects(ctx context.Context, q ProjectQuery) (int, error)
	CreateProject(ctx context.Context, p model.Project) error
	// UpdateProject writes the scalar fields of p. Members and task ids are
	// changed through their own methods.
	UpdateProject(ctx context.Context, p model.Project) error
	DeleteProject(ctx context.Context, id string) error
	// AddMember returns ErrDuplicate when the user already has an entry.
	AddMember(ctx context.Context, projectID string, m model.Member) error
	RemoveMember(ctx context.Context, projectID, userID string) error
	AppendProjectTask(ctx context.Context, projectID, taskID string) error
	RemoveProjectTask(ctx context.Context, projectID, taskID string) error
}

// TaskRepository persists tasks and comments.
type TaskRepository interface {
	GetTask(ctx context.Context, id string) (model.Task, error)
	ListTasks(ctx context.Context, q TaskQuery) ([]model.Task, error)
	CountTasks(ctx context.Context, q TaskQuery) (int, error)
	TaskStats(ctx context.Context, projectID string) (model.TaskStats, error)
	// MaxTaskPosition reports the highest position in a project; ok is false
	// when the project has no tasks.
	MaxTaskPosition(ctx context.Context, projectID string) (pos int64, ok bool, err error)
	CreateTask(ctx context.Context, t model.Task) error
	// UpdateTask writes every field of t except its comments.
	UpdateTask(ctx context.Context, t model.Task) error
	AddComment(ctx context.Context, taskID string, c model.Comment) error
	DeleteTask(ctx context.Context, id string) error
	DeleteProjectTasks(ctx context.Context, projectID string) error
}

// InvitationRepository persists invitations.
type InvitationRepository interface {
	GetInvitation(ctx context.Context, id string) (model.Invitation, error)
	// FindPendingInvitation returns the pending invitation for the pair or
	// ErrNotFound.
	FindPendingInvitation(ctx context.Context, projectID, invitedUserID string) (model.Invitation, error)
	ListInvitations(ctx context.Context, q InvitationQuery) ([]model.Invitation, error)
	CountInvitations(ctx context.Context, q InvitationQuery) (int, error)
	// CreateInvitation returns ErrDuplicate when a pending invitation for
	// the pair already exists.
	CreateInvitation(ctx context.Context, inv model.Invitation) error
	// ResolveInvitation moves a pending invitation to status. It returns
	// ErrNotFound when no pending row with that id exists.
	ResolveInvitation(ctx context.Context, id string, status model.InvitationStatus, respondedAt *time.Time, now time.Time) error
	// DeletePendingInvitation deletes the invitation only while it is
	// pending. It returns ErrNotFound when no pending row matched.
	DeletePendingInvitation(ctx context.Context, id string) error
	// ExpireInvitations marks pending invitations with expiresAt before now
	// as expired. Empty query fields match everything.
	ExpireInvitations(ctx context.Context, q InvitationQuery, now time.Time) (int64, error)
	// PurgeInvitations deletes non-pending invitations last updated before
	// cutoff.
	PurgeInvitations(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteProjectInvitations(ctx context.Context, projectID string) error
}

// Repository groups every repository.
type Repository interface {
	UserRepository
	ProjectRepository
	TaskRepository
	InvitationRepository
}

// Store is a Repository that can run a unit of work atomically.
type Store interface {
	Repository
	// WithinTx runs fn against a transactional view of the store. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(Repository) error) error
	Close() error
}
