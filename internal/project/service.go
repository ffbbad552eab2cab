// Package project manages projects and their direct membership changes.
package project

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/existflow/projectmate/internal/access"
	"github.com/existflow/projectmate/internal/apperr"
	"github.com/existflow/projectmate/internal/logger"
	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/pagination"
	"github.com/existflow/projectmate/internal/store"
)

const (
	minName        = 2
	maxName        = 100
	minDescription = 10
	maxDescription = 500
)

// Service runs project operations against a store.
type Service struct {
	store     store.Store
	now       func() time.Time
	newID     func() string
	pickColor func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides project id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithColorPicker overrides the default color choice.
func WithColorPicker(pick func() string) Option {
	return func(s *Service) { s.pickColor = pick }
}

func randomColor() string {
	return model.ProjectColors[rand.Intn(len(model.ProjectColors))]
}

// NewService creates a project service.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, now: time.Now, newID: uuid.NewString, pickColor: randomColor}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Detail is a project together with its task statistics.
type Detail struct {
	model.Project
	Stats    model.TaskStats `json:"taskStats"`
	Progress int             `json:"progress"`
}

// CreateInput describes a new project.
type CreateInput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Color       string         `json:"color"`
	Priority    model.Priority `json:"priority"`
	Deadline    *time.Time     `json:"deadline"`
}

// Patch is a partial project update.
type Patch struct {
	Name               model.Field[string]              `json:"name,omitzero"`
	Description        model.Field[string]              `json:"description,omitzero"`
	Color              model.Field[string]              `json:"color,omitzero"`
	Status             model.Field[model.ProjectStatus] `json:"status,omitzero"`
	Priority           model.Field[model.Priority]      `json:"priority,omitzero"`
	Deadline           model.Field[*time.Time]          `json:"deadline,omitzero"`
	IsPublic           model.Field[bool]                `json:"isPublic,omitzero"`
	AllowMemberInvites model.Field[bool]                `json:"allowMemberInvites,omitzero"`
}

// MemberInput names a user to add, by id or by email.
type MemberInput struct {
	UserID string     `json:"userId"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
}

// ListInput filters and pages the actor's projects.
type ListInput struct {
	Status model.ProjectStatus
	Search string
	Page   int
	Limit  int
}

// ListResult is one page of projects.
type ListResult struct {
	Projects []Detail
	Page     pagination.Page
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := len([]rune(name)); n < minName || n > maxName {
		return "", apperr.Validationf("project name must be between %d and %d characters", minName, maxName)
	}
	return name, nil
}

func normalizeDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if n := len([]rune(description)); n < minDescription || n > maxDescription {
		return "", apperr.Validationf("description must be between %d and %d characters", minDescription, maxDescription)
	}
	return description, nil
}

// NormalizeCreateInput trims and validates new project input.
func NormalizeCreateInput(in CreateInput) (CreateInput, error) {
	var err error
	if in.Name, err = normalizeName(in.Name); err != nil {
		return CreateInput{}, err
	}
	if in.Description, err = normalizeDescription(in.Description); err != nil {
		return CreateInput{}, err
	}
	in.Color = strings.ToLower(strings.TrimSpace(in.Color))
	if in.Color != "" && !model.ValidColor(in.Color) {
		return CreateInput{}, apperr.Validationf("color must be one of %s", strings.Join(model.ProjectColors, ", "))
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if !in.Priority.Valid() {
		return CreateInput{}, apperr.Validation("priority must be low, medium or high")
	}
	return in, nil
}

// Create makes a project owned by the actor and adds it to the actor's
// project set.
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (Detail, error) {
	in, err := NormalizeCreateInput(in)
	if err != nil {
		return Detail{}, err
	}
	if in.Color == "" {
		in.Color = s.pickColor()
	}

	p := model.NewProject(s.newID(), actorID, in.Name, in.Description, in.Color, s.now().UTC())
	p.Priority = in.Priority
	p.Deadline = in.Deadline

	err = s.store.WithinTx(ctx, func(r store.Repository) error {
		if err := r.CreateProject(ctx, p); err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		if err := r.AddUserProject(ctx, actorID, p.ID); err != nil {
			return fmt.Errorf("add project to owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return Detail{}, err
	}

	logger.Info("Project created", logger.F("project", p.ID), logger.F("owner", actorID))
	return Detail{Project: p}, nil
}

// Get returns a project with its task statistics to one of its members.
func (s *Service) Get(ctx context.Context, actorID, projectID string) (Detail, error) {
	p, err := s.load(ctx, projectID)
	if err != nil {
		return Detail{}, err
	}
	if err := access.AuthorizeProject(p, actorID, access.ActionViewProject); err != nil {
		return Detail{}, err
	}
	return s.detail(ctx, p)
}

// List returns the projects the actor belongs to, newest first.
func (s *Service) List(ctx context.Context, actorID string, in ListInput) (ListResult, error) {
	if in.Status != "" && !in.Status.Valid() {
		return ListResult{}, apperr.Validationf("unknown project status %q", in.Status)
	}
	q := store.ProjectQuery{MemberID: actorID, Status: in.Status, Search: in.Search}
	total, err := s.store.CountProjects(ctx, q)
	if err != nil {
		return ListResult{}, fmt.Errorf("count projects: %w", err)
	}
	page := pagination.Projects.Compute(pagination.Request{Page: in.Page, Limit: in.Limit}, total)
	q.Skip, q.Limit = page.Skip, page.PageSize

	projects, err := s.store.ListProjects(ctx, q)
	if err != nil {
		return ListResult{}, fmt.Errorf("list projects: %w", err)
	}
	out := make([]Detail, 0, len(projects))
	for _, p := range projects {
		access.MustHoldOwnerInvariant(p)
		d, err := s.detail(ctx, p)
		if err != nil {
			return ListResult{}, err
		}
		out = append(out, d)
	}
	return ListResult{Projects: out, Page: page}, nil
}

// Update applies a partial update. Owner or admin only.
func (s *Service) Update(ctx context.Context, actorID, projectID string, patch Patch) (Detail, error) {
	p, err := s.load(ctx, projectID)
	if err != nil {
		return Detail{}, err
	}
	if err := access.AuthorizeProject(p, actorID, access.ActionUpdateProject); err != nil {
		return Detail{}, err
	}

	if v, ok := patch.Name.Get(); ok {
		if p.Name, err = normalizeName(v); err != nil {
			return Detail{}, err
		}
	}
	if v, ok := patch.Description.Get(); ok {
		if p.Description, err = normalizeDescription(v); err != nil {
			return Detail{}, err
		}
	}
	if v, ok := patch.Color.Get(); ok {
		v = strings.ToLower(strings.TrimSpace(v))
		if !model.ValidColor(v) {
			return Detail{}, apperr.Validationf("color must be one of %s", strings.Join(model.ProjectColors, ", "))
		}
		p.Color = v
	}
	if v, ok := patch.Status.Get(); ok {
		if !v.Valid() {
			return Detail{}, apperr.Validation("status must be active, completed or archived")
		}
		p.Status = v
	}
	if v, ok := patch.Priority.Get(); ok {
		if !v.Valid() {
			return Detail{}, apperr.Validation("priority must be low, medium or high")
		}
		p.Priority = v
	}
	if v, ok := patch.Deadline.Get(); ok {
		p.Deadline = v
	}
	if v, ok := patch.IsPublic.Get(); ok {
		p.Settings.IsPublic = v
	}
	if v, ok := patch.AllowMemberInvites.Get(); ok {
		p.Settings.AllowMemberInvites = v
	}

	p.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return Detail{}, s.writeError(err)
	}
	logger.Info("Project updated", logger.F("project", p.ID), logger.F("by", actorID))
	return s.detail(ctx, p)
}

// Delete removes a project with its tasks and invitations, and drops it
// from every member's project set. Owner only.
func (s *Service) Delete(ctx context.Context, actorID, projectID string) error {
	p, err := s.load(ctx, projectID)
	if err != nil {
		return err
	}
	if err := access.AuthorizeProject(p, actorID, access.ActionDeleteProject); err != nil {
		return err
	}

	err = s.store.WithinTx(ctx, func(r store.Repository) error {
		if err := r.DeleteProjectTasks(ctx, p.ID); err != nil {
			return err
		}
		if err := r.DeleteProjectInvitations(ctx, p.ID); err != nil {
			return err
		}
		if err := r.RemoveProjectFromUsers(ctx, p.ID); err != nil {
			return err
		}
		if err := r.DeleteProject(ctx, p.ID); err != nil {
			return s.writeError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Project deleted", logger.F("project", p.ID), logger.F("members", len(p.Members)))
	return nil
}

// AddMember grants a user a role in the project directly, without an
// invitation. Owner or admin only.
func (s *Service) AddMember(ctx context.Context, actorID, projectID string, in MemberInput) (Detail, error) {
	if in.Role == model.RoleNone {
		in.Role = model.RoleMember
	}
	if !in.Role.Grantable() {
		return Detail{}, apperr.Validation("role must be admin or member")
	}
	in.UserID = strings.TrimSpace(in.UserID)
	in.Email = model.NormalizeEmail(in.Email)
	if in.UserID == "" && in.Email == "" {
		return Detail{}, apperr.Validation("user id or email is required")
	}

	p, err := s.load(ctx, projectID)
	if err != nil {
		return Detail{}, err
	}
	if err := access.AuthorizeProject(p, actorID, access.ActionAddMember); err != nil {
		return Detail{}, err
	}

	user, err := s.findUser(ctx, in)
	if err != nil {
		return Detail{}, err
	}
	if access.ResolveRole(p, user.ID) != model.RoleNone {
		return Detail{}, apperr.Conflict(apperr.CodeAlreadyMember, "user is already a member of this project")
	}

	member := model.Member{UserID: user.ID, Role: in.Role, JoinedAt: s.now().UTC()}
	err = s.store.WithinTx(ctx, func(r store.Repository) error {
		if err := r.AddMember(ctx, p.ID, member); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.Conflict(apperr.CodeAlreadyMember, "user is already a member of this project")
			}
			return fmt.Errorf("add member: %w", err)
		}
		return r.AddUserProject(ctx, user.ID, p.ID)
	})
	if err != nil {
		return Detail{}, err
	}

	logger.Info("Member added",
		logger.F("project", p.ID),
		logger.F("user", user.ID),
		logger.F("role", in.Role),
		logger.F("by", actorID))
	p.Members = append(p.Members, member)
	return s.detail(ctx, p)
}

// RemoveMember revokes a user's membership and drops the project from their
// project set. Owner only; the owner cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, actorID, projectID, userID string) (Detail, error) {
	p, err := s.load(ctx, projectID)
	if err != nil {
		return Detail{}, err
	}
	if err := access.AuthorizeProject(p, actorID, access.ActionRemoveMember); err != nil {
		return Detail{}, err
	}
	if userID == p.OwnerID {
		return Detail{}, apperr.InvalidState(apperr.CodeOwnerImmutable, "cannot remove the project owner")
	}
	if _, ok := p.Member(userID); !ok {
		return Detail{}, apperr.NotFound(apperr.CodeMemberNotFound, "user is not a member of this project")
	}

	err = s.store.WithinTx(ctx, func(r store.Repository) error {
		if err := r.RemoveMember(ctx, p.ID, userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound(apperr.CodeMemberNotFound, "user is not a member of this project")
			}
			return fmt.Errorf("remove member: %w", err)
		}
		return r.RemoveUserProject(ctx, userID, p.ID)
	})
	if err != nil {
		return Detail{}, err
	}

	logger.Info("Member removed", logger.F("project", p.ID), logger.F("user", userID), logger.F("by", actorID))
	members := p.Members[:0:0]
	for _, m := range p.Members {
		if m.UserID != userID {
			members = append(members, m)
		}
	}
	p.Members = members
	return s.detail(ctx, p)
}

func (s *Service) findUser(ctx context.Context, in MemberInput) (model.User, error) {
	var (
		user model.User
		err  error
	)
	if in.UserID != "" {
		user, err = s.store.GetUser(ctx, in.UserID)
	} else {
		user, err = s.store.GetUserByEmail(ctx, in.Email)
	}
	if errors.Is(err, store.ErrNotFound) {
		return model.User{}, apperr.NotFound(apperr.CodeUserNotFound, "user not found")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *Service) detail(ctx context.Context, p model.Project) (Detail, error) {
	stats, err := s.store.TaskStats(ctx, p.ID)
	if err != nil {
		return Detail{}, fmt.Errorf("task stats: %w", err)
	}
	return Detail{Project: p, Stats: stats, Progress: stats.Progress()}, nil
}

func (s *Service) load(ctx context.Context, id string) (model.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Project{}, apperr.NotFound(apperr.CodeProjectNotFound, "project not found")
	}
	if err != nil {
		return model.Project{}, fmt.Errorf("load project: %w", err)
	}
	access.MustHoldOwnerInvariant(p)
	return p, nil
}

func (s *Service) writeError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(apperr.CodeProjectNotFound, "project not found")
	}
	return fmt.Errorf("write project: %w", err)
}
