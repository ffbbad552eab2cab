// Package invite implements the invitation lifecycle: sending, responding,
// cancelling, listing and expiring invitations to join a project.
//
// An invitation starts pending and ends accepted, declined or expired.
// Cancelling deletes it and is only legal while it is pending. Status
// changes are conditional writes on status = pending, so concurrent respond
// and cancel calls never both succeed.
package invite

import (
	"context"
	"errors"
	"fmt"
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

// Service runs invitation operations against a store.
type Service struct {
	store store.Store
	now   func() time.Time
	newID func() string
	ttl   time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides invitation id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithTTL overrides how long a new invitation stays pending.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewService creates an invitation service.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store: st,
		now:   time.Now,
		newID: uuid.NewString,
		ttl:   model.DefaultInvitationTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendInput describes a new invitation.
type SendInput struct {
	Email   string `json:"email"`
	Role    string `json:"role"`
	Message string `json:"message"`
}

// NormalizeSendInput trims and validates invitation input. An empty role
// defaults to member.
func NormalizeSendInput(in SendInput) (SendInput, model.Role, error) {
	in.Email = model.NormalizeEmail(in.Email)
	if in.Email == "" {
		return SendInput{}, model.RoleNone, apperr.Validation("email is required")
	}
	if !model.ValidEmail(in.Email) {
		return SendInput{}, model.RoleNone, apperr.Validation("please provide a valid email")
	}

	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if in.Role == "" {
		in.Role = string(model.RoleMember)
	}
	role, ok := model.ParseRole(in.Role)
	if !ok || !role.Grantable() {
		return SendInput{}, model.RoleNone, apperr.Validation("role must be admin or member")
	}

	in.Message = strings.TrimSpace(in.Message)
	if n := len([]rune(in.Message)); n > model.MaxInvitationMessage {
		return SendInput{}, model.RoleNone, apperr.Validationf("message cannot exceed %d characters", model.MaxInvitationMessage)
	}
	return in, role, nil
}

// Send invites the user registered under in.Email to join projectID.
//
// Checks run in order and each fails distinctly: the project must exist,
// the actor must be its owner or an admin, the invitee must exist, must not
// already be a member and must not hold a pending invitation. A pending
// invitation already past its expiry is expired first and does not block.
func (s *Service) Send(ctx context.Context, actorID, projectID string, in SendInput) (model.Invitation, error) {
	in, role, err := NormalizeSendInput(in)
	if err != nil {
		return model.Invitation{}, err
	}

	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return model.Invitation{}, err
	}
	if err := access.AuthorizeProject(project, actorID, access.ActionSendInvitation); err != nil {
		return model.Invitation{}, err
	}

	invitee, err := s.store.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return model.Invitation{}, apperr.NotFound(apperr.CodeUserNotFound, "user not found with this email")
	}
	if err != nil {
		return model.Invitation{}, fmt.Errorf("load invitee: %w", err)
	}
	if access.ResolveRole(project, invitee.ID) != model.RoleNone {
		return model.Invitation{}, apperr.Conflict(apperr.CodeAlreadyMember, "user is already a member of this project")
	}

	now := s.now().UTC()
	pending, err := s.store.FindPendingInvitation(ctx, project.ID, invitee.ID)
	switch {
	case err == nil && !pending.IsExpired(now):
		return model.Invitation{}, apperr.Conflict(apperr.CodeInvitationPending, "invitation already sent to this user")
	case err == nil:
		if err := s.store.ResolveInvitation(ctx, pending.ID, model.InvitationExpired, nil, now); err != nil && !errors.Is(err, store.ErrNotFound) {
			return model.Invitation{}, fmt.Errorf("expire stale invitation: %w", err)
		}
		logger.Info("Invitation expired", logger.F("invitation", pending.ID), logger.F("project", project.ID))
	case !errors.Is(err, store.ErrNotFound):
		return model.Invitation{}, fmt.Errorf("find pending invitation: %w", err)
	}

	inv := model.Invitation{
		ID:            s.newID(),
		ProjectID:     project.ID,
		InvitedByID:   actorID,
		InvitedUserID: invitee.ID,
		Role:          role,
		Message:       in.Message,
		Status:        model.InvitationPending,
		ExpiresAt:     now.Add(s.ttl),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.Invitation{}, apperr.Conflict(apperr.CodeInvitationPending, "invitation already sent to this user")
		}
		return model.Invitation{}, fmt.Errorf("create invitation: %w", err)
	}

	logger.Info("Invitation sent",
		logger.F("invitation", inv.ID),
		logger.F("project", project.ID),
		logger.F("invited_by", actorID),
		logger.F("invited_user", invitee.ID),
		logger.F("role", role))
	return inv, nil
}

// errRaced marks a conditional write that matched no pending row.
var errRaced = errors.New("invitation is no longer pending")

// Respond accepts or declines an invitation on behalf of the invited user.
// Accepting adds the user to the project's members and the project to the
// user's project set in the same transaction as the status change.
func (s *Service) Respond(ctx context.Context, actorID, invitationID string, response model.Response) (model.Invitation, error) {
	if !response.Valid() {
		return model.Invitation{}, apperr.Validation("action must be accept or decline")
	}

	inv, err := s.loadInvitation(ctx, invitationID)
	if err != nil {
		return model.Invitation{}, err
	}
	if inv.InvitedUserID != actorID {
		return model.Invitation{}, apperr.Forbidden("not authorized to respond to this invitation")
	}
	if inv.Status != model.InvitationPending {
		return model.Invitation{}, apperr.InvalidState(apperr.CodeInvitationResolved, "invitation has already been responded to")
	}

	now := s.now().UTC()
	if inv.IsExpired(now) {
		if err := s.store.ResolveInvitation(ctx, inv.ID, model.InvitationExpired, nil, now); err != nil && !errors.Is(err, store.ErrNotFound) {
			return model.Invitation{}, fmt.Errorf("expire invitation: %w", err)
		}
		logger.Info("Invitation expired", logger.F("invitation", inv.ID), logger.F("project", inv.ProjectID))
		return model.Invitation{}, apperr.Expired(apperr.CodeInvitationExpired, "invitation has expired")
	}

	status := response.Status()
	err = s.store.WithinTx(ctx, func(r store.Repository) error {
		if err := r.ResolveInvitation(ctx, inv.ID, status, &now, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errRaced
			}
			return fmt.Errorf("resolve invitation: %w", err)
		}
		if status != model.InvitationAccepted {
			return nil
		}
		return grantMembership(ctx, r, inv, now)
	})
	if errors.Is(err, errRaced) {
		return model.Invitation{}, s.raceError(ctx, inv.ID)
	}
	if err != nil {
		logger.Error("Failed to respond to invitation", logger.F("invitation", inv.ID), logger.Err(err))
		return model.Invitation{}, err
	}

	inv.Status = status
	inv.RespondedAt = &now
	inv.UpdatedAt = now
	logger.Info("Invitation "+string(status),
		logger.F("invitation", inv.ID),
		logger.F("project", inv.ProjectID),
		logger.F("user", actorID))
	return inv, nil
}

// grantMembership appends the invitee's member entry and project set entry.
// An invitee who became a member some other way fails with Conflict, which
// rolls the acceptance back and leaves the invitation pending.
func grantMembership(ctx context.Context, r store.Repository, inv model.Invitation, now time.Time) error {
	project, err := r.GetProject(ctx, inv.ProjectID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(apperr.CodeProjectNotFound, "project not found")
	}
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	access.MustHoldOwnerInvariant(project)

	if access.ResolveRole(project, inv.InvitedUserID) != model.RoleNone {
		return apperr.Conflict(apperr.CodeAlreadyMember, "user is already a member of this project")
	}
	member := model.Member{UserID: inv.InvitedUserID, Role: inv.Role, JoinedAt: now}
	if err := r.AddMember(ctx, project.ID, member); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Conflict(apperr.CodeAlreadyMember, "user is already a member of this project")
		}
		return fmt.Errorf("add member: %w", err)
	}
	if err := r.AddUserProject(ctx, inv.InvitedUserID, project.ID); err != nil {
		return fmt.Errorf("add project to user: %w", err)
	}
	return nil
}

// Cancel deletes a pending invitation. Only the project owner or the
// original sender may cancel.
func (s *Service) Cancel(ctx context.Context, actorID, invitationID string) error {
	inv, err := s.loadInvitation(ctx, invitationID)
	if err != nil {
		return err
	}
	project, err := s.loadProject(ctx, inv.ProjectID)
	if err != nil {
		return err
	}
	if err := access.AuthorizeInvitationCancel(project, inv, actorID); err != nil {
		return err
	}
	if inv.Status != model.InvitationPending {
		return apperr.InvalidState(apperr.CodeInvitationResolved, "can only cancel pending invitations")
	}

	if err := s.store.DeletePendingInvitation(ctx, inv.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.raceError(ctx, inv.ID)
		}
		return fmt.Errorf("delete invitation: %w", err)
	}

	logger.Info("Invitation cancelled",
		logger.F("invitation", inv.ID),
		logger.F("project", inv.ProjectID),
		logger.F("cancelled_by", actorID))
	return nil
}

// raceError explains why a conditional write on a pending invitation
// matched nothing.
func (s *Service) raceError(ctx context.Context, invitationID string) error {
	_, err := s.store.GetInvitation(ctx, invitationID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(apperr.CodeInvitationNotFound, "invitation not found")
	}
	if err != nil {
		return fmt.Errorf("reload invitation: %w", err)
	}
	return apperr.InvalidState(apperr.CodeInvitationResolved, "invitation has already been responded to")
}

// Get returns an invitation visible to the actor: the invited user, the
// sender, or an owner or admin of the project.
func (s *Service) Get(ctx context.Context, actorID, invitationID string) (model.Invitation, error) {
	inv, err := s.loadInvitation(ctx, invitationID)
	if err != nil {
		return model.Invitation{}, err
	}
	project, err := s.loadProject(ctx, inv.ProjectID)
	if err != nil {
		return model.Invitation{}, err
	}
	if !access.CanViewInvitation(project, inv, actorID) {
		return model.Invitation{}, apperr.Forbidden("not authorized to view this invitation")
	}

	now := s.now().UTC()
	if inv.Status == model.InvitationPending && inv.IsExpired(now) {
		if err := s.store.ResolveInvitation(ctx, inv.ID, model.InvitationExpired, nil, now); err == nil {
			inv.Status = model.InvitationExpired
			inv.UpdatedAt = now
		} else if !errors.Is(err, store.ErrNotFound) {
			return model.Invitation{}, fmt.Errorf("expire invitation: %w", err)
		}
	}
	return inv, nil
}

// ListInput filters and pages an invitation listing.
type ListInput struct {
	Status model.InvitationStatus
	Page   int
	Limit  int
}

// ListResult is one page of invitations.
type ListResult struct {
	Invitations []model.Invitation
	Page        pagination.Page
}

// ListForUser lists the actor's own invitations, newest first.
func (s *Service) ListForUser(ctx context.Context, actorID string, in ListInput) (ListResult, error) {
	return s.list(ctx, store.InvitationQuery{InvitedUserID: actorID}, in)
}

// ListForProject lists a project's invitations for its owner or admins.
func (s *Service) ListForProject(ctx context.Context, actorID, projectID string, in ListInput) (ListResult, error) {
	project, err := s.loadProject(ctx, projectID)
	if err != nil {
		return ListResult{}, err
	}
	if err := access.AuthorizeProject(project, actorID, access.ActionViewInvitations); err != nil {
		return ListResult{}, err
	}
	return s.list(ctx, store.InvitationQuery{ProjectID: project.ID}, in)
}

func (s *Service) list(ctx context.Context, q store.InvitationQuery, in ListInput) (ListResult, error) {
	if in.Status != "" && !in.Status.Valid() {
		return ListResult{}, apperr.Validationf("unknown invitation status %q", in.Status)
	}

	if n, err := s.store.ExpireInvitations(ctx, q, s.now().UTC()); err != nil {
		return ListResult{}, fmt.Errorf("expire invitations: %w", err)
	} else if n > 0 {
		logger.Info("Expired stale invitations", logger.F("count", n))
	}

	q.Status = in.Status
	total, err := s.store.CountInvitations(ctx, q)
	if err != nil {
		return ListResult{}, fmt.Errorf("count invitations: %w", err)
	}
	page := pagination.Invitations.Compute(pagination.Request{Page: in.Page, Limit: in.Limit}, total)
	q.Skip, q.Limit = page.Skip, page.PageSize

	invitations, err := s.store.ListInvitations(ctx, q)
	if err != nil {
		return ListResult{}, fmt.Errorf("list invitations: %w", err)
	}
	return ListResult{Invitations: invitations, Page: page}, nil
}

func (s *Service) loadProject(ctx context.Context, id string) (model.Project, error) {
	project, err := s.store.GetProject(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Project{}, apperr.NotFound(apperr.CodeProjectNotFound, "project not found")
	}
	if err != nil {
		return model.Project{}, fmt.Errorf("load project: %w", err)
	}
	access.MustHoldOwnerInvariant(project)
	return project, nil
}

func (s *Service) loadInvitation(ctx context.Context, id string) (model.Invitation, error) {
	inv, err := s.store.GetInvitation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Invitation{}, apperr.NotFound(apperr.CodeInvitationNotFound, "invitation not found")
	}
	if err != nil {
		return model.Invitation{}, fmt.Errorf("load invitation: %w", err)
	}
	return inv, nil
}
