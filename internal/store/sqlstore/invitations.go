package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/store"
)

const invitationColumns = `id, project_id, invited_by, invited_user_id, role, message, status, expires_at, responded_at, created_at, updated_at`

func scanInvitation(row rowScanner) (model.Invitation, error) {
	var (
		inv                             model.Invitation
		respondedAt                     sql.NullInt64
		expiresAt, createdAt, updatedAt int64
	)
	err := row.Scan(&inv.ID, &inv.ProjectID, &inv.InvitedByID, &inv.InvitedUserID, &inv.Role, &inv.Message,
		&inv.Status, &expiresAt, &respondedAt, &createdAt, &updatedAt)
	if err != nil {
		return model.Invitation{}, err
	}
	inv.ExpiresAt = fromMillis(expiresAt)
	inv.RespondedAt = fromNullMillis(respondedAt)
	inv.CreatedAt = fromMillis(createdAt)
	inv.UpdatedAt = fromMillis(updatedAt)
	return inv, nil
}

// GetInvitation loads an invitation.
func (s *Store) GetInvitation(ctx context.Context, id string) (model.Invitation, error) {
	inv, err := scanInvitation(s.queryRow(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id))
	if err != nil {
		return model.Invitation{}, translate(err)
	}
	return inv, nil
}

// FindPendingInvitation returns the pending invitation for a project and user.
func (s *Store) FindPendingInvitation(ctx context.Context, projectID, invitedUserID string) (model.Invitation, error) {
	inv, err := scanInvitation(s.queryRow(ctx, `SELECT `+invitationColumns+` FROM invitations
WHERE project_id = ? AND invited_user_id = ? AND status = 'pending'`, projectID, invitedUserID))
	if err != nil {
		return model.Invitation{}, translate(err)
	}
	return inv, nil
}

func invitationFilter(q store.InvitationQuery) filter {
	var f filter
	if q.ProjectID != "" {
		f.add(`project_id = ?`, q.ProjectID)
	}
	if q.InvitedUserID != "" {
		f.add(`invited_user_id = ?`, q.InvitedUserID)
	}
	if q.Status != "" {
		f.add(`status = ?`, string(q.Status))
	}
	return f
}

// ListInvitations returns matching invitations, newest first.
func (s *Store) ListInvitations(ctx context.Context, q store.InvitationQuery) ([]model.Invitation, error) {
	f := invitationFilter(q)
	limit, limitArgs := page(q.Skip, q.Limit)
	rows, err := s.query(ctx, `SELECT `+invitationColumns+` FROM invitations`+f.where()+` ORDER BY created_at DESC, id DESC`+limit,
		append(f.args, limitArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("query invitations: %w", err)
	}
	defer rows.Close()

	invitations := []model.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invitations: %w", err)
	}
	return invitations, nil
}

// CountInvitations counts matching invitations.
func (s *Store) CountInvitations(ctx context.Context, q store.InvitationQuery) (int, error) {
	f := invitationFilter(q)
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM invitations`+f.where(), f.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count invitations: %w", err)
	}
	return n, nil
}

// CreateInvitation inserts an invitation. A second pending invitation for
// the same project and user violates idx_invitations_one_pending.
func (s *Store) CreateInvitation(ctx context.Context, inv model.Invitation) error {
	_, err := s.exec(ctx, `INSERT INTO invitations (`+invitationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.ProjectID, inv.InvitedByID, inv.InvitedUserID, string(inv.Role), inv.Message,
		string(inv.Status), toMillis(inv.ExpiresAt), toNullMillis(inv.RespondedAt),
		toMillis(inv.CreatedAt), toMillis(inv.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert invitation: %w", translate(err))
	}
	return nil
}

// ResolveInvitation moves a pending invitation to status.
func (s *Store) ResolveInvitation(ctx context.Context, id string, status model.InvitationStatus, respondedAt *time.Time, now time.Time) error {
	return s.execOne(ctx, `UPDATE invitations SET status = ?, responded_at = ?, updated_at = ?
WHERE id = ? AND status = 'pending'`,
		string(status), toNullMillis(respondedAt), toMillis(now), id)
}

// DeletePendingInvitation deletes an invitation that is still pending.
func (s *Store) DeletePendingInvitation(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM invitations WHERE id = ? AND status = 'pending'`, id)
}

// ExpireInvitations marks stale pending invitations as expired.
func (s *Store) ExpireInvitations(ctx context.Context, q store.InvitationQuery, now time.Time) (int64, error) {
	f := invitationFilter(store.InvitationQuery{ProjectID: q.ProjectID, InvitedUserID: q.InvitedUserID})
	f.add(`status = 'pending'`)
	f.add(`expires_at < ?`, toMillis(now))
	args := append([]any{toMillis(now)}, f.args...)
	res, err := s.exec(ctx, `UPDATE invitations SET status = 'expired', updated_at = ?`+f.where(), args...)
	if err != nil {
		return 0, fmt.Errorf("expire invitations: %w", err)
	}
	return res.RowsAffected()
}

// PurgeInvitations deletes resolved invitations older than cutoff.
func (s *Store) PurgeInvitations(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM invitations WHERE status <> 'pending' AND updated_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge invitations: %w", err)
	}
	return res.RowsAffected()
}

// DeleteProjectInvitations deletes every invitation of a project.
func (s *Store) DeleteProjectInvitations(ctx context.Context, projectID string) error {
	if _, err := s.exec(ctx, `DELETE FROM invitations WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("delete project invitations: %w", err)
	}
	return nil
}
