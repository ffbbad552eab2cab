package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/existflow/projectmate/internal/model"
)

const userColumns = `id, name, email, password_hash, avatar, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u                    model.User
		createdAt, updatedAt int64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Avatar, &u.Active, &createdAt, &updatedAt); err != nil {
		return model.User{}, err
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

// GetUser loads a user with its project set.
func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return model.User{}, translate(err)
	}
	if u.ProjectIDs, err = s.userProjects(ctx, u.ID); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// GetUserByEmail loads a user by email, compared case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return model.User{}, translate(err)
	}
	if u.ProjectIDs, err = s.userProjects(ctx, u.ID); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// GetUsers loads the users that exist among ids. Missing ids are skipped.
func (s *Store) GetUsers(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.query(ctx, `SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders(len(ids))+`) ORDER BY name, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	rows.Close()

	for i := range users {
		if users[i].ProjectIDs, err = s.userProjects(ctx, users[i].ID); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (s *Store) userProjects(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.query(ctx, `SELECT project_id FROM user_projects WHERE user_id = ? ORDER BY added_at, project_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user projects: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user project: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateUser inserts a user. Duplicate emails yield store.ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, u model.User) error {
	_, err := s.exec(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, strings.ToLower(u.Email), u.PasswordHash, u.Avatar, u.Active,
		toMillis(u.CreatedAt), toMillis(u.UpdatedAt))
	if err != nil {
		return translate(err)
	}
	for _, projectID := range u.ProjectIDs {
		if err := s.AddUserProject(ctx, u.ID, projectID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateUser writes the profile fields of u. The project set is unchanged.
func (s *Store) UpdateUser(ctx context.Context, u model.User) error {
	return s.execOne(ctx, `UPDATE users SET name = ?, email = ?, password_hash = ?, avatar = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		u.Name, strings.ToLower(u.Email), u.PasswordHash, u.Avatar, u.Active, toMillis(u.UpdatedAt), u.ID)
}

// AddUserProject adds projectID to the user's project set. Adding an id
// that is already present is a no-op.
func (s *Store) AddUserProject(ctx context.Context, userID, projectID string) error {
	_, err := s.exec(ctx, `INSERT INTO user_projects (user_id, project_id, added_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		userID, projectID, toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("add user project: %w", translate(err))
	}
	return nil
}

// RemoveUserProject removes projectID from the user's project set.
func (s *Store) RemoveUserProject(ctx context.Context, userID, projectID string) error {
	if _, err := s.exec(ctx, `DELETE FROM user_projects WHERE user_id = ? AND project_id = ?`, userID, projectID); err != nil {
		return fmt.Errorf("remove user project: %w", err)
	}
	return nil
}

// RemoveProjectFromUsers removes projectID from every user's project set.
func (s *Store) RemoveProjectFromUsers(ctx context.Context, projectID string) error {
	if _, err := s.exec(ctx, `DELETE FROM user_projects WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("remove project from users: %w", err)
	}
	return nil
}

var _ rowScanner = (*sql.Row)(nil)
