package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/store"
)

const projectColumns = `id, name, description, color, owner_id, status, priority, deadline, is_public, allow_member_invites, created_at, updated_at`

func scanProject(row rowScanner) (model.Project, error) {
	var (
		p                    model.Project
		deadline             sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Color, &p.OwnerID, &p.Status, &p.Priority,
		&deadline, &p.Settings.IsPublic, &p.Settings.AllowMemberInvites, &createdAt, &updatedAt)
	if err != nil {
		return model.Project{}, err
	}
	p.Deadline = fromNullMillis(deadline)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}

// GetProject loads a project with its members and task ids.
func (s *Store) GetProject(ctx context.Context, id string) (model.Project, error) {
	p, err := scanProject(s.queryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if err != nil {
		return model.Project{}, translate(err)
	}
	if err := s.hydrateProject(ctx, &p); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

func (s *Store) hydrateProject(ctx context.Context, p *model.Project) error {
	rows, err := s.query(ctx, `SELECT user_id, role, joined_at FROM project_members WHERE project_id = ? ORDER BY joined_at, user_id`, p.ID)
	if err != nil {
		return fmt.Errorf("query members: %w", err)
	}
	p.Members = []model.Member{}
	for rows.Next() {
		var (
			m        model.Member
			joinedAt int64
		)
		if err := rows.Scan(&m.UserID, &m.Role, &joinedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan member: %w", err)
		}
		m.JoinedAt = fromMillis(joinedAt)
		p.Members = append(p.Members, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate members: %w", err)
	}
	rows.Close()

	rows, err = s.query(ctx, `SELECT task_id FROM project_tasks WHERE project_id = ? ORDER BY seq`, p.ID)
	if err != nil {
		return fmt.Errorf("query project tasks: %w", err)
	}
	defer rows.Close()
	p.TaskIDs = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan project task: %w", err)
		}
		p.TaskIDs = append(p.TaskIDs, id)
	}
	return rows.Err()
}

func projectFilter(q store.ProjectQuery) filter {
	var f filter
	if q.MemberID != "" {
		f.add(`id IN (SELECT project_id FROM project_members WHERE user_id = ?)`, q.MemberID)
	}
	if q.Status != "" {
		f.add(`status = ?`, string(q.Status))
	}
	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		pattern := "%" + search + "%"
		f.add(`(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)`, pattern, pattern)
	}
	return f
}

// ListProjects returns matching projects, newest first.
func (s *Store) ListProjects(ctx context.Context, q store.ProjectQuery) ([]model.Project, error) {
	f := projectFilter(q)
	limit, limitArgs := page(q.Skip, q.Limit)
	rows, err := s.query(ctx, `SELECT `+projectColumns+` FROM projects`+f.where()+` ORDER BY created_at DESC, id`+limit,
		append(f.args, limitArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	projects := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	rows.Close()

	for i := range projects {
		if err := s.hydrateProject(ctx, &projects[i]); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

// CountProjects counts matching projects.
func (s *Store) CountProjects(ctx context.Context, q store.ProjectQuery) (int, error) {
	f := projectFilter(q)
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM projects`+f.where(), f.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return n, nil
}

// CreateProject inserts a project with its member entries and task ids.
func (s *Store) CreateProject(ctx context.Context, p model.Project) error {
	_, err := s.exec(ctx, `INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Color, p.OwnerID, string(p.Status), string(p.Priority),
		toNullMillis(p.Deadline), p.Settings.IsPublic, p.Settings.AllowMemberInvites,
		toMillis(p.CreatedAt), toMillis(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert project: %w", translate(err))
	}
	for _, m := range p.Members {
		if err := s.AddMember(ctx, p.ID, m); err != nil {
			return err
		}
	}
	for _, taskID := range p.TaskIDs {
		if err := s.AppendProjectTask(ctx, p.ID, taskID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateProject writes the scalar fields of p.
func (s *Store) UpdateProject(ctx context.Context, p model.Project) error {
	return s.execOne(ctx, `UPDATE projects SET name = ?, description = ?, color = ?, status = ?, priority = ?, deadline = ?,
is_public = ?, allow_member_invites = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Description, p.Color, string(p.Status), string(p.Priority), toNullMillis(p.Deadline),
		p.Settings.IsPublic, p.Settings.AllowMemberInvites, toMillis(p.UpdatedAt), p.ID)
}

// DeleteProject deletes a project. Members, task ids, tasks and
// invitations cascade.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM projects WHERE id = ?`, id)
}

// AddMember inserts a member entry.
func (s *Store) AddMember(ctx context.Context, projectID string, m model.Member) error {
	_, err := s.exec(ctx, `INSERT INTO project_members (project_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		projectID, m.UserID, string(m.Role), toMillis(m.JoinedAt))
	if err != nil {
		return fmt.Errorf("add member: %w", translate(err))
	}
	return nil
}

// RemoveMember deletes a member entry.
func (s *Store) RemoveMember(ctx context.Context, projectID, userID string) error {
	return s.execOne(ctx, `DELETE FROM project_members WHERE project_id = ? AND user_id = ?`, projectID, userID)
}

// AppendProjectTask appends taskID to the project's ordered task list.
func (s *Store) AppendProjectTask(ctx context.Context, projectID, taskID string) error {
	_, err := s.exec(ctx, `INSERT INTO project_tasks (project_id, task_id, seq)
SELECT CAST(? AS TEXT), CAST(? AS TEXT), COALESCE(MAX(seq), 0) + 1 FROM project_tasks WHERE project_id = ?`,
		projectID, taskID, projectID)
	if err != nil {
		return fmt.Errorf("append project task: %w", translate(err))
	}
	return nil
}

// RemoveProjectTask removes taskID from the project's task list.
func (s *Store) RemoveProjectTask(ctx context.Context, projectID, taskID string) error {
	if _, err := s.exec(ctx, `DELETE FROM project_tasks WHERE project_id = ? AND task_id = ?`, projectID, taskID); err != nil {
		return fmt.Errorf("remove project task: %w", err)
	}
	return nil
}
