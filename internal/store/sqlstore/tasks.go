package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/store"
)

const taskColumns = `id, project_id, title, description, status, priority, assigned_to, created_by, due_date, tags, position, created_at, updated_at`

func scanTask(row rowScanner) (model.Task, error) {
	var (
		t                    model.Task
		assignee             sql.NullString
		dueDate              sql.NullInt64
		tags                 string
		createdAt, updatedAt int64
	)
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&assignee, &t.CreatorID, &dueDate, &tags, &t.Position, &createdAt, &updatedAt)
	if err != nil {
		return model.Task{}, err
	}
	t.AssigneeID = fromNullString(assignee)
	t.DueDate = fromNullMillis(dueDate)
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	t.Tags = []string{}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
			return model.Task{}, fmt.Errorf("decode tags: %w", err)
		}
	}
	return t, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

// GetTask loads a task with its comments.
func (s *Store) GetTask(ctx context.Context, id string) (model.Task, error) {
	t, err := scanTask(s.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		return model.Task{}, translate(err)
	}
	if t.Comments, err = s.taskComments(ctx, t.ID); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

func (s *Store) taskComments(ctx context.Context, taskID string) ([]model.Comment, error) {
	rows, err := s.query(ctx, `SELECT user_id, content, created_at FROM task_comments WHERE task_id = ? ORDER BY seq`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var (
			c         model.Comment
			createdAt int64
		)
		if err := rows.Scan(&c.UserID, &c.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.CreatedAt = fromMillis(createdAt)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func taskFilter(q store.TaskQuery) filter {
	var f filter
	if q.ProjectID != "" {
		f.add(`project_id = ?`, q.ProjectID)
	}
	if q.Status != "" {
		f.add(`status = ?`, string(q.Status))
	}
	if q.AssigneeID != "" {
		f.add(`assigned_to = ?`, q.AssigneeID)
	}
	if q.Priority != "" {
		f.add(`priority = ?`, string(q.Priority))
	}
	return f
}

// ListTasks returns matching tasks ordered by position, then newest first.
func (s *Store) ListTasks(ctx context.Context, q store.TaskQuery) ([]model.Task, error) {
	f := taskFilter(q)
	limit, limitArgs := page(q.Skip, q.Limit)
	rows, err := s.query(ctx, `SELECT `+taskColumns+` FROM tasks`+f.where()+` ORDER BY position ASC, created_at DESC, id`+limit,
		append(f.args, limitArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	rows.Close()

	for i := range tasks {
		if tasks[i].Comments, err = s.taskComments(ctx, tasks[i].ID); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// CountTasks counts matching tasks.
func (s *Store) CountTasks(ctx context.Context, q store.TaskQuery) (int, error) {
	f := taskFilter(q)
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM tasks`+f.where(), f.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// TaskStats counts a project's tasks per status.
func (s *Store) TaskStats(ctx context.Context, projectID string) (model.TaskStats, error) {
	rows, err := s.query(ctx, `SELECT status, COUNT(*) FROM tasks WHERE project_id = ? GROUP BY status`, projectID)
	if err != nil {
		return model.TaskStats{}, fmt.Errorf("query task stats: %w", err)
	}
	defer rows.Close()

	var stats model.TaskStats
	for rows.Next() {
		var (
			status model.TaskStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return model.TaskStats{}, fmt.Errorf("scan task stats: %w", err)
		}
		stats.Add(status, n)
	}
	return stats, rows.Err()
}

// MaxTaskPosition returns the highest task position in a project.
func (s *Store) MaxTaskPosition(ctx context.Context, projectID string) (int64, bool, error) {
	var pos sql.NullInt64
	if err := s.queryRow(ctx, `SELECT MAX(position) FROM tasks WHERE project_id = ?`, projectID).Scan(&pos); err != nil {
		return 0, false, fmt.Errorf("max task position: %w", err)
	}
	return pos.Int64, pos.Valid, nil
}

// CreateTask inserts a task and its comments.
func (s *Store) CreateTask(ctx context.Context, t model.Task) error {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Title, t.Description, string(t.Status), string(t.Priority),
		toNullString(t.AssigneeID), t.CreatorID, toNullMillis(t.DueDate), tags, t.Position,
		toMillis(t.CreatedAt), toMillis(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert task: %w", translate(err))
	}
	for _, c := range t.Comments {
		if err := s.AddComment(ctx, t.ID, c); err != nil {
			return err
		}
	}
	return nil
}

// UpdateTask writes every mutable field of t.
func (s *Store) UpdateTask(ctx context.Context, t model.Task) error {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return err
	}
	return s.execOne(ctx, `UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, assigned_to = ?,
due_date = ?, tags = ?, position = ?, updated_at = ? WHERE id = ?`,
		t.Title, t.Description, string(t.Status), string(t.Priority), toNullString(t.AssigneeID),
		toNullMillis(t.DueDate), tags, t.Position, toMillis(t.UpdatedAt), t.ID)
}

// AddComment appends a comment to a task.
func (s *Store) AddComment(ctx context.Context, taskID string, c model.Comment) error {
	return s.execOne(ctx, `INSERT INTO task_comments (task_id, seq, user_id, content, created_at)
SELECT t.id, COALESCE(MAX(c.seq), 0) + 1, CAST(? AS TEXT), CAST(? AS TEXT), CAST(? AS BIGINT)
FROM tasks t LEFT JOIN task_comments c ON c.task_id = t.id
WHERE t.id = ?
GROUP BY t.id`,
		c.UserID, c.Content, toMillis(c.CreatedAt), taskID)
}

// DeleteTask deletes a task and its comments.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM tasks WHERE id = ?`, id)
}

// DeleteProjectTasks deletes every task of a project.
func (s *Store) DeleteProjectTasks(ctx context.Context, projectID string) error {
	if _, err := s.exec(ctx, `DELETE FROM tasks WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("delete project tasks: %w", err)
	}
	if _, err := s.exec(ctx, `DELETE FROM project_tasks WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("delete project task list: %w", err)
	}
	return nil
}
