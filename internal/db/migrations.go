package db

import (
	"context"
	"fmt"
)

// migrate runs all database migrations. Every statement is idempotent and
// valid for both SQLite and PostgreSQL.
func (db *DB) migrate(ctx context.Context) error {
	migrations := []string{
		migrationCreateUsers,
		migrationCreateProjects,
		migrationCreateProjectMembers,
		migrationCreateUserProjects,
		migrationCreateTasks,
		migrationCreateProjectTasks,
		migrationCreateTaskComments,
		migrationCreateInvitations,
	}

	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

const migrationCreateUsers = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    avatar TEXT NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);
`

const migrationCreateProjects = `
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    color TEXT NOT NULL DEFAULT 'blue',
    owner_id TEXT NOT NULL REFERENCES users(id),
    status TEXT NOT NULL DEFAULT 'active',
    priority TEXT NOT NULL DEFAULT 'medium',
    deadline BIGINT,
    is_public BOOLEAN NOT NULL DEFAULT FALSE,
    allow_member_invites BOOLEAN NOT NULL DEFAULT TRUE,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id);
`

const migrationCreateProjectMembers = `
CREATE TABLE IF NOT EXISTS project_members (
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL REFERENCES users(id),
    role TEXT NOT NULL,
    joined_at BIGINT NOT NULL,
    PRIMARY KEY (project_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_project_members_user ON project_members(user_id);
`

const migrationCreateUserProjects = `
CREATE TABLE IF NOT EXISTS user_projects (
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    project_id TEXT NOT NULL,
    added_at BIGINT NOT NULL,
    PRIMARY KEY (user_id, project_id)
);
`

const migrationCreateTasks = `
CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'todo',
    priority TEXT NOT NULL DEFAULT 'medium',
    assigned_to TEXT,
    created_by TEXT NOT NULL,
    due_date BIGINT,
    tags TEXT NOT NULL DEFAULT '[]',
    position BIGINT NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_project_position ON tasks(project_id, position);
CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assigned_to);
`

const migrationCreateProjectTasks = `
CREATE TABLE IF NOT EXISTS project_tasks (
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    task_id TEXT NOT NULL,
    seq BIGINT NOT NULL,
    PRIMARY KEY (project_id, task_id)
);
`

const migrationCreateTaskComments = `
CREATE TABLE IF NOT EXISTS task_comments (
    task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
    seq BIGINT NOT NULL,
    user_id TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    PRIMARY KEY (task_id, seq)
);
`

const migrationCreateInvitations = `
CREATE TABLE IF NOT EXISTS invitations (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    invited_by TEXT NOT NULL,
    invited_user_id TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'member',
    message TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending',
    expires_at BIGINT NOT NULL,
    responded_at BIGINT,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_invitations_one_pending
    ON invitations(project_id, invited_user_id) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS idx_invitations_user_status ON invitations(invited_user_id, status);
CREATE INDEX IF NOT EXISTS idx_invitations_expiry ON invitations(status, expires_at);
`
