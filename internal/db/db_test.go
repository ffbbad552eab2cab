package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRebind(t *testing.T) {
	query := "SELECT id FROM tasks WHERE project_id = ? AND title <> '?' AND status = ?"

	if got := Rebind(SQLite, query); got != query {
		t.Fatalf("sqlite query rewritten: %s", got)
	}
	want := "SELECT id FROM tasks WHERE project_id = $1 AND title <> '?' AND status = $2"
	if got := Rebind(Postgres, query); got != want {
		t.Fatalf("Rebind() = %s, want %s", got, want)
	}
}

func TestOpenSQLiteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "projectmate.db")

	first, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(ctx, "sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	var n int
	if err := second.QueryRowContext(ctx, "SELECT COUNT(*) FROM invitations").Scan(&n); err != nil {
		t.Fatalf("query invitations: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty table, got %d rows", n)
	}
}

func TestPendingInvitationIndexIsUnique(t *testing.T) {
	ctx := context.Background()
	d, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "pm.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	mustExec := func(q string, args ...any) {
		t.Helper()
		if _, err := d.ExecContext(ctx, q, args...); err != nil {
			t.Fatalf("exec %q: %v", q, err)
		}
	}
	mustExec(`INSERT INTO users (id, name, email, password_hash, created_at, updated_at) VALUES ('u1', 'Ann', 'ann@example.com', 'x', 1, 1)`)
	mustExec(`INSERT INTO projects (id, name, owner_id, created_at, updated_at) VALUES ('p1', 'Board', 'u1', 1, 1)`)

	insert := `INSERT INTO invitations (id, project_id, invited_by, invited_user_id, status, expires_at, created_at, updated_at)
VALUES (?, 'p1', 'u1', 'u2', ?, 10, 1, 1)`
	mustExec(insert, "i1", "declined")
	mustExec(insert, "i2", "pending")

	_, err = d.ExecContext(ctx, insert, "i3", "pending")
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "oracle", "x"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
