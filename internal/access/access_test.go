package access

import (
	"errors"
	"testing"
	"time"

	"github.com/existflow/projectmate/internal/apperr"
	"github.com/existflow/projectmate/internal/model"
)

func testProject() model.Project {
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	p := model.NewProject("p-1", "owner", "Launch", "Launch plan board", "green", now)
	p.Members = append(p.Members,
		model.Member{UserID: "admin", Role: model.RoleAdmin, JoinedAt: now},
		model.Member{UserID: "member", Role: model.RoleMember, JoinedAt: now},
	)
	return p
}

func TestResolveRole(t *testing.T) {
	p := testProject()
	tests := []struct {
		user string
		want model.Role
	}{
		{"owner", model.RoleOwner},
		{"admin", model.RoleAdmin},
		{"member", model.RoleMember},
		{"stranger", model.RoleNone},
		{"", model.RoleNone},
	}
	for _, tt := range tests {
		if got := ResolveRole(p, tt.user); got != tt.want {
			t.Fatalf("ResolveRole(%q) = %q, want %q", tt.user, got, tt.want)
		}
	}
}

func TestResolveRoleOwnerWithoutEntry(t *testing.T) {
	p := testProject()
	p.Members = p.Members[1:]
	if got := ResolveRole(p, "owner"); got != model.RoleOwner {
		t.Fatalf("owner reference must win, got %q", got)
	}
}

func TestCheckOwnerInvariant(t *testing.T) {
	p := testProject()
	if err := CheckOwnerInvariant(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	twoOwners := testProject()
	twoOwners.Members[1].Role = model.RoleOwner
	if err := CheckOwnerInvariant(twoOwners); err == nil {
		t.Fatal("expected error for two owner entries")
	}

	mismatched := testProject()
	mismatched.OwnerID = "admin"
	if err := CheckOwnerInvariant(mismatched); err == nil {
		t.Fatal("expected error for mismatched owner")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustHoldOwnerInvariant(mismatched)
}

func TestAllowedMatrix(t *testing.T) {
	type row struct {
		action               Action
		owner, admin, member bool
	}
	rows := []row{
		{ActionViewProject, true, true, true},
		{ActionUpdateProject, true, true, false},
		{ActionDeleteProject, true, false, false},
		{ActionAddMember, true, true, false},
		{ActionRemoveMember, true, false, false},
		{ActionSendInvitation, true, true, false},
		{ActionViewInvitations, true, true, false},
		{ActionCancelInvitation, true, false, false},
		{ActionViewTask, true, true, true},
		{ActionCreateTask, true, true, true},
		{ActionUpdateTask, true, true, true},
		{ActionReorderTasks, true, true, true},
		{ActionDeleteTask, true, true, true},
		{ActionComment, true, true, true},
	}
	for _, r := range rows {
		if got := Allowed(model.RoleOwner, r.action); got != r.owner {
			t.Fatalf("owner %s: got %v", r.action, got)
		}
		if got := Allowed(model.RoleAdmin, r.action); got != r.admin {
			t.Fatalf("admin %s: got %v", r.action, got)
		}
		if got := Allowed(model.RoleMember, r.action); got != r.member {
			t.Fatalf("member %s: got %v", r.action, got)
		}
		if Allowed(model.RoleNone, r.action) {
			t.Fatalf("none %s: expected deny", r.action)
		}
	}
}

func TestAuthorizeReturnsForbidden(t *testing.T) {
	err := Authorize(model.RoleMember, ActionDeleteProject)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if Authorize(model.RoleOwner, ActionDeleteProject) != nil {
		t.Fatal("owner should be allowed to delete")
	}
}

func TestAuthorizeTaskCreatorMayDeleteAfterLeaving(t *testing.T) {
	p := testProject()
	task := model.Task{ID: "t-1", ProjectID: p.ID, CreatorID: "former"}

	if err := AuthorizeTask(p, task, "former", ActionDeleteTask); err != nil {
		t.Fatalf("creator delete should be allowed: %v", err)
	}
	if err := AuthorizeTask(p, task, "former", ActionUpdateTask); err == nil {
		t.Fatal("creator exception only applies to delete")
	}
	if err := AuthorizeTask(p, task, "stranger", ActionDeleteTask); err == nil {
		t.Fatal("stranger should not delete")
	}
}

func TestAuthorizeInvitationCancel(t *testing.T) {
	p := testProject()
	inv := model.Invitation{ID: "i-1", ProjectID: p.ID, InvitedByID: "admin", InvitedUserID: "guest"}

	for _, user := range []string{"owner", "admin"} {
		if err := AuthorizeInvitationCancel(p, inv, user); err != nil {
			t.Fatalf("%s should cancel: %v", user, err)
		}
	}

	other := inv
	other.InvitedByID = "owner"
	if err := AuthorizeInvitationCancel(p, other, "admin"); err == nil {
		t.Fatal("admin who is not the sender should not cancel")
	}
	if err := AuthorizeInvitationCancel(p, inv, "guest"); err == nil {
		t.Fatal("invited user cannot cancel")
	}
}

func TestCanViewInvitation(t *testing.T) {
	p := testProject()
	inv := model.Invitation{ProjectID: p.ID, InvitedByID: "owner", InvitedUserID: "guest"}

	for user, want := range map[string]bool{
		"guest":    true,
		"owner":    true,
		"admin":    true,
		"member":   false,
		"stranger": false,
	} {
		if got := CanViewInvitation(p, inv, user); got != want {
			t.Fatalf("CanViewInvitation(%s) = %v, want %v", user, got, want)
		}
	}
}
