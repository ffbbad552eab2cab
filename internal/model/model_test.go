package model

import (
	"testing"
	"time"
)

func TestNewProjectOwnerIsOnlyMember(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p := NewProject("p-1", "u-1", "Board", "A shared board", "blue", now)

	if len(p.Members) != 1 {
		t.Fatalf("expected one member, got %d", len(p.Members))
	}
	m, ok := p.Member("u-1")
	if !ok || m.Role != RoleOwner {
		t.Fatalf("expected owner entry, got %+v (found=%v)", m, ok)
	}
	if p.Status != ProjectActive || p.Priority != PriorityMedium {
		t.Fatalf("unexpected defaults: %s %s", p.Status, p.Priority)
	}
}

func TestTaskStatsProgress(t *testing.T) {
	var s TaskStats
	s.Add(StatusTodo, 1)
	s.Add(StatusInProgress, 1)
	s.Add(StatusCompleted, 1)

	if s.Total != 3 || s.Completed != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if got := s.Progress(); got != 33 {
		t.Fatalf("progress = %d, want 33", got)
	}
	if (TaskStats{}).Progress() != 0 {
		t.Fatal("empty stats should have zero progress")
	}
}

func TestParseTaskStatusAliases(t *testing.T) {
	for in, want := range map[string]TaskStatus{
		"todo":        StatusTodo,
		"in-progress": StatusInProgress,
		"DONE":        StatusCompleted,
	} {
		got, ok := ParseTaskStatus(in)
		if !ok || got != want {
			t.Fatalf("ParseTaskStatus(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseTaskStatus("blocked"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestInvitationRespondable(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inv := Invitation{Status: InvitationPending, ExpiresAt: now.Add(time.Hour)}
	if !inv.IsRespondable(now) {
		t.Fatal("expected pending invitation to be respondable")
	}
	if inv.IsRespondable(now.Add(2 * time.Hour)) {
		t.Fatal("expected expired invitation to be unrespondable")
	}
	inv.Status = InvitationDeclined
	if inv.IsRespondable(now) {
		t.Fatal("expected declined invitation to be unrespondable")
	}
}

func TestTaskOverdue(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	task := Task{Status: StatusTodo, DueDate: &yesterday}
	if !task.IsOverdue(now) {
		t.Fatal("expected overdue")
	}
	task.Status = StatusCompleted
	if task.IsOverdue(now) {
		t.Fatal("completed task is never overdue")
	}
}
