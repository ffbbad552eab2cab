package view

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/project"
	"github.com/existflow/projectmate/internal/store/sqlstore"
)

var start = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	ctx := context.Background()
	st, err := sqlstore.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "view.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	for _, id := range []string{"owner", "bob"} {
		u := model.User{ID: id, Name: strings.ToUpper(id), Email: id + "@example.com", PasswordHash: "x", Active: true, CreatedAt: start, UpdatedAt: start}
		if err := st.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	p := model.NewProject("p1", "owner", "Launch", "Launch plan for the release", "red", start)
	p.Members = append(p.Members, model.Member{UserID: "bob", Role: model.RoleMember, JoinedAt: start.Add(time.Minute)})
	if err := st.CreateProject(ctx, p); err != nil {
		t.Fatalf("create project: %v", err)
	}
	if err := st.AddUserProject(ctx, "bob", "p1"); err != nil {
		t.Fatalf("add user project: %v", err)
	}
	return st
}

func TestProjectViewExpandsPeople(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	p, _ := st.GetProject(ctx, "p1")

	v, err := NewPopulator(st).Project(ctx, project.Detail{Project: p})
	if err != nil {
		t.Fatalf("populate: %v", err)
	}
	if v.Owner.Name != "OWNER" || len(v.Members) != 2 || v.Members[1].User.Name != "BOB" {
		t.Fatalf("view = %+v", v)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		ID      string `json:"id"`
		Owner   struct{ Name string } `json:"owner"`
		Members []struct {
			User struct{ Email string } `json:"user"`
		} `json:"members"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ID != "p1" || decoded.Owner.Name != "OWNER" || decoded.Members[1].User.Email != "bob@example.com" {
		t.Fatalf("json = %s", raw)
	}
}

func TestTaskAndInvitationViews(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	pop := NewPopulator(st)
	pop.now = func() time.Time { return start.Add(72 * time.Hour) }

	bob := "bob"
	due := start.Add(24 * time.Hour)
	task := model.Task{
		ID: "t1", ProjectID: "p1", Title: "Ship", Status: model.StatusTodo, CreatorID: "owner",
		AssigneeID: &bob, DueDate: &due,
		Comments: []model.Comment{{UserID: "ghost", Content: "hi", CreatedAt: start}},
	}
	tv, err := pop.Task(ctx, task)
	if err != nil {
		t.Fatalf("task view: %v", err)
	}
	if tv.AssignedTo == nil || tv.AssignedTo.Name != "BOB" || tv.CreatedBy.Name != "OWNER" || !tv.Overdue {
		t.Fatalf("task view = %+v", tv)
	}
	if tv.Comments[0].User.ID != "ghost" || tv.Comments[0].User.Name != "" {
		t.Fatalf("unknown author = %+v", tv.Comments[0].User)
	}

	invs, err := pop.Invitations(ctx, []model.Invitation{
		{ID: "i1", ProjectID: "p1", InvitedByID: "owner", InvitedUserID: "bob"},
		{ID: "i2", ProjectID: "gone", InvitedByID: "owner", InvitedUserID: "bob"},
	})
	if err != nil {
		t.Fatalf("invitation views: %v", err)
	}
	if invs[0].Project.Name != "Launch" || invs[0].InvitedUser.Name != "BOB" || invs[1].Project.ID != "gone" {
		t.Fatalf("invitation views = %+v", invs)
	}

	u, _ := st.GetUser(ctx, "bob")
	me, err := pop.Me(ctx, u)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if len(me.Projects) != 1 || me.Projects[0].Name != "Launch" {
		t.Fatalf("me = %+v", me)
	}
}
