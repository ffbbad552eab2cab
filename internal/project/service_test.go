package project

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/existflow/projectmate/internal/apperr"
	"github.com/existflow/projectmate/internal/board"
	"github.com/existflow/projectmate/internal/invite"
	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/store"
	"github.com/existflow/projectmate/internal/store/sqlstore"
)

var start = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store *sqlstore.Store
	now   time.Time
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := sqlstore.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "project.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	f := &fixture{store: st, now: start}
	n := 0
	f.svc = NewService(st,
		WithClock(f.clock),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("p%d", n) }),
		WithColorPicker(func() string { return "purple" }))

	for _, id := range []string{"owner", "admin", "bob", "carol"} {
		u := model.User{ID: id, Name: id, Email: id + "@example.com", PasswordHash: "x", Active: true, CreatedAt: start, UpdatedAt: start}
		if err := st.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	return f
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) create(t *testing.T, actor, name string) Detail {
	t.Helper()
	f.now = f.now.Add(time.Minute)
	d, err := f.svc.Create(context.Background(), actor, CreateInput{Name: name, Description: "Description for " + name})
	if err != nil {
		t.Fatalf("create %q: %v", name, err)
	}
	return d
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

func hasProject(t *testing.T, f *fixture, userID, projectID string) bool {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("get user %s: %v", userID, err)
	}
	return u.HasProject(projectID)
}

func TestCreateProject(t *testing.T) {
	f := newFixture(t)
	d := f.create(t, "owner", "Launch")

	if d.OwnerID != "owner" || d.Color != "purple" || d.Status != model.ProjectActive {
		t.Fatalf("unexpected project %+v", d.Project)
	}
	if len(d.Members) != 1 || d.Members[0].Role != model.RoleOwner {
		t.Fatalf("members = %+v", d.Members)
	}
	if !hasProject(t, f, "owner", d.ID) {
		t.Fatal("project missing from owner's project set")
	}

	tests := []struct {
		name string
		in   CreateInput
	}{
		{name: "short name", in: CreateInput{Name: "x", Description: "Long enough description"}},
		{name: "short description", in: CreateInput{Name: "Name", Description: "short"}},
		{name: "long description", in: CreateInput{Name: "Name", Description: strings.Repeat("d", 501)}},
		{name: "unknown color", in: CreateInput{Name: "Name", Description: "Long enough description", Color: "orange"}},
		{name: "bad priority", in: CreateInput{Name: "Name", Description: "Long enough description", Priority: "now"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), "owner", tt.in)
			assertKind(t, err, apperr.KindValidation)
		})
	}
}

func TestGetAndListWithStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t, "owner", "First")
	second := f.create(t, "owner", "Second")
	f.create(t, "carol", "Someone else")

	tasks := board.NewService(f.store, board.WithClock(f.clock))
	for _, title := range []string{"One", "Two", "Three", "Four"} {
		if _, err := tasks.CreateTask(ctx, "owner", first.ID, board.CreateTaskInput{Title: title}); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}
	list, err := tasks.ListTasks(ctx, "owner", first.ID, board.ListInput{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	done := model.StatusCompleted
	if _, err := tasks.SetStatusAndPosition(ctx, "owner", list.Tasks[0].ID, board.MoveInput{Status: &done}); err != nil {
		t.Fatalf("complete task: %v", err)
	}

	d, err := f.svc.Get(ctx, "owner", first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if d.Stats.Total != 4 || d.Stats.Completed != 1 || d.Stats.Todo != 3 || d.Progress != 25 {
		t.Fatalf("stats = %+v progress %d", d.Stats, d.Progress)
	}

	_, err = f.svc.Get(ctx, "bob", first.ID)
	assertKind(t, err, apperr.KindForbidden)
	_, err = f.svc.Get(ctx, "owner", "missing")
	assertKind(t, err, apperr.KindNotFound)

	res, err := f.svc.List(ctx, "owner", ListInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(res.Projects) != 2 || res.Projects[0].ID != second.ID || res.Projects[1].ID != first.ID {
		t.Fatalf("projects = %+v", res.Projects)
	}
	if res.Page.Total != 2 || res.Page.HasNext {
		t.Fatalf("page = %+v", res.Page)
	}

	search, err := f.svc.List(ctx, "owner", ListInput{Search: "seco"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(search.Projects) != 1 || search.Projects[0].ID != second.ID {
		t.Fatalf("search = %+v", search.Projects)
	}
}

func TestUpdateProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.create(t, "owner", "Launch")
	if _, err := f.svc.AddMember(ctx, "owner", d.ID, MemberInput{UserID: "admin", Role: model.RoleAdmin}); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	if _, err := f.svc.AddMember(ctx, "owner", d.ID, MemberInput{UserID: "bob"}); err != nil {
		t.Fatalf("add bob: %v", err)
	}

	updated, err := f.svc.Update(ctx, "admin", d.ID, Patch{
		Name:   model.Some("Relaunch"),
		Status: model.Some(model.ProjectCompleted),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Relaunch" || updated.Status != model.ProjectCompleted || updated.Description != d.Description {
		t.Fatalf("updated = %+v", updated.Project)
	}

	_, err = f.svc.Update(ctx, "bob", d.ID, Patch{Name: model.Some("Mine")})
	assertKind(t, err, apperr.KindForbidden)
	_, err = f.svc.Update(ctx, "owner", d.ID, Patch{Color: model.Some("orange")})
	assertKind(t, err, apperr.KindValidation)

	stored, _ := f.store.GetProject(ctx, d.ID)
	if stored.Name != "Relaunch" {
		t.Fatalf("stored name = %s", stored.Name)
	}
}

func TestAddMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.create(t, "owner", "Launch")

	added, err := f.svc.AddMember(ctx, "owner", d.ID, MemberInput{Email: " ADMIN@example.com", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("add by email: %v", err)
	}
	if m, ok := added.Member("admin"); !ok || m.Role != model.RoleAdmin {
		t.Fatalf("members = %+v", added.Members)
	}
	if !hasProject(t, f, "admin", d.ID) {
		t.Fatal("project missing from admin's project set")
	}

	tests := []struct {
		name  string
		actor string
		in    MemberInput
		kind  apperr.Kind
	}{
		{name: "owner role", actor: "owner", in: MemberInput{UserID: "bob", Role: model.RoleOwner}, kind: apperr.KindValidation},
		{name: "no user", actor: "owner", in: MemberInput{}, kind: apperr.KindValidation},
		{name: "outsider", actor: "carol", in: MemberInput{UserID: "bob"}, kind: apperr.KindForbidden},
		{name: "unknown user", actor: "owner", in: MemberInput{Email: "ghost@example.com"}, kind: apperr.KindNotFound},
		{name: "existing member", actor: "admin", in: MemberInput{UserID: "admin"}, kind: apperr.KindConflict},
		{name: "owner again", actor: "admin", in: MemberInput{UserID: "owner"}, kind: apperr.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddMember(ctx, tt.actor, d.ID, tt.in)
			assertKind(t, err, tt.kind)
		})
	}

	if _, err := f.svc.AddMember(ctx, "admin", d.ID, MemberInput{UserID: "bob"}); err != nil {
		t.Fatalf("admin adds member: %v", err)
	}
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.create(t, "owner", "Launch")
	for _, in := range []MemberInput{{UserID: "admin", Role: model.RoleAdmin}, {UserID: "bob"}} {
		if _, err := f.svc.AddMember(ctx, "owner", d.ID, in); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}

	_, err := f.svc.RemoveMember(ctx, "admin", d.ID, "bob")
	assertKind(t, err, apperr.KindForbidden)
	_, err = f.svc.RemoveMember(ctx, "owner", d.ID, "owner")
	assertKind(t, err, apperr.KindInvalidState)
	_, err = f.svc.RemoveMember(ctx, "owner", d.ID, "carol")
	assertKind(t, err, apperr.KindNotFound)

	after, err := f.svc.RemoveMember(ctx, "owner", d.ID, "bob")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := after.Member("bob"); ok {
		t.Fatal("bob still listed as member")
	}
	if hasProject(t, f, "bob", d.ID) {
		t.Fatal("project still in bob's project set")
	}
	stored, _ := f.store.GetProject(ctx, d.ID)
	if len(stored.Members) != 2 {
		t.Fatalf("stored members = %+v", stored.Members)
	}
}

func TestDeleteProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.create(t, "owner", "Launch")
	if _, err := f.svc.AddMember(ctx, "owner", d.ID, MemberInput{UserID: "admin", Role: model.RoleAdmin}); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	tasks := board.NewService(f.store)
	task, err := tasks.CreateTask(ctx, "admin", d.ID, board.CreateTaskInput{Title: "Doomed"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	invites := invite.NewService(f.store)
	inv, err := invites.Send(ctx, "owner", d.ID, invite.SendInput{Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	assertKind(t, f.svc.Delete(ctx, "admin", d.ID), apperr.KindForbidden)
	if err := f.svc.Delete(ctx, "owner", d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := f.store.GetProject(ctx, d.ID); err == nil {
		t.Fatal("project still stored")
	}
	if _, err := f.store.GetTask(ctx, task.ID); err == nil {
		t.Fatal("task still stored")
	}
	if _, err := f.store.GetInvitation(ctx, inv.ID); err == nil {
		t.Fatal("invitation still stored")
	}
	for _, user := range []string{"owner", "admin"} {
		if hasProject(t, f, user, d.ID) {
			t.Fatalf("project still in %s's project set", user)
		}
	}
}

func TestInviteAcceptRemoveScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invites := invite.NewService(f.store, invite.WithClock(f.clock))
	tasks := board.NewService(f.store, board.WithClock(f.clock))

	d := f.create(t, "owner", "Launch")

	inv, err := invites.Send(ctx, "owner", d.ID, invite.SendInput{Email: "bob@example.com", Role: "admin"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := f.svc.Get(ctx, "bob", d.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("bob sees project before accepting: %v", err)
	}

	if _, err := invites.Respond(ctx, "bob", inv.ID, model.ResponseAccept); err != nil {
		t.Fatalf("accept: %v", err)
	}
	got, err := f.svc.Get(ctx, "bob", d.ID)
	if err != nil {
		t.Fatalf("bob get after accept: %v", err)
	}
	if m, ok := got.Member("bob"); !ok || m.Role != model.RoleAdmin {
		t.Fatalf("members = %+v", got.Members)
	}
	if !hasProject(t, f, "bob", d.ID) {
		t.Fatal("accepted project missing from bob's project set")
	}

	task, err := tasks.CreateTask(ctx, "bob", d.ID, board.CreateTaskInput{Title: "Bob's task"})
	if err != nil {
		t.Fatalf("bob creates task: %v", err)
	}

	if _, err := f.svc.RemoveMember(ctx, "owner", d.ID, "bob"); err != nil {
		t.Fatalf("remove bob: %v", err)
	}
	if hasProject(t, f, "bob", d.ID) {
		t.Fatal("project still in bob's project set")
	}
	if _, err := f.svc.Get(ctx, "bob", d.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("removed member still sees project: %v", err)
	}
	if _, err := tasks.CreateTask(ctx, "bob", d.ID, board.CreateTaskInput{Title: "Late task"}); apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("removed member created a task: %v", err)
	}
	if err := tasks.DeleteTask(ctx, "bob", task.ID); err != nil {
		t.Fatalf("creator deletes own task after removal: %v", err)
	}

	_, err = f.svc.RemoveMember(ctx, "owner", d.ID, "owner")
	assertKind(t, err, apperr.KindInvalidState)

	again, err := invites.Send(ctx, "owner", d.ID, invite.SendInput{Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("re-invite after removal: %v", err)
	}
	if again.ID == inv.ID || again.Status != model.InvitationPending {
		t.Fatalf("re-invite = %+v", again)
	}
}

var errProjectSet = errors.New("project set unavailable")

// brokenProjectSet fails every project set write made inside a transaction.
type brokenProjectSet struct{ store.Repository }

func (brokenProjectSet) AddUserProject(context.Context, string, string) error    { return errProjectSet }
func (brokenProjectSet) RemoveUserProject(context.Context, string, string) error { return errProjectSet }

type brokenTxStore struct{ *sqlstore.Store }

func (s brokenTxStore) WithinTx(ctx context.Context, fn func(store.Repository) error) error {
	return s.Store.WithinTx(ctx, func(r store.Repository) error {
		return fn(brokenProjectSet{r})
	})
}

func TestMembershipChangesAreAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.create(t, "owner", "Launch")
	if _, err := f.svc.AddMember(ctx, "owner", d.ID, MemberInput{UserID: "admin", Role: model.RoleAdmin}); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	broken := NewService(brokenTxStore{f.store}, WithClock(f.clock))

	if _, err := broken.AddMember(ctx, "owner", d.ID, MemberInput{UserID: "bob"}); !errors.Is(err, errProjectSet) {
		t.Fatalf("add member = %v, want project set failure", err)
	}
	stored, _ := f.store.GetProject(ctx, d.ID)
	if _, ok := stored.Member("bob"); ok {
		t.Fatalf("member entry survived the rollback: %+v", stored.Members)
	}

	if _, err := broken.RemoveMember(ctx, "owner", d.ID, "admin"); !errors.Is(err, errProjectSet) {
		t.Fatalf("remove member = %v, want project set failure", err)
	}
	stored, _ = f.store.GetProject(ctx, d.ID)
	if _, ok := stored.Member("admin"); !ok {
		t.Fatalf("member entry removed despite the rollback: %+v", stored.Members)
	}
	if !hasProject(t, f, "admin", d.ID) {
		t.Fatal("project set entry lost despite the rollback")
	}
}
