package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/existflow/projectmate/internal/account"
	"github.com/existflow/projectmate/internal/apperr"
	"github.com/existflow/projectmate/internal/board"
	"github.com/existflow/projectmate/internal/invite"
	"github.com/existflow/projectmate/internal/pagination"
	"github.com/existflow/projectmate/internal/project"
	"github.com/existflow/projectmate/internal/store/sqlstore"
	"github.com/existflow/projectmate/internal/token"
	"github.com/existflow/projectmate/internal/view"
)

type testEnv struct {
	t       *testing.T
	handler http.Handler
	now     time.Time
}

type response struct {
	Status     int
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	Code       string           `json:"code"`
	Data       json.RawMessage  `json:"data"`
	Pagination *pagination.Page `json:"pagination"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, Options{})
}

func newTestEnvWith(t *testing.T, opts Options) *testEnv {
	t.Helper()
	st, err := sqlstore.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	env := &testEnv{t: t, now: time.Now().UTC()}
	clock := func() time.Time { return env.now }

	tokens, err := token.NewIssuer("test-secret-0123456789", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	tokens.SetClock(clock)

	srv := New(Services{
		Accounts: account.NewService(st, account.WithHashCost(bcrypt.MinCost), account.WithClock(clock)),
		Projects: project.NewService(st, project.WithClock(clock)),
		Board:    board.NewService(st, board.WithClock(clock)),
		Invites:  invite.NewService(st, invite.WithClock(clock)),
		Views:    view.NewPopulator(st),
		Tokens:   tokens,
	}, opts)
	env.handler = srv.Router()
	return env
}

func (e *testEnv) do(method, path, tok string, body any) response {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	res := response{Status: rec.Code}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		e.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
	}
	return res
}

func (e *testEnv) expect(res response, status int) response {
	e.t.Helper()
	if res.Status != status {
		e.t.Fatalf("status = %d, want %d (%s %s)", res.Status, status, res.Code, res.Message)
	}
	return res
}

func (e *testEnv) decode(res response, v any) {
	e.t.Helper()
	if err := json.Unmarshal(res.Data, v); err != nil {
		e.t.Fatalf("decode data %s: %v", res.Data, err)
	}
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID string `json:"id"`
	} `json:"user"`
}

func (e *testEnv) register(name, email string) session {
	e.t.Helper()
	res := e.expect(e.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "Secret1",
	}), http.StatusCreated)
	var s session
	e.decode(res, &s)
	return s
}

type idOnly struct {
	ID string `json:"id"`
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	res := env.expect(env.do(http.MethodGet, "/health", "", nil), http.StatusOK)
	if !res.Success {
		t.Fatalf("health = %+v", res)
	}
}

func TestAuthRoutesHaveTheirOwnLimit(t *testing.T) {
	env := newTestEnvWith(t, Options{AuthAttempts: 2, AuthWindow: time.Hour})
	env.register("Ada", "ada@example.com")

	login := map[string]string{"email": "ada@example.com", "password": "Wrong1pass"}
	env.expect(env.do(http.MethodPost, "/api/v1/auth/login", "", login), http.StatusUnauthorized)
	res := env.expect(env.do(http.MethodPost, "/api/v1/auth/login", "", login), http.StatusTooManyRequests)
	if res.Success || res.Message == "" {
		t.Fatalf("limited response = %+v", res)
	}

	// Other routes are not counted against the auth budget
	env.expect(env.do(http.MethodGet, "/api/v1/health", "", nil), http.StatusOK)
	env.expect(env.do(http.MethodGet, "/api/v1/health", "", nil), http.StatusOK)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)
	ada := env.register("Ada", "ada@example.com")

	env.expect(env.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Ada", "email": "ADA@example.com", "password": "Secret1",
	}), http.StatusConflict)
	env.expect(env.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Ada", "email": "other@example.com", "password": "weak",
	}), http.StatusBadRequest)

	login := env.expect(env.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "Secret1",
	}), http.StatusOK)
	var s session
	env.decode(login, &s)
	if s.Token == "" || s.User.ID != ada.User.ID {
		t.Fatalf("login session = %+v", s)
	}
	env.expect(env.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "Wrong1",
	}), http.StatusUnauthorized)

	env.expect(env.do(http.MethodGet, "/api/v1/auth/me", "", nil), http.StatusUnauthorized)
	env.expect(env.do(http.MethodGet, "/api/v1/auth/me", "garbage", nil), http.StatusUnauthorized)
	me := env.expect(env.do(http.MethodGet, "/api/v1/auth/me", s.Token, nil), http.StatusOK)
	var profile struct {
		Email    string `json:"email"`
		Projects []any  `json:"projects"`
	}
	env.decode(me, &profile)
	if profile.Email != "ada@example.com" || profile.Projects == nil {
		t.Fatalf("me = %s", me.Data)
	}

	env.expect(env.do(http.MethodPut, "/api/v1/auth/deactivate", s.Token, nil), http.StatusOK)
	env.expect(env.do(http.MethodGet, "/api/v1/auth/me", s.Token, nil), http.StatusUnauthorized)
}

func TestInvitationScenario(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("Owner", "owner@example.com")
	bob := env.register("Bob", "bob@example.com")

	created := env.expect(env.do(http.MethodPost, "/api/v1/projects", owner.Token, map[string]string{
		"name": "Launch", "description": "Everything for the launch",
	}), http.StatusCreated)
	var p idOnly
	env.decode(created, &p)
	projectPath := "/api/v1/projects/" + p.ID

	env.expect(env.do(http.MethodGet, projectPath, bob.Token, nil), http.StatusForbidden)
	env.expect(env.do(http.MethodGet, "/api/v1/projects/missing", owner.Token, nil), http.StatusNotFound)

	sent := env.expect(env.do(http.MethodPost, projectPath+"/invitations", owner.Token, map[string]string{
		"email": "bob@example.com", "role": "admin",
	}), http.StatusCreated)
	var inv struct {
		ID      string `json:"id"`
		Project struct {
			Name string `json:"name"`
		} `json:"project"`
		InvitedUser struct {
			Email string `json:"email"`
		} `json:"invitedUser"`
	}
	env.decode(sent, &inv)
	if inv.Project.Name != "Launch" || inv.InvitedUser.Email != "bob@example.com" {
		t.Fatalf("invitation = %s", sent.Data)
	}

	dup := env.expect(env.do(http.MethodPost, projectPath+"/invitations", owner.Token, map[string]string{
		"email": "bob@example.com",
	}), http.StatusConflict)
	if dup.Code != "INVITATION_PENDING" {
		t.Fatalf("duplicate code = %s", dup.Code)
	}

	list := env.expect(env.do(http.MethodGet, "/api/v1/invitations?status=pending", bob.Token, nil), http.StatusOK)
	if list.Pagination == nil || list.Pagination.Total != 1 {
		t.Fatalf("pagination = %+v", list.Pagination)
	}

	env.expect(env.do(http.MethodPut, "/api/v1/invitations/"+inv.ID+"/respond", owner.Token, map[string]string{"response": "accept"}), http.StatusForbidden)
	env.expect(env.do(http.MethodPut, "/api/v1/invitations/"+inv.ID+"/respond", bob.Token, map[string]string{"response": "maybe"}), http.StatusBadRequest)
	env.now = env.now.Add(time.Minute)
	env.expect(env.do(http.MethodPut, "/api/v1/invitations/"+inv.ID+"/respond", bob.Token, map[string]string{"response": "accept"}), http.StatusOK)
	resolved := env.expect(env.do(http.MethodPut, "/api/v1/invitations/"+inv.ID+"/respond", bob.Token, map[string]string{"response": "accept"}), http.StatusBadRequest)
	if resolved.Code != "INVITATION_RESOLVED" {
		t.Fatalf("second response code = %s", resolved.Code)
	}

	got := env.expect(env.do(http.MethodGet, projectPath, bob.Token, nil), http.StatusOK)
	var detail struct {
		Members []struct {
			User struct {
				ID string `json:"id"`
			} `json:"user"`
			Role string `json:"role"`
		} `json:"members"`
	}
	env.decode(got, &detail)
	if len(detail.Members) != 2 || detail.Members[1].User.ID != bob.User.ID || detail.Members[1].Role != "admin" {
		t.Fatalf("members = %s", got.Data)
	}

	env.expect(env.do(http.MethodDelete, projectPath+"/members/"+owner.User.ID, owner.Token, nil), http.StatusBadRequest)
	env.expect(env.do(http.MethodDelete, projectPath+"/members/"+bob.User.ID, bob.Token, nil), http.StatusForbidden)
	env.expect(env.do(http.MethodDelete, projectPath+"/members/"+bob.User.ID, owner.Token, nil), http.StatusOK)
	env.expect(env.do(http.MethodGet, projectPath, bob.Token, nil), http.StatusForbidden)
}

func TestExpiredInvitationIsGone(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("Owner", "owner@example.com")
	bob := env.register("Bob", "bob@example.com")

	created := env.expect(env.do(http.MethodPost, "/api/v1/projects", owner.Token, map[string]string{
		"name": "Launch", "description": "Everything for the launch",
	}), http.StatusCreated)
	var p idOnly
	env.decode(created, &p)
	sent := env.expect(env.do(http.MethodPost, "/api/v1/projects/"+p.ID+"/invitations", owner.Token, map[string]string{
		"email": "bob@example.com",
	}), http.StatusCreated)
	var inv idOnly
	env.decode(sent, &inv)

	env.now = env.now.Add(8 * 24 * time.Hour)
	bob = func() session {
		res := env.expect(env.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email": "bob@example.com", "password": "Secret1",
		}), http.StatusOK)
		var s session
		env.decode(res, &s)
		return s
	}()

	res := env.expect(env.do(http.MethodPut, "/api/v1/invitations/"+inv.ID+"/respond", bob.Token, map[string]string{"response": "accept"}), http.StatusGone)
	if res.Code != "INVITATION_EXPIRED" || res.Success {
		t.Fatalf("expired response = %+v", res)
	}
}

func TestTaskEndpoints(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("Owner", "owner@example.com")

	created := env.expect(env.do(http.MethodPost, "/api/v1/projects", owner.Token, map[string]string{
		"name": "Board", "description": "A board for task tests",
	}), http.StatusCreated)
	var p idOnly
	env.decode(created, &p)
	tasksPath := "/api/v1/projects/" + p.ID + "/tasks"

	var ids []string
	for _, title := range []string{"Alpha", "Bravo"} {
		res := env.expect(env.do(http.MethodPost, tasksPath, owner.Token, map[string]any{"title": title, "tags": []string{"api"}}), http.StatusCreated)
		var task struct {
			ID        string `json:"id"`
			Position  int64  `json:"position"`
			CreatedBy struct {
				Name string `json:"name"`
			} `json:"createdBy"`
		}
		env.decode(res, &task)
		if task.Position != int64(len(ids)+1) || task.CreatedBy.Name != "Owner" {
			t.Fatalf("task = %s", res.Data)
		}
		ids = append(ids, task.ID)
	}
	env.expect(env.do(http.MethodPost, tasksPath, owner.Token, map[string]string{"title": "x"}), http.StatusBadRequest)

	reorder := env.expect(env.do(http.MethodPut, tasksPath+"/reorder", owner.Token, map[string]any{
		"tasks": []map[string]any{{"id": ids[0], "position": 5}, {"id": ids[1], "position": 1}, {"id": "nope", "position": 2}},
	}), http.StatusOK)
	var result board.ReorderResult
	env.decode(reorder, &result)
	if result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("reorder = %s", reorder.Data)
	}

	list := env.expect(env.do(http.MethodGet, tasksPath, owner.Token, nil), http.StatusOK)
	var tasks []idOnly
	env.decode(list, &tasks)
	if len(tasks) != 2 || tasks[0].ID != ids[1] || tasks[1].ID != ids[0] {
		t.Fatalf("order = %s", list.Data)
	}

	taskPath := "/api/v1/tasks/" + ids[0]
	env.expect(env.do(http.MethodPut, taskPath+"/status", owner.Token, map[string]string{"status": "completed"}), http.StatusOK)
	env.expect(env.do(http.MethodPut, taskPath, owner.Token, map[string]any{"assignedTo": nil, "title": "Alpha v2"}), http.StatusOK)
	commented := env.expect(env.do(http.MethodPost, taskPath+"/comments", owner.Token, map[string]string{"content": "done"}), http.StatusCreated)
	var withComment struct {
		Title    string `json:"title"`
		Status   string `json:"status"`
		Comments []struct {
			Content string `json:"content"`
		} `json:"comments"`
	}
	env.decode(commented, &withComment)
	if withComment.Title != "Alpha v2" || withComment.Status != "completed" || len(withComment.Comments) != 1 {
		t.Fatalf("task = %s", commented.Data)
	}

	env.expect(env.do(http.MethodDelete, taskPath, owner.Token, nil), http.StatusOK)
	env.expect(env.do(http.MethodGet, taskPath, owner.Token, nil), http.StatusNotFound)

	projects := env.expect(env.do(http.MethodGet, "/api/v1/projects", owner.Token, nil), http.StatusOK)
	var summaries []struct {
		Stats struct {
			Total int `json:"total"`
		} `json:"taskStats"`
	}
	env.decode(projects, &summaries)
	if len(summaries) != 1 || summaries[0].Stats.Total != 1 {
		t.Fatalf("projects = %s", projects.Data)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.KindInternal, http.StatusInternalServerError},
		{apperr.KindNotFound, http.StatusNotFound},
		{apperr.KindForbidden, http.StatusForbidden},
		{apperr.KindConflict, http.StatusConflict},
		{apperr.KindExpired, http.StatusGone},
		{apperr.KindInvalidState, http.StatusBadRequest},
		{apperr.KindValidation, http.StatusBadRequest},
		{apperr.KindUnauthorized, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		if got := statusOf(tt.kind); got != tt.want {
			t.Fatalf("statusOf(%v) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}
