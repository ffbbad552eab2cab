package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/existflow/projectmate/internal/apperr"
	"github.com/existflow/projectmate/internal/board"
	"github.com/existflow/projectmate/internal/client"
	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/pagination"
	"github.com/existflow/projectmate/internal/project"
	"github.com/existflow/projectmate/internal/view"
)

type fakeBackend struct {
	tasks    []view.Task
	moves    []board.MoveInput
	reorders [][]board.ReorderItem
	deleted  []string
	created  []string
	patches  []board.TaskPatch
	failNext error
}

func (f *fakeBackend) GetProject(ctx context.Context, id string) (view.Project, error) {
	return view.Project{Detail: project.Detail{Project: model.Project{ID: id, Name: "Launch", Color: "blue"}}}, nil
}

func (f *fakeBackend) ListTasks(ctx context.Context, projectID string, _ client.TaskFilter) ([]view.Task, *pagination.Page, error) {
	out := append([]view.Task(nil), f.tasks...)
	return out, &pagination.Page{CurrentPage: 1, Total: len(out)}, nil
}

func (f *fakeBackend) CreateTask(ctx context.Context, projectID string, in board.CreateTaskInput) (view.Task, error) {
	if err := f.takeFailure(); err != nil {
		return view.Task{}, err
	}
	t := task("new-"+in.Title, in.Title, model.StatusTodo, int64(len(f.tasks)+1))
	f.tasks = append(f.tasks, t)
	f.created = append(f.created, in.Title)
	return t, nil
}

func (f *fakeBackend) UpdateTask(ctx context.Context, id string, patch board.TaskPatch) (view.Task, error) {
	f.patches = append(f.patches, patch)
	return f.find(id), nil
}

func (f *fakeBackend) MoveTask(ctx context.Context, id string, in board.MoveInput) (view.Task, error) {
	if err := f.takeFailure(); err != nil {
		return view.Task{}, err
	}
	f.moves = append(f.moves, in)
	for i := range f.tasks {
		if f.tasks[i].ID == id && in.Status != nil {
			f.tasks[i].Status = *in.Status
		}
	}
	return f.find(id), nil
}

func (f *fakeBackend) ReorderTasks(ctx context.Context, projectID string, items []board.ReorderItem) (board.ReorderResult, error) {
	f.reorders = append(f.reorders, items)
	res := board.ReorderResult{}
	for _, it := range items {
		for i := range f.tasks {
			if f.tasks[i].ID == it.TaskID {
				f.tasks[i].Position = it.Position
			}
		}
		res.Results = append(res.Results, board.ItemResult{TaskID: it.TaskID, OK: true})
		res.Succeeded++
	}
	return res, nil
}

func (f *fakeBackend) DeleteTask(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeBackend) find(id string) view.Task {
	for _, t := range f.tasks {
		if t.ID == id {
			return t
		}
	}
	return view.Task{}
}

func (f *fakeBackend) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func task(id, title string, status model.TaskStatus, pos int64) view.Task {
	return view.Task{Task: model.Task{
		ID:        id,
		ProjectID: "p1",
		Title:     title,
		Status:    status,
		Priority:  model.PriorityMedium,
		Position:  pos,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
}

// run feeds msg to the model and drains the resulting commands, skipping
// timers and cursor blinks.
func run(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		next, cmd := m.Update(queue[0])
		m = next.(Model)
		queue = append(queue[1:], drain(cmd)...)
	}
	return m
}

func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, drain(c)...)
		}
		return out
	case nil:
		return nil
	case loadedMsg, actionMsg:
		return []tea.Msg{msg}
	default:
		return nil
	}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loadedModel(t *testing.T, f *fakeBackend) Model {
	t.Helper()
	m := NewModel(f, "p1")
	m = run(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return run(t, m, m.loadCmd()())
}

func laneTitles(m Model, i int) []string {
	var out []string
	for _, t := range m.lanes[i].tasks {
		out = append(out, t.Title)
	}
	return out
}

func TestLoadGroupsLanes(t *testing.T) {
	f := &fakeBackend{tasks: []view.Task{
		task("a", "Alpha", model.StatusTodo, 2),
		task("b", "Bravo", model.StatusTodo, 1),
		task("c", "Charlie", model.StatusInProgress, 1),
		task("d", "Delta", model.StatusCompleted, 1),
	}}
	m := loadedModel(t, f)

	if m.project.Name != "Launch" {
		t.Fatalf("project = %q", m.project.Name)
	}
	if got := strings.Join(laneTitles(m, 0), ","); got != "Bravo,Alpha" {
		t.Fatalf("todo lane = %s", got)
	}
	if len(m.lanes[1].tasks) != 1 || len(m.lanes[2].tasks) != 1 {
		t.Fatalf("lanes = %+v", m.lanes)
	}
	if out := m.View(); !strings.Contains(out, "In Progress (1)") || !strings.Contains(out, "Launch") {
		t.Fatalf("view missing lane header:\n%s", out)
	}
}

func TestNavigationAndMove(t *testing.T) {
	f := &fakeBackend{tasks: []view.Task{
		task("a", "Alpha", model.StatusTodo, 1),
		task("b", "Bravo", model.StatusTodo, 2),
	}}
	m := loadedModel(t, f)

	m = run(t, m, keyMsg("j"))
	if cur := m.currentTask(); cur == nil || cur.ID != "b" {
		t.Fatalf("cursor on %+v, want b", cur)
	}

	m = run(t, m, keyMsg("L"))
	if len(f.moves) != 1 || *f.moves[0].Status != model.StatusInProgress {
		t.Fatalf("moves = %+v", f.moves)
	}
	if m.laneCursor != 1 || m.currentTask().ID != "b" {
		t.Fatalf("selection after move: lane %d task %+v", m.laneCursor, m.currentTask())
	}

	// Already in the first lane
	m = run(t, m, keyMsg("h"))
	m = run(t, m, keyMsg("H"))
	if len(f.moves) != 1 {
		t.Fatalf("moved past the first lane: %+v", f.moves)
	}
}

func TestReorderWithinLane(t *testing.T) {
	f := &fakeBackend{tasks: []view.Task{
		task("a", "Alpha", model.StatusTodo, 1),
		task("b", "Bravo", model.StatusTodo, 2),
		task("c", "Charlie", model.StatusTodo, 3),
	}}
	m := loadedModel(t, f)

	m = run(t, m, keyMsg("J"))
	if len(f.reorders) != 1 {
		t.Fatalf("reorders = %d", len(f.reorders))
	}
	if got := strings.Join(laneTitles(m, 0), ","); got != "Bravo,Alpha,Charlie" {
		t.Fatalf("lane = %s", got)
	}
	if m.currentTask().ID != "a" {
		t.Fatalf("cursor should follow the moved task, on %s", m.currentTask().ID)
	}

	// Top of the lane: nothing to swap with
	m = run(t, m, keyMsg("k"))
	m = run(t, m, keyMsg("K"))
	if len(f.reorders) != 1 {
		t.Fatalf("reordered past the top: %d", len(f.reorders))
	}
}

func TestAddEditDelete(t *testing.T) {
	f := &fakeBackend{tasks: []view.Task{task("a", "Alpha", model.StatusTodo, 1)}}
	m := loadedModel(t, f)

	m = run(t, m, keyMsg("a"))
	if m.mode != ModeAddTask {
		t.Fatalf("mode = %v", m.mode)
	}
	m.input.SetValue("Write docs")
	m = run(t, m, keyMsg("enter"))
	if len(f.created) != 1 || f.created[0] != "Write docs" {
		t.Fatalf("created = %v", f.created)
	}
	if m.currentTask() == nil || m.currentTask().Title != "Write docs" {
		t.Fatalf("new task not selected: %+v", m.currentTask())
	}

	m = run(t, m, keyMsg("e"))
	m.input.SetValue("Write better docs")
	m = run(t, m, keyMsg("enter"))
	if len(f.patches) != 1 {
		t.Fatalf("patches = %d", len(f.patches))
	}
	if title, ok := f.patches[0].Title.Get(); !ok || title != "Write better docs" {
		t.Fatalf("patch title = %q %v", title, ok)
	}

	m = run(t, m, keyMsg("d"))
	m = run(t, m, keyMsg("n"))
	if len(f.deleted) != 0 || m.mode != ModeNormal {
		t.Fatalf("delete not cancelled: %v", f.deleted)
	}
	m = run(t, m, keyMsg("d"))
	m = run(t, m, keyMsg("y"))
	if len(f.deleted) != 1 {
		t.Fatalf("deleted = %v", f.deleted)
	}
}

func TestActionErrorIsShown(t *testing.T) {
	f := &fakeBackend{tasks: []view.Task{task("a", "Alpha", model.StatusTodo, 1)}}
	m := loadedModel(t, f)

	f.failNext = apperr.Forbidden("viewers cannot move tasks")
	m = run(t, m, keyMsg("x"))
	if !strings.Contains(m.message, "viewers cannot move tasks") {
		t.Fatalf("message = %q", m.message)
	}

	f.failNext = apperr.New(apperr.KindUnauthorized, apperr.CodeUnauthorized, "token expired")
	m = run(t, m, keyMsg("x"))
	if !strings.Contains(m.message, "auth login") {
		t.Fatalf("message = %q", m.message)
	}
}

func TestSwapItems(t *testing.T) {
	tasks := []view.Task{task("a", "A", model.StatusTodo, 4), task("b", "B", model.StatusTodo, 9), task("c", "C", model.StatusTodo, 10)}
	items := swapItems(tasks, 2, 1)
	want := []board.ReorderItem{{TaskID: "a", Position: 1}, {TaskID: "c", Position: 2}, {TaskID: "b", Position: 3}}
	for i := range want {
		if items[i].TaskID != want[i].TaskID || items[i].Position != want[i].Position {
			t.Fatalf("items = %+v", items)
		}
	}
}

func TestNeighborLane(t *testing.T) {
	tests := []struct {
		from model.TaskStatus
		dir  int
		want model.TaskStatus
		ok   bool
	}{
		{model.StatusTodo, 1, model.StatusInProgress, true},
		{model.StatusInProgress, 1, model.StatusCompleted, true},
		{model.StatusCompleted, 1, "", false},
		{model.StatusTodo, -1, "", false},
		{model.StatusCompleted, -1, model.StatusInProgress, true},
	}
	for _, tt := range tests {
		got, ok := neighborLane(tt.from, tt.dir)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("neighborLane(%s, %d) = %s, %v", tt.from, tt.dir, got, ok)
		}
	}
}
