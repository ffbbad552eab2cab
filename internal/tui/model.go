package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/existflow/projectmate/internal/board"
	"github.com/existflow/projectmate/internal/client"
	"github.com/existflow/projectmate/internal/logger"
	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/pagination"
	"github.com/existflow/projectmate/internal/view"
)

// Backend is the part of the API the board talks to. *client.Client
// implements it.
type Backend interface {
	GetProject(ctx context.Context, id string) (view.Project, error)
	ListTasks(ctx context.Context, projectID string, f client.TaskFilter) ([]view.Task, *pagination.Page, error)
	CreateTask(ctx context.Context, projectID string, in board.CreateTaskInput) (view.Task, error)
	UpdateTask(ctx context.Context, id string, patch board.TaskPatch) (view.Task, error)
	MoveTask(ctx context.Context, id string, in board.MoveInput) (view.Task, error)
	ReorderTasks(ctx context.Context, projectID string, items []board.ReorderItem) (board.ReorderResult, error)
	DeleteTask(ctx context.Context, id string) error
}

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAddTask
	ModeEditTask
	ModeConfirmDelete
	ModeHelp
)

// lane is one column of the board with its tasks in board order.
type lane struct {
	status model.TaskStatus
	tasks  []view.Task
}

// Model is the board TUI model
type Model struct {
	backend   Backend
	projectID string
	project   view.Project
	lanes     []lane
	loading   bool

	// UI state
	width      int
	height     int
	mode       Mode
	laneCursor int
	taskCursor []int // Selected task per lane

	// Input
	input textinput.Model

	message string
}

// NewModel creates a board model for one project
func NewModel(backend Backend, projectID string) Model {
	logger.Info("Initializing board", logger.F("project", projectID))

	ti := textinput.New()
	ti.Placeholder = "Enter task title..."
	ti.CharLimit = 200
	ti.Width = 50

	m := Model{
		backend:    backend,
		projectID:  projectID,
		input:      ti,
		loading:    true,
		taskCursor: make([]int, len(model.Lanes)),
	}
	m.lanes = buildLanes(nil)
	return m
}

// buildLanes groups tasks into the three lanes in board order.
func buildLanes(tasks []view.Task) []lane {
	byID := make(map[string]view.Task, len(tasks))
	plain := make([]model.Task, len(tasks))
	for i, t := range tasks {
		byID[t.ID] = t
		plain[i] = t.Task
	}

	grouped := board.GroupLanes(plain)
	lanes := make([]lane, len(grouped))
	for i, g := range grouped {
		lanes[i] = lane{status: g.Status, tasks: make([]view.Task, 0, len(g.Tasks))}
		for _, t := range g.Tasks {
			lanes[i].tasks = append(lanes[i].tasks, byID[t.ID])
		}
	}
	return lanes
}

// setTasks replaces the board contents and keeps cursors in range.
func (m *Model) setTasks(tasks []view.Task) {
	m.lanes = buildLanes(tasks)
	for i := range m.lanes {
		m.clampCursor(i)
	}
}

func (m *Model) clampCursor(laneIdx int) {
	n := len(m.lanes[laneIdx].tasks)
	if m.taskCursor[laneIdx] >= n {
		m.taskCursor[laneIdx] = n - 1
	}
	if m.taskCursor[laneIdx] < 0 {
		m.taskCursor[laneIdx] = 0
	}
}

// selectTask moves the cursor to the task with id, wherever it is.
func (m *Model) selectTask(id string) {
	for li, l := range m.lanes {
		for ti, t := range l.tasks {
			if t.ID == id {
				m.laneCursor = li
				m.taskCursor[li] = ti
				return
			}
		}
	}
}

func (m *Model) currentLane() *lane {
	return &m.lanes[m.laneCursor]
}

func (m *Model) currentTask() *view.Task {
	l := m.currentLane()
	i := m.taskCursor[m.laneCursor]
	if i < len(l.tasks) {
		return &l.tasks[i]
	}
	return nil
}
