package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/existflow/projectmate/internal/apperr"
	"github.com/existflow/projectmate/internal/board"
	"github.com/existflow/projectmate/internal/client"
	"github.com/existflow/projectmate/internal/logger"
	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/view"
)

const (
	requestTimeout  = 15 * time.Second
	refreshInterval = 30 * time.Second
)

// loadedMsg carries a fresh copy of the board
type loadedMsg struct {
	project  view.Project
	tasks    []view.Task
	selectID string
	err      error
}

// actionMsg reports the result of a change made from the board
type actionMsg struct {
	message  string
	selectID string
	err      error
}

// refreshMsg is sent periodically to pick up changes made by others
type refreshMsg time.Time

// Init loads the board and starts the refresh timer
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), refreshCmd())
}

func refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m Model) loadCmd() tea.Cmd {
	return m.reloadCmd("")
}

// reloadCmd loads the board and then selects the task with selectID.
func (m Model) reloadCmd(selectID string) tea.Cmd {
	backend, projectID := m.backend, m.projectID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		p, err := backend.GetProject(ctx, projectID)
		if err != nil {
			return loadedMsg{err: err}
		}
		var tasks []view.Task
		for page := 1; ; page++ {
			batch, pg, err := backend.ListTasks(ctx, projectID, client.TaskFilter{Page: page, Limit: 200})
			if err != nil {
				return loadedMsg{err: err}
			}
			tasks = append(tasks, batch...)
			if pg == nil || !pg.HasNext {
				break
			}
		}
		return loadedMsg{project: p, tasks: tasks, selectID: selectID}
	}
}

// action runs fn against the backend and reports its outcome.
func (m Model) action(fn func(ctx context.Context, b Backend) (actionMsg, error)) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		msg, err := fn(ctx, backend)
		if err != nil {
			return actionMsg{err: err}
		}
		return msg
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		if m.mode == ModeNormal && !m.loading {
			m.loading = true
			return m, tea.Batch(m.loadCmd(), refreshCmd())
		}
		return m, refreshCmd()

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			logger.Warn("Failed to load board", logger.F("project", m.projectID), logger.Err(msg.err))
			m.message = errorText(msg.err)
			return m, nil
		}
		m.project = msg.project
		selected := msg.selectID
		if t := m.currentTask(); selected == "" && t != nil {
			selected = t.ID
		}
		m.setTasks(msg.tasks)
		if selected != "" {
			m.selectTask(selected)
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			logger.Warn("Board action failed", logger.F("project", m.projectID), logger.Err(msg.err))
			m.message = errorText(msg.err)
		} else {
			m.message = msg.message
		}
		m.loading = true
		return m, m.reloadCmd(msg.selectID)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		// Handle mode-specific input
		switch m.mode {
		case ModeAddTask, ModeEditTask:
			return m.updateInput(msg)
		case ModeConfirmDelete:
			return m.updateConfirm(msg)
		case ModeHelp:
			m.mode = ModeNormal
			return m, nil
		}

		// Normal mode key handling
		return m.handleNormalKeys(msg)
	}

	return m, nil
}

func errorText(err error) string {
	if apperr.KindOf(err) == apperr.KindUnauthorized {
		return "Session expired - run 'projectmate auth login'"
	}
	return "Error: " + err.Error()
}

// handleNormalKeys handles key presses in normal mode
func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.MoveLeft):
		return m, m.moveTask(-1)

	case key.Matches(msg, keys.MoveRight):
		return m, m.moveTask(1)

	case key.Matches(msg, keys.MoveUp):
		return m, m.shiftTask(-1)

	case key.Matches(msg, keys.MoveDown):
		return m, m.shiftTask(1)

	case key.Matches(msg, keys.Left):
		if m.laneCursor > 0 {
			m.laneCursor--
		}

	case key.Matches(msg, keys.Right):
		if m.laneCursor < len(m.lanes)-1 {
			m.laneCursor++
		}

	case key.Matches(msg, keys.Up):
		if m.taskCursor[m.laneCursor] > 0 {
			m.taskCursor[m.laneCursor]--
		}

	case key.Matches(msg, keys.Down):
		if m.taskCursor[m.laneCursor] < len(m.currentLane().tasks)-1 {
			m.taskCursor[m.laneCursor]++
		}

	case msg.String() == "G":
		m.taskCursor[m.laneCursor] = len(m.currentLane().tasks) - 1
		m.clampCursor(m.laneCursor)

	case key.Matches(msg, keys.Priority):
		return m, m.setPriority(msg.String())

	case key.Matches(msg, keys.Add):
		return m.startAddTask()

	case key.Matches(msg, keys.Edit):
		return m.startEditTask()

	case key.Matches(msg, keys.Done):
		return m, m.toggleDone()

	case key.Matches(msg, keys.Delete):
		if t := m.currentTask(); t != nil {
			m.mode = ModeConfirmDelete
		}

	case key.Matches(msg, keys.Escape):
		m.message = ""

	case key.Matches(msg, keys.Help):
		m.mode = ModeHelp

	case key.Matches(msg, keys.Refresh):
		m.loading = true
		m.message = "Refreshing..."
		return m, m.loadCmd()
	}

	return m, nil
}

// moveTask moves the selected task to the neighbouring lane.
func (m Model) moveTask(dir int) tea.Cmd {
	t := m.currentTask()
	if t == nil {
		return nil
	}
	next, ok := neighborLane(t.Status, dir)
	if !ok {
		return nil
	}
	id, title := t.ID, t.Title
	return m.action(func(ctx context.Context, b Backend) (actionMsg, error) {
		if _, err := b.MoveTask(ctx, id, board.MoveInput{Status: &next}); err != nil {
			return actionMsg{}, err
		}
		return actionMsg{message: fmt.Sprintf("Moved \"%s\" to %s", truncate(title, 30), board.LaneLabel(next)), selectID: id}, nil
	})
}

// shiftTask swaps the selected task with its neighbour in the lane.
func (m Model) shiftTask(dir int) tea.Cmd {
	l := m.currentLane()
	i := m.taskCursor[m.laneCursor]
	j := i + dir
	if i >= len(l.tasks) || j < 0 || j >= len(l.tasks) {
		return nil
	}
	id := l.tasks[i].ID
	items := swapItems(l.tasks, i, j)
	projectID := m.projectID
	return m.action(func(ctx context.Context, b Backend) (actionMsg, error) {
		res, err := b.ReorderTasks(ctx, projectID, items)
		if err != nil {
			return actionMsg{}, err
		}
		if res.Failed > 0 {
			var failed []string
			for _, r := range res.Results {
				if !r.OK {
					failed = append(failed, r.Error)
				}
			}
			return actionMsg{message: "Reorder partly failed: " + strings.Join(failed, "; "), selectID: id}, nil
		}
		return actionMsg{message: "Reordered", selectID: id}, nil
	})
}

func (m Model) toggleDone() tea.Cmd {
	t := m.currentTask()
	if t == nil {
		return nil
	}
	next := model.StatusCompleted
	if t.Status == model.StatusCompleted {
		next = model.StatusTodo
	}
	id := t.ID
	return m.action(func(ctx context.Context, b Backend) (actionMsg, error) {
		if _, err := b.MoveTask(ctx, id, board.MoveInput{Status: &next}); err != nil {
			return actionMsg{}, err
		}
		return actionMsg{message: "Moved to " + board.LaneLabel(next), selectID: id}, nil
	})
}

func (m Model) setPriority(k string) tea.Cmd {
	t := m.currentTask()
	if t == nil {
		return nil
	}
	priority := map[string]model.Priority{"1": model.PriorityHigh, "2": model.PriorityMedium, "3": model.PriorityLow}[k]
	id := t.ID
	return m.action(func(ctx context.Context, b Backend) (actionMsg, error) {
		if _, err := b.UpdateTask(ctx, id, board.TaskPatch{Priority: model.Some(priority)}); err != nil {
			return actionMsg{}, err
		}
		return actionMsg{message: fmt.Sprintf("Priority set to %s", priority), selectID: id}, nil
	})
}

func (m Model) startAddTask() (tea.Model, tea.Cmd) {
	m.mode = ModeAddTask
	m.input.SetValue("")
	m.input.Placeholder = "Enter task title..."
	m.input.Focus()
	return m, textinput.Blink
}

func (m Model) startEditTask() (tea.Model, tea.Cmd) {
	t := m.currentTask()
	if t == nil {
		return m, nil
	}
	m.mode = ModeEditTask
	m.input.SetValue(t.Title)
	m.input.Placeholder = "Edit task..."
	m.input.Focus()
	m.input.CursorEnd()
	return m, textinput.Blink
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.mode = ModeNormal
		m.input.Blur()
		return m, nil

	case key.Matches(msg, keys.Enter):
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.mode = ModeNormal
		m.input.Blur()
		if value == "" {
			return m, nil
		}

		switch mode {
		case ModeAddTask:
			projectID := m.projectID
			return m, m.action(func(ctx context.Context, b Backend) (actionMsg, error) {
				t, err := b.CreateTask(ctx, projectID, board.CreateTaskInput{Title: value})
				if err != nil {
					return actionMsg{}, err
				}
				return actionMsg{message: fmt.Sprintf("Added \"%s\"", truncate(t.Title, 30)), selectID: t.ID}, nil
			})
		case ModeEditTask:
			t := m.currentTask()
			if t == nil {
				return m, nil
			}
			id := t.ID
			return m, m.action(func(ctx context.Context, b Backend) (actionMsg, error) {
				if _, err := b.UpdateTask(ctx, id, board.TaskPatch{Title: model.Some(value)}); err != nil {
					return actionMsg{}, err
				}
				return actionMsg{message: "Task updated", selectID: id}, nil
			})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = ModeNormal
	if !key.Matches(msg, keys.Confirm) {
		m.message = "Delete cancelled"
		return m, nil
	}
	t := m.currentTask()
	if t == nil {
		return m, nil
	}
	id, title := t.ID, t.Title
	return m, m.action(func(ctx context.Context, b Backend) (actionMsg, error) {
		if err := b.DeleteTask(ctx, id); err != nil {
			return actionMsg{}, err
		}
		return actionMsg{message: fmt.Sprintf("Deleted \"%s\"", truncate(title, 30))}, nil
	})
}
