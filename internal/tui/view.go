package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/existflow/projectmate/internal/board"
	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/view"
)

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	statusBar := m.renderStatusBar()
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(statusBar)

	mainContent := m.renderLanes(bodyHeight)

	// Add modal if in input mode
	if m.mode == ModeAddTask || m.mode == ModeEditTask || m.mode == ModeConfirmDelete {
		mainContent = lipgloss.Place(
			m.width, bodyHeight,
			lipgloss.Center, lipgloss.Center,
			m.renderModal(),
			lipgloss.WithWhitespaceChars(" "),
		)
	}

	if m.mode == ModeHelp {
		mainContent = m.renderHelp(bodyHeight)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, mainContent, statusBar)
}

func (m Model) renderHeader() string {
	name := m.project.Name
	if name == "" {
		name = "ProjectMate"
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(ProjectColor(m.project.Color)).Render("■ " + name)

	info := ""
	if m.project.ID != "" {
		info = fmt.Sprintf("%d members · %d/%d done (%d%%)",
			len(m.project.Members), m.project.Stats.Completed, m.project.Stats.Total, m.project.Progress)
	}
	if m.loading {
		info += "  ⟳"
	}
	return HeaderStyle.Render(title + "  " + HelpStyle.Render(info))
}

func (m Model) renderLanes(height int) string {
	if len(m.lanes) == 0 {
		return ""
	}
	laneWidth := m.width/len(m.lanes) - 2
	if laneWidth < 16 {
		laneWidth = 16
	}

	now := time.Now()
	columns := make([]string, len(m.lanes))
	for i, l := range m.lanes {
		title := LaneTitleStyle.Render(fmt.Sprintf("%s (%d)", board.LaneLabel(l.status), len(l.tasks)))
		s := title + "\n" + lipgloss.NewStyle().Foreground(Border).Render(repeat("─", laneWidth-2)) + "\n"

		if len(l.tasks) == 0 {
			s += HelpStyle.Render("No tasks")
		}
		for j, t := range l.tasks {
			selected := i == m.laneCursor && j == m.taskCursor[i]
			s += m.renderTask(t, selected, laneWidth-2, now) + "\n"
		}

		style := LaneStyle
		if i == m.laneCursor {
			style = LaneActiveStyle
		}
		columns[i] = style.Width(laneWidth).Height(height - 2).Render(s)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

func (m Model) renderTask(t view.Task, selected bool, width int, now time.Time) string {
	cursor := "  "
	style := TaskItemStyle
	if selected {
		cursor = "❯ "
		style = TaskItemSelectedStyle
	}
	if t.Status == model.StatusCompleted {
		style = TaskDoneStyle
	}

	line := cursor + FormatPriority(t.Priority) + " " + style.Render(truncate(t.Title, width-5))

	var meta []string
	if t.AssignedTo != nil {
		meta = append(meta, "@"+truncate(t.AssignedTo.Name, 12))
	}
	if t.DueDate != nil {
		due := t.DueDate.Format("Jan 2")
		if t.IsOverdue(now) {
			due = OverdueStyle.Render("!" + due)
		}
		meta = append(meta, due)
	}
	if len(t.Comments) > 0 {
		meta = append(meta, fmt.Sprintf("💬%d", len(t.Comments)))
	}
	if len(meta) > 0 {
		detail := ""
		for i, part := range meta {
			if i > 0 {
				detail += " "
			}
			detail += part
		}
		line += "\n    " + HelpStyle.Render(detail)
	}
	return line
}

func (m Model) renderStatusBar() string {
	help := "h/l:lane  j/k:task  H/L:move  K/J:reorder  a:add  e:edit  x:done  d:del  ?:help  q:quit"
	if m.message != "" {
		help = m.message
		if len(m.message) > 6 && m.message[:6] == "Error:" {
			help = ErrorStyle.Render(m.message)
		}
	}
	return StatusBarStyle.Width(m.width).Render(help)
}

func (m Model) renderModal() string {
	var content string
	switch m.mode {
	case ModeConfirmDelete:
		t := m.currentTask()
		if t == nil {
			return ""
		}
		content = lipgloss.NewStyle().Bold(true).Render("Delete Task") + "\n\n"
		content += fmt.Sprintf("\"%s\"\n\n", truncate(t.Title, 40))
		content += HelpStyle.Render("y:delete  any other key:cancel")
		return ModalStyle.Render(content)
	case ModeEditTask:
		content = lipgloss.NewStyle().Bold(true).Render("Edit Task") + "\n\n"
	default:
		content = lipgloss.NewStyle().Bold(true).Render("Add Task to: "+m.project.Name) + "\n\n"
	}
	content += m.input.View() + "\n\n"
	content += HelpStyle.Render("Enter:save  Esc:cancel")

	return ModalStyle.Render(content)
}

func (m Model) renderHelp(height int) string {
	help := `
╭─── Keyboard Shortcuts ───╮
│                          │
│  Navigation              │
│  ──────────              │
│  j/↓    Move down        │
│  k/↑    Move up          │
│  h/l    Switch lane      │
│  G      Go to bottom     │
│                          │
│  Board                   │
│  ─────                   │
│  H/<    Move task left   │
│  L/>    Move task right  │
│  K/J    Reorder in lane  │
│  x      Toggle done      │
│                          │
│  Tasks                   │
│  ─────                   │
│  a      Add task         │
│  e      Edit title       │
│  d      Delete           │
│  1-3    High/med/low     │
│                          │
│  Other                   │
│  ─────                   │
│  r      Refresh          │
│  ?      Toggle help      │
│  q      Quit             │
│                          │
╰──────────────────────────╯

     Press any key to close
`
	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, help)
}
