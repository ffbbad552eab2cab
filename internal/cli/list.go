package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/projectmate/internal/board"
	"github.com/existflow/projectmate/internal/client"
	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/view"
)

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long: `List a project's tasks grouped by lane.

Examples:
  projectmate task list
  projectmate task list --status inprogress
  projectmate task list --assignee me --priority high`,
	RunE: runTaskList,
}

var (
	listStatus   string
	listAssignee string
	listPriority string
	listPage     int
)

func init() {
	taskListCmd.Flags().StringVarP(&listStatus, "status", "s", "", "Filter by status (todo, inprogress, completed)")
	taskListCmd.Flags().StringVar(&listAssignee, "assignee", "", "Filter by assignee email, user id or 'me'")
	taskListCmd.Flags().StringVarP(&listPriority, "priority", "p", "", "Filter by priority (low, medium, high)")
	taskListCmd.Flags().IntVar(&listPage, "page", 1, "Page of results")
}

func runTaskList(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}
	projectID, err := currentProject(taskProject)
	if err != nil {
		return err
	}

	filter := client.TaskFilter{Page: listPage, Limit: 200}
	if listStatus != "" {
		status, ok := model.ParseTaskStatus(listStatus)
		if !ok {
			return fmt.Errorf("invalid status %q (use todo, inprogress or completed)", listStatus)
		}
		filter.Status = status
	}
	if listPriority != "" {
		if filter.Priority, err = parsePriority(listPriority); err != nil {
			return err
		}
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if projectID, err = resolveProject(ctx, c, projectID); err != nil {
		return err
	}
	p, err := c.GetProject(ctx, projectID)
	if err != nil {
		return sessionError(err)
	}
	if listAssignee != "" {
		if listAssignee == "me" {
			filter.AssigneeID = cfg.UserID
		} else if filter.AssigneeID, err = memberID(p, listAssignee); err != nil {
			return err
		}
	}

	tasks, page, err := c.ListTasks(ctx, projectID, filter)
	if err != nil {
		return sessionError(err)
	}

	out := cmd.OutOrStdout()
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks found. Add one with: projectmate task add \"Your task\"")
		return nil
	}

	printLanes(out, p.Name, tasks, time.Now())
	if page != nil && page.TotalPages > 1 {
		fmt.Fprintf(out, "Page %d of %d (%d tasks)\n", page.CurrentPage, page.TotalPages, page.Total)
	}
	return nil
}

// printLanes prints tasks grouped by lane in board order.
func printLanes(out io.Writer, projectName string, tasks []view.Task, now time.Time) {
	byID := make(map[string]view.Task, len(tasks))
	plain := make([]model.Task, len(tasks))
	for i, t := range tasks {
		byID[t.ID] = t
		plain[i] = t.Task
	}

	fmt.Fprintf(out, "\n📁 %s\n", projectName)
	for _, lane := range board.GroupLanes(plain) {
		if len(lane.Tasks) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n%s (%d)\n", board.LaneLabel(lane.Status), len(lane.Tasks))
		fmt.Fprintln(out, strings.Repeat("─", 72))
		for _, t := range lane.Tasks {
			printTask(out, byID[t.ID], now)
		}
	}
	fmt.Fprintln(out)
}

func printTask(out io.Writer, t view.Task, now time.Time) {
	// Status icon
	icon := "[ ]"
	switch t.Status {
	case model.StatusInProgress:
		icon = "[~]"
	case model.StatusCompleted:
		icon = "[x]"
	}

	// Priority indicator
	priority := "  "
	switch t.Priority {
	case model.PriorityHigh:
		priority = "▲ "
	case model.PriorityLow:
		priority = "▽ "
	}

	// Due date
	due := ""
	if t.DueDate != nil {
		due = t.DueDate.Format("Jan 2")
		if t.IsOverdue(now) {
			due = "!" + due
		}
	}

	assignee := ""
	if t.AssignedTo != nil {
		assignee = "@" + truncate(t.AssignedTo.Name, 12)
	}

	fmt.Fprintf(out, "  %s %s%-8s  %-36s  %-8s  %s\n", icon, priority, shortID(t.ID), truncate(t.Title, 36), due, assignee)
}

func printTaskDetail(out io.Writer, t view.Task) {
	fmt.Fprintf(out, "\n%s\n", t.Title)
	fmt.Fprintln(out, strings.Repeat("─", 60))
	fmt.Fprintf(out, "ID:        %s\n", t.ID)
	fmt.Fprintf(out, "Lane:      %s (#%d)\n", board.LaneLabel(t.Status), t.Position)
	fmt.Fprintf(out, "Priority:  %s\n", t.Priority)
	fmt.Fprintf(out, "Creator:   %s\n", t.CreatedBy.Name)
	if t.AssignedTo != nil {
		fmt.Fprintf(out, "Assignee:  %s <%s>\n", t.AssignedTo.Name, t.AssignedTo.Email)
	}
	if t.DueDate != nil {
		overdue := ""
		if t.Overdue {
			overdue = " (overdue)"
		}
		fmt.Fprintf(out, "Due:       %s%s\n", t.DueDate.Format("Mon Jan 2, 2006"), overdue)
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(out, "Tags:      %s\n", strings.Join(t.Tags, ", "))
	}
	if t.Description != "" {
		fmt.Fprintf(out, "\n%s\n", t.Description)
	}
	if len(t.Comments) > 0 {
		fmt.Fprintf(out, "\nComments (%d):\n", len(t.Comments))
		for _, cm := range t.Comments {
			fmt.Fprintf(out, "  %s, %s\n    %s\n", cm.User.Name, cm.CreatedAt.Local().Format("Jan 2 15:04"), cm.Content)
		}
	}
	fmt.Fprintln(out)
}
