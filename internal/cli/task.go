package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/projectmate/internal/board"
	"github.com/existflow/projectmate/internal/client"
	"github.com/existflow/projectmate/internal/model"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	Aliases: []string{"t"},
	Short:   "Manage tasks on a project board",
}

var taskAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a new task",
	Long: `Add a new task to the end of the project's To Do lane.

Examples:
  projectmate task add "Write release notes"
  projectmate task add "Fix login bug" -p high --due tomorrow --tags bug,auth
  projectmate task add "Review design" --assign bob@example.com -P 3f2a9c1e`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTaskAdd,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show a task with its comments",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update [task-id]",
	Short: "Change a task's fields",
	Long: `Change a task's fields. Only the flags given are changed.

Examples:
  projectmate task update 9b1c --title "Fix login redirect"
  projectmate task update 9b1c --assign me --due +3d
  projectmate task update 9b1c --unassign --clear-due`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskUpdate,
}

var taskMoveCmd = &cobra.Command{
	Use:   "move [task-id] [status]",
	Short: "Move a task to another lane (todo, inprogress, completed)",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskMove,
}

var taskReorderCmd = &cobra.Command{
	Use:   "reorder [task-id=position[:status]]...",
	Short: "Set board positions for several tasks",
	Long: `Set board positions, and optionally lanes, for several tasks at once.
Each item is applied on its own; failures are reported per task.

Examples:
  projectmate task reorder 9b1c=1 4e2d=2 7a0f=3
  projectmate task reorder 9b1c=1:inprogress`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTaskReorder,
}

var taskCommentCmd = &cobra.Command{
	Use:   "comment [task-id] [text]",
	Short: "Comment on a task",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTaskComment,
}

var taskDeleteCmd = &cobra.Command{
	Use:     "delete [task-id]",
	Aliases: []string{"rm"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE:    runTaskDelete,
}

var (
	taskProject     string
	taskTitle       string
	taskDescription string
	taskPriority    string
	taskDue         string
	taskTags        string
	taskAssign      string
	taskUnassign    bool
	taskClearDue    bool
	taskPosition    int64
)

func init() {
	taskCmd.PersistentFlags().StringVarP(&taskProject, "project", "P", "", "Project (defaults to the current context)")

	taskAddCmd.Flags().StringVarP(&taskDescription, "description", "d", "", "Task description")
	taskAddCmd.Flags().StringVarP(&taskPriority, "priority", "p", "", "Priority (low, medium, high)")
	taskAddCmd.Flags().StringVar(&taskDue, "due", "", "Due date (e.g., 'tomorrow', '+3d', '2024-01-15')")
	taskAddCmd.Flags().StringVarP(&taskTags, "tags", "t", "", "Comma separated tags")
	taskAddCmd.Flags().StringVarP(&taskAssign, "assign", "a", "", "Assignee email, user id or 'me'")

	taskUpdateCmd.Flags().StringVar(&taskTitle, "title", "", "New title")
	taskUpdateCmd.Flags().StringVarP(&taskDescription, "description", "d", "", "New description")
	taskUpdateCmd.Flags().StringVarP(&taskPriority, "priority", "p", "", "New priority (low, medium, high)")
	taskUpdateCmd.Flags().StringVar(&taskDue, "due", "", "New due date")
	taskUpdateCmd.Flags().BoolVar(&taskClearDue, "clear-due", false, "Remove the due date")
	taskUpdateCmd.Flags().StringVarP(&taskTags, "tags", "t", "", "Replace tags (comma separated, empty clears)")
	taskUpdateCmd.Flags().StringVarP(&taskAssign, "assign", "a", "", "Assignee email, user id or 'me'")
	taskUpdateCmd.Flags().BoolVar(&taskUnassign, "unassign", false, "Remove the assignee")

	taskMoveCmd.Flags().Int64Var(&taskPosition, "position", 0, "Position within the lane")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskMoveCmd)
	taskCmd.AddCommand(taskReorderCmd)
	taskCmd.AddCommand(taskCommentCmd)
	taskCmd.AddCommand(taskDeleteCmd)
}

// resolveAssignee maps 'me', an email or a member id prefix to a user id.
func resolveAssignee(ctx context.Context, c *client.Client, projectID, ref string) (string, error) {
	if ref == "me" {
		return cfg.UserID, nil
	}
	p, err := c.GetProject(ctx, projectID)
	if err != nil {
		return "", sessionError(err)
	}
	return memberID(p, ref)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}
	projectID, err := currentProject(taskProject)
	if err != nil {
		return err
	}

	in := board.CreateTaskInput{
		Title:       strings.Join(args, " "),
		Description: taskDescription,
		Tags:        splitTags(taskTags),
	}
	if taskPriority != "" {
		if in.Priority, err = parsePriority(taskPriority); err != nil {
			return err
		}
	}
	if taskDue != "" {
		due, err := parseDue(taskDue, time.Now())
		if err != nil {
			return err
		}
		in.DueDate = &due
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if projectID, err = resolveProject(ctx, c, projectID); err != nil {
		return err
	}
	if taskAssign != "" {
		id, err := resolveAssignee(ctx, c, projectID, taskAssign)
		if err != nil {
			return err
		}
		in.AssigneeID = &id
	}

	t, err := c.CreateTask(ctx, projectID, in)
	if err != nil {
		return sessionError(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Added: \"%s\" (%s, %s, #%d)\n", t.Title, shortID(t.ID), t.Priority, t.Position)
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	id, err := resolveTask(ctx, c, taskProject, args[0])
	if err != nil {
		return err
	}
	t, err := c.GetTask(ctx, id)
	if err != nil {
		return sessionError(err)
	}
	printTaskDetail(cmd.OutOrStdout(), t)
	return nil
}

func runTaskUpdate(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	id, err := resolveTask(ctx, c, taskProject, args[0])
	if err != nil {
		return err
	}

	var patch board.TaskPatch
	flags := cmd.Flags()
	if flags.Changed("title") {
		patch.Title = model.Some(taskTitle)
	}
	if flags.Changed("description") {
		patch.Description = model.Some(taskDescription)
	}
	if flags.Changed("priority") {
		pr, err := parsePriority(taskPriority)
		if err != nil {
			return err
		}
		patch.Priority = model.Some(pr)
	}
	switch {
	case taskClearDue:
		patch.DueDate = model.Some[*time.Time](nil)
	case flags.Changed("due"):
		due, err := parseDue(taskDue, time.Now())
		if err != nil {
			return err
		}
		patch.DueDate = model.Some(&due)
	}
	if flags.Changed("tags") {
		patch.Tags = model.Some(splitTags(taskTags))
	}
	switch {
	case taskUnassign:
		patch.AssigneeID = model.Some[*string](nil)
	case flags.Changed("assign"):
		current, err := c.GetTask(ctx, id)
		if err != nil {
			return sessionError(err)
		}
		userID, err := resolveAssignee(ctx, c, current.ProjectID, taskAssign)
		if err != nil {
			return err
		}
		patch.AssigneeID = model.Some(&userID)
	}

	t, err := c.UpdateTask(ctx, id, patch)
	if err != nil {
		return sessionError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated: \"%s\"\n", t.Title)
	return nil
}

func runTaskMove(cmd *cobra.Command, args []string) error {
	status, ok := model.ParseTaskStatus(args[1])
	if !ok {
		return fmt.Errorf("invalid status %q (use todo, inprogress or completed)", args[1])
	}

	c, err := apiClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	id, err := resolveTask(ctx, c, taskProject, args[0])
	if err != nil {
		return err
	}
	in := board.MoveInput{Status: &status}
	if cmd.Flags().Changed("position") {
		in.Position = &taskPosition
	}

	t, err := c.MoveTask(ctx, id, in)
	if err != nil {
		return sessionError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Moved \"%s\" to %s\n", t.Title, board.LaneLabel(t.Status))
	return nil
}

// parseReorderItem parses "id=position" or "id=position:status".
func parseReorderItem(arg string) (board.ReorderItem, error) {
	id, rest, ok := strings.Cut(arg, "=")
	if !ok || id == "" {
		return board.ReorderItem{}, fmt.Errorf("invalid item %q (use task-id=position)", arg)
	}
	posText, statusText, hasStatus := strings.Cut(rest, ":")
	pos, err := strconv.ParseInt(posText, 10, 64)
	if err != nil {
		return board.ReorderItem{}, fmt.Errorf("invalid position in %q", arg)
	}
	item := board.ReorderItem{TaskID: id, Position: pos}
	if hasStatus {
		status, ok := model.ParseTaskStatus(statusText)
		if !ok {
			return board.ReorderItem{}, fmt.Errorf("invalid status in %q", arg)
		}
		item.Status = &status
	}
	return item, nil
}

func runTaskReorder(cmd *cobra.Command, args []string) error {
	items := make([]board.ReorderItem, 0, len(args))
	for _, arg := range args {
		item, err := parseReorderItem(arg)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	c, err := apiClient()
	if err != nil {
		return err
	}
	projectID, err := currentProject(taskProject)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if projectID, err = resolveProject(ctx, c, projectID); err != nil {
		return err
	}
	for i := range items {
		if items[i].TaskID, err = resolveTask(ctx, c, projectID, items[i].TaskID); err != nil {
			return err
		}
	}

	res, err := c.ReorderTasks(ctx, projectID, items)
	if err != nil {
		return sessionError(err)
	}

	out := cmd.OutOrStdout()
	for _, r := range res.Results {
		if r.OK {
			fmt.Fprintf(out, "  ✓ %s → #%d\n", shortID(r.TaskID), r.Task.Position)
		} else {
			fmt.Fprintf(out, "  ✗ %s: %s\n", shortID(r.TaskID), r.Error)
		}
	}
	fmt.Fprintf(out, "Reordered %d task(s), %d failed\n", res.Succeeded, res.Failed)
	return nil
}

func runTaskComment(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	id, err := resolveTask(ctx, c, taskProject, args[0])
	if err != nil {
		return err
	}
	t, err := c.AddComment(ctx, id, strings.Join(args[1:], " "))
	if err != nil {
		return sessionError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "💬 Commented on \"%s\" (%d comments)\n", t.Title, len(t.Comments))
	return nil
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	id, err := resolveTask(ctx, c, taskProject, args[0])
	if err != nil {
		return err
	}
	t, err := c.GetTask(ctx, id)
	if err != nil {
		return sessionError(err)
	}

	prompt := newPrompter(cmd)
	fmt.Fprintf(cmd.OutOrStdout(), "About to delete: \"%s\" (ID: %s)\n", t.Title, t.ID)
	if !prompt.confirm("Are you sure?") {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	}

	if err := c.DeleteTask(ctx, id); err != nil {
		return sessionError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Deleted: \"%s\"\n", t.Title)
	return nil
}
