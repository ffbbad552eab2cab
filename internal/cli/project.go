package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/projectmate/internal/client"
	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/project"
	"github.com/existflow/projectmate/internal/view"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
	Long:  `Create, list, and manage shared projects and their members.`,
}

var projectNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a new project",
	Long: `Create a new project owned by you.

Examples:
  projectmate project new "Website" -d "Relaunch of the company website"
  projectmate project new "Mobile" -d "iOS and Android apps" --color purple --use`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectNew,
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your projects",
	RunE:    runProjectList,
}

var projectShowCmd = &cobra.Command{
	Use:   "show [project-id]",
	Short: "Show a project with members and task stats",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProjectShow,
}

var projectEditCmd = &cobra.Command{
	Use:   "edit [project-id]",
	Short: "Change a project's name, description, status or priority",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProjectEdit,
}

var projectDeleteCmd = &cobra.Command{
	Use:     "delete [project-id]",
	Aliases: []string{"rm"},
	Short:   "Delete a project with its tasks and invitations",
	Args:    cobra.ExactArgs(1),
	RunE:    runProjectDelete,
}

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Manage project members",
}

var memberAddCmd = &cobra.Command{
	Use:   "add [email]",
	Short: "Add a registered user to the project",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemberAdd,
}

var memberRemoveCmd = &cobra.Command{
	Use:     "remove [user-id|email]",
	Aliases: []string{"rm"},
	Short:   "Remove a member from the project",
	Args:    cobra.ExactArgs(1),
	RunE:    runMemberRemove,
}

var (
	projectDescription string
	projectColor       string
	projectPriority    string
	projectDeadline    string
	projectUse         bool
	projectStatus      string
	projectSearch      string
	projectName        string
	projectFlag        string
	memberRole         string
)

func init() {
	projectNewCmd.Flags().StringVarP(&projectDescription, "description", "d", "", "Project description (10-500 characters)")
	projectNewCmd.Flags().StringVarP(&projectColor, "color", "c", "", "Project color (blue, green, purple, red, yellow, indigo, pink, gray)")
	projectNewCmd.Flags().StringVarP(&projectPriority, "priority", "p", "", "Priority (low, medium, high)")
	projectNewCmd.Flags().StringVar(&projectDeadline, "deadline", "", "Deadline (e.g., 'tomorrow', '2024-01-15')")
	projectNewCmd.Flags().BoolVar(&projectUse, "use", false, "Make the new project the current context")

	projectListCmd.Flags().StringVar(&projectStatus, "status", "", "Filter by status (active, completed, archived)")
	projectListCmd.Flags().StringVarP(&projectSearch, "search", "s", "", "Search name and description")

	projectEditCmd.Flags().StringVar(&projectName, "name", "", "New name")
	projectEditCmd.Flags().StringVarP(&projectDescription, "description", "d", "", "New description")
	projectEditCmd.Flags().StringVar(&projectStatus, "status", "", "New status (active, completed, archived)")
	projectEditCmd.Flags().StringVarP(&projectPriority, "priority", "p", "", "New priority (low, medium, high)")

	memberCmd.PersistentFlags().StringVarP(&projectFlag, "project", "P", "", "Project (defaults to the current context)")
	memberAddCmd.Flags().StringVarP(&memberRole, "role", "r", "member", "Role (admin, member)")
	memberCmd.AddCommand(memberAddCmd)
	memberCmd.AddCommand(memberRemoveCmd)

	projectCmd.AddCommand(projectNewCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectEditCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	projectCmd.AddCommand(memberCmd)
}

func runProjectNew(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}

	in := project.CreateInput{Name: args[0], Description: projectDescription, Color: projectColor}
	if projectPriority != "" {
		if in.Priority, err = parsePriority(projectPriority); err != nil {
			return err
		}
	}
	if projectDeadline != "" {
		d, err := parseDue(projectDeadline, time.Now())
		if err != nil {
			return err
		}
		in.Deadline = &d
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	p, err := c.CreateProject(ctx, in)
	if err != nil {
		return sessionError(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created project: %s (ID: %s)\n", p.Name, p.ID)
	if projectUse {
		cfg.CurrentProject = p.ID
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to set context: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "📁 Switched to: %s\n", p.Name)
	}
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	projects, page, err := c.ListProjects(ctx, client.ProjectFilter{
		Status: model.ProjectStatus(projectStatus),
		Search: projectSearch,
		Limit:  100,
	})
	if err != nil {
		return sessionError(err)
	}

	out := cmd.OutOrStdout()
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects found. Create one with: projectmate project new \"Name\" -d \"What it is about\"")
		return nil
	}

	fmt.Fprintln(out)
	for _, p := range projects {
		marker := "  "
		if p.ID == cfg.CurrentProject {
			marker = "❯ "
		}
		role := roleOf(p, cfg.UserID)
		fmt.Fprintf(out, "%s%s  %-24s  %-9s  %-7s  %d/%d done (%d%%)\n",
			marker, shortID(p.ID), truncate(p.Name, 24), p.Status, role,
			p.Stats.Completed, p.Stats.Total, p.Progress)
	}
	fmt.Fprintln(out)
	if page != nil && page.HasNext {
		fmt.Fprintf(out, "Showing %d of %d projects\n", len(projects), page.Total)
	}
	fmt.Fprintln(out, "Use 'projectmate use <project-id>' to switch context")
	return nil
}

func roleOf(p view.Project, userID string) model.Role {
	for _, m := range p.Members {
		if m.User.ID == userID {
			return m.Role
		}
	}
	return ""
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	id, err := projectArg(args)
	if err != nil {
		return err
	}
	if id, err = resolveProject(ctx, c, id); err != nil {
		return err
	}
	p, err := c.GetProject(ctx, id)
	if err != nil {
		return sessionError(err)
	}
	printProject(cmd.OutOrStdout(), p)
	return nil
}

func projectArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return currentProject("")
}

func printProject(out io.Writer, p view.Project) {
	fmt.Fprintf(out, "\n📁 %s  (%s, %s priority)\n", p.Name, p.Status, p.Priority)
	fmt.Fprintln(out, strings.Repeat("─", 60))
	fmt.Fprintf(out, "ID:        %s\n", p.ID)
	fmt.Fprintf(out, "Color:     %s\n", p.Color)
	if p.Description != "" {
		fmt.Fprintf(out, "About:     %s\n", p.Description)
	}
	if p.Deadline != nil {
		fmt.Fprintf(out, "Deadline:  %s\n", p.Deadline.Format("Jan 2, 2006"))
	}
	fmt.Fprintf(out, "Tasks:     %d todo, %d in progress, %d completed (%d%%)\n",
		p.Stats.Todo, p.Stats.InProgress, p.Stats.Completed, p.Progress)
	fmt.Fprintf(out, "\nMembers (%d):\n", len(p.Members))
	for _, m := range p.Members {
		fmt.Fprintf(out, "  %-7s  %-20s  %-28s  %s\n", m.Role, truncate(m.User.Name, 20), m.User.Email, shortID(m.User.ID))
	}
	fmt.Fprintln(out)
}

func runProjectEdit(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}

	var patch project.Patch
	if cmd.Flags().Changed("name") {
		patch.Name = model.Some(projectName)
	}
	if cmd.Flags().Changed("description") {
		patch.Description = model.Some(projectDescription)
	}
	if cmd.Flags().Changed("status") {
		patch.Status = model.Some(model.ProjectStatus(projectStatus))
	}
	if cmd.Flags().Changed("priority") {
		pr, err := parsePriority(projectPriority)
		if err != nil {
			return err
		}
		patch.Priority = model.Some(pr)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	id, err := projectArg(args)
	if err != nil {
		return err
	}
	if id, err = resolveProject(ctx, c, id); err != nil {
		return err
	}
	p, err := c.UpdateProject(ctx, id, patch)
	if err != nil {
		return sessionError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated project: %s\n", p.Name)
	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	id, err := resolveProject(ctx, c, args[0])
	if err != nil {
		return err
	}
	p, err := c.GetProject(ctx, id)
	if err != nil {
		return sessionError(err)
	}

	prompt := newPrompter(cmd)
	fmt.Fprintf(cmd.OutOrStdout(), "About to delete project \"%s\" with %d tasks\n", p.Name, p.Stats.Total)
	if !prompt.confirm("Are you sure?") {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	}

	if err := c.DeleteProject(ctx, id); err != nil {
		return sessionError(err)
	}
	if cfg.CurrentProject == id {
		cfg.CurrentProject = ""
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to clear context: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Deleted project: %s\n", p.Name)
	return nil
}

func runMemberAdd(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}
	projectID, err := currentProject(projectFlag)
	if err != nil {
		return err
	}
	role, ok := model.ParseRole(memberRole)
	if !ok {
		return fmt.Errorf("invalid role %q (use admin or member)", memberRole)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if projectID, err = resolveProject(ctx, c, projectID); err != nil {
		return err
	}
	p, err := c.AddMember(ctx, projectID, project.MemberInput{Email: args[0], Role: role})
	if err != nil {
		return sessionError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s to %s as %s\n", args[0], p.Name, role)
	return nil
}

func runMemberRemove(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}
	projectID, err := currentProject(projectFlag)
	if err != nil {
		return err
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
	userID, err := memberID(p, args[0])
	if err != nil {
		return err
	}

	if _, err := c.RemoveMember(ctx, projectID, userID); err != nil {
		return sessionError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %s from %s\n", args[0], p.Name)
	return nil
}

// memberID finds a member by email, full id or id prefix.
func memberID(p view.Project, ref string) (string, error) {
	ids := make([]string, 0, len(p.Members))
	for _, m := range p.Members {
		if strings.EqualFold(m.User.Email, ref) {
			return m.User.ID, nil
		}
		ids = append(ids, m.User.ID)
	}
	id, err := matchPrefix(ids, ref)
	if err != nil {
		return "", fmt.Errorf("%s is not a member of %s", ref, p.Name)
	}
	return id, nil
}
