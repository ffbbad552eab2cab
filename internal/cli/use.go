package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var useCmd = &cobra.Command{
	Use:   "use [project-id]",
	Short: "Set the current project context",
	Long: `Set or view the current project context.

When a context is set, task, invite, member and board commands use that
project unless --project is given.

Examples:
  projectmate use               # Show current context
  projectmate use 3f2a9c1e      # Switch to a project (id prefix is enough)
  projectmate use --clear       # Clear context`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUse,
}

var useClear bool

func init() {
	useCmd.Flags().BoolVar(&useClear, "clear", false, "Clear the current context")
}

func runUse(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if useClear {
		cfg.CurrentProject = ""
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to clear context: %w", err)
		}
		fmt.Fprintln(out, "📥 Context cleared")
		return nil
	}

	c, err := apiClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if len(args) == 0 {
		if cfg.CurrentProject == "" {
			fmt.Fprintln(out, "📥 No current project. Use 'projectmate use <project-id>' to pick one")
			return nil
		}
		p, err := c.GetProject(ctx, cfg.CurrentProject)
		if err != nil {
			fmt.Fprintf(out, "⚠️  Context set to '%s' but the project is not available: %v\n", cfg.CurrentProject, sessionError(err))
			return nil
		}
		fmt.Fprintf(out, "📁 Current context: %s (%d/%d tasks done)\n", p.Name, p.Stats.Completed, p.Stats.Total)
		return nil
	}

	id, err := resolveProject(ctx, c, args[0])
	if err != nil {
		return err
	}
	p, err := c.GetProject(ctx, id)
	if err != nil {
		return sessionError(err)
	}

	cfg.CurrentProject = p.ID
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to set context: %w", err)
	}
	fmt.Fprintf(out, "📁 Switched to: %s\n", p.Name)
	return nil
}
