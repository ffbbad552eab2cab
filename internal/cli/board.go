package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/existflow/projectmate/internal/logger"
	"github.com/existflow/projectmate/internal/tui"
)

var boardCmd = &cobra.Command{
	Use:   "board [project-id]",
	Short: "Open the interactive task board",
	Long: `Open the three-lane task board of a project.

Without an argument the current project context is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBoard,
}

func runBoard(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}

	ref := ""
	if len(args) > 0 {
		ref = args[0]
	}
	projectID, err := currentProject(ref)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	projectID, err = resolveProject(ctx, c, projectID)
	cancel()
	if err != nil {
		return err
	}

	logger.Info("Launching board", logger.F("project", projectID))
	m := tui.NewModel(c, projectID)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", logger.Err(err))
		return fmt.Errorf("failed to run board: %w", err)
	}

	logger.Info("Board exited normally")
	return nil
}
