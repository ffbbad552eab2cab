package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/existflow/projectmate/internal/config"
	"github.com/existflow/projectmate/internal/logger"
)

var (
	logLevel   string
	logFile    string
	logConsole bool
	serverURL  string
)

// cfg is the client config loaded before every command.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "projectmate",
	Short: "ProjectMate - collaborative task boards in the terminal",
	Long: `ProjectMate manages shared projects, invitations and task boards
through a ProjectMate server.

Run 'projectmate' without arguments to open the board of the current project.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config from file (or defaults if not exists)
		loaded, err := config.Load()
		if err != nil {
			logger.Warn("Failed to load config, using defaults", logger.Err(err))
			loaded = config.DefaultConfig()
		}
		cfg = loaded

		// Override with CLI flags if provided
		configChanged := false
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
			configChanged = true
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logFile
			configChanged = true
		}
		if cmd.Flags().Changed("log-console") {
			cfg.LogConsole = logConsole
			configChanged = true
		}
		if cmd.Flags().Changed("server") {
			cfg.ServerURL = serverURL
			configChanged = true
		}

		// Save config if changed via CLI flags
		if configChanged {
			if err := cfg.Save(); err != nil {
				logger.Warn("Failed to save config", logger.Err(err))
			}
		}

		logConfig := logger.Config{
			Level:      logger.ParseLevel(cfg.LogLevel),
			FilePath:   cfg.LogFile,
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxAge:     7,
			MaxBackups: 5,
			Console:    cfg.LogConsole,
		}

		if err := logger.Init(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logger.Info("ProjectMate started", logger.F("command", cmd.CommandPath()))
		return nil
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.LoggedIn() || cfg.CurrentProject == "" {
			return cmd.Help()
		}
		return runBoard(cmd, nil)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Info("ProjectMate exiting", logger.F("command", cmd.CommandPath()))
		logger.Close()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add logging flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Enable console logging")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "ProjectMate server URL (saved for later commands)")

	// Add subcommands
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(useCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(inviteCmd)
	rootCmd.AddCommand(boardCmd)
}
