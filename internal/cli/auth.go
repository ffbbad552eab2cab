package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/existflow/projectmate/internal/account"
	"github.com/existflow/projectmate/internal/client"
	"github.com/existflow/projectmate/internal/logger"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication",
	Long:  `Manage your account session with the ProjectMate server.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to the server",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE:  runLogout,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account on the server",
	RunE:  runRegister,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user and their projects",
	RunE:  runWhoami,
}

var (
	authEmail string
	authName  string
)

func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(registerCmd)
	authCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringVar(&authEmail, "email", "", "Account email (prompted when empty)")
	registerCmd.Flags().StringVar(&authEmail, "email", "", "Account email (prompted when empty)")
	registerCmd.Flags().StringVar(&authName, "name", "", "Display name (prompted when empty)")
}

func saveSession(s client.Session) error {
	cfg.Token = s.Token
	cfg.UserID = s.User.ID
	cfg.Email = s.User.Email
	return cfg.Save()
}

func runLogin(cmd *cobra.Command, args []string) error {
	p := newPrompter(cmd)
	email := authEmail
	var err error
	if email == "" {
		if email, err = p.line("Email: "); err != nil {
			return err
		}
	}
	password, err := p.password("Password: ")
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := client.New(cfg.ServerURL).Login(ctx, email, password)
	if err != nil {
		logger.Warn("Login failed", logger.F("email", email), logger.Err(err))
		return err
	}
	if err := saveSession(s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Logged in as %s\n", s.User.Name)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if !cfg.LoggedIn() {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
		return nil
	}

	cfg.ClearSession()
	cfg.CurrentProject = ""
	if err := cfg.Save(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✅ Logged out successfully.")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	p := newPrompter(cmd)
	var err error

	name := authName
	if name == "" {
		if name, err = p.line("Name: "); err != nil {
			return err
		}
	}
	email := authEmail
	if email == "" {
		if email, err = p.line("Email: "); err != nil {
			return err
		}
	}

	password, err := p.password("Password: ")
	if err != nil {
		return err
	}
	confirm, err := p.password("Confirm Password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}
	if err := account.ValidatePassword(password); err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := client.New(cfg.ServerURL).Register(ctx, account.RegisterInput{Name: name, Email: email, Password: password})
	if err != nil {
		return err
	}
	if err := saveSession(s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Account created, logged in as %s\n", s.User.Email)
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	me, err := c.Me(ctx)
	if err != nil {
		return sessionError(err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s <%s>\n", me.Name, me.Email)
	fmt.Fprintf(out, "Server: %s\n", c.BaseURL())
	if len(me.Projects) == 0 {
		fmt.Fprintln(out, "No projects yet. Create one with: projectmate project new \"Name\"")
		return nil
	}
	fmt.Fprintln(out, "Projects:")
	for _, pr := range me.Projects {
		marker := "  "
		if pr.ID == cfg.CurrentProject {
			marker = "❯ "
		}
		fmt.Fprintf(out, "%s%s  %-24s  %s\n", marker, shortID(pr.ID), truncate(pr.Name, 24), pr.Status)
	}
	return nil
}
