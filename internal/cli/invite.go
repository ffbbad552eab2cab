package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/projectmate/internal/client"
	"github.com/existflow/projectmate/internal/invite"
	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/view"
)

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Send and answer project invitations",
}

var inviteSendCmd = &cobra.Command{
	Use:   "send [email]",
	Short: "Invite a registered user to a project",
	Long: `Invite a registered user to the current project.

Examples:
  projectmate invite send bob@example.com
  projectmate invite send carol@example.com --role admin -m "Welcome aboard"`,
	Args: cobra.ExactArgs(1),
	RunE: runInviteSend,
}

var inviteListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List invitations addressed to you (or sent for a project)",
	RunE:    runInviteList,
}

var inviteAcceptCmd = &cobra.Command{
	Use:   "accept [invitation-id]",
	Short: "Accept an invitation and join its project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return respondInvitation(cmd, args[0], model.ResponseAccept)
	},
}

var inviteDeclineCmd = &cobra.Command{
	Use:   "decline [invitation-id]",
	Short: "Decline an invitation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return respondInvitation(cmd, args[0], model.ResponseDecline)
	},
}

var inviteCancelCmd = &cobra.Command{
	Use:   "cancel [invitation-id]",
	Short: "Withdraw a pending invitation",
	Args:  cobra.ExactArgs(1),
	RunE:  runInviteCancel,
}

var (
	inviteRole    string
	inviteMessage string
	inviteProject string
	inviteSent    bool
	inviteStatus  string
)

func init() {
	inviteSendCmd.Flags().StringVarP(&inviteRole, "role", "r", "member", "Role to grant (admin, member)")
	inviteSendCmd.Flags().StringVarP(&inviteMessage, "message", "m", "", "Personal message (max 200 characters)")
	inviteSendCmd.Flags().StringVarP(&inviteProject, "project", "P", "", "Project (defaults to the current context)")

	inviteListCmd.Flags().BoolVar(&inviteSent, "project", false, "List invitations sent for the current project instead")
	inviteListCmd.Flags().StringVarP(&inviteStatus, "status", "s", "", "Filter by status (pending, accepted, declined, expired)")

	inviteCmd.AddCommand(inviteSendCmd)
	inviteCmd.AddCommand(inviteListCmd)
	inviteCmd.AddCommand(inviteAcceptCmd)
	inviteCmd.AddCommand(inviteDeclineCmd)
	inviteCmd.AddCommand(inviteCancelCmd)
}

func runInviteSend(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}
	projectID, err := currentProject(inviteProject)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if projectID, err = resolveProject(ctx, c, projectID); err != nil {
		return err
	}
	inv, err := c.SendInvitation(ctx, projectID, invite.SendInput{Email: args[0], Role: inviteRole, Message: inviteMessage})
	if err != nil {
		return sessionError(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "📨 Invited %s to %s as %s (expires %s)\n",
		inv.InvitedUser.Email, inv.Project.Name, inv.Role, inv.ExpiresAt.Local().Format("Jan 2 15:04"))
	return nil
}

func runInviteList(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	filter := client.InvitationFilter{Status: model.InvitationStatus(inviteStatus), Limit: 100}
	var invitations []view.Invitation
	if inviteSent {
		projectID, err := currentProject("")
		if err != nil {
			return err
		}
		invitations, _, err = c.ListProjectInvitations(ctx, projectID, filter)
		if err != nil {
			return sessionError(err)
		}
	} else {
		invitations, _, err = c.ListInvitations(ctx, filter)
		if err != nil {
			return sessionError(err)
		}
	}

	out := cmd.OutOrStdout()
	if len(invitations) == 0 {
		fmt.Fprintln(out, "No invitations.")
		return nil
	}
	fmt.Fprintln(out)
	for _, inv := range invitations {
		printInvitation(out, inv, inviteSent, time.Now())
	}
	fmt.Fprintln(out)
	if !inviteSent {
		fmt.Fprintln(out, "Answer with 'projectmate invite accept <id>' or 'projectmate invite decline <id>'")
	}
	return nil
}

func printInvitation(out io.Writer, inv view.Invitation, sent bool, now time.Time) {
	who := "from " + inv.InvitedBy.Name
	if sent {
		who = "to " + inv.InvitedUser.Email
	}
	status := string(inv.Status)
	if inv.Status == model.InvitationPending {
		status = "pending, expires " + inv.ExpiresAt.Local().Format("Jan 2")
		if inv.IsExpired(now) {
			status = "expired"
		}
	}
	fmt.Fprintf(out, "  %s  %-20s  %-7s  %-28s  %s\n", shortID(inv.ID), truncate(inv.Project.Name, 20), inv.Role, truncate(who, 28), status)
	if inv.Message != "" {
		fmt.Fprintf(out, "            “%s”\n", inv.Message)
	}
}

// resolveInvitation expands a short invitation id against the user's
// pending invitations.
func resolveInvitation(cmd *cobra.Command, c *client.Client, id string) (string, error) {
	if len(id) >= 36 {
		return id, nil
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	var ids []string
	received, _, err := c.ListInvitations(ctx, client.InvitationFilter{Status: model.InvitationPending, Limit: 100})
	if err != nil {
		return "", sessionError(err)
	}
	for _, inv := range received {
		ids = append(ids, inv.ID)
	}
	if cfg.CurrentProject != "" {
		sent, _, err := c.ListProjectInvitations(ctx, cfg.CurrentProject, client.InvitationFilter{Status: model.InvitationPending, Limit: 100})
		if err == nil {
			for _, inv := range sent {
				ids = append(ids, inv.ID)
			}
		}
	}
	if match, err := matchPrefix(ids, id); err == nil {
		return match, nil
	}
	return id, nil
}

func respondInvitation(cmd *cobra.Command, id string, response model.Response) error {
	c, err := apiClient()
	if err != nil {
		return err
	}
	if id, err = resolveInvitation(cmd, c, id); err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	inv, err := c.RespondInvitation(ctx, id, response)
	if err != nil {
		return sessionError(err)
	}

	out := cmd.OutOrStdout()
	if response == model.ResponseAccept {
		fmt.Fprintf(out, "✅ Joined %s as %s\n", inv.Project.Name, inv.Role)
		fmt.Fprintf(out, "Use 'projectmate use %s' to switch to it\n", shortID(inv.Project.ID))
		return nil
	}
	fmt.Fprintf(out, "Declined invitation to %s\n", inv.Project.Name)
	return nil
}

func runInviteCancel(cmd *cobra.Command, args []string) error {
	c, err := apiClient()
	if err != nil {
		return err
	}
	id, err := resolveInvitation(cmd, c, args[0])
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := c.CancelInvitation(ctx, id); err != nil {
		return sessionError(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Invitation cancelled.")
	return nil
}
