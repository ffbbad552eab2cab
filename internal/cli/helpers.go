package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/existflow/projectmate/internal/apperr"
	"github.com/existflow/projectmate/internal/client"
	"github.com/existflow/projectmate/internal/model"
)

// requestTimeout bounds a single command's API calls.
const requestTimeout = 30 * time.Second

var errNotLoggedIn = errors.New("not logged in, run 'projectmate auth login' first")

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, requestTimeout)
}

// apiClient returns a client for the logged in session.
func apiClient() (*client.Client, error) {
	if !cfg.LoggedIn() {
		return nil, errNotLoggedIn
	}
	return client.FromConfig(cfg), nil
}

// sessionError turns an expired or revoked session into a hint.
func sessionError(err error) error {
	if errors.Is(err, apperr.ErrUnauthorized) && apperr.CodeOf(err) != apperr.CodeBadCredentials {
		return fmt.Errorf("%w (run 'projectmate auth login')", err)
	}
	return err
}

// currentProject returns the project flag, falling back to the context set
// with 'projectmate use'.
func currentProject(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if cfg.CurrentProject != "" {
		return cfg.CurrentProject, nil
	}
	return "", errors.New("no project given, pass --project or run 'projectmate use <project-id>'")
}

// matchPrefix resolves a possibly shortened id against known ids.
func matchPrefix(ids []string, prefix string) (string, error) {
	var found []string
	for _, id := range ids {
		if id == prefix {
			return id, nil
		}
		if strings.HasPrefix(id, prefix) {
			found = append(found, id)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("no match for %q", prefix)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%q is ambiguous (%d matches)", prefix, len(found))
	}
}

// resolveTask expands a short task id within the current project. Full ids
// and ids outside any project context pass through unchanged.
func resolveTask(ctx context.Context, c *client.Client, projectFlag, id string) (string, error) {
	projectID, err := currentProject(projectFlag)
	if err != nil || len(id) >= 36 {
		return id, nil
	}
	tasks, _, err := c.ListTasks(ctx, projectID, client.TaskFilter{Limit: 200})
	if err != nil {
		return "", sessionError(err)
	}
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	match, err := matchPrefix(ids, id)
	if err != nil {
		return id, nil
	}
	return match, nil
}

// resolveProject expands a short project id against the user's projects.
func resolveProject(ctx context.Context, c *client.Client, id string) (string, error) {
	if len(id) >= 36 {
		return id, nil
	}
	projects, _, err := c.ListProjects(ctx, client.ProjectFilter{Limit: 100})
	if err != nil {
		return "", sessionError(err)
	}
	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	match, err := matchPrefix(ids, id)
	if err != nil {
		return id, nil
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// parseDue accepts "today", "tomorrow", "+Nd", YYYY-MM-DD or RFC 3339.
func parseDue(s string, now time.Time) (time.Time, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch s {
	case "today":
		return day, nil
	case "tomorrow":
		return day.AddDate(0, 0, 1), nil
	}
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		if n, err := strconv.Atoi(strings.TrimSuffix(rest, "d")); err == nil && n >= 0 {
			return day.AddDate(0, 0, n), nil
		}
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, strings.ToUpper(s)); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid due date %q (use today, tomorrow, +3d or 2024-01-15)", s)
}

func parsePriority(s string) (model.Priority, error) {
	p := model.Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q (use low, medium or high)", s)
	}
	return p, nil
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// prompter reads answers from the command's input. Passwords are read
// without echo when the input is a terminal.
type prompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	return &prompter{in: in, out: cmd.OutOrStdout(), reader: bufio.NewReader(in)}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func (p *prompter) password(label string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		return string(b), err
	}
	return p.line(label)
}

// confirm asks a yes/no question when deletions require confirmation.
func (p *prompter) confirm(question string) bool {
	if !cfg.ConfirmDelete {
		return true
	}
	answer, err := p.line(question + " [y/N]: ")
	if err != nil {
		return false
	}
	return answer == "y" || answer == "Y"
}
