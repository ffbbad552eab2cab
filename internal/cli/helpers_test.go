package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/projectmate/internal/config"
	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/project"
	"github.com/existflow/projectmate/internal/view"
)

func TestMatchPrefix(t *testing.T) {
	ids := []string{"3f2a9c1e-aaaa", "3f2b0000-bbbb", "77aa0000-cccc"}

	tests := []struct {
		prefix  string
		want    string
		wantErr bool
	}{
		{"77", "77aa0000-cccc", false},
		{"3f2a", "3f2a9c1e-aaaa", false},
		{"3f2b0000-bbbb", "3f2b0000-bbbb", false},
		{"3f2", "", true},
		{"ff", "", true},
	}
	for _, tt := range tests {
		got, err := matchPrefix(ids, tt.prefix)
		if (err != nil) != tt.wantErr {
			t.Fatalf("matchPrefix(%q) error = %v, wantErr %v", tt.prefix, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("matchPrefix(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestParseDue(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"today", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), false},
		{"Tomorrow", time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), false},
		{"+3d", time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), false},
		{"+0", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), false},
		{"2024-04-01", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), false},
		{"2024-04-01T09:00:00Z", time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC), false},
		{"next week", time.Time{}, true},
		{"+-2d", time.Time{}, true},
	}
	for _, tt := range tests {
		got, err := parseDue(tt.in, now)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseDue(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("parseDue(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseReorderItem(t *testing.T) {
	item, err := parseReorderItem("abc=3")
	if err != nil || item.TaskID != "abc" || item.Position != 3 || item.Status != nil {
		t.Fatalf("item = %+v, err = %v", item, err)
	}

	item, err = parseReorderItem("abc=1:inprogress")
	if err != nil || item.Status == nil || *item.Status != model.StatusInProgress {
		t.Fatalf("item = %+v, err = %v", item, err)
	}

	for _, bad := range []string{"abc", "=2", "abc=x", "abc=1:archived"} {
		if _, err := parseReorderItem(bad); err == nil {
			t.Fatalf("parseReorderItem(%q) should fail", bad)
		}
	}
}

func TestParsePriorityAndTags(t *testing.T) {
	if p, err := parsePriority(" High "); err != nil || p != model.PriorityHigh {
		t.Fatalf("parsePriority = %q, %v", p, err)
	}
	if _, err := parsePriority("urgent"); err == nil {
		t.Fatal("expected error for unknown priority")
	}

	tags := splitTags(" api, ,backend,")
	if strings.Join(tags, "|") != "api|backend" {
		t.Fatalf("splitTags = %v", tags)
	}
	if splitTags("") != nil {
		t.Fatal("empty tag list should be nil")
	}
}

func TestMemberID(t *testing.T) {
	p := view.Project{
		Detail: project.Detail{Project: model.Project{Name: "Launch"}},
		Members: []view.Member{
			{User: model.UserSummary{ID: "aaaa-1111", Email: "alice@example.com"}, Role: model.RoleOwner},
			{User: model.UserSummary{ID: "bbbb-2222", Email: "bob@example.com"}, Role: model.RoleMember},
		},
	}

	if id, err := memberID(p, "BOB@example.com"); err != nil || id != "bbbb-2222" {
		t.Fatalf("memberID by email = %q, %v", id, err)
	}
	if id, err := memberID(p, "aaaa"); err != nil || id != "aaaa-1111" {
		t.Fatalf("memberID by prefix = %q, %v", id, err)
	}
	if _, err := memberID(p, "carol@example.com"); err == nil {
		t.Fatal("expected error for non-member")
	}
	if roleOf(p, "bbbb-2222") != model.RoleMember {
		t.Fatalf("roleOf = %q", roleOf(p, "bbbb-2222"))
	}
}

func TestPrompter(t *testing.T) {
	cfg = config.DefaultConfig()
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("alice@example.com\nsecret-pass\ny\nno\n"))
	cmd.SetOut(&out)

	p := newPrompter(cmd)
	email, err := p.line("Email: ")
	if err != nil || email != "alice@example.com" {
		t.Fatalf("line = %q, %v", email, err)
	}
	pass, err := p.password("Password: ")
	if err != nil || pass != "secret-pass" {
		t.Fatalf("password = %q, %v", pass, err)
	}
	if !p.confirm("Delete?") {
		t.Fatal("expected confirm on y")
	}
	if p.confirm("Delete?") {
		t.Fatal("expected no confirm on no")
	}
	if p.confirm("Delete?") {
		t.Fatal("expected no confirm at end of input")
	}
	if !strings.Contains(out.String(), "Delete? [y/N]: ") {
		t.Fatalf("prompt output = %q", out.String())
	}

	cfg.ConfirmDelete = false
	if !p.confirm("Delete?") {
		t.Fatal("confirmation disabled should always confirm")
	}
}
