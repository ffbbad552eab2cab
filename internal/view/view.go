// Package view expands the ids held by domain records into the summaries
// returned by the API. Expanded fields shadow the id fields of the embedded
// record when encoded as JSON.
package view

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/project"
	"github.com/existflow/projectmate/internal/store"
)

// ProjectSummary is the public projection of a project embedded in other
// views.
type ProjectSummary struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Color  string              `json:"color"`
	Status model.ProjectStatus `json:"status"`
}

func summarizeProject(p model.Project) ProjectSummary {
	return ProjectSummary{ID: p.ID, Name: p.Name, Color: p.Color, Status: p.Status}
}

// Member is a membership entry with its user expanded.
type Member struct {
	User     model.UserSummary `json:"user"`
	Role     model.Role        `json:"role"`
	JoinedAt time.Time         `json:"joinedAt"`
}

// Project is a project with its owner and members expanded.
type Project struct {
	project.Detail
	Owner   model.UserSummary `json:"owner"`
	Members []Member          `json:"members"`
}

// Comment is a task comment with its author expanded.
type Comment struct {
	User      model.UserSummary `json:"user"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Task is a task with its people expanded.
type Task struct {
	model.Task
	AssignedTo *model.UserSummary `json:"assignedTo"`
	CreatedBy  model.UserSummary  `json:"createdBy"`
	Comments   []Comment          `json:"comments"`
	Overdue    bool               `json:"isOverdue"`
}

// Invitation is an invitation with its project and people expanded.
type Invitation struct {
	model.Invitation
	Project     ProjectSummary    `json:"project"`
	InvitedBy   model.UserSummary `json:"invitedBy"`
	InvitedUser model.UserSummary `json:"invitedUser"`
}

// Me is the caller's own account with project summaries.
type Me struct {
	model.User
	Projects []ProjectSummary `json:"projects"`
}

// Reader is the storage the populator reads from.
type Reader interface {
	GetUsers(ctx context.Context, ids []string) ([]model.User, error)
	GetProject(ctx context.Context, id string) (model.Project, error)
	ListProjects(ctx context.Context, q store.ProjectQuery) ([]model.Project, error)
}

// Populator builds views.
type Populator struct {
	store Reader
	now   func() time.Time
}

// NewPopulator creates a populator.
func NewPopulator(r Reader) *Populator {
	return &Populator{store: r, now: time.Now}
}

type userSet map[string]model.UserSummary

func (s userSet) get(id string) model.UserSummary {
	if u, ok := s[id]; ok {
		return u
	}
	return model.UserSummary{ID: id}
}

func (p *Populator) users(ctx context.Context, ids []string) (userSet, error) {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	found, err := p.store.GetUsers(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	set := make(userSet, len(found))
	for _, u := range found {
		set[u.ID] = u.Summary()
	}
	return set, nil
}

// Project expands a single project.
func (p *Populator) Project(ctx context.Context, d project.Detail) (Project, error) {
	out, err := p.Projects(ctx, []project.Detail{d})
	if err != nil {
		return Project{}, err
	}
	return out[0], nil
}

// Projects expands several projects with one user lookup.
func (p *Populator) Projects(ctx context.Context, details []project.Detail) ([]Project, error) {
	var ids []string
	for _, d := range details {
		ids = append(ids, d.OwnerID)
		ids = append(ids, d.MemberIDs()...)
	}
	users, err := p.users(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Project, 0, len(details))
	for _, d := range details {
		v := Project{Detail: d, Owner: users.get(d.OwnerID), Members: make([]Member, 0, len(d.Members))}
		for _, m := range d.Project.Members {
			v.Members = append(v.Members, Member{User: users.get(m.UserID), Role: m.Role, JoinedAt: m.JoinedAt})
		}
		out = append(out, v)
	}
	return out, nil
}

// Task expands a single task.
func (p *Populator) Task(ctx context.Context, t model.Task) (Task, error) {
	out, err := p.Tasks(ctx, []model.Task{t})
	if err != nil {
		return Task{}, err
	}
	return out[0], nil
}

// Tasks expands several tasks with one user lookup.
func (p *Populator) Tasks(ctx context.Context, tasks []model.Task) ([]Task, error) {
	var ids []string
	for _, t := range tasks {
		ids = append(ids, t.CreatorID)
		if t.AssigneeID != nil {
			ids = append(ids, *t.AssigneeID)
		}
		for _, c := range t.Comments {
			ids = append(ids, c.UserID)
		}
	}
	users, err := p.users(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := p.now()
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		v := Task{Task: t, CreatedBy: users.get(t.CreatorID), Comments: make([]Comment, 0, len(t.Comments)), Overdue: t.IsOverdue(now)}
		if t.AssigneeID != nil {
			assignee := users.get(*t.AssigneeID)
			v.AssignedTo = &assignee
		}
		for _, c := range t.Comments {
			v.Comments = append(v.Comments, Comment{User: users.get(c.UserID), Content: c.Content, CreatedAt: c.CreatedAt})
		}
		out = append(out, v)
	}
	return out, nil
}

// Invitation expands a single invitation.
func (p *Populator) Invitation(ctx context.Context, inv model.Invitation) (Invitation, error) {
	out, err := p.Invitations(ctx, []model.Invitation{inv})
	if err != nil {
		return Invitation{}, err
	}
	return out[0], nil
}

// Invitations expands several invitations. Each distinct project is loaded
// once.
func (p *Populator) Invitations(ctx context.Context, invitations []model.Invitation) ([]Invitation, error) {
	var ids []string
	for _, inv := range invitations {
		ids = append(ids, inv.InvitedByID, inv.InvitedUserID)
	}
	users, err := p.users(ctx, ids)
	if err != nil {
		return nil, err
	}

	projects := map[string]ProjectSummary{}
	out := make([]Invitation, 0, len(invitations))
	for _, inv := range invitations {
		summary, ok := projects[inv.ProjectID]
		if !ok {
			proj, err := p.store.GetProject(ctx, inv.ProjectID)
			switch {
			case err == nil:
				summary = summarizeProject(proj)
			case errors.Is(err, store.ErrNotFound):
				summary = ProjectSummary{ID: inv.ProjectID}
			default:
				return nil, fmt.Errorf("load project: %w", err)
			}
			projects[inv.ProjectID] = summary
		}
		out = append(out, Invitation{
			Invitation:  inv,
			Project:     summary,
			InvitedBy:   users.get(inv.InvitedByID),
			InvitedUser: users.get(inv.InvitedUserID),
		})
	}
	return out, nil
}

// Me expands the caller's project set into summaries, newest first.
func (p *Populator) Me(ctx context.Context, u model.User) (Me, error) {
	projects, err := p.store.ListProjects(ctx, store.ProjectQuery{MemberID: u.ID})
	if err != nil {
		return Me{}, fmt.Errorf("list projects: %w", err)
	}
	me := Me{User: u, Projects: make([]ProjectSummary, 0, len(projects))}
	for _, proj := range projects {
		me.Projects = append(me.Projects, summarizeProject(proj))
	}
	return me, nil
}
