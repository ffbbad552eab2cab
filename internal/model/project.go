package model

import "time"

// Role is a user's role within a single project.
type Role string

const (
	// RoleNone means the user has no membership in the project.
	RoleNone   Role = ""
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ParseRole converts a label into a Role. Only owner, admin and member are
// accepted.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOwner, RoleAdmin, RoleMember:
		return Role(s), true
	default:
		return RoleNone, false
	}
}

// Grantable reports whether r may be granted by an invitation or a direct
// member add. Ownership is never granted.
func (r Role) Grantable() bool {
	return r == RoleAdmin || r == RoleMember
}

// ProjectStatus is the lifecycle status of a project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectArchived:
		return true
	}
	return false
}

// Priority levels shared by projects and tasks.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ProjectColors is the palette a project color is picked from.
var ProjectColors = []string{"blue", "green", "red", "purple", "yellow", "indigo", "pink", "gray"}

// ValidColor reports whether c is in the palette.
func ValidColor(c string) bool {
	for _, color := range ProjectColors {
		if color == c {
			return true
		}
	}
	return false
}

// Member is one membership entry of a project.
type Member struct {
	UserID   string    `json:"user" bson:"user"`
	Role     Role      `json:"role" bson:"role"`
	JoinedAt time.Time `json:"joinedAt" bson:"joinedAt"`
}

// ProjectSettings holds per-project switches.
type ProjectSettings struct {
	IsPublic           bool `json:"isPublic" bson:"isPublic"`
	AllowMemberInvites bool `json:"allowMemberInvites" bson:"allowMemberInvites"`
}

// Project groups members and the tasks on its board.
type Project struct {
	ID          string          `json:"id" bson:"_id"`
	Name        string          `json:"name" bson:"name"`
	Description string          `json:"description" bson:"description"`
	Color       string          `json:"color" bson:"color"`
	OwnerID     string          `json:"owner" bson:"owner"`
	Members     []Member        `json:"members" bson:"members"`
	TaskIDs     []string        `json:"tasks" bson:"tasks"`
	Status      ProjectStatus   `json:"status" bson:"status"`
	Priority    Priority        `json:"priority" bson:"priority"`
	Deadline    *time.Time      `json:"deadline" bson:"deadline"`
	Settings    ProjectSettings `json:"settings" bson:"settings"`
	CreatedAt   time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// NewProject builds an active project whose owner is its only member.
func NewProject(id, ownerID, name, description, color string, now time.Time) Project {
	return Project{
		ID:          id,
		Name:        name,
		Description: description,
		Color:       color,
		OwnerID:     ownerID,
		Members:     []Member{{UserID: ownerID, Role: RoleOwner, JoinedAt: now}},
		TaskIDs:     []string{},
		Status:      ProjectActive,
		Priority:    PriorityMedium,
		Settings:    ProjectSettings{AllowMemberInvites: true},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Member returns the membership entry of userID.
func (p Project) Member(userID string) (Member, bool) {
	for _, m := range p.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

// MemberIDs returns the user ids of every member entry.
func (p Project) MemberIDs() []string {
	ids := make([]string, 0, len(p.Members))
	for _, m := range p.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}
