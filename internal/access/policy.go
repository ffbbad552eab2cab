package access

import (
	"github.com/existflow/projectmate/internal/apperr"
	"github.com/existflow/projectmate/internal/model"
)

// Action is something an actor attempts on a project or one of its tasks.
type Action int

const (
	ActionViewProject Action = iota + 1
	ActionUpdateProject
	ActionDeleteProject
	ActionAddMember
	ActionRemoveMember
	ActionSendInvitation
	ActionViewInvitations
	ActionCancelInvitation
	ActionViewTask
	ActionCreateTask
	ActionUpdateTask
	ActionReorderTasks
	ActionDeleteTask
	ActionComment
)

var actionNames = map[Action]string{
	ActionViewProject:      "view project",
	ActionUpdateProject:    "update project",
	ActionDeleteProject:    "delete project",
	ActionAddMember:        "add members",
	ActionRemoveMember:     "remove members",
	ActionSendInvitation:   "send invitations",
	ActionViewInvitations:  "view project invitations",
	ActionCancelInvitation: "cancel invitation",
	ActionViewTask:         "view task",
	ActionCreateTask:       "create tasks",
	ActionUpdateTask:       "update task",
	ActionReorderTasks:     "reorder tasks",
	ActionDeleteTask:       "delete task",
	ActionComment:          "comment on task",
}

// String returns a human label used in denial messages.
func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown action"
}

var (
	anyMember    = []model.Role{model.RoleOwner, model.RoleAdmin, model.RoleMember}
	ownerOrAdmin = []model.Role{model.RoleOwner, model.RoleAdmin}
	ownerOnly    = []model.Role{model.RoleOwner}
)

// requiredRoles maps each action to the roles allowed to perform it.
// Admins may add members but only the owner may remove them.
var requiredRoles = map[Action][]model.Role{
	ActionViewProject:      anyMember,
	ActionUpdateProject:    ownerOrAdmin,
	ActionDeleteProject:    ownerOnly,
	ActionAddMember:        ownerOrAdmin,
	ActionRemoveMember:     ownerOnly,
	ActionSendInvitation:   ownerOrAdmin,
	ActionViewInvitations:  ownerOrAdmin,
	ActionCancelInvitation: ownerOnly,
	ActionViewTask:         anyMember,
	ActionCreateTask:       anyMember,
	ActionUpdateTask:       anyMember,
	ActionReorderTasks:     anyMember,
	ActionDeleteTask:       anyMember,
	ActionComment:          anyMember,
}

// Allowed reports whether role may perform action. Unknown actions and
// model.RoleNone are always denied.
func Allowed(role model.Role, action Action) bool {
	if role == model.RoleNone {
		return false
	}
	for _, r := range requiredRoles[action] {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize returns a Forbidden error when role may not perform action.
func Authorize(role model.Role, action Action) error {
	if Allowed(role, action) {
		return nil
	}
	return apperr.Forbidden("not authorized to " + action.String())
}

// AuthorizeProject resolves userID's role in p and authorizes action.
func AuthorizeProject(p model.Project, userID string, action Action) error {
	return Authorize(ResolveRole(p, userID), action)
}

// AuthorizeTask authorizes a task-scoped action. The creator of a task may
// delete it even after leaving the project.
func AuthorizeTask(p model.Project, t model.Task, userID string, action Action) error {
	if action == ActionDeleteTask && userID != "" && t.CreatorID == userID {
		return nil
	}
	return AuthorizeProject(p, userID, action)
}

// AuthorizeInvitationCancel allows the project owner or the invitation's
// original sender to cancel it.
func AuthorizeInvitationCancel(p model.Project, inv model.Invitation, userID string) error {
	if userID != "" && inv.InvitedByID == userID {
		return nil
	}
	return AuthorizeProject(p, userID, ActionCancelInvitation)
}

// CanViewInvitation reports whether userID may read inv: the invited user,
// the sender, and the project's owner or admins.
func CanViewInvitation(p model.Project, inv model.Invitation, userID string) bool {
	if userID == "" {
		return false
	}
	if inv.InvitedUserID == userID || inv.InvitedByID == userID {
		return true
	}
	return Allowed(ResolveRole(p, userID), ActionViewInvitations)
}
