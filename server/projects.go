package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/existflow/projectmate/internal/board"
	"github.com/existflow/projectmate/internal/invite"
	"github.com/existflow/projectmate/internal/model"
	"github.com/existflow/projectmate/internal/project"
)

type reorderRequest struct {
	Tasks []board.ReorderItem `json:"tasks"`
}

func (s *Server) handleListProjects(c echo.Context) error {
	ctx := c.Request().Context()
	req := pageRequest(c)
	res, err := s.svc.Projects.List(ctx, actor(c), project.ListInput{
		Status: model.ProjectStatus(c.QueryParam("status")),
		Search: c.QueryParam("search"),
		Page:   req.Page,
		Limit:  req.Limit,
	})
	if err != nil {
		return err
	}
	views, err := s.svc.Views.Projects(ctx, res.Projects)
	if err != nil {
		return err
	}
	return okPage(c, views, res.Page)
}

func (s *Server) handleCreateProject(c echo.Context) error {
	var in project.CreateInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx := c.Request().Context()
	d, err := s.svc.Projects.Create(ctx, actor(c), in)
	if err != nil {
		return err
	}
	v, err := s.svc.Views.Project(ctx, d)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Project created successfully", v)
}

func (s *Server) handleGetProject(c echo.Context) error {
	ctx := c.Request().Context()
	d, err := s.svc.Projects.Get(ctx, actor(c), c.Param("id"))
	if err != nil {
		return err
	}
	v, err := s.svc.Views.Project(ctx, d)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", v)
}

func (s *Server) handleUpdateProject(c echo.Context) error {
	var patch project.Patch
	if err := bind(c, &patch); err != nil {
		return err
	}
	ctx := c.Request().Context()
	d, err := s.svc.Projects.Update(ctx, actor(c), c.Param("id"), patch)
	if err != nil {
		return err
	}
	v, err := s.svc.Views.Project(ctx, d)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Project updated successfully", v)
}

func (s *Server) handleDeleteProject(c echo.Context) error {
	if err := s.svc.Projects.Delete(c.Request().Context(), actor(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Project deleted successfully", nil)
}

func (s *Server) handleAddMember(c echo.Context) error {
	var in project.MemberInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx := c.Request().Context()
	d, err := s.svc.Projects.AddMember(ctx, actor(c), c.Param("id"), in)
	if err != nil {
		return err
	}
	v, err := s.svc.Views.Project(ctx, d)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Member added successfully", v)
}

func (s *Server) handleRemoveMember(c echo.Context) error {
	ctx := c.Request().Context()
	d, err := s.svc.Projects.RemoveMember(ctx, actor(c), c.Param("id"), c.Param("userId"))
	if err != nil {
		return err
	}
	v, err := s.svc.Views.Project(ctx, d)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Member removed successfully", v)
}

func (s *Server) handleListTasks(c echo.Context) error {
	ctx := c.Request().Context()
	req := pageRequest(c)
	res, err := s.svc.Board.ListTasks(ctx, actor(c), c.Param("id"), board.ListInput{
		Status:     model.TaskStatus(c.QueryParam("status")),
		AssigneeID: c.QueryParam("assignedTo"),
		Priority:   model.Priority(c.QueryParam("priority")),
		Page:       req.Page,
		Limit:      req.Limit,
	})
	if err != nil {
		return err
	}
	views, err := s.svc.Views.Tasks(ctx, res.Tasks)
	if err != nil {
		return err
	}
	return okPage(c, views, res.Page)
}

func (s *Server) handleCreateTask(c echo.Context) error {
	var in board.CreateTaskInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx := c.Request().Context()
	t, err := s.svc.Board.CreateTask(ctx, actor(c), c.Param("id"), in)
	if err != nil {
		return err
	}
	v, err := s.svc.Views.Task(ctx, t)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Task created successfully", v)
}

func (s *Server) handleReorderTasks(c echo.Context) error {
	var req reorderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := s.svc.Board.BulkReorder(c.Request().Context(), actor(c), c.Param("id"), req.Tasks)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Tasks reordered", res)
}

func (s *Server) handleListProjectInvitations(c echo.Context) error {
	ctx := c.Request().Context()
	req := pageRequest(c)
	res, err := s.svc.Invites.ListForProject(ctx, actor(c), c.Param("id"), invite.ListInput{
		Status: model.InvitationStatus(c.QueryParam("status")),
		Page:   req.Page,
		Limit:  req.Limit,
	})
	if err != nil {
		return err
	}
	views, err := s.svc.Views.Invitations(ctx, res.Invitations)
	if err != nil {
		return err
	}
	return okPage(c, views, res.Page)
}

func (s *Server) handleSendInvitation(c echo.Context) error {
	var in invite.SendInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx := c.Request().Context()
	inv, err := s.svc.Invites.Send(ctx, actor(c), c.Param("id"), in)
	if err != nil {
		return err
	}
	v, err := s.svc.Views.Invitation(ctx, inv)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Invitation sent successfully", v)
}
