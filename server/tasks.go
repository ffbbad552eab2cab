package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/existflow/projectmate/internal/board"
)

type commentRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleGetTask(c echo.Context) error {
	ctx := c.Request().Context()
	t, err := s.svc.Board.GetTask(ctx, actor(c), c.Param("id"))
	if err != nil {
		return err
	}
	v, err := s.svc.Views.Task(ctx, t)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", v)
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	var patch board.TaskPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	ctx := c.Request().Context()
	t, err := s.svc.Board.UpdateTask(ctx, actor(c), c.Param("id"), patch)
	if err != nil {
		return err
	}
	v, err := s.svc.Views.Task(ctx, t)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Task updated successfully", v)
}

func (s *Server) handleMoveTask(c echo.Context) error {
	var in board.MoveInput
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx := c.Request().Context()
	t, err := s.svc.Board.SetStatusAndPosition(ctx, actor(c), c.Param("id"), in)
	if err != nil {
		return err
	}
	v, err := s.svc.Views.Task(ctx, t)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Task status updated successfully", v)
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	if err := s.svc.Board.DeleteTask(c.Request().Context(), actor(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Task deleted successfully", nil)
}

func (s *Server) handleAddComment(c echo.Context) error {
	var req commentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	t, err := s.svc.Board.AddComment(ctx, actor(c), c.Param("id"), req.Content)
	if err != nil {
		return err
	}
	v, err := s.svc.Views.Task(ctx, t)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, "Comment added successfully", v)
}
