package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/existflow/projectmate/internal/invite"
	"github.com/existflow/projectmate/internal/model"
)

type respondRequest struct {
	Response model.Response `json:"response"`
}

func (s *Server) handleListInvitations(c echo.Context) error {
	ctx := c.Request().Context()
	req := pageRequest(c)
	res, err := s.svc.Invites.ListForUser(ctx, actor(c), invite.ListInput{
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

func (s *Server) handleGetInvitation(c echo.Context) error {
	ctx := c.Request().Context()
	inv, err := s.svc.Invites.Get(ctx, actor(c), c.Param("id"))
	if err != nil {
		return err
	}
	v, err := s.svc.Views.Invitation(ctx, inv)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", v)
}

func (s *Server) handleRespondInvitation(c echo.Context) error {
	var req respondRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	inv, err := s.svc.Invites.Respond(ctx, actor(c), c.Param("id"), req.Response)
	if err != nil {
		return err
	}
	v, err := s.svc.Views.Invitation(ctx, inv)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Invitation "+string(inv.Status)+" successfully", v)
}

func (s *Server) handleCancelInvitation(c echo.Context) error {
	if err := s.svc.Invites.Cancel(c.Request().Context(), actor(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Invitation cancelled successfully", nil)
}
