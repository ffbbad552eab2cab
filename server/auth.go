package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/existflow/projectmate/internal/account"
	"github.com/existflow/projectmate/internal/model"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type authResponse struct {
	User      model.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

func (s *Server) session(c echo.Context, status int, message string, u model.User) error {
	tok, expiresAt, err := s.svc.Tokens.Issue(u.ID)
	if err != nil {
		return err
	}
	return ok(c, status, message, authResponse{User: u, Token: tok, ExpiresAt: expiresAt})
}

// handleRegister handles user registration
func (s *Server) handleRegister(c echo.Context) error {
	var req account.RegisterInput
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := s.svc.Accounts.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return s.session(c, http.StatusCreated, "User registered successfully", u)
}

// handleLogin handles user login
func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := s.svc.Accounts.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return s.session(c, http.StatusOK, "Login successful", u)
}

// handleMe returns current user info with project summaries
func (s *Server) handleMe(c echo.Context) error {
	ctx := c.Request().Context()
	u, err := s.svc.Accounts.Active(ctx, actor(c))
	if err != nil {
		return err
	}
	me, err := s.svc.Views.Me(ctx, u)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", me)
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	var patch account.ProfilePatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	u, err := s.svc.Accounts.UpdateProfile(c.Request().Context(), actor(c), patch)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Profile updated successfully", u)
}

func (s *Server) handleChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.svc.Accounts.ChangePassword(c.Request().Context(), actor(c), req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Password changed successfully", nil)
}

func (s *Server) handleDeactivate(c echo.Context) error {
	if err := s.svc.Accounts.Deactivate(c.Request().Context(), actor(c)); err != nil {
		return err
	}
	return ok(c, http.StatusOK, "Account deactivated successfully", nil)
}
