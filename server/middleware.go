package server

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/existflow/projectmate/internal/apperr"
	"github.com/existflow/projectmate/internal/logger"
)

const actorKey = "user_id"

// requestLogger logs every request and its response
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()
		id := c.Response().Header().Get(echo.HeaderXRequestID)

		logger.Debug("HTTP Request",
			logger.F("id", id),
			logger.F("method", req.Method),
			logger.F("uri", req.RequestURI),
			logger.F("remote", c.RealIP()))

		err := next(c)
		if err != nil {
			// Writes the response so the logged status is final
			c.Error(err)
		}

		res := c.Response()
		fields := []logger.Field{
			logger.F("id", id),
			logger.F("method", req.Method),
			logger.F("uri", req.RequestURI),
			logger.F("status", res.Status),
			logger.F("size", res.Size),
			logger.F("duration", time.Since(start)),
		}
		if actor, ok := c.Get(actorKey).(string); ok {
			fields = append(fields, logger.F("user", actor))
		}
		if res.Status >= 500 {
			logger.Error("HTTP Response", fields...)
		} else {
			logger.Info("HTTP Response", fields...)
		}
		return nil
	}
}

// authMiddleware checks the bearer token and that its account is active
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		if auth == "" {
			return apperr.New(apperr.KindUnauthorized, apperr.CodeUnauthorized, "no token provided")
		}

		raw, found := strings.CutPrefix(auth, "Bearer ")
		if !found {
			return apperr.New(apperr.KindUnauthorized, apperr.CodeUnauthorized, "invalid authorization format")
		}

		userID, err := s.svc.Tokens.Verify(raw)
		if err != nil {
			return err
		}
		if _, err := s.svc.Accounts.Active(c.Request().Context(), userID); err != nil {
			return err
		}

		c.Set(actorKey, userID)
		return next(c)
	}
}

// actor returns the authenticated user id
func actor(c echo.Context) string {
	id, _ := c.Get(actorKey).(string)
	return id
}
