package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/existflow/projectmate/internal/account"
	"github.com/existflow/projectmate/internal/board"
	"github.com/existflow/projectmate/internal/invite"
	"github.com/existflow/projectmate/internal/logger"
	"github.com/existflow/projectmate/internal/project"
	"github.com/existflow/projectmate/internal/token"
	"github.com/existflow/projectmate/internal/view"
)

// Services are the domain services the API exposes.
type Services struct {
	Accounts *account.Service
	Projects *project.Service
	Board    *board.Service
	Invites  *invite.Service
	Views    *view.Populator
	Tokens   *token.Issuer
}

// Options tune the HTTP layer.
type Options struct {
	RateLimit    float64 // requests per second per client, 0 disables
	RateBurst    int
	// AuthAttempts limits register and login per client per AuthWindow, 0 disables
	AuthAttempts int
	AuthWindow   time.Duration
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the API server
type Server struct {
	svc     Services
	opts    Options
	echo    *echo.Echo
	started time.Time
}

// New creates a new server
func New(svc Services, opts Options) *Server {
	s := &Server{svc: svc, opts: opts, started: time.Now()}
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Server.ReadTimeout = s.opts.ReadTimeout
	e.Server.WriteTimeout = s.opts.WriteTimeout

	e.Use(middleware.RequestID())
	e.Use(requestLogger)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("Panic recovered",
				logger.F("uri", c.Request().RequestURI),
				logger.Err(err),
				logger.F("stack", string(stack)))
			return err
		},
	}))
	if len(s.opts.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: s.opts.CORSOrigins}))
	}
	if s.opts.RateLimit > 0 {
		e.Use(rateLimiter(rate.Limit(s.opts.RateLimit), s.opts.RateBurst, 3*time.Minute,
			"too many requests, please try again later"))
	}

	// Register and login get their own, stricter budget
	var authLimit []echo.MiddlewareFunc
	if s.opts.AuthAttempts > 0 {
		authLimit = append(authLimit, rateLimiter(rate.Every(s.opts.AuthWindow/time.Duration(s.opts.AuthAttempts)),
			s.opts.AuthAttempts, s.opts.AuthWindow,
			"too many authentication attempts, please try again later"))
	}

	// Health check
	e.GET("/health", s.handleHealth)

	// API v1
	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)

	// Auth endpoints (public)
	api.POST("/auth/register", s.handleRegister, authLimit...)
	api.POST("/auth/login", s.handleLogin, authLimit...)

	// Protected endpoints
	protected := api.Group("")
	protected.Use(s.authMiddleware)

	protected.GET("/auth/me", s.handleMe)
	protected.PUT("/auth/profile", s.handleUpdateProfile)
	protected.PUT("/auth/change-password", s.handleChangePassword)
	protected.PUT("/auth/deactivate", s.handleDeactivate)

	protected.GET("/projects", s.handleListProjects)
	protected.POST("/projects", s.handleCreateProject)
	protected.GET("/projects/:id", s.handleGetProject)
	protected.PUT("/projects/:id", s.handleUpdateProject)
	protected.DELETE("/projects/:id", s.handleDeleteProject)
	protected.POST("/projects/:id/members", s.handleAddMember)
	protected.DELETE("/projects/:id/members/:userId", s.handleRemoveMember)
	protected.GET("/projects/:id/tasks", s.handleListTasks)
	protected.POST("/projects/:id/tasks", s.handleCreateTask)
	protected.PUT("/projects/:id/tasks/reorder", s.handleReorderTasks)
	protected.GET("/projects/:id/invitations", s.handleListProjectInvitations)
	protected.POST("/projects/:id/invitations", s.handleSendInvitation)

	protected.GET("/tasks/:id", s.handleGetTask)
	protected.PUT("/tasks/:id", s.handleUpdateTask)
	protected.DELETE("/tasks/:id", s.handleDeleteTask)
	protected.PUT("/tasks/:id/status", s.handleMoveTask)
	protected.POST("/tasks/:id/comments", s.handleAddComment)

	protected.GET("/invitations", s.handleListInvitations)
	protected.GET("/invitations/:id", s.handleGetInvitation)
	protected.PUT("/invitations/:id/respond", s.handleRespondInvitation)
	protected.DELETE("/invitations/:id", s.handleCancelInvitation)

	s.echo = e
}

// rateLimiter limits requests per client IP with an in-memory store.
func rateLimiter(limit rate.Limit, burst int, expiresIn time.Duration, message string) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     burst,
		ExpiresIn: expiresIn,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logger.Warn("Rate limit exceeded", logger.F("client", identifier), logger.F("uri", c.Request().RequestURI))
			return c.JSON(http.StatusTooManyRequests, envelope{Message: message})
		},
	})
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start starts the server and blocks until it stops. A graceful Shutdown
// makes it return nil.
func (s *Server) Start(addr string) error {
	logger.Info("API server listening", logger.F("addr", addr))
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return ok(c, http.StatusOK, "ProjectMate API is running", map[string]string{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}
