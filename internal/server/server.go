package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sprintboard/internal/apperr"
	"sprintboard/internal/dashboard"
	"sprintboard/internal/notify"
	"sprintboard/internal/projects"
	"sprintboard/internal/reports"
	"sprintboard/internal/sprints"
	"sprintboard/internal/tasks"
	"sprintboard/internal/users"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the domain services the HTTP layer calls into.
type Services struct {
	Users     *users.Service
	Projects  *projects.Service
	Tasks     *tasks.Service
	Sprints   *sprints.Scheduler
	Reports   *reports.Generator
	Dashboard *dashboard.Aggregator
	Notify    *notify.Service
	// Health is optional; without it /api/healthz always reports ok.
	Health Pinger
}

// Server provides HTTP handlers for the sprint board backend.
type Server struct {
	engine    *gin.Engine
	svc       Services
	logger    *slog.Logger
	staticDir string
}

// New constructs the HTTP server with routes and middleware configured.
func New(svc Services, logger *slog.Logger, staticDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLogger(logger, "/api"))

	srv := &Server{
		engine:    router,
		svc:       svc,
		logger:    logger,
		staticDir: staticDir,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		usersGroup := api.Group("/users")
		{
			usersGroup.POST("", s.handleRegisterUser)
			usersGroup.GET(":id", s.handleGetUser)
			usersGroup.GET(":id/dashboard", s.handleDashboard)
			usersGroup.GET(":id/tasks", s.handleListUserTasks)
			usersGroup.GET(":id/projects", s.handleListUserProjects)
			usersGroup.GET(":id/notifications", s.handleListNotifications)
		}
		api.POST("/notifications/:id/read", s.handleMarkNotificationRead)
		api.POST("/reminders", s.handleSendReminders)

		projectsGroup := api.Group("/projects")
		{
			projectsGroup.GET("", s.handleListProjects)
			projectsGroup.POST("", s.handleCreateProject)
			projectsGroup.GET(":id", s.handleGetProject)
			projectsGroup.PUT(":id", s.handleUpdateProject)
			projectsGroup.DELETE(":id", s.handleDeleteProject)
			projectsGroup.POST(":id/members", s.handleAddMember)
			projectsGroup.DELETE(":id/members/:userID", s.handleRemoveMember)
			projectsGroup.GET(":id/tasks", s.handleListTasks)
			projectsGroup.POST(":id/tasks", s.handleCreateTask)
			projectsGroup.GET(":id/sprints", s.handleListSprints)
			projectsGroup.POST(":id/sprints", s.handleCreateSprint)
			projectsGroup.GET(":id/progress", s.handleProjectProgress)
			projectsGroup.GET(":id/reports", s.handleReportHistory)
		}

		sprintsGroup := api.Group("/sprints")
		{
			sprintsGroup.GET(":id", s.handleGetSprint)
			sprintsGroup.PUT(":id", s.handleUpdateSprint)
			sprintsGroup.POST(":id/start", s.handleStartSprint)
			sprintsGroup.POST(":id/complete", s.handleCompleteSprint)
			sprintsGroup.GET(":id/tasks", s.handleListSprintTasks)
			sprintsGroup.GET(":id/progress", s.handleSprintProgress)
			sprintsGroup.POST(":id/report", s.handleGenerateReport)
		}

		tasksGroup := api.Group("/tasks")
		{
			tasksGroup.GET(":id", s.handleGetTask)
			tasksGroup.PUT(":id", s.handleUpdateTask)
			tasksGroup.DELETE(":id", s.handleDeleteTask)
			tasksGroup.PUT(":id/status", s.handleChangeStatus)
			tasksGroup.PUT(":id/assignee", s.handleAssignTask)
			tasksGroup.GET(":id/transitions", s.handleTaskTransitions)
		}
		api.GET("/search/tasks", s.handleSearchTasks)
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	if s.svc.Health != nil {
		if err := s.svc.Health.Ping(c.Request.Context()); err != nil {
			s.logger.Error("health check failed", slog.String("error", err.Error()))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64 with error handling.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid identifier"})
		return 0, false
	}
	return id, true
}

// actorID reads the caller identity from X-User-ID; 0 when absent.
func actorID(c *gin.Context) int64 {
	raw := strings.TrimSpace(c.GetHeader("X-User-ID"))
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrScheduleConflict), errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the error and returns a JSON payload. Unclassified
// errors are reported as "internal error".
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
		s.logger.Error("request failed",
			slog.String("path", c.FullPath()),
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("error", err.Error()))
	} else {
		s.logger.Debug("request rejected",
			slog.String("path", c.FullPath()),
			slog.Int("status", status),
			slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": msg})
}

// badRequest answers malformed input that never reached a service.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

// parseDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates (UTC).
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func parseOptionalDate(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := parseDate(*raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
