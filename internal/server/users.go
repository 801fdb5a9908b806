package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sprintboard/internal/users"
)

type userRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

func (s *Server) handleRegisterUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := s.svc.Users.Register(c.Request.Context(), users.Registration(req))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"user": user})
}

func (s *Server) handleGetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := s.svc.Users.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user})
}

func (s *Server) handleListUserProjects(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := s.svc.Projects.ListByUser(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": list})
}

func (s *Server) handleDashboard(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	view, err := s.svc.Dashboard.Build(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"dashboard": view})
}

// handleListNotifications returns the user's notifications; ?unread=true
// limits them to unread ones.
func (s *Server) handleListNotifications(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := s.svc.Notify.List(c.Request.Context(), id, c.Query("unread") == "true")
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"notifications": list})
}

func (s *Server) handleMarkNotificationRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	n, err := s.svc.Notify.MarkRead(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"notification": n})
}

// handleSendReminders notifies assignees of tasks due within ?within
// (a Go duration, default 24h).
func (s *Server) handleSendReminders(c *gin.Context) {
	within := 24 * time.Hour
	if raw := c.Query("within"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			badRequest(c, fmt.Errorf("invalid within: %w", err))
			return
		}
		within = d
	}
	sent, err := s.svc.Notify.RemindDue(c.Request.Context(), within)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sent": sent})
}
