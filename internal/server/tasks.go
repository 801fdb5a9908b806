package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sprintboard/internal/models"
	"sprintboard/internal/tasks"
)

type taskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"due_date"`
	SprintID    *int64  `json:"sprint_id"`
	AssigneeID  *int64  `json:"assignee_id"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type assignRequest struct {
	UserID int64 `json:"user_id"`
}

// handleListTasks fetches tasks for a project.
func (s *Server) handleListTasks(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	list, err := s.svc.Tasks.ListByProject(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": list})
}

func (s *Server) handleListSprintTasks(c *gin.Context) {
	sprintID, ok := parseID(c, "id")
	if !ok {
		return
	}

	list, err := s.svc.Tasks.ListBySprint(c.Request.Context(), sprintID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": list})
}

func (s *Server) handleListUserTasks(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}

	list, err := s.svc.Tasks.ListByAssignee(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": list})
}

// handleCreateTask inserts a new TODO task into a project.
func (s *Server) handleCreateTask(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	due, err := parseOptionalDate(req.DueDate)
	if err != nil {
		badRequest(c, fmt.Errorf("invalid due_date: %w", err))
		return
	}
	var priority models.Priority
	if req.Priority != nil {
		if priority, err = models.ParsePriority(*req.Priority); err != nil {
			badRequest(c, err)
			return
		}
	}

	task, err := s.svc.Tasks.Create(c.Request.Context(), tasks.NewTask{
		ProjectID:   projectID,
		Title:       getString(req.Title),
		Description: getString(req.Description),
		Priority:    priority,
		SprintID:    req.SprintID,
		AssigneeID:  req.AssigneeID,
		DueDate:     due,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	task, err := s.svc.Tasks.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleUpdateTask edits task fields other than status and assignee.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	// An empty due_date clears it, as sprint_id 0 clears the sprint.
	clearDue := req.DueDate != nil && strings.TrimSpace(*req.DueDate) == ""
	var due *time.Time
	if !clearDue {
		var err error
		if due, err = parseOptionalDate(req.DueDate); err != nil {
			badRequest(c, fmt.Errorf("invalid due_date: %w", err))
			return
		}
	}

	patch := tasks.TaskPatch{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      due,
		ClearDueDate: clearDue,
		SprintID:     req.SprintID,
	}
	if req.Priority != nil {
		p, err := models.ParsePriority(*req.Priority)
		if err != nil {
			badRequest(c, err)
			return
		}
		patch.Priority = &p
	}

	task, err := s.svc.Tasks.Update(c.Request.Context(), id, patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleChangeStatus moves a task along its lifecycle.
func (s *Server) handleChangeStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	status, err := models.ParseTaskStatus(req.Status)
	if err != nil {
		badRequest(c, err)
		return
	}

	task, err := s.svc.Tasks.ChangeStatus(c.Request.Context(), id, status, actorID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

func (s *Server) handleAssignTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := s.svc.Tasks.Assign(c.Request.Context(), id, req.UserID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleTaskTransitions lists the statuses the task may move to next.
func (s *Server) handleTaskTransitions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	task, err := s.svc.Tasks.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"status":      task.Status,
		"transitions": tasks.AllowedTransitions(task.Status),
	})
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.svc.Tasks.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleSearchTasks filters tasks by ?q, status, priority, assignee and project.
func (s *Server) handleSearchTasks(c *gin.Context) {
	q := tasks.Query{Keyword: c.Query("q")}

	if raw := c.Query("status"); raw != "" {
		st, err := models.ParseTaskStatus(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		q.Status = &st
	}
	if raw := c.Query("priority"); raw != "" {
		p, err := models.ParsePriority(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		q.Priority = &p
	}
	for name, dst := range map[string]**int64{"assignee": &q.AssigneeID, "project": &q.ProjectID} {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, fmt.Errorf("invalid %s", name))
			return
		}
		*dst = &v
	}

	found, err := s.svc.Tasks.Search(c.Request.Context(), q)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": found})
}
