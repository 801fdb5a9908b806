package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sprintboard/internal/projects"
)

type projectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	OwnerID     int64   `json:"owner_id"`
	MemberIDs   []int64 `json:"member_ids"`
}

type memberRequest struct {
	UserID int64 `json:"user_id"`
}

// handleListProjects returns the projects of the calling user.
func (s *Server) handleListProjects(c *gin.Context) {
	actor := actorID(c)
	if actor == 0 {
		badRequest(c, errors.New("X-User-ID header is required"))
		return
	}
	list, err := s.svc.Projects.ListByUser(c.Request.Context(), actor)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": list})
}

// handleCreateProject creates a new project. The owner defaults to the caller.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	owner := req.OwnerID
	if owner == 0 {
		owner = actorID(c)
	}

	project, err := s.svc.Projects.Create(c.Request.Context(), projects.NewProject{
		Name:        getString(req.Name),
		Description: getString(req.Description),
		Color:       getString(req.Color),
		OwnerID:     owner,
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, err := s.svc.Projects.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleUpdateProject renames, describes or recolors an existing project.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	project, err := s.svc.Projects.Update(c.Request.Context(), id, projects.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleDeleteProject removes a project and all related sprints and tasks.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.svc.Projects.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleAddMember(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	project, err := s.svc.Projects.AddMember(c.Request.Context(), id, req.UserID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

func (s *Server) handleRemoveMember(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}

	project, err := s.svc.Projects.RemoveMember(c.Request.Context(), id, userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

func getString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
