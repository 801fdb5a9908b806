package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sprintboard/internal/sprints"
)

type sprintRequest struct {
	Name      *string `json:"name"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

// handleListSprints lists a project's sprints, optionally within ?from and ?to.
func (s *Server) handleListSprints(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var (
		w   sprints.Window
		err error
	)
	if raw := c.Query("from"); raw != "" {
		if w.From, err = parseDate(raw); err != nil {
			badRequest(c, fmt.Errorf("invalid from: %w", err))
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if w.To, err = parseDate(raw); err != nil {
			badRequest(c, fmt.Errorf("invalid to: %w", err))
			return
		}
	}

	list, err := s.svc.Sprints.ListByProject(c.Request.Context(), projectID, w)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprints": list})
}

func (s *Server) handleCreateSprint(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req sprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start, end, err := parseRange(req)
	if err != nil {
		badRequest(c, err)
		return
	}

	in := sprints.NewSprint{ProjectID: projectID, Name: getString(req.Name)}
	if start != nil {
		in.StartDate = *start
	}
	if end != nil {
		in.EndDate = *end
	}

	sprint, err := s.svc.Sprints.Create(c.Request.Context(), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"sprint": sprint})
}

func (s *Server) handleGetSprint(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sprint, err := s.svc.Sprints.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprint": sprint})
}

func (s *Server) handleUpdateSprint(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req sprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start, end, err := parseRange(req)
	if err != nil {
		badRequest(c, err)
		return
	}

	sprint, err := s.svc.Sprints.Update(c.Request.Context(), id, sprints.SprintPatch{
		Name:      req.Name,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprint": sprint})
}

func (s *Server) handleStartSprint(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sprint, err := s.svc.Sprints.Start(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprint": sprint})
}

// handleCompleteSprint closes the sprint and returns its report.
func (s *Server) handleCompleteSprint(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	report, err := s.svc.Sprints.Complete(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"report": report})
}

func parseRange(req sprintRequest) (start, end *time.Time, err error) {
	if start, err = parseOptionalDate(req.StartDate); err != nil {
		return nil, nil, fmt.Errorf("invalid start_date: %w", err)
	}
	if end, err = parseOptionalDate(req.EndDate); err != nil {
		return nil, nil, fmt.Errorf("invalid end_date: %w", err)
	}
	return start, end, nil
}
