package server

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"sprintboard/internal/export"
)

var contentTypes = map[export.Format]string{
	export.FormatJSON: "application/json; charset=utf-8",
	export.FormatYAML: "application/yaml; charset=utf-8",
	export.FormatText: "text/plain; charset=utf-8",
}

// handleGenerateReport builds and stores a report for the sprint. The
// response is JSON unless ?format=yaml or ?format=text is given.
func (s *Server) handleGenerateReport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	format := export.FormatJSON
	if raw := c.Query("format"); raw != "" {
		f, err := export.ParseFormat(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		format = f
	}

	report, err := s.svc.Reports.Generate(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if format == export.FormatJSON {
		respondSuccess(c, http.StatusCreated, gin.H{"report": report})
		return
	}

	var buf bytes.Buffer
	if err := export.Render(&buf, report, format); err != nil {
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusCreated, contentTypes[format], buf.Bytes())
}

func (s *Server) handleSprintProgress(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	m, err := s.svc.Reports.SprintProgress(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"metrics": m})
}

func (s *Server) handleProjectProgress(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	m, err := s.svc.Reports.ProjectProgress(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"metrics": m})
}

// handleReportHistory lists stored reports of the project, newest first.
func (s *Server) handleReportHistory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	history, err := s.svc.Reports.History(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"reports": history})
}
