package server

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountStatic serves a compiled board frontend when one is present. Unknown
// /api/ paths always answer with a JSON 404.
func (s *Server) mountStatic() {
	indexPath := s.staticIndex()
	s.engine.NoRoute(func(c *gin.Context) {
		if indexPath == "" || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}
		c.File(indexPath)
	})
	if indexPath == "" {
		return
	}

	s.engine.GET("/", func(c *gin.Context) {
		c.File(indexPath)
	})

	assetsDir := filepath.Join(s.staticDir, "assets")
	if _, err := os.Stat(assetsDir); err == nil {
		s.engine.StaticFS("/assets", gin.Dir(assetsDir, false))
	}

	favicon := filepath.Join(s.staticDir, "favicon.ico")
	if _, err := os.Stat(favicon); err == nil {
		s.engine.StaticFile("/favicon.ico", favicon)
	}
}

// staticIndex returns the frontend's index.html, or "" in API-only mode.
func (s *Server) staticIndex() string {
	if s.staticDir == "" {
		s.logger.Info("no static directory configured, serving API only")
		return ""
	}
	info, err := os.Stat(s.staticDir)
	if err != nil || !info.IsDir() {
		s.logger.Warn("static directory missing", slog.String("path", s.staticDir))
		return ""
	}
	indexPath := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(indexPath); err != nil {
		s.logger.Warn("index.html not found", slog.String("path", indexPath))
		return ""
	}
	return indexPath
}
