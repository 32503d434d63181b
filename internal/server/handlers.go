package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/scrapeflow/internal/model"
)

// runRequest is the body of POST /api/runs and of websocket messages.
type runRequest struct {
	URL string `json:"url" form:"url"`
}

// runResponse is returned by the API for a finished run.
type runResponse struct {
	Output string     `json:"output"`
	Run    *model.Run `json:"run"`
}

// errorResponse is the body of every API error.
type errorResponse struct {
	Error string `json:"error"`
}

// pageData is rendered by index.html.
type pageData struct {
	URL     string
	Error   string
	Run     *model.Run
	Version string
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", pageData{Version: s.version})
}

// handleRunForm runs the workflow for a form post and renders the result.
func (s *Server) handleRunForm(c *gin.Context) {
	var req runRequest
	_ = c.ShouldBind(&req) //nolint:errcheck // An unbindable form is an empty URL

	run, err := s.execute(c.Request.Context(), req.URL)
	if errors.Is(err, ErrEmptyURL) {
		c.HTML(http.StatusBadRequest, "index.html", pageData{
			URL:     req.URL,
			Error:   EmptyURLMessage,
			Version: s.version,
		})
		return
	}

	c.HTML(http.StatusOK, "index.html", pageData{
		URL:     req.URL,
		Run:     run,
		Version: s.version,
	})
}

// handleCreateRun runs the workflow and returns the run as JSON.
// A failed fetch is still a 200: its error text is the workflow output.
func (s *Server) handleCreateRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: EmptyURLMessage})
		return
	}

	run, err := s.execute(c.Request.Context(), req.URL)
	if errors.Is(err, ErrEmptyURL) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: EmptyURLMessage})
		return
	}

	c.JSON(http.StatusOK, runResponse{Output: run.Output(), Run: run})
}

// handleListRuns returns the run history of ?url=, or every known URL
// when no url is given.
func (s *Server) handleListRuns(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "run history is disabled"})
		return
	}

	url := c.Query("url")
	if url == "" {
		urls, err := s.store.ListURLs(c.Request.Context())
		if err != nil {
			s.logger.Error("failed to list urls", "error", err)
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load history"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"urls": urls})
		return
	}

	history, err := s.store.History(c.Request.Context(), url, historyLimit)
	if err != nil {
		s.logger.Error("failed to load history", "url", url, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "runs": history})
}

func (s *Server) handleGetRun(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "run history is disabled"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid run id"})
		return
	}

	run, err := s.store.GetRun(c.Request.Context(), id)
	if err != nil {
		s.logger.Error("failed to load run", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "run not found"})
		return
	}

	c.JSON(http.StatusOK, runResponse{Output: run.Output(), Run: run})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
