package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/amar635/esaksham-rev/internal/logger"
	"github.com/amar635/esaksham-rev/internal/repos"
	"github.com/amar635/esaksham-rev/internal/services"
)

// LRSHandler serves the xAPI statement surface. Error bodies are the flat
// {"error": msg} shape LRS clients expect, not the LMS error envelope.
type LRSHandler struct {
	log              *logger.Logger
	statementService services.StatementService
}

func NewLRSHandler(log *logger.Logger, statementService services.StatementService) *LRSHandler {
	return &LRSHandler{
		log:              log.With("handler", "LRSHandler"),
		statementService: statementService,
	}
}

// PutStatement stores one statement. The statementId query parameter, when
// present, is the persisted id and is echoed back in a one-element array.
func (h *LRSHandler) PutStatement(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty statement body"})
		return
	}
	statementID := c.Query("statementId")

	id, err := h.statementService.Ingest(c.Request.Context(), nil, statementID, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, []string{id})
}

func (h *LRSHandler) GetStatements(c *gin.Context) {
	filter := repos.StatementFilter{
		ActorMbox:  c.Query("agent"),
		VerbID:     c.Query("verb"),
		ActivityID: c.Query("activity"),
		Limit:      100,
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		filter.Limit = limit
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad since timestamp"})
			return
		}
		filter.Since = &t
	}
	if until := c.Query("until"); until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad until timestamp"})
			return
		}
		filter.Until = &t
	}

	statements, more, err := h.statementService.Query(c.Request.Context(), nil, filter)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"statements": statements, "more": more})
}

func (h *LRSHandler) GetStatement(c *gin.Context) {
	statement, err := h.statementService.GetStatement(c.Request.Context(), nil, c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Statement not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, statement)
}

func (h *LRSHandler) GetActivity(c *gin.Context) {
	// Wildcard route: activity ids are IRIs with slashes.
	id := c.Param("id")
	if len(id) > 0 && id[0] == '/' {
		id = id[1:]
	}
	activity, err := h.statementService.GetActivity(c.Request.Context(), nil, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Activity not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, activity)
}

func (h *LRSHandler) About(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":    []string{"1.0.3"},
		"extensions": gin.H{},
	})
}

func (h *LRSHandler) Stats(c *gin.Context) {
	stats, err := h.statementService.Stats(c.Request.Context(), nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
