package api

import (
	"github.com/gin-gonic/gin"

	"github.com/majjihemanthkumar/mentimeter/internal/session"
	"github.com/majjihemanthkumar/mentimeter/pkg/response"
)

// Handler exposes read-only snapshots of session state over HTTP. Every
// endpoint is a side-effect-free read against the directory.
type Handler struct {
	dir *session.Directory
}

// NewHandler creates a snapshot handler.
func NewHandler(dir *session.Directory) *Handler {
	return &Handler{dir: dir}
}

// Register mounts the snapshot routes on a router group.
func (h *Handler) Register(r *gin.RouterGroup) {
	r.GET("/session/:code", h.GetSession)
	r.GET("/session/:code/results", h.GetResults)
	r.GET("/session/:code/info", h.GetInfo)
}

// GetSession handles GET /api/session/:code (existence + metadata, used by
// the join page before connecting).
func (h *Handler) GetSession(c *gin.Context) {
	e, ok := h.dir.LookupByCode(c.Param("code"))
	if !ok {
		response.NotFound(c, "session not found")
		return
	}
	response.OK(c, gin.H{
		"exists":           true,
		"name":             e.Name(),
		"code":             e.Code(),
		"participantCount": e.ParticipantCount(),
		"isActive":         e.IsActive(),
	})
}

// GetResults handles GET /api/session/:code/results (the current activity's
// live projection).
func (h *Handler) GetResults(c *gin.Context) {
	e, ok := h.dir.LookupByCode(c.Param("code"))
	if !ok {
		response.NotFound(c, "session not found")
		return
	}
	projection, ok := e.CurrentProjection()
	if !ok {
		response.OK(c, gin.H{"hasActivity": false})
		return
	}
	response.OK(c, gin.H{"hasActivity": true, "activity": projection})
}

// GetInfo handles GET /api/session/:code/info (the full session summary for
// the presenter dashboard).
func (h *Handler) GetInfo(c *gin.Context) {
	e, ok := h.dir.LookupByCode(c.Param("code"))
	if !ok {
		response.NotFound(c, "session not found")
		return
	}
	response.OK(c, e.Summary())
}
