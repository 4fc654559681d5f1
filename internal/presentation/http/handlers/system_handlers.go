package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AtRiskMedia/atomic-builder-go/internal/application/container"
	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/document"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/logging"
)

// SetLogLevelRequest changes one channel's level.
type SetLogLevelRequest struct {
	Channel string `json:"channel" binding:"required"`
	Level   string `json:"level" binding:"required,oneof=DEBUG INFO WARN ERROR"`
}

// SystemHandlers serves the revision websocket, the live log stream and the
// operational endpoints.
type SystemHandlers struct {
	container *container.Container
	upgrader  websocket.Upgrader
	started   time.Time
}

// NewSystemHandlers creates system handlers. Websocket upgrades are accepted
// from allowOrigins and from clients that send no Origin header.
func NewSystemHandlers(container *container.Container, allowOrigins []string) *SystemHandlers {
	allowed := make(map[string]bool, len(allowOrigins))
	for _, origin := range allowOrigins {
		allowed[origin] = true
	}
	return &SystemHandlers{
		container: container,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		started: time.Now(),
	}
}

// Health reports liveness and the current revision.
func (h *SystemHandlers) Health(c *gin.Context) {
	body := gin.H{
		"status":           "ok",
		"revision":         h.container.Store.Revision(),
		"uptime":           time.Since(h.started).Round(time.Second).String(),
		"websocketClients": h.container.ProjectBroadcaster.ClientCount(),
		"pendingCrops":     h.container.RenderService.Pending(),
	}
	if h.container.LogBroadcaster != nil {
		body["droppedLogs"] = h.container.LogBroadcaster.Dropped()
	}
	c.JSON(http.StatusOK, body)
}

// ProjectSocket upgrades to a websocket that receives a message after every
// committed mutation, starting with the current revision.
func (h *SystemHandlers) ProjectSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered the request.
		h.container.Logger.HTTP().Warn("Websocket upgrade failed", "error", err, "origin", c.GetHeader("Origin"))
		return
	}
	client := messaging.NewClient(conn)
	h.container.Logger.HTTP().Info("Websocket client connected", "clientId", client.ID, "remote", c.ClientIP())

	current := document.Change{Revision: h.container.Store.Revision(), Command: "connect"}
	h.container.ProjectBroadcaster.Serve(client, current)

	h.container.Logger.HTTP().Info("Websocket client disconnected", "clientId", client.ID)
}

// StreamLogs handles the SSE connection for live log streaming.
func (h *SystemHandlers) StreamLogs(c *gin.Context) {
	broadcaster := h.container.LogBroadcaster
	if broadcaster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "log streaming is disabled"})
		return
	}

	levelFilter := c.DefaultQuery("level", "INFO")
	logLevel, err := logging.ParseLevel(levelFilter)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filters := logging.AppliedFilters{
		Channel: logging.Channel(c.DefaultQuery("channel", "all")),
		Level:   logLevel,
	}

	client := broadcaster.NewClient(filters)
	if !broadcaster.RegisterClient(client) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "log streaming has stopped"})
		return
	}
	defer broadcaster.UnregisterClient(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(c.Writer, ": connection established\n\n")
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case message, ok := <-client.Channel:
			if !ok {
				return false
			}
			fmt.Fprintf(w, "data: %s\n\n", message)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// GetLogLevels returns the current level of every channel.
func (h *SystemHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, h.container.Logger.GetChannelLevels())
}

// SetLogLevel sets the level of one channel.
func (h *SystemHandlers) SetLogLevel(c *gin.Context) {
	var req SetLogLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	level, err := logging.ParseLevel(req.Level)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.container.Logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Failed to set log level", "details": err.Error(), "channels": logging.ChannelNames()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": fmt.Sprintf("Log level for channel '%s' set to '%s'", req.Channel, req.Level)})
}

// GetCacheStats reports the render cache contents.
func (h *SystemHandlers) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats":   h.container.RenderService.CacheStats(),
		"entries": h.container.RenderService.CacheEntries(),
		"pending": h.container.RenderService.Pending(),
	})
}

// ClearCache empties the render cache.
func (h *SystemHandlers) ClearCache(c *gin.Context) {
	h.container.RenderService.ClearCache()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "stats": h.container.RenderService.CacheStats()})
}

// GetPerformance reports request timings per route.
func (h *SystemHandlers) GetPerformance(c *gin.Context) {
	c.JSON(http.StatusOK, h.container.PerfTracker.Summary())
}

// ResetPerformance discards recorded timings.
func (h *SystemHandlers) ResetPerformance(c *gin.Context) {
	h.container.PerfTracker.Reset()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
