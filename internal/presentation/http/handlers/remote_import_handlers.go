package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/atomic-builder-go/internal/application/services"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/logging"
)

// RemoteImportRequest lists the images a remote design source offered and
// the bitmaps of the ones the user selected, base64 encoded and keyed by
// remote id.
type RemoteImportRequest struct {
	Candidates []services.RemoteCandidate `json:"candidates" binding:"required,dive"`
	Bitmaps    map[string][]byte          `json:"bitmaps"`
}

// RemoteImportHandlers serves imports from a remote design source.
type RemoteImportHandlers struct {
	remoteImportService *services.RemoteImportService
	logger              *logging.ChanneledLogger
}

// NewRemoteImportHandlers creates remote import handlers with injected dependencies
func NewRemoteImportHandlers(remoteImportService *services.RemoteImportService, logger *logging.ChanneledLogger) *RemoteImportHandlers {
	return &RemoteImportHandlers{
		remoteImportService: remoteImportService,
		logger:              logger,
	}
}

// ImportRemote adds the selected bitmaps as images in one batch.
func (h *RemoteImportHandlers) ImportRemote(c *gin.Context) {
	start := time.Now()
	var req RemoteImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	images, change, err := h.remoteImportService.Import(req.Candidates, req.Bitmaps)
	if err != nil {
		respondError(c, err)
		return
	}

	summaries := make([]ImageSummary, len(images))
	for i, img := range images {
		summaries[i] = summarize(img)
	}
	h.logger.HTTP().Info("Remote import request completed",
		"candidates", len(req.Candidates), "imported", len(images), "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{
		"images":   summaries,
		"count":    len(summaries),
		"revision": change.Revision,
	})
}
