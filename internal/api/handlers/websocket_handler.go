package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	syncpkg "github.com/arcanthyr/backend/internal/sync"
	"github.com/arcanthyr/backend/pkg/logger"
)

// SyncStreamHandler runs a sync over a websocket connection, streaming
// each pipeline event as it happens.
type SyncStreamHandler struct {
	orchestrator *syncpkg.Orchestrator
}

func NewSyncStreamHandler(orchestrator *syncpkg.Orchestrator) *SyncStreamHandler {
	return &SyncStreamHandler{orchestrator: orchestrator}
}

// HandleConnection waits for a {"type":"start"} message, then runs the
// sync and forwards every progress event. The run itself is not tied to
// the connection's lifetime once started; write failures are logged and
// the run completes regardless.
func (h *SyncStreamHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("Sync stream connection established")

	defer func() {
		c.Close()
		logger.Info("Sync stream connection closed")
	}()

	for {
		var msg struct {
			Type string `json:"type"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("Sync stream read ended", zap.Error(err))
			return
		}

		if msg.Type != "start" {
			continue
		}

		h.streamRun(c)
	}
}

func (h *SyncStreamHandler) streamRun(c *websocket.Conn) {
	result, err := h.orchestrator.RunWithProgress(context.Background(), func(p syncpkg.Progress) {
		event := map[string]interface{}{
			"type":     "progress",
			"stage":    p.Stage,
			"citation": p.Citation,
			"message":  p.Message,
		}
		if writeErr := c.WriteJSON(event); writeErr != nil {
			logger.Warn("Failed to stream sync progress", zap.Error(writeErr))
		}
	})

	if errors.Is(err, syncpkg.ErrRunInProgress) {
		h.sendError(c, "A sync run is already in progress.")
		return
	}
	if err != nil {
		logger.Error("Streamed sync run failed", zap.Error(err))
		h.sendError(c, "Sync run failed")
		return
	}

	complete := map[string]interface{}{
		"type":            "complete",
		"processed_count": result.ProcessedCount,
		"failed_count":    result.FailedCount,
		"errors":          result.Errors,
	}
	if err := c.WriteJSON(complete); err != nil {
		logger.Warn("Failed to send sync completion", zap.Error(err))
	}
}

func (h *SyncStreamHandler) sendError(c *websocket.Conn, errorMsg string) {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}
	if err := c.WriteJSON(msg); err != nil {
		logger.Warn("Failed to send sync stream error", zap.Error(err))
	}
}
