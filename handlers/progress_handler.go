package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/AgriPilot/agripilot-backend/config"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/AgriPilot/agripilot-backend/middleware"
	"github.com/AgriPilot/agripilot-backend/models"
	"github.com/AgriPilot/agripilot-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	progressWriteTimeout = 10 * time.Second
	progressPingInterval = 30 * time.Second
)

// ProgressHandler streams pipeline run progress over WebSocket.
type ProgressHandler struct {
	log            *zap.SugaredLogger
	pipelineModel  *models.PipelineModel
	events         types.EventPublisher
	allowedOrigins []string
	isDevelopment  bool
}

func NewProgressHandler(pipelineModel *models.PipelineModel, events types.EventPublisher, serverCfg *config.ServerConfig) *ProgressHandler {
	return &ProgressHandler{
		log:            logger.GetLogger().Named("progress_handler"),
		pipelineModel:  pipelineModel,
		events:         events,
		allowedOrigins: serverCfg.AllowedOrigins,
		isDevelopment:  serverCfg.Environment == config.EnvDevelopment,
	}
}

func (h *ProgressHandler) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	}
	if h.isDevelopment {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.allowedOrigins
	}
	return opts
}

// StreamProgressHandler godoc
// @Summary Stream pipeline progress
// @Description Upgrades to a WebSocket and streams progress events for one
// @Description pipeline run until the run finishes or the client disconnects.
// @Tags pipelines
// @Param runID path string true "Pipeline run ID"
// @Success 101 "Switching Protocols"
// @Failure 404 {object} middleware.ErrorResponse
// @Router /pipelines/{runID}/progress [get]
// @Security BearerAuth
func (h *ProgressHandler) StreamProgressHandler(c *gin.Context) {
	runID := c.Param("runID")
	userID := c.GetString(string(middleware.UserIDKey))

	run, err := h.pipelineModel.GetRun(c.Request.Context(), runID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, h.acceptOptions())
	if err != nil {
		h.log.Errorw("Failed to accept WebSocket connection",
			"runID", runID,
			"userID", userID,
			"error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	subscriberID := uuid.NewString()
	eventCh, err := h.events.Subscribe(ctx, runID, subscriberID)
	if err != nil {
		h.log.Errorw("Failed to subscribe to run events",
			"runID", runID,
			"subscriberID", subscriberID,
			"error", err)
		_ = conn.Close(websocket.StatusInternalError, "subscription failed")
		return
	}
	defer func() {
		if err := h.events.Unsubscribe(context.Background(), runID, subscriberID); err != nil {
			h.log.Warnw("Failed to unsubscribe from run events",
				"runID", runID,
				"subscriberID", subscriberID,
				"error", err)
		}
	}()

	// Snapshot first so late subscribers see the current state before
	// any live events.
	if err := h.writeSnapshot(ctx, conn, run); err != nil {
		return
	}

	// Drain client frames so pongs and close frames are processed.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				cancel()
				return
			}
		}
	}()

	pingTicker := time.NewTicker(progressPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-pingTicker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, progressWriteTimeout)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				h.log.Debugw("WebSocket ping failed, closing stream",
					"runID", runID,
					"subscriberID", subscriberID)
				return
			}

		case event, ok := <-eventCh:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "event stream closed")
				return
			}
			if err := h.writeEvent(ctx, conn, event); err != nil {
				if !errors.Is(err, context.Canceled) {
					h.log.Debugw("Failed to write event to WebSocket",
						"runID", runID,
						"subscriberID", subscriberID,
						"error", err)
				}
				return
			}
			if event.Type == types.EventTypePipelineCompleted || event.Type == types.EventTypePipelineFailed {
				_ = conn.Close(websocket.StatusNormalClosure, "run finished")
				return
			}
		}
	}
}

func (h *ProgressHandler) writeSnapshot(ctx context.Context, conn *websocket.Conn, run *types.PipelineRun) error {
	writeCtx, cancel := context.WithTimeout(ctx, progressWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, gin.H{
		"type": "snapshot",
		"run":  run,
	})
}

func (h *ProgressHandler) writeEvent(ctx context.Context, conn *websocket.Conn, event types.Event) error {
	writeCtx, cancel := context.WithTimeout(ctx, progressWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, event)
}
