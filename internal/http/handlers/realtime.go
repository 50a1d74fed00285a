package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/launchsignal/validator-backend/internal/platform/ctxutil"
	"github.com/launchsignal/validator-backend/internal/platform/logger"
	"github.com/launchsignal/validator-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /api/sse/stream
//
// Every connection subscribes to the caller's user channel, where all job
// and pipeline progress events for that user land.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	userID := ctxutil.UserID(c.Request.Context())
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "not authenticated", "code": "unauthorized"}})
		return
	}

	client := h.hub.NewSSEClient(userID)
	h.hub.AddChannel(client, userID.String())
	h.log.Info("SSE stream open", "user_id", userID, "client_id", client.ID)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Info("SSE stream closed", "user_id", userID, "client_id", client.ID)
}
