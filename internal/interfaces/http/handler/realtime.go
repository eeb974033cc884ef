package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/infrastructure/logger"
	"github.com/ribotflow/backend/internal/infrastructure/realtime"
	"github.com/ribotflow/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// RealtimeHub accepts websocket subscribers
type RealtimeHub interface {
	Serve(w http.ResponseWriter, r *http.Request, tenantID, userID uuid.UUID, subscribe []string) error
}

// RealtimeHandler upgrades authenticated requests to change-feed websockets
type RealtimeHandler struct {
	BaseHandler
	hub RealtimeHub
}

// NewRealtimeHandler creates a new RealtimeHandler
func NewRealtimeHandler(hub RealtimeHub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Subscribe godoc
// @Summary      Subscribe to table changes
// @Description  Upgrades to a websocket that pushes INSERT, UPDATE and DELETE messages for the tenant. Browsers pass the token as access_token.
// @Tags         realtime
// @Param        tables query string false "Comma separated tables, all when empty"
// @Param        access_token query string false "Access token"
// @Success      101
// @Failure      401 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /ws [get]
func (h *RealtimeHandler) Subscribe(c *gin.Context) {
	tenantID, userID, ok := h.caller(c)
	if !ok {
		return
	}
	err := h.hub.Serve(c.Writer, c.Request, tenantID, userID, realtime.ParseTables(c.Query("tables")))
	if err == nil {
		return
	}
	if errors.Is(err, realtime.ErrHubClosed) {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Realtime is shutting down")
		return
	}
	// the upgrader has already answered the client
	logger.L(c.Request.Context()).Debug("Websocket upgrade failed", zap.Error(err))
}
