package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/fixdesk/internal/realtime"
)

// WSHandler WebSocket房间处理器
type WSHandler struct {
	hub *realtime.Hub
}

// NewWSHandler 创建WebSocket处理器
func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Serve 升级连接并交给房间中心
// GET /api/v1/ws
func (h *WSHandler) Serve(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}
