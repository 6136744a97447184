package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bitfantasy/fixdesk/internal/event"
)

// SSEHandler SSE推送处理器
type SSEHandler struct {
	bus    *event.Bus
	logger *zap.Logger
}

// NewSSEHandler 创建SSE处理器
func NewSSEHandler(bus *event.Bus, logger *zap.Logger) *SSEHandler {
	return &SSEHandler{bus: bus, logger: logger}
}

// Stream 按公司订阅工单变更事件流
// GET /api/v1/realtime/stream?company_id=xxx
func (h *SSEHandler) Stream(c *gin.Context) {
	companyID := c.Query("company_id")
	if companyID == "" {
		BadRequest(c, "company_id is required")
		return
	}

	sub := h.bus.Subscribe(companyID)
	defer h.bus.Unsubscribe(sub.ID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Writer.WriteString("event: connected\ndata: {\"subscriber_id\":\"" + sub.ID + "\"}\n\n")
	c.Writer.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			return
		case evt, ok := <-sub.Events:
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				h.logger.Error("failed to marshal sse event", zap.Error(err))
				continue
			}
			c.Writer.WriteString(fmt.Sprintf("event: %s\ndata: %s\n\n", evt.Kind, data))
			c.Writer.Flush()
		case <-heartbeat.C:
			c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}
