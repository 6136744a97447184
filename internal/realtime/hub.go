// Package realtime 提供基于 WebSocket 的房间推送。
// 客户端加入 company:{id} 房间接收该公司的工单事件，所有事件同时广播到 global 房间。
package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bitfantasy/fixdesk/internal/event"
)

const (
	// GlobalRoom 所有事件都会广播到该房间
	GlobalRoom = "global"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 16
)

// CompanyRoom 公司房间名
func CompanyRoom(companyID string) string {
	return fmt.Sprintf("company:%s", companyID)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientMessage 客户端指令
type clientMessage struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

// Client 一个 WebSocket 连接
type Client struct {
	id    string
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	rooms map[string]bool
	mu    sync.Mutex
}

// Hub 管理连接与房间
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
	bus     *event.Bus
	logger  *zap.Logger
	done    chan struct{}
}

// NewHub 创建房间中心
func NewHub(bus *event.Bus, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
		bus:     bus,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Run 消费总线事件并写入对应房间，在 main 中以 goroutine 启动
func (h *Hub) Run() {
	sub := h.bus.Subscribe("")
	defer h.bus.Unsubscribe(sub.ID)

	for {
		select {
		case evt, ok := <-sub.Events:
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				h.logger.Error("failed to marshal event", zap.Error(err))
				continue
			}
			h.broadcast(CompanyRoom(evt.CompanyID), data)
			h.broadcast(GlobalRoom, data)
		case <-h.done:
			return
		}
	}
}

// Stop 停止事件转发并断开所有连接
func (h *Hub) Stop() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.rooms = make(map[string]map[*Client]bool)
}

// ServeWS 升级 HTTP 连接并接管消息循环
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:    uuid.New().String(),
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		rooms: make(map[string]bool),
	}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", zap.String("client_id", client.id))

	go client.writePump()
	go client.readPump()
}

func (h *Hub) joinRoom(c *Client, room string) {
	if room == "" {
		return
	}

	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][c] = true
	h.mu.Unlock()

	c.mu.Lock()
	c.rooms[room] = true
	c.mu.Unlock()

	h.logger.Debug("client joined room",
		zap.String("client_id", c.id), zap.String("room", room))
}

func (h *Hub) leaveRoom(c *Client, room string) {
	h.mu.Lock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()

	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	c.mu.Lock()
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	c.mu.Unlock()
	for _, room := range rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	close(c.send)
	h.mu.Unlock()

	h.logger.Debug("websocket client disconnected", zap.String("client_id", c.id))
}

// broadcast 向房间内所有连接写入消息，发送缓冲满则丢弃
func (h *Hub) broadcast(room string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[room] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("client send buffer full, dropping message",
				zap.String("client_id", c.id), zap.String("room", room))
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read error",
					zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Action {
		case "join_room":
			c.hub.joinRoom(c, msg.Room)
		case "leave_room":
			c.hub.leaveRoom(c, msg.Room)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
