package notify

import (
	"encoding/json"
	"sync"
	"time"

	"Tunedrop/logger"
	"Tunedrop/model"

	"github.com/gorilla/websocket"
)

// Client 一个用户的一条 WebSocket 连接
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID int64
}

// NewClient 创建客户端
func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, 32),
		UserID: userID,
	}
}

// Hub 按用户管理通知连接，一个用户可以同时开多个页面
type Hub struct {
	users map[int64]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	mu   sync.RWMutex
	done chan struct{}
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		users:      make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 主循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.users[client.UserID] == nil {
				h.users[client.UserID] = make(map[*Client]bool)
			}
			h.users[client.UserID][client] = true
			h.mu.Unlock()
			logger.Debug("notification client registered", logger.Int64("user", client.UserID))

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeClient(client)
			h.mu.Unlock()

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub
func (h *Hub) Stop() {
	close(h.done)
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// removeClient 需要持有锁
func (h *Hub) removeClient(client *Client) {
	clients, ok := h.users[client.UserID]
	if !ok {
		return
	}
	if _, ok := clients[client]; ok {
		delete(clients, client)
		close(client.Send)
	}
	if len(clients) == 0 {
		delete(h.users, client.UserID)
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.users {
		for client := range clients {
			close(client.Send)
		}
	}
	h.users = make(map[int64]map[*Client]bool)
}

// ConnectionCount 返回用户当前连接数
func (h *Hub) ConnectionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Push 推送通知给用户的所有连接，返回送达的连接数
func (h *Hub) Push(n *model.Notification) int {
	data, err := json.Marshal(n)
	if err != nil {
		logger.Warn("failed to marshal notification", logger.ErrorField(err))
		return 0
	}

	// 持有读锁发送：removeClient 在写锁下关闭 Send
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.users[n.UserID] {
		select {
		case client.Send <- data:
			delivered++
		default:
			// 缓冲区满，断开慢连接
			go h.Unregister(client)
		}
	}
	return delivered
}

// ReadPump 只处理关闭和心跳，客户端不会发业务消息
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("notification websocket read error",
					logger.ErrorField(err),
					logger.Int64("user", c.UserID))
			}
			return
		}
	}
}

// WritePump 写入消息循环
func (c *Client) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
