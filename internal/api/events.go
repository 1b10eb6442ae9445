// Package api WebSocket 变更网关
//
// 网关向所有已连接客户端推送用户变更事件，
// 前端据此即时刷新列表而无需轮询。
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"users-admin/internal/shared/model"
)

// 变更事件类型
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// upgrader WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// UserEvent 推送的事件消息
type UserEvent struct {
	Type string      `json:"type"`
	Data *model.User `json:"data"`
}

// wsClient 单个 WebSocket 连接
//
// gorilla/websocket 同一连接同时只允许一个写入者：
// 广播来自各 HTTP 处理协程，pong 来自连接的读协程，
// 所有写入都必须先持有该连接的写锁。
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// writeJSON 在写锁保护下写入一条消息
func (c *wsClient) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(v)
}

// EventGateway WebSocket 变更网关
//
// 负责管理连接、在每次成功变更后向全部客户端广播事件。
type EventGateway struct {
	metrics *Metrics
	mu      sync.RWMutex
	clients map[*wsClient]bool
}

// NewEventGateway 创建变更网关实例
func NewEventGateway(metrics *Metrics) *EventGateway {
	return &EventGateway{
		metrics: metrics,
		clients: make(map[*wsClient]bool),
	}
}

// HandleWebSocket 处理 WebSocket 连接请求
//
// 路由: GET /ws/users
//
// 推送消息格式：{"type": "user.created"|"user.updated"|"user.deleted", "data": {...}}
// 客户端消息：{"type": "ping"} -> 响应 {"type": "pong"}
func (g *EventGateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &wsClient{conn: conn}

	g.mu.Lock()
	g.clients[client] = true
	g.mu.Unlock()
	if g.metrics != nil {
		g.metrics.WSConnectionsActive.Inc()
	}

	defer func() {
		g.mu.Lock()
		delete(g.clients, client)
		g.mu.Unlock()
		if g.metrics != nil {
			g.metrics.WSConnectionsActive.Dec()
		}
		conn.Close()
	}()

	// 读循环：处理心跳，连接关闭时退出
	for {
		var msg map[string]string
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg["type"] == "ping" {
			if err := client.writeJSON(map[string]string{"type": "pong"}); err != nil {
				return
			}
		}
	}
}

// Broadcast 向所有客户端推送变更事件
//
// 写失败的连接直接关闭，由其读循环负责清理。
func (g *EventGateway) Broadcast(eventType string, u *model.User) {
	event := UserEvent{Type: eventType, Data: u}

	g.mu.RLock()
	clients := make([]*wsClient, 0, len(g.clients))
	for c := range g.clients {
		clients = append(clients, c)
	}
	g.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(event); err != nil {
			c.conn.Close()
		}
	}
}

// ClientCount 当前连接数
func (g *EventGateway) ClientCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}
