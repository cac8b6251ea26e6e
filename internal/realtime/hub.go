package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/AbodeTech/Liquidity-sub001/internal/types"
	"github.com/sirupsen/logrus"
)

// StatusChangeEvent 推送给客户端的状态变更事件
type StatusChangeEvent struct {
	Type          string    `json:"type"` // 固定为 status_change
	ApplicationID string    `json:"application_id"`
	FromStatus    string    `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	Actor         string    `json:"actor"`
	OccurredAt    time.Time `json:"occurred_at"`

	// 路由用,不进推送负载
	applicantID string
}

// Hub 管理所有 WebSocket 连接
// 状态变更事件推送给申请所有者和全部管理员连接
type Hub struct {
	// 已注册的客户端
	clients map[*Client]bool

	// 注册新客户端
	Register chan *Client

	// 注销客户端
	Unregister chan *Client

	// 待分发的事件
	events chan *StatusChangeEvent

	// 互斥锁，保护 clients map
	mu sync.RWMutex
}

// NewHub 创建新的 Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		events:     make(chan *StatusChangeEvent, 64),
	}
}

// Run 运行 Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()

		case event := <-h.events:
			h.dispatch(event)
		}
	}
}

// NotifyStatusChange 入队一次状态变更事件
// 从状态转换事务之后调用,不阻塞调用方:队列满时事件被丢弃并记日志
func (h *Hub) NotifyStatusChange(applicationID, applicantID string, from, to types.ApplicationStatus, actor string) {
	event := &StatusChangeEvent{
		Type:          "status_change",
		ApplicationID: applicationID,
		FromStatus:    string(from),
		ToStatus:      string(to),
		Actor:         actor,
		OccurredAt:    time.Now(),
	}
	event.applicantID = applicantID

	select {
	case h.events <- event:
	default:
		logrus.WithField("application_id", applicationID).Warn("realtime event queue full, dropping status change event")
	}
}

// dispatch 将事件发给申请所有者和管理员连接
func (h *Hub) dispatch(event *StatusChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal status change event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.Role != types.RoleAdministrator && client.UserID != event.applicantID {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			close(client.Send)
			delete(h.clients, client)
		}
	}
}

// GetClientCount 获取客户端数量
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
