// Package event 提供进程内的工单变更事件总线。
// 订阅方按公司过滤接收事件，推送为至多一次：订阅缓冲满时直接丢弃。
package event

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 事件类型
const (
	KindCreated            = "service_request.created"
	KindStatusUpdated      = "service_request.status_updated"
	KindTechnicianAssigned = "service_request.technician_assigned"
	KindNotesUpdated       = "service_request.notes_updated"
	KindMediaAdded         = "service_request.media_added"
	KindUpdated            = "service_request.updated"
)

// Event 工单变更事件
type Event struct {
	Kind      string      `json:"kind"`
	CompanyID string      `json:"company_id"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Subscriber 事件订阅
type Subscriber struct {
	ID string
	// CompanyID 为空表示接收全部公司的事件
	CompanyID string
	Events    chan Event
}

// Bus 事件总线。发布不阻塞，慢订阅者丢事件。
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	bufferSize  int
	logger      *zap.Logger
}

// NewBus 创建事件总线
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		subscribers: make(map[string]*Subscriber),
		bufferSize:  16,
		logger:      logger,
	}
}

// Subscribe 注册订阅，companyID 为空表示订阅全部事件
func (b *Bus) Subscribe(companyID string) *Subscriber {
	sub := &Subscriber{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Events:    make(chan Event, b.bufferSize),
	}

	b.mu.Lock()
	b.subscribers[sub.ID] = sub
	b.mu.Unlock()

	b.logger.Debug("subscriber registered",
		zap.String("subscriber_id", sub.ID),
		zap.String("company_id", companyID))
	return sub
}

// Unsubscribe 取消订阅并关闭事件通道
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	if ok {
		close(sub.Events)
		b.logger.Debug("subscriber removed", zap.String("subscriber_id", id))
	}
}

// Publish 向匹配的订阅者投递事件。订阅缓冲满时丢弃该订阅者的这条事件。
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if sub.CompanyID != "" && sub.CompanyID != evt.CompanyID {
			continue
		}
		select {
		case sub.Events <- evt:
		default:
			b.logger.Warn("subscriber buffer full, dropping event",
				zap.String("subscriber_id", sub.ID),
				zap.String("kind", evt.Kind))
		}
	}
}

// SubscriberCount 当前订阅数
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close 关闭所有订阅
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subscribers {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}
