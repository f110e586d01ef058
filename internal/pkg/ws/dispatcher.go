package ws

import (
	"Lighthouse/internal/api/dto"
	"Lighthouse/internal/pkg/cache"
	"Lighthouse/internal/pkg/consts"
	"context"
	"time"

	"github.com/goccy/go-json"
)

// PublishFunc 总线发布函数，生产环境走 Redis Pub/Sub
type PublishFunc func(ctx context.Context, channel string, payload interface{}) error

// BusFrame 内部总线帧：路由元数据 + 已序列化的客户端载荷。
// Hub 只看元数据决定投递给谁，不解开 Payload。
type BusFrame struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	CustomerID     uint64          `json:"customer_id,omitempty"`
	Payload        json.RawMessage `json:"payload"`
}

// Dispatcher 领域事件到实时推送的出口。
// 同一条逻辑消息可能经 HTTP 写入与 socket 回显两条路径到达，
// 写路径落库前用 ShouldSuppress 按 (conversationId, clientSuppliedId) 去重。
type Dispatcher struct {
	idem    *cache.TTLStore
	publish PublishFunc
	channel string
	now     func() time.Time
}

func NewDispatcher(idem *cache.TTLStore, publish PublishFunc) *Dispatcher {
	return &Dispatcher{
		idem:    idem,
		publish: publish,
		channel: consts.DispatchChannel,
		now:     time.Now,
	}
}

// ShouldSuppress TTL 窗口内重复的客户端消息 ID 返回 true。
// 缓存尽力而为，条目提前丢失最多造成一次重复推送，权威记录在存储里。
func (d *Dispatcher) ShouldSuppress(conversationID, clientSuppliedID string) bool {
	if clientSuppliedID == "" {
		return false
	}
	return d.idem.Touch(conversationID + ":" + clientSuppliedID)
}

// BroadcastMessage 推送消息本体与队列增量通知
func (d *Dispatcher) BroadcastMessage(ctx context.Context, customerID uint64, msg *dto.ChatMessageDTO, unreadCount int, last *dto.LastMessageSummary) error {
	msg.Type = dto.EnvelopeChatMessage
	if err := d.emit(ctx, dto.EnvelopeChatMessage, msg.ConversationID, customerID, msg); err != nil {
		return err
	}

	update := &dto.LiveQueueUpdateDTO{
		Type:           dto.EnvelopeLiveQueueUpdate,
		ConversationID: msg.ConversationID,
		Action:         "message_added",
		UnreadCount:    unreadCount,
		LastMessage:    last,
		Timestamp:      msg.Timestamp,
	}
	return d.emit(ctx, dto.EnvelopeLiveQueueUpdate, msg.ConversationID, customerID, update)
}

// BroadcastMessageDeleted 推送删除通知
func (d *Dispatcher) BroadcastMessageDeleted(ctx context.Context, customerID uint64, deleted *dto.MessageDeletedDTO) error {
	deleted.Type = dto.EnvelopeMessageDeleted
	return d.emit(ctx, dto.EnvelopeMessageDeleted, deleted.ConversationID, customerID, deleted)
}

// BroadcastReminderUpdates 扫描聚合通知，只带计数，客户端自行重拉列表
func (d *Dispatcher) BroadcastReminderUpdates(ctx context.Context, activated int, escalated int) error {
	payload := &dto.ReminderUpdatesDTO{
		Type:           dto.EnvelopeReminderUpdates,
		ActivatedCount: activated,
		EscalatedCount: escalated,
		Timestamp:      d.now(),
	}
	return d.emit(ctx, dto.EnvelopeReminderUpdates, "", 0, payload)
}

// BroadcastPresence 在线状态变更
func (d *Dispatcher) BroadcastPresence(ctx context.Context, presence *dto.PresenceDTO) error {
	presence.Type = dto.EnvelopeUserPresence
	return d.emit(ctx, dto.EnvelopeUserPresence, "", 0, presence)
}

func (d *Dispatcher) emit(ctx context.Context, frameType, conversationID string, customerID uint64, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	frame := BusFrame{
		Type:           frameType,
		ConversationID: conversationID,
		CustomerID:     customerID,
		Payload:        body,
	}
	raw, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return d.publish(ctx, d.channel, raw)
}
