package dto

import "time"

// 推送消息类型判别值
const (
	EnvelopeChatMessage     = "chat_message"
	EnvelopeLiveQueueUpdate = "live_queue_update"
	EnvelopeReminderUpdates = "reminder_updates"
	EnvelopeUserPresence    = "user_presence"
	EnvelopeMessageDeleted  = "message_deleted"
	EnvelopeError           = "error"
)

// 入站帧类型
const (
	InboundChatMessage = "chat_message"
	InboundMarkRead    = "mark_read"
	InboundPing        = "ping"
)

// LiveQueueUpdateDTO 队列增量通知，操作端收到后刷新列表
type LiveQueueUpdateDTO struct {
	Type           string              `json:"type"`
	ConversationID string              `json:"conversation_id"`
	Action         string              `json:"action"`
	UnreadCount    int                 `json:"unread_count"`
	LastMessage    *LastMessageSummary `json:"last_message"`
	Timestamp      time.Time           `json:"timestamp"`
}

// ReminderUpdatesDTO 扫描聚合通知，只带计数不带会话体，
// 客户端收到后自行重拉列表，避免增量与全量快照之间的顺序问题
type ReminderUpdatesDTO struct {
	Type           string    `json:"type"`
	ActivatedCount int       `json:"activatedCount"`
	EscalatedCount int       `json:"escalatedCount"`
	Timestamp      time.Time `json:"timestamp"`
}

// PresenceDTO 在线状态变更
type PresenceDTO struct {
	Type      string    `json:"type"`
	ActorID   uint64    `json:"actor_id"`
	Role      string    `json:"role"`
	Status    string    `json:"status"` // online / offline
	Timestamp time.Time `json:"timestamp"`
}

// MessageDeletedDTO 消息删除通知
type MessageDeletedDTO struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Sender         string    `json:"sender"`
	Timestamp      time.Time `json:"timestamp"`
}

// ErrorDTO 会话级错误，只回发给出错的连接，从不广播
type ErrorDTO struct {
	Type           string `json:"type"`
	Code           int    `json:"code"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// InboundFrame socket 入站帧，按 Type 分发
type InboundFrame struct {
	Type             string `json:"type"`
	ConversationID   string `json:"conversation_id"`
	Content          string `json:"content"`
	MsgType          string `json:"msg_type"`
	ClientSuppliedID string `json:"client_supplied_id"`
}
