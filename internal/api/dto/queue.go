package dto

import "time"

// LiveQueueItemDTO 实时队列列表项
type LiveQueueItemDTO struct {
	ConversationID         string              `json:"conversation_id"`
	CustomerID             uint64              `json:"customer_id"`
	PersonaID              uint64              `json:"persona_id"`
	AssignedAgentID        uint64              `json:"assigned_agent_id"`
	Status                 string              `json:"status"`
	Type                   string              `json:"type"`
	Priority               int                 `json:"priority"`
	UnreadCount            int                 `json:"unread_count"`
	ReminderCount          int                 `json:"reminder_count"`
	LastMessage            *LastMessageSummary `json:"last_message"`
	LastCustomerResponseAt *time.Time          `json:"last_customer_response_at"`
	LastAgentResponseAt    *time.Time          `json:"last_agent_response_at"`
	UpdatedAt              time.Time           `json:"updated_at"`
}

// LastMessageSummary 列表摘要，不携带完整消息体
type LastMessageSummary struct {
	MessageID string    `json:"message_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	MsgType   string    `json:"msg_type"`
	SentAt    time.Time `json:"sent_at"`
}

// QueueMetaDTO 轮询端点元数据块
type QueueMetaDTO struct {
	TotalCount     int       `json:"totalCount"`
	Timestamp      time.Time `json:"timestamp"`
	ResponseTimeMs int64     `json:"responseTimeMs"`
	FromCache      bool      `json:"fromCache"`
}

// LiveQueueListDTO 批量分类列表响应
type LiveQueueListDTO struct {
	Items []LiveQueueItemDTO `json:"items"`
	Meta  QueueMetaDTO       `json:"meta"`
}
