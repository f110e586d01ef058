package dto

import "time"

// SendMessageReq 发送消息请求体。
// ClientSuppliedID 由客户端生成，同一条消息经 HTTP 与 socket 两条路径
// 重复到达时据此去重。
type SendMessageReq struct {
	ConversationID   string `json:"conversation_id"`
	TargetAgentID    uint64 `json:"target_agent_id"`
	PersonaID        uint64 `json:"persona_id"`
	MsgType          string `json:"msg_type" binding:"required,oneof=text attachment"`
	Content          string `json:"content" binding:"required"`
	ClientSuppliedID string `json:"client_supplied_id"`
}

// ChatMessageDTO 消息推送/响应明细
type ChatMessageDTO struct {
	Type             string    `json:"type"`
	ConversationID   string    `json:"conversation_id"`
	MessageID        string    `json:"message_id"`
	Sender           string    `json:"sender"`
	Content          string    `json:"content"`
	MsgType          string    `json:"msg_type"`
	Timestamp        time.Time `json:"timestamp"`
	ReadByAgent      bool      `json:"read_by_agent"`
	ReadByCustomer   bool      `json:"read_by_customer"`
	IsEdited         bool      `json:"is_edited"`
	IsDeleted        bool      `json:"is_deleted"`
	ClientSuppliedID string    `json:"client_supplied_id,omitempty"`
}

// MarkAsReadReq 标记会话内客户消息为已读
type MarkAsReadReq struct {
	ConversationID string `json:"conversation_id" binding:"required"`
}

// EditMessageReq 软编辑消息
type EditMessageReq struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	MessageID      string `json:"message_id" binding:"required"`
	Content        string `json:"content" binding:"required"`
}

// DeleteMessageReq 软删除消息
type DeleteMessageReq struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	MessageID      string `json:"message_id" binding:"required"`
}

// SnoozeReq 暂缓提醒
type SnoozeReq struct {
	DurationMinutes int `json:"duration_minutes" binding:"required,min=1,max=1440"`
}

// PushBackReq 延后会话，0 表示取消延后
type PushBackReq struct {
	DurationMinutes int `json:"duration_minutes" binding:"min=0,max=10080"`
}

// PanicReq 紧急状态开关
type PanicReq struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// StatusReq 会话状态流转
type StatusReq struct {
	Status string `json:"status" binding:"required,oneof=new assigned pushed closed"`
}

// ConversationDTO 单会话快照，分类为即时推导值
type ConversationDTO struct {
	ID                     string            `json:"id"`
	CustomerID             uint64            `json:"customer_id"`
	PersonaID              uint64            `json:"persona_id"`
	AssignedAgentID        uint64            `json:"assigned_agent_id"`
	Status                 string            `json:"status"`
	Messages               []ChatMessageDTO  `json:"messages"`
	UnreadCount            int               `json:"unread_count"`
	Classification         ClassificationDTO `json:"classification"`
	ReminderCount          int               `json:"reminder_count"`
	ReminderHandled        bool              `json:"reminder_handled"`
	IsInPanicRoom          bool              `json:"is_in_panic_room"`
	LastCustomerResponseAt *time.Time        `json:"last_customer_response_at"`
	LastAgentResponseAt    *time.Time        `json:"last_agent_response_at"`
	PushBackUntil          *time.Time        `json:"push_back_until"`
	UpdatedAt              time.Time         `json:"updated_at"`
}

// ClassificationDTO 分类结果
type ClassificationDTO struct {
	Type     string `json:"type"`
	Priority int    `json:"priority"`
}
