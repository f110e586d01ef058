package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 会话状态
const (
	StatusNew      = "new"
	StatusAssigned = "assigned"
	StatusPushed   = "pushed"
	StatusClosed   = "closed"
)

// 消息发送方
const (
	SenderAgent    = "agent"
	SenderCustomer = "customer"
)

// Conversation 会话文档，唯一事实来源。
// 分类结果（panic/queue/reminder/idle）永远由字段即时推导，不落库，
// 避免存储态与推导态漂移。
type Conversation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CustomerID      uint64             `bson:"customer_id" json:"customerId"`
	PersonaID       uint64             `bson:"persona_id" json:"personaId"`
	AssignedAgentID uint64             `bson:"assigned_agent_id" json:"assignedAgentId"` // 0 表示未分配
	Status          string             `bson:"status" json:"status"`
	Messages        []Message          `bson:"messages" json:"messages"` // 仅追加，槽位不删除

	LastCustomerResponseAt *time.Time `bson:"last_customer_response_at" json:"lastCustomerResponseAt"`
	LastAgentResponseAt    *time.Time `bson:"last_agent_response_at" json:"lastAgentResponseAt"`

	// 提醒周期簿记
	ReminderActive       bool       `bson:"reminder_active" json:"reminderActive"`
	ReminderHandled      bool       `bson:"reminder_handled" json:"reminderHandled"`
	ReminderHandledAt    *time.Time `bson:"reminder_handled_at" json:"reminderHandledAt"`
	ReminderSnoozedUntil *time.Time `bson:"reminder_snoozed_until" json:"reminderSnoozedUntil"`
	LastReminderAt       *time.Time `bson:"last_reminder_at" json:"lastReminderAt"`
	ReminderPriority     int        `bson:"reminder_priority" json:"reminderPriority"`
	ReminderCount        int        `bson:"reminder_count" json:"reminderCount"`

	IsInPanicRoom    bool       `bson:"is_in_panic_room" json:"isInPanicRoom"`
	RequiresFollowUp bool       `bson:"requires_follow_up" json:"requiresFollowUp"`
	PushBackUntil    *time.Time `bson:"push_back_until" json:"pushBackUntil"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Message 内嵌消息，读标记与软编辑/删除原地修改，顺序不变
type Message struct {
	ID               string    `bson:"id" json:"id"`
	Sender           string    `bson:"sender" json:"sender"`
	Body             string    `bson:"body" json:"body"`
	MsgType          string    `bson:"msg_type" json:"msgType"` // text / attachment
	ClientSuppliedID string    `bson:"client_supplied_id,omitempty" json:"clientSuppliedId,omitempty"`
	SentAt           time.Time `bson:"sent_at" json:"sentAt"`
	ReadByAgent      bool      `bson:"read_by_agent" json:"readByAgent"`
	ReadByCustomer   bool      `bson:"read_by_customer" json:"readByCustomer"`
	IsEdited         bool      `bson:"is_edited" json:"isEdited"`
	IsDeleted        bool      `bson:"is_deleted" json:"isDeleted"`
}

// UnreadCustomerCount 派生值：客户已发送但坐席未读的消息数
func (c *Conversation) UnreadCustomerCount() int {
	n := 0
	for i := range c.Messages {
		m := &c.Messages[i]
		if m.Sender == SenderCustomer && !m.ReadByAgent && !m.IsDeleted {
			n++
		}
	}
	return n
}

// LastCustomerActivity 客户最后活跃时间，缺失时回退到文档更新时间
func (c *Conversation) LastCustomerActivity() time.Time {
	if c.LastCustomerResponseAt != nil {
		return *c.LastCustomerResponseAt
	}
	return c.UpdatedAt
}

// HasAgentMessage 是否已有坐席发言，提醒激活的前置条件
func (c *Conversation) HasAgentMessage() bool {
	return c.LastAgentResponseAt != nil
}

// LastMessage 取末尾消息做列表摘要，空会话返回 nil
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// PushedBack 会话是否处于延后窗口内
func (c *Conversation) PushedBack(now time.Time) bool {
	return c.PushBackUntil != nil && c.PushBackUntil.After(now)
}

// Snoozed 提醒是否仍在暂缓窗口内
func (c *Conversation) Snoozed(now time.Time) bool {
	return c.ReminderSnoozedUntil != nil && c.ReminderSnoozedUntil.After(now)
}
