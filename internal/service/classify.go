package service

import (
	"Lighthouse/internal/pkg/mongo"
	"time"
)

// 会话分类
const (
	TypePanic    = "panic"
	TypeQueue    = "queue"
	TypeReminder = "reminder"
	TypeIdle     = "idle"
)

// 优先级，数值越大越靠前
const (
	PriorityIdle         = 1
	PriorityQueue        = 2
	PriorityQueueBacklog = 3
	PriorityReminder     = 4
	PriorityPanic        = 5
)

// 未读数超过该值的会话升为积压档
const backlogUnreadThreshold = 5

// Classification 分类结果
type Classification struct {
	Type     string
	Priority int
}

// rule 单条分类规则，命中即返回
type rule struct {
	name  string
	apply func(conv *mongo.Conversation, now time.Time) (Classification, bool)
}

// Classifier 纯函数分类器：会话快照 + 当前时间 -> (类型, 优先级)。
// 规则自上而下求值，优先级冲突靠顺序而非打分解决；
// 无副作用，任何落库的分类副本由调用方负责维护与失效。
type Classifier struct {
	displayThreshold time.Duration
	rules            []rule
}

func NewClassifier(displayThreshold time.Duration) *Classifier {
	c := &Classifier{displayThreshold: displayThreshold}
	c.rules = []rule{
		{name: "panic", apply: c.panicRule},
		{name: "unread", apply: c.unreadRule},
		{name: "reminder", apply: c.reminderRule},
		{name: "follow_up", apply: c.followUpRule},
	}
	return c
}

// Classify 总函数，永远有值，默认按状态落入 queue/idle 最低档
func (c *Classifier) Classify(conv *mongo.Conversation, now time.Time) Classification {
	for _, r := range c.rules {
		if res, ok := r.apply(conv, now); ok {
			return res
		}
	}
	return c.fallback(conv)
}

// panicRule 紧急房间压倒一切，包括未读数
func (c *Classifier) panicRule(conv *mongo.Conversation, _ time.Time) (Classification, bool) {
	if conv.IsInPanicRoom {
		return Classification{Type: TypePanic, Priority: PriorityPanic}, true
	}
	return Classification{}, false
}

// unreadRule 任何未读客户消息都优先于提醒：
// 有内容等着回复时，绝不能以"提醒"的面目展示给坐席
func (c *Classifier) unreadRule(conv *mongo.Conversation, _ time.Time) (Classification, bool) {
	unread := conv.UnreadCustomerCount()
	if unread == 0 {
		return Classification{}, false
	}
	if unread > backlogUnreadThreshold {
		return Classification{Type: TypeQueue, Priority: PriorityQueueBacklog}, true
	}
	return Classification{Type: TypeQueue, Priority: PriorityQueue}, true
}

// reminderRule 客户沉默超过展示阈值且提醒未被处理
func (c *Classifier) reminderRule(conv *mongo.Conversation, now time.Time) (Classification, bool) {
	if conv.ReminderHandled {
		return Classification{}, false
	}
	if now.Sub(conv.LastCustomerActivity()) >= c.displayThreshold {
		return Classification{Type: TypeReminder, Priority: PriorityReminder}, true
	}
	return Classification{}, false
}

// followUpRule 历史触发器：显式要求跟进且无未读时同样按提醒展示
func (c *Classifier) followUpRule(conv *mongo.Conversation, _ time.Time) (Classification, bool) {
	if conv.RequiresFollowUp && conv.UnreadCustomerCount() == 0 {
		return Classification{Type: TypeReminder, Priority: PriorityReminder}, true
	}
	return Classification{}, false
}

func (c *Classifier) fallback(conv *mongo.Conversation) Classification {
	if conv.Status == mongo.StatusNew || conv.Status == mongo.StatusAssigned {
		return Classification{Type: TypeQueue, Priority: PriorityIdle}
	}
	return Classification{Type: TypeIdle, Priority: PriorityIdle}
}
