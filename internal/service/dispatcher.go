package service

import (
	"Lighthouse/internal/api/dto"
	"context"
)

// Dispatcher 实时推送出口，由 ws 层实现。
// 推送失败只记录日志，绝不把错误抛回写路径的调用方。
type Dispatcher interface {
	// ShouldSuppress 同一 (会话, 客户端消息 ID) 在 TTL 窗口内第二次出现返回 true。
	// 写路径在落库前调用，HTTP 与 socket 两条到达路径汇聚到同一个判定点。
	ShouldSuppress(conversationID, clientSuppliedID string) bool
	BroadcastMessage(ctx context.Context, customerID uint64, msg *dto.ChatMessageDTO, unreadCount int, last *dto.LastMessageSummary) error
	BroadcastMessageDeleted(ctx context.Context, customerID uint64, deleted *dto.MessageDeletedDTO) error
	BroadcastReminderUpdates(ctx context.Context, activated int, escalated int) error
	BroadcastPresence(ctx context.Context, presence *dto.PresenceDTO) error
}
