package service

import (
	"Lighthouse/internal/api/config"
	"Lighthouse/internal/pkg/mongo"
	"context"
	log "log/slog"
	"time"
)

// ReminderService 提醒周期状态机的扫描侧。
// 同步转换（坐席回复关闭、客户回复清零）在消息写路径完成，
// 扫描只负责较慢的激活与升级节奏。
type ReminderService interface {
	Sweep(ctx context.Context) (activated int, escalated int, err error)
	Snooze(ctx context.Context, conversationID string, duration time.Duration) error
	MarkHandled(ctx context.Context, conversationID string) error
}

type reminderServiceImpl struct {
	repo      mongo.ConversationRepo
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

func NewReminderService(repo mongo.ConversationRepo, cfg config.ReminderConfig) ReminderService {
	return &reminderServiceImpl{
		repo:      repo,
		interval:  cfg.Interval,
		batchSize: cfg.SweepBatchSize,
		now:       time.Now,
	}
}

// Sweep 一轮扫描：先激活，后升级。
// 单条失败记录日志后跳过，不中断剩余批次；整轮可安全重入，
// 崩掉一轮只会让部分会话晚一个周期，下一轮自愈。
func (s *reminderServiceImpl) Sweep(ctx context.Context) (int, int, error) {
	now := s.now()
	activated := 0
	escalated := 0

	cutoff := now.Add(-s.interval)
	candidates, err := s.repo.FindActivationCandidates(ctx, cutoff, now, s.batchSize)
	if err != nil {
		return 0, 0, err
	}

	for _, conv := range candidates {
		id := conv.ID.Hex()
		ok, err := s.repo.ActivateReminder(ctx, id, now)
		if err != nil {
			log.ErrorContext(ctx, "提醒激活失败，跳过", "conversation_id", id, "err", err)
			continue
		}
		if ok {
			activated++
		}
	}

	escCandidates, err := s.repo.FindEscalationCandidates(ctx, now, s.batchSize)
	if err != nil {
		return activated, escalated, err
	}

	for _, conv := range escCandidates {
		id := conv.ID.Hex()
		// 升级边界随已有次数后移：第 n 次升级要求沉默满 (n+1) 个周期
		threshold := time.Duration(conv.ReminderCount+1) * s.interval
		if now.Sub(conv.LastCustomerActivity()) < threshold {
			continue
		}

		ok, err := s.repo.EscalateReminder(ctx, id, conv.ReminderCount, now)
		if err != nil {
			log.ErrorContext(ctx, "提醒升级失败，跳过", "conversation_id", id, "err", err)
			continue
		}
		if ok {
			escalated++
		}
	}

	return activated, escalated, nil
}

// Snooze 暂缓：截止前扫描必须跳过该会话，不论沉默多久
func (s *reminderServiceImpl) Snooze(ctx context.Context, conversationID string, duration time.Duration) error {
	if duration <= 0 {
		return ErrParamInvalid
	}
	if err := s.repo.SnoozeReminder(ctx, conversationID, s.now().Add(duration)); err != nil {
		return mapRepoErr(err)
	}
	return nil
}

// MarkHandled 操作员手动关闭当前提醒周期
func (s *reminderServiceImpl) MarkHandled(ctx context.Context, conversationID string) error {
	if err := s.repo.SetReminderHandled(ctx, conversationID, s.now()); err != nil {
		return mapRepoErr(err)
	}
	return nil
}
