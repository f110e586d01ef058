package job

import (
	"Lighthouse/internal/pkg/consts"
	"Lighthouse/internal/pkg/logger"
	"Lighthouse/internal/pkg/redis"
	"Lighthouse/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// ReminderSweepJob 周期扫描提醒激活与升级。
// 多实例部署时靠 Redis 锁保证每轮只有一个实例扫描。
type ReminderSweepJob struct {
	reminderSvc service.ReminderService
	queueSvc    service.QueueService
	dispatcher  service.Dispatcher
}

func NewReminderSweepJob(reminderSvc service.ReminderService, queueSvc service.QueueService, dispatcher service.Dispatcher) *ReminderSweepJob {
	return &ReminderSweepJob{
		reminderSvc: reminderSvc,
		queueSvc:    queueSvc,
		dispatcher:  dispatcher,
	}
}

func (s *ReminderSweepJob) Run() {
	traceID := "job-reminder-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	lockValue := traceID
	ok, err := redis.TryLock(ctx, consts.ReminderSweepLock, lockValue, time.Minute, 1)
	if err != nil {
		log.ErrorContext(ctx, "获取扫描锁失败", "err", err)
		return
	}
	if !ok {
		return
	}
	defer redis.UnLock(ctx, consts.ReminderSweepLock, lockValue)

	// Sweep 中途出错也返回已完成的计数，
	// 已激活的会话照常失效缓存并广播，剩下的留给下一轮
	activated, escalated, err := s.reminderSvc.Sweep(ctx)
	if err != nil {
		log.ErrorContext(ctx, "提醒扫描失败", "activated", activated, "escalated", escalated, "err", err)
	}
	if activated == 0 && escalated == 0 {
		return
	}

	// 扫描改动的是批量会话，范围键无法枚举，整体失效
	s.queueSvc.InvalidateAll()
	if err := s.dispatcher.BroadcastReminderUpdates(ctx, activated, escalated); err != nil {
		log.ErrorContext(ctx, "扫描结果广播失败", "err", err)
	}

	log.InfoContext(ctx, "提醒扫描完成", "activated", activated, "escalated", escalated)
}
