package service

import (
	"Lighthouse/internal/api/dto"
	"Lighthouse/internal/pkg/cache"
	"context"
	log "log/slog"
	"strconv"
	"time"
)

// PresenceTracker 最近活跃参与者的内存记录，TTL 过期视为离线。
// 尽力而为，不做权威在线状态。
type PresenceTracker struct {
	store      *cache.TTLStore
	dispatcher Dispatcher
	now        func() time.Time
}

func NewPresenceTracker(store *cache.TTLStore, dispatcher Dispatcher) *PresenceTracker {
	return &PresenceTracker{
		store:      store,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Touch 刷新活跃时间，由离线转为在线时广播状态变更
func (p *PresenceTracker) Touch(ctx context.Context, actorID uint64, role string) {
	key := presenceKey(role, actorID)
	_, wasOnline := p.store.Get(key)
	p.store.Set(key, struct{}{})

	if !wasOnline {
		p.broadcast(ctx, actorID, role, "online")
	}
}

// Offline 连接断开时主动下线，不等 TTL
func (p *PresenceTracker) Offline(ctx context.Context, actorID uint64, role string) {
	key := presenceKey(role, actorID)
	if _, ok := p.store.Get(key); !ok {
		return
	}
	p.store.Delete(key)
	p.broadcast(ctx, actorID, role, "offline")
}

// Online 查询某参与者当前是否在线
func (p *PresenceTracker) Online(actorID uint64, role string) bool {
	_, ok := p.store.Get(presenceKey(role, actorID))
	return ok
}

func (p *PresenceTracker) broadcast(ctx context.Context, actorID uint64, role string, status string) {
	err := p.dispatcher.BroadcastPresence(ctx, &dto.PresenceDTO{
		Type:      dto.EnvelopeUserPresence,
		ActorID:   actorID,
		Role:      role,
		Status:    status,
		Timestamp: p.now(),
	})
	if err != nil {
		log.WarnContext(ctx, "在线状态广播失败", "actor_id", actorID, "status", status, "err", err)
	}
}

func presenceKey(role string, actorID uint64) string {
	return role + ":" + strconv.FormatUint(actorID, 10)
}
