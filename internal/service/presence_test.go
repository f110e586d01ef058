package service

import (
	"Lighthouse/internal/pkg/cache"
	"Lighthouse/internal/pkg/consts"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceBroadcastsOnEdgesOnly(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	store := cache.NewTTLStore(time.Minute, func() time.Time { return *clock })
	dispatcher := &fakeDispatcher{}
	tracker := NewPresenceTracker(store, dispatcher)
	ctx := context.Background()

	tracker.Touch(ctx, 7, consts.RoleOperator)
	require.Len(t, dispatcher.presences, 1)
	assert.Equal(t, "online", dispatcher.presences[0].Status)
	assert.True(t, tracker.Online(7, consts.RoleOperator))

	// 连续心跳只刷新，不重复广播
	tracker.Touch(ctx, 7, consts.RoleOperator)
	assert.Len(t, dispatcher.presences, 1)

	tracker.Offline(ctx, 7, consts.RoleOperator)
	require.Len(t, dispatcher.presences, 2)
	assert.Equal(t, "offline", dispatcher.presences[1].Status)
	assert.False(t, tracker.Online(7, consts.RoleOperator))

	// 已离线后重复下线不再广播
	tracker.Offline(ctx, 7, consts.RoleOperator)
	assert.Len(t, dispatcher.presences, 2)
}

func TestPresenceExpiresByTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	store := cache.NewTTLStore(time.Minute, func() time.Time { return *clock })
	tracker := NewPresenceTracker(store, &fakeDispatcher{})

	tracker.Touch(context.Background(), 42, consts.RoleCustomer)
	assert.True(t, tracker.Online(42, consts.RoleCustomer))

	*clock = clock.Add(2 * time.Minute)
	assert.False(t, tracker.Online(42, consts.RoleCustomer), "silence past TTL reads as offline")
}
