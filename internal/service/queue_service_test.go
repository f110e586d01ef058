package service

import (
	"Lighthouse/internal/pkg/cache"
	mongopkg "Lighthouse/internal/pkg/mongo"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueueSvc(repo *fakeRepo, now time.Time) (*queueServiceImpl, *cache.TTLStore) {
	listing := cache.NewTTLStore(30*time.Second, func() time.Time { return now })
	svc := NewQueueService(repo, NewClassifier(6*time.Hour), listing).(*queueServiceImpl)
	svc.now = func() time.Time { return now }
	return svc, listing
}

func queueConv(agentID uint64, updated time.Time) *mongopkg.Conversation {
	recent := updated
	return &mongopkg.Conversation{
		CustomerID:             100,
		AssignedAgentID:        agentID,
		Status:                 mongopkg.StatusAssigned,
		ReminderHandled:        true,
		LastCustomerResponseAt: &recent,
		UpdatedAt:              updated,
	}
}

func TestGetLiveQueueOrdering(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()

	idle := queueConv(7, now.Add(-time.Minute))
	idleID := repo.add(idle)

	panicConv := queueConv(7, now.Add(-time.Hour))
	panicConv.IsInPanicRoom = true
	panicID := repo.add(panicConv)

	unread := queueConv(7, now.Add(-2*time.Minute))
	unread.Messages = []mongopkg.Message{{ID: "m1", Sender: mongopkg.SenderCustomer}}
	unreadID := repo.add(unread)

	svc, _ := newQueueSvc(repo, now)
	list, err := svc.GetLiveQueue(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list.Items, 3)

	assert.Equal(t, panicID, list.Items[0].ConversationID)
	assert.Equal(t, TypePanic, list.Items[0].Type)
	assert.Equal(t, unreadID, list.Items[1].ConversationID)
	assert.Equal(t, idleID, list.Items[2].ConversationID)
	assert.Equal(t, 3, list.Meta.TotalCount)
	assert.False(t, list.Meta.FromCache)
}

func TestGetLiveQueueCacheHitAndInvalidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	conv := queueConv(7, now.Add(-time.Minute))
	repo.add(conv)

	svc, _ := newQueueSvc(repo, now)

	first, err := svc.GetLiveQueue(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, first.Meta.FromCache)

	// 底层变化但未失效：命中缓存，看不到新会话
	repo.add(queueConv(7, now))
	second, err := svc.GetLiveQueue(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, second.Meta.FromCache)
	assert.Len(t, second.Items, 1)

	svc.InvalidateConversation(conv)
	third, err := svc.GetLiveQueue(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, third.Meta.FromCache)
	assert.Len(t, third.Items, 2)
}

func TestGetLiveQueueAgentScope(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.add(queueConv(7, now))
	repo.add(queueConv(8, now))
	repo.add(queueConv(8, now))

	svc, _ := newQueueSvc(repo, now)

	all, err := svc.GetLiveQueue(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all.Items, 3)

	scoped, err := svc.GetLiveQueue(context.Background(), 8)
	require.NoError(t, err)
	assert.Len(t, scoped.Items, 2)

	// 范围键互不污染
	allAgain, err := svc.GetLiveQueue(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, allAgain.Items, 3)
	assert.True(t, allAgain.Meta.FromCache)
}

func TestGetLiveQueueSkipsPushedBack(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()

	pushed := queueConv(7, now)
	until := now.Add(time.Hour)
	pushed.PushBackUntil = &until
	repo.add(pushed)

	expired := queueConv(7, now)
	past := now.Add(-time.Minute)
	expired.PushBackUntil = &past
	expiredID := repo.add(expired)

	svc, _ := newQueueSvc(repo, now)
	list, err := svc.GetLiveQueue(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list.Items, 1, "only the expired push-back re-enters the queue")
	assert.Equal(t, expiredID, list.Items[0].ConversationID)
}

func TestInvalidateAllClearsScopeKeys(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.add(queueConv(7, now))

	svc, listing := newQueueSvc(repo, now)

	_, err := svc.GetLiveQueue(context.Background(), 0)
	require.NoError(t, err)
	_, err = svc.GetLiveQueue(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, listing.Len())

	svc.InvalidateAll()
	assert.Equal(t, 0, listing.Len())
}
