package ws

import (
	"Lighthouse/internal/api/dto"
	"Lighthouse/internal/pkg/cache"
	"Lighthouse/internal/pkg/consts"
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishRecorder struct {
	frames []BusFrame
}

func (r *publishRecorder) publish(_ context.Context, _ string, payload interface{}) error {
	var frame BusFrame
	if err := json.Unmarshal(payload.([]byte), &frame); err != nil {
		return err
	}
	r.frames = append(r.frames, frame)
	return nil
}

func newTestDispatcher(ttl time.Duration) (*Dispatcher, *publishRecorder, *time.Time) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	rec := &publishRecorder{}
	d := NewDispatcher(cache.NewTTLStore(ttl, func() time.Time { return *clock }), rec.publish)
	d.now = func() time.Time { return *clock }
	return d, rec, clock
}

func sampleMessage(clientID string) *dto.ChatMessageDTO {
	return &dto.ChatMessageDTO{
		ConversationID:   "conv-1",
		MessageID:        "msg-1",
		Sender:           "customer",
		Content:          "你好",
		MsgType:          "text",
		ClientSuppliedID: clientID,
	}
}

func TestBroadcastMessageEmitsMessageAndQueueUpdate(t *testing.T) {
	d, rec, _ := newTestDispatcher(5 * time.Minute)

	err := d.BroadcastMessage(context.Background(), 42, sampleMessage("c-1"), 3, &dto.LastMessageSummary{MessageID: "msg-1"})
	require.NoError(t, err)
	require.Len(t, rec.frames, 2)

	assert.Equal(t, dto.EnvelopeChatMessage, rec.frames[0].Type)
	assert.Equal(t, "conv-1", rec.frames[0].ConversationID)
	assert.Equal(t, uint64(42), rec.frames[0].CustomerID)

	assert.Equal(t, dto.EnvelopeLiveQueueUpdate, rec.frames[1].Type)
	var update dto.LiveQueueUpdateDTO
	require.NoError(t, json.Unmarshal(rec.frames[1].Payload, &update))
	assert.Equal(t, "message_added", update.Action)
	assert.Equal(t, 3, update.UnreadCount)
}

func TestShouldSuppressDeduplicatesWithinTTL(t *testing.T) {
	d, _, clock := newTestDispatcher(5 * time.Minute)

	// 首次出现放行并登记
	assert.False(t, d.ShouldSuppress("conv-1", "c-1"))
	// 同一 (conversationId, clientSuppliedId) 在 TTL 内重复到达：抑制
	assert.True(t, d.ShouldSuppress("conv-1", "c-1"))

	// 不同 client id、不同会话互不影响
	assert.False(t, d.ShouldSuppress("conv-1", "c-2"))
	assert.False(t, d.ShouldSuppress("conv-2", "c-1"))

	// TTL 过期后同一对重新放行
	*clock = clock.Add(5*time.Minute + time.Second)
	assert.False(t, d.ShouldSuppress("conv-1", "c-1"))
}

func TestShouldSuppressIgnoresEmptyClientID(t *testing.T) {
	d, _, _ := newTestDispatcher(5 * time.Minute)

	// 服务端生成的消息不带 client id，永远放行也不占缓存
	assert.False(t, d.ShouldSuppress("conv-1", ""))
	assert.False(t, d.ShouldSuppress("conv-1", ""))
}

func TestBroadcastMessageDoesNotSuppress(t *testing.T) {
	d, rec, _ := newTestDispatcher(5 * time.Minute)
	ctx := context.Background()

	// 去重发生在写路径落库前，广播本身不再做判定
	require.NoError(t, d.BroadcastMessage(ctx, 42, sampleMessage("c-1"), 1, nil))
	require.NoError(t, d.BroadcastMessage(ctx, 42, sampleMessage("c-1"), 1, nil))
	assert.Len(t, rec.frames, 4)
}

func TestBroadcastReminderUpdatesCarriesCountsOnly(t *testing.T) {
	d, rec, _ := newTestDispatcher(5 * time.Minute)

	require.NoError(t, d.BroadcastReminderUpdates(context.Background(), 4, 2))
	require.Len(t, rec.frames, 1)
	assert.Equal(t, dto.EnvelopeReminderUpdates, rec.frames[0].Type)

	var update dto.ReminderUpdatesDTO
	require.NoError(t, json.Unmarshal(rec.frames[0].Payload, &update))
	assert.Equal(t, 4, update.ActivatedCount)
	assert.Equal(t, 2, update.EscalatedCount)
}

func TestSessionMatchRouting(t *testing.T) {
	operator := &Session{ActorID: 7, Role: consts.RoleOperator}
	owner := &Session{ActorID: 42, Role: consts.RoleCustomer, ConversationID: "conv-1"}
	stranger := &Session{ActorID: 99, Role: consts.RoleCustomer, ConversationID: "conv-9"}

	chat := &BusFrame{Type: dto.EnvelopeChatMessage, ConversationID: "conv-1", CustomerID: 42}
	assert.True(t, operator.matches(chat))
	assert.True(t, owner.matches(chat))
	assert.False(t, stranger.matches(chat))

	// 聚合提醒只发坐席端
	reminders := &BusFrame{Type: dto.EnvelopeReminderUpdates}
	assert.True(t, operator.matches(reminders))
	assert.False(t, owner.matches(reminders))

	presence := &BusFrame{Type: dto.EnvelopeUserPresence}
	assert.True(t, owner.matches(presence))
}
