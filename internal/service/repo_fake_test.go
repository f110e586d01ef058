package service

import (
	"Lighthouse/internal/api/dto"
	mongopkg "Lighthouse/internal/pkg/mongo"
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeRepo 内存版会话仓库，复刻条件更新语义，供服务层测试使用
type fakeRepo struct {
	mu    sync.Mutex
	convs map[string]*mongopkg.Conversation
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{convs: make(map[string]*mongopkg.Conversation)}
}

func (f *fakeRepo) add(conv *mongopkg.Conversation) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if conv.ID.IsZero() {
		conv.ID = primitive.NewObjectID()
	}
	f.convs[conv.ID.Hex()] = conv
	return conv.ID.Hex()
}

func (f *fakeRepo) get(id string) *mongopkg.Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.convs[id]
}

func (f *fakeRepo) CreateConversation(_ context.Context, conv *mongopkg.Conversation) (string, error) {
	return f.add(conv), nil
}

func (f *fakeRepo) GetConversation(_ context.Context, id string) (*mongopkg.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *conv
	cp.Messages = append([]mongopkg.Message(nil), conv.Messages...)
	return &cp, nil
}

func (f *fakeRepo) ListOpen(_ context.Context) ([]*mongopkg.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*mongopkg.Conversation
	for _, conv := range f.convs {
		if conv.Status != mongopkg.StatusClosed {
			out = append(out, conv)
		}
	}
	return out, nil
}

func (f *fakeRepo) AppendMessage(_ context.Context, id string, msg *mongopkg.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	conv.Messages = append(conv.Messages, *msg)
	at := msg.SentAt
	if msg.Sender == mongopkg.SenderAgent {
		conv.LastAgentResponseAt = &at
	} else {
		conv.LastCustomerResponseAt = &at
	}
	conv.UpdatedAt = at
	return nil
}

func (f *fakeRepo) MarkMessagesRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	for i := range conv.Messages {
		m := &conv.Messages[i]
		if m.Sender == mongopkg.SenderCustomer && !m.ReadByAgent {
			m.ReadByAgent = true
		}
	}
	return nil
}

func (f *fakeRepo) EditMessage(_ context.Context, id string, messageID string, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	for i := range conv.Messages {
		m := &conv.Messages[i]
		if m.ID == messageID && !m.IsDeleted {
			m.Body = body
			m.IsEdited = true
			return nil
		}
	}
	return mongo.ErrNoDocuments
}

func (f *fakeRepo) DeleteMessage(_ context.Context, id string, messageID string, tombstone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	for i := range conv.Messages {
		m := &conv.Messages[i]
		if m.ID == messageID {
			m.Body = tombstone
			m.IsDeleted = true
			return nil
		}
	}
	return mongo.ErrNoDocuments
}

func (f *fakeRepo) SetReminderHandled(_ context.Context, id string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	conv.ReminderHandled = true
	conv.ReminderHandledAt = &now
	conv.ReminderActive = false
	conv.ReminderSnoozedUntil = nil
	conv.ReminderPriority = 0
	return nil
}

func (f *fakeRepo) ResetReminderCycle(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	conv.ReminderHandled = false
	conv.ReminderHandledAt = nil
	conv.ReminderActive = false
	conv.ReminderSnoozedUntil = nil
	conv.ReminderPriority = 0
	conv.ReminderCount = 0
	return nil
}

func (f *fakeRepo) ActivateReminder(_ context.Context, id string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return false, mongo.ErrNoDocuments
	}
	if conv.ReminderActive {
		return false, nil
	}
	conv.ReminderActive = true
	conv.ReminderHandled = false
	conv.LastReminderAt = &now
	conv.ReminderPriority = 4
	conv.ReminderCount++
	return true, nil
}

func (f *fakeRepo) EscalateReminder(_ context.Context, id string, fromCount int, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return false, mongo.ErrNoDocuments
	}
	if !conv.ReminderActive || conv.ReminderCount != fromCount {
		return false, nil
	}
	conv.LastReminderAt = &now
	conv.ReminderCount++
	conv.ReminderPriority++
	return true, nil
}

func (f *fakeRepo) SnoozeReminder(_ context.Context, id string, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	conv.ReminderSnoozedUntil = &until
	return nil
}

func (f *fakeRepo) SetPanicRoom(_ context.Context, id string, inPanic bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	conv.IsInPanicRoom = inPanic
	return nil
}

func (f *fakeRepo) SetPushBack(_ context.Context, id string, until *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	conv.PushBackUntil = until
	return nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id string, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.convs[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	conv.Status = status
	return nil
}

func (f *fakeRepo) FindActivationCandidates(_ context.Context, cutoff time.Time, now time.Time, _ int) ([]*mongopkg.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*mongopkg.Conversation
	for _, conv := range f.convs {
		if conv.Status != mongopkg.StatusNew && conv.Status != mongopkg.StatusAssigned {
			continue
		}
		if conv.ReminderActive || !conv.HasAgentMessage() {
			continue
		}
		if conv.LastCustomerActivity().After(cutoff) {
			continue
		}
		if conv.Snoozed(now) || conv.PushedBack(now) {
			continue
		}
		cp := *conv
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeRepo) FindEscalationCandidates(_ context.Context, now time.Time, _ int) ([]*mongopkg.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*mongopkg.Conversation
	for _, conv := range f.convs {
		if conv.Status != mongopkg.StatusNew && conv.Status != mongopkg.StatusAssigned {
			continue
		}
		if !conv.ReminderActive || conv.Snoozed(now) {
			continue
		}
		cp := *conv
		out = append(out, &cp)
	}
	return out, nil
}

// fakeDispatcher 记录广播调用
type fakeDispatcher struct {
	mu        sync.Mutex
	seen      map[string]struct{}
	messages  []*dto.ChatMessageDTO
	deleted   []*dto.MessageDeletedDTO
	reminders []int
	presences []*dto.PresenceDTO
}

func (d *fakeDispatcher) ShouldSuppress(conversationID, clientSuppliedID string) bool {
	if clientSuppliedID == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = make(map[string]struct{})
	}
	key := conversationID + ":" + clientSuppliedID
	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

func (d *fakeDispatcher) BroadcastMessage(_ context.Context, _ uint64, msg *dto.ChatMessageDTO, _ int, _ *dto.LastMessageSummary) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
	return nil
}

func (d *fakeDispatcher) BroadcastMessageDeleted(_ context.Context, _ uint64, deleted *dto.MessageDeletedDTO) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = append(d.deleted, deleted)
	return nil
}

func (d *fakeDispatcher) BroadcastReminderUpdates(_ context.Context, activated int, escalated int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reminders = append(d.reminders, activated, escalated)
	return nil
}

func (d *fakeDispatcher) BroadcastPresence(_ context.Context, p *dto.PresenceDTO) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presences = append(d.presences, p)
	return nil
}

func (d *fakeDispatcher) messageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.messages)
}

// fakeInvalidator 记录失效调用
type fakeInvalidator struct {
	mu    sync.Mutex
	all   int
	convs []string
}

func (f *fakeInvalidator) InvalidateConversation(conv *mongopkg.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.convs = append(f.convs, conv.ID.Hex())
}

func (f *fakeInvalidator) InvalidateAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.all++
}
