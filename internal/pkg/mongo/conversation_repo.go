package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ConversationRepo interface {
	CreateConversation(ctx context.Context, conv *Conversation) (string, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListOpen(ctx context.Context) ([]*Conversation, error)

	AppendMessage(ctx context.Context, id string, msg *Message) error
	MarkMessagesRead(ctx context.Context, id string) error
	EditMessage(ctx context.Context, id string, messageID string, body string) error
	DeleteMessage(ctx context.Context, id string, messageID string, tombstone string) error

	SetReminderHandled(ctx context.Context, id string, now time.Time) error
	ResetReminderCycle(ctx context.Context, id string) error
	ActivateReminder(ctx context.Context, id string, now time.Time) (bool, error)
	EscalateReminder(ctx context.Context, id string, fromCount int, now time.Time) (bool, error)
	SnoozeReminder(ctx context.Context, id string, until time.Time) error

	SetPanicRoom(ctx context.Context, id string, inPanic bool) error
	SetPushBack(ctx context.Context, id string, until *time.Time) error
	UpdateStatus(ctx context.Context, id string, status string) error

	FindActivationCandidates(ctx context.Context, cutoff time.Time, now time.Time, limit int) ([]*Conversation, error)
	FindEscalationCandidates(ctx context.Context, now time.Time, limit int) ([]*Conversation, error)
}

type conversationRepoImpl struct {
	col *mongo.Collection
}

func NewConversationRepo(db *mongo.Database) ConversationRepo {
	return &conversationRepoImpl{
		col: db.Collection("conversation"),
	}
}

// CreateConversation 创建会话文档
func (s *conversationRepoImpl) CreateConversation(ctx context.Context, conv *Conversation) (string, error) {
	if conv.ID.IsZero() {
		conv.ID = primitive.NewObjectID()
	}
	if conv.Messages == nil {
		conv.Messages = []Message{}
	}
	_, err := s.col.InsertOne(ctx, conv)
	if err != nil {
		return "", err
	}
	return conv.ID.Hex(), nil
}

// GetConversation 根据会话 ID 获取会话
func (s *conversationRepoImpl) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	var conv Conversation
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListOpen 列出所有未关闭会话，供批量分类使用
func (s *conversationRepoImpl) ListOpen(ctx context.Context) ([]*Conversation, error) {
	filter := bson.M{"status": bson.M{"$ne": StatusClosed}}

	cursor, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var convs []*Conversation
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// AppendMessage 追加消息并按发送方刷新活跃时间戳，单次窄更新
func (s *conversationRepoImpl) AppendMessage(ctx context.Context, id string, msg *Message) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}

	set := bson.M{"updated_at": msg.SentAt}
	if msg.Sender == SenderAgent {
		set["last_agent_response_at"] = msg.SentAt
	} else {
		set["last_customer_response_at"] = msg.SentAt
	}

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$push": bson.M{"messages": msg},
		"$set":  set,
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// MarkMessagesRead 数组过滤更新：客户发送且坐席未读的消息批量置已读，
// 不重写整个 messages 数组
func (s *conversationRepoImpl) MarkMessagesRead(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}

	update := bson.M{"$set": bson.M{
		"messages.$[m].read_by_agent": true,
		"updated_at":                  time.Now(),
	}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"m.sender": SenderCustomer, "m.read_by_agent": false}},
	})

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid}, update, opts)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// EditMessage 软编辑：按消息 ID 定位槽位替换内容
func (s *conversationRepoImpl) EditMessage(ctx context.Context, id string, messageID string, body string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}

	update := bson.M{"$set": bson.M{
		"messages.$[m].body":      body,
		"messages.$[m].is_edited": true,
		"updated_at":              time.Now(),
	}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"m.id": messageID, "m.is_deleted": false}},
	})

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid}, update, opts)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 || res.ModifiedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteMessage 软删除：内容替换为 tombstone，槽位保留以维持顺序
func (s *conversationRepoImpl) DeleteMessage(ctx context.Context, id string, messageID string, tombstone string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}

	update := bson.M{"$set": bson.M{
		"messages.$[m].body":       tombstone,
		"messages.$[m].is_deleted": true,
		"updated_at":               time.Now(),
	}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"m.id": messageID}},
	})

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid}, update, opts)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 || res.ModifiedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetReminderHandled 坐席回复的同步转换：立即关闭提醒周期，不等下一轮扫描
func (s *conversationRepoImpl) SetReminderHandled(ctx context.Context, id string, now time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"reminder_handled":       true,
		"reminder_handled_at":    now,
		"reminder_active":        false,
		"reminder_snoozed_until": nil,
		"reminder_priority":      0,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ResetReminderCycle 客户回复：整个提醒周期清零，新的应答义务从头计算
func (s *conversationRepoImpl) ResetReminderCycle(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"reminder_handled":       false,
		"reminder_handled_at":    nil,
		"reminder_active":        false,
		"reminder_snoozed_until": nil,
		"reminder_priority":      0,
		"reminder_count":         0,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ActivateReminder 条件更新：仅当尚未激活时生效，返回是否真正发生了转换。
// 并发扫描或重复扫描下该操作幂等。
func (s *conversationRepoImpl) ActivateReminder(ctx context.Context, id string, now time.Time) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, mongo.ErrNoDocuments
	}

	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": oid, "reminder_active": false},
		bson.M{
			"$set": bson.M{
				"reminder_active":   true,
				"reminder_handled":  false,
				"last_reminder_at":  now,
				"reminder_priority": 4,
			},
			"$inc": bson.M{"reminder_count": 1},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// EscalateReminder 条件升级：reminder_count 作为乐观条件防止重复升级
func (s *conversationRepoImpl) EscalateReminder(ctx context.Context, id string, fromCount int, now time.Time) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, mongo.ErrNoDocuments
	}

	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": oid, "reminder_active": true, "reminder_count": fromCount},
		bson.M{
			"$set": bson.M{"last_reminder_at": now},
			"$inc": bson.M{"reminder_count": 1, "reminder_priority": 1},
		})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// SnoozeReminder 操作员暂缓，扫描在截止前必须跳过该会话
func (s *conversationRepoImpl) SnoozeReminder(ctx context.Context, id string, until time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"reminder_snoozed_until": until}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetPanicRoom 置顶优先级开关
func (s *conversationRepoImpl) SetPanicRoom(ctx context.Context, id string, inPanic bool) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"is_in_panic_room": inPanic, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetPushBack 延后窗口，until 为 nil 时取消延后
func (s *conversationRepoImpl) SetPushBack(ctx context.Context, id string, until *time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"push_back_until": until}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// UpdateStatus 状态流转
func (s *conversationRepoImpl) UpdateStatus(ctx context.Context, id string, status string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// FindActivationCandidates 扫描查询 (a)：待激活候选。
// 条件：开放状态、已有坐席发言、客户沉默超过阈值、未激活、未暂缓、未延后。
func (s *conversationRepoImpl) FindActivationCandidates(ctx context.Context, cutoff time.Time, now time.Time, limit int) ([]*Conversation, error) {
	filter := bson.M{
		"status":                 bson.M{"$in": []string{StatusNew, StatusAssigned}},
		"reminder_active":        false,
		"last_agent_response_at": bson.M{"$ne": nil},
		"$and": []bson.M{
			{"$or": []bson.M{
				{"last_customer_response_at": bson.M{"$lte": cutoff}},
				{"last_customer_response_at": nil, "updated_at": bson.M{"$lte": cutoff}},
			}},
			{"$or": []bson.M{
				{"reminder_snoozed_until": nil},
				{"reminder_snoozed_until": bson.M{"$lte": now}},
			}},
			{"$or": []bson.M{
				{"push_back_until": nil},
				{"push_back_until": bson.M{"$lte": now}},
			}},
		},
	}

	return s.findBounded(ctx, filter, limit)
}

// FindEscalationCandidates 扫描查询 (b)：已激活提醒中可能到达下一升级边界的会话。
// 升级边界随 reminder_count 变化，按条计算留在扫描逻辑里。
func (s *conversationRepoImpl) FindEscalationCandidates(ctx context.Context, now time.Time, limit int) ([]*Conversation, error) {
	filter := bson.M{
		"status":          bson.M{"$in": []string{StatusNew, StatusAssigned}},
		"reminder_active": true,
		"$or": []bson.M{
			{"reminder_snoozed_until": nil},
			{"reminder_snoozed_until": bson.M{"$lte": now}},
		},
	}

	return s.findBounded(ctx, filter, limit)
}

func (s *conversationRepoImpl) findBounded(ctx context.Context, filter bson.M, limit int) ([]*Conversation, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var convs []*Conversation
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}
