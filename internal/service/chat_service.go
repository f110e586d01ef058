package service

import (
	"Lighthouse/internal/api/dto"
	"Lighthouse/internal/pkg/consts"
	"Lighthouse/internal/pkg/mongo"
	"context"
	"errors"
	log "log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
)

// Actor 请求发起方身份，由鉴权层解析
type Actor struct {
	ID   uint64
	Role string
}

// Sender 角色映射到消息发送方
func (a Actor) Sender() string {
	if a.Role == consts.RoleOperator {
		return mongo.SenderAgent
	}
	return mongo.SenderCustomer
}

// ChatService 消息写路径与会话操作
type ChatService interface {
	SendMessage(ctx context.Context, actor Actor, req *dto.SendMessageReq) (*dto.ChatMessageDTO, error)
	MarkAsRead(ctx context.Context, actor Actor, conversationID string) error
	EditMessage(ctx context.Context, actor Actor, req *dto.EditMessageReq) error
	DeleteMessage(ctx context.Context, actor Actor, req *dto.DeleteMessageReq) error
	GetConversation(ctx context.Context, conversationID string) (*dto.ConversationDTO, error)
	SetPanicRoom(ctx context.Context, conversationID string, enabled bool) error
	PushBack(ctx context.Context, conversationID string, duration time.Duration) error
	UpdateStatus(ctx context.Context, conversationID string, status string) error
	Close()
}

// ListingInvalidator 写路径触达会话后主动失效列表缓存
type ListingInvalidator interface {
	InvalidateConversation(conv *mongo.Conversation)
	InvalidateAll()
}

type chatServiceImpl struct {
	repo        mongo.ConversationRepo
	classifier  *Classifier
	dispatcher  Dispatcher
	invalidator ListingInvalidator
	now         func() time.Time

	// 写后副作用（缓存失效、广播）走独立队列，
	// 失败只进日志，结构上影响不到已返回的同步响应
	sideChan chan func()
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewChatService 构造函数：初始化服务并启动副作用工作池
func NewChatService(repo mongo.ConversationRepo, classifier *Classifier, dispatcher Dispatcher, invalidator ListingInvalidator) ChatService {
	s := &chatServiceImpl{
		repo:        repo,
		classifier:  classifier,
		dispatcher:  dispatcher,
		invalidator: invalidator,
		now:         time.Now,
		sideChan:    make(chan func(), 1024),
		stopChan:    make(chan struct{}),
	}

	workerCount := 2
	s.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go s.sideEffectWorker()
	}

	return s
}

// SendMessage 发送消息：落库、同步提醒转换、异步失效与广播
func (s *chatServiceImpl) SendMessage(ctx context.Context, actor Actor, req *dto.SendMessageReq) (*dto.ChatMessageDTO, error) {
	sender := actor.Sender()
	now := s.now()

	var conv *mongo.Conversation
	convID := req.ConversationID

	if convID == "" {
		// 客户首条消息自动开启会话
		if sender != mongo.SenderCustomer {
			return nil, ErrParamInvalid
		}
		conv = &mongo.Conversation{
			CustomerID:      actor.ID,
			PersonaID:       req.PersonaID,
			AssignedAgentID: req.TargetAgentID,
			Status:          mongo.StatusNew,
			ReminderHandled: true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		id, err := s.repo.CreateConversation(ctx, conv)
		if err != nil {
			return nil, err
		}
		convID = id
		// 登记配对，首条消息经另一路径回显时在下方的判定里被吞掉
		_ = s.dispatcher.ShouldSuppress(convID, req.ClientSuppliedID)
	} else {
		var err error
		conv, err = s.repo.GetConversation(ctx, convID)
		if err != nil {
			return nil, mapRepoErr(err)
		}

		// 同一条逻辑消息经 HTTP 与 socket 两条路径重复到达：
		// 落库前去重，存储里只留一条。已落库的原件直接重放给调用方。
		if s.dispatcher.ShouldSuppress(convID, req.ClientSuppliedID) {
			for i := range conv.Messages {
				m := &conv.Messages[i]
				if m.ClientSuppliedID == req.ClientSuppliedID {
					log.InfoContext(ctx, "重复消息已抑制",
						"conversation_id", convID,
						"client_supplied_id", req.ClientSuppliedID,
					)
					return toChatMessageDTO(convID, m), nil
				}
			}
			// 缓存命中但存储里找不到原件：缓存只是尽力而为，按新消息继续
		}
	}

	if conv.Status == mongo.StatusClosed {
		return nil, ErrConversationClosed
	}

	msg := &mongo.Message{
		ID:               uuid.NewString(),
		Sender:           sender,
		Body:             req.Content,
		MsgType:          req.MsgType,
		ClientSuppliedID: req.ClientSuppliedID,
		SentAt:           now,
		ReadByAgent:      sender == mongo.SenderAgent,
		ReadByCustomer:   sender == mongo.SenderCustomer,
	}

	if err := s.repo.AppendMessage(ctx, convID, msg); err != nil {
		return nil, mapRepoErr(err)
	}

	// 同步提醒转换：坐席回复立即关闭提醒，客户回复整周期清零。
	// 转换失败不回滚消息本体，留给下一轮扫描自愈。
	if sender == mongo.SenderAgent {
		if err := s.repo.SetReminderHandled(ctx, convID, now); err != nil {
			log.ErrorContext(ctx, "关闭提醒周期失败", "conversation_id", convID, "err", err)
		}
	} else {
		if err := s.repo.ResetReminderCycle(ctx, convID); err != nil {
			log.ErrorContext(ctx, "重置提醒周期失败", "conversation_id", convID, "err", err)
		}
	}

	unread := conv.UnreadCustomerCount()
	if sender == mongo.SenderCustomer {
		unread++
	}

	res := toChatMessageDTO(convID, msg)
	last := &dto.LastMessageSummary{
		MessageID: msg.ID,
		Sender:    msg.Sender,
		Content:   msg.Body,
		MsgType:   msg.MsgType,
		SentAt:    msg.SentAt,
	}
	customerID := conv.CustomerID
	snapshot := conv

	s.enqueueSideEffect(func() {
		s.invalidator.InvalidateConversation(snapshot)
		bg := context.Background()
		if err := s.dispatcher.BroadcastMessage(bg, customerID, res, unread, last); err != nil {
			log.Error("消息广播失败", "conversation_id", convID, "err", err)
		}
	})

	return res, nil
}

// MarkAsRead 坐席将会话内客户消息批量置已读
func (s *chatServiceImpl) MarkAsRead(ctx context.Context, actor Actor, conversationID string) error {
	if actor.Role != consts.RoleOperator {
		return UnauthorizedError
	}

	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return mapRepoErr(err)
	}

	if err := s.repo.MarkMessagesRead(ctx, conversationID); err != nil {
		return mapRepoErr(err)
	}

	s.enqueueSideEffect(func() {
		s.invalidator.InvalidateConversation(conv)
	})
	return nil
}

// EditMessage 软编辑自己发送的消息，编辑后重新广播该消息
func (s *chatServiceImpl) EditMessage(ctx context.Context, actor Actor, req *dto.EditMessageReq) error {
	conv, msg, err := s.findOwnedMessage(ctx, actor, req.ConversationID, req.MessageID)
	if err != nil {
		return err
	}

	if err := s.repo.EditMessage(ctx, req.ConversationID, req.MessageID, req.Content); err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return ErrMessageNotFound
		}
		return err
	}

	edited := toChatMessageDTO(req.ConversationID, msg)
	edited.Content = req.Content
	edited.IsEdited = true
	// 编辑不参与幂等去重
	edited.ClientSuppliedID = ""

	customerID := conv.CustomerID
	s.enqueueSideEffect(func() {
		s.invalidator.InvalidateConversation(conv)
		bg := context.Background()
		if err := s.dispatcher.BroadcastMessage(bg, customerID, edited, conv.UnreadCustomerCount(), nil); err != nil {
			log.Error("编辑广播失败", "conversation_id", req.ConversationID, "err", err)
		}
	})
	return nil
}

// DeleteMessage 软删除：槽位保留，内容替换为 tombstone
func (s *chatServiceImpl) DeleteMessage(ctx context.Context, actor Actor, req *dto.DeleteMessageReq) error {
	conv, msg, err := s.findOwnedMessage(ctx, actor, req.ConversationID, req.MessageID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteMessage(ctx, req.ConversationID, req.MessageID, consts.TombstoneBody); err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return ErrMessageNotFound
		}
		return err
	}

	deleted := &dto.MessageDeletedDTO{
		Type:           dto.EnvelopeMessageDeleted,
		ConversationID: req.ConversationID,
		MessageID:      req.MessageID,
		Sender:         msg.Sender,
		Timestamp:      s.now(),
	}
	customerID := conv.CustomerID
	s.enqueueSideEffect(func() {
		s.invalidator.InvalidateConversation(conv)
		bg := context.Background()
		if err := s.dispatcher.BroadcastMessageDeleted(bg, customerID, deleted); err != nil {
			log.Error("删除广播失败", "conversation_id", req.ConversationID, "err", err)
		}
	})
	return nil
}

// GetConversation 单会话快照，分类现算不落库
func (s *chatServiceImpl) GetConversation(ctx context.Context, conversationID string) (*dto.ConversationDTO, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	cls := s.classifier.Classify(conv, s.now())

	res := &dto.ConversationDTO{
		ID:                     conv.ID.Hex(),
		CustomerID:             conv.CustomerID,
		PersonaID:              conv.PersonaID,
		AssignedAgentID:        conv.AssignedAgentID,
		Status:                 conv.Status,
		UnreadCount:            conv.UnreadCustomerCount(),
		Classification:         dto.ClassificationDTO{Type: cls.Type, Priority: cls.Priority},
		ReminderCount:          conv.ReminderCount,
		ReminderHandled:        conv.ReminderHandled,
		IsInPanicRoom:          conv.IsInPanicRoom,
		LastCustomerResponseAt: conv.LastCustomerResponseAt,
		LastAgentResponseAt:    conv.LastAgentResponseAt,
		PushBackUntil:          conv.PushBackUntil,
		UpdatedAt:              conv.UpdatedAt,
	}
	res.Messages = make([]dto.ChatMessageDTO, 0, len(conv.Messages))
	for i := range conv.Messages {
		res.Messages = append(res.Messages, *toChatMessageDTO(res.ID, &conv.Messages[i]))
	}
	return res, nil
}

// SetPanicRoom 紧急状态开关
func (s *chatServiceImpl) SetPanicRoom(ctx context.Context, conversationID string, enabled bool) error {
	if err := s.repo.SetPanicRoom(ctx, conversationID, enabled); err != nil {
		return mapRepoErr(err)
	}
	s.enqueueSideEffect(func() { s.invalidator.InvalidateAll() })
	return nil
}

// PushBack 将会话移出活跃队列一段时间，0 取消延后
func (s *chatServiceImpl) PushBack(ctx context.Context, conversationID string, duration time.Duration) error {
	var until *time.Time
	if duration > 0 {
		t := s.now().Add(duration)
		until = &t
	}
	if err := s.repo.SetPushBack(ctx, conversationID, until); err != nil {
		return mapRepoErr(err)
	}
	s.enqueueSideEffect(func() { s.invalidator.InvalidateAll() })
	return nil
}

// UpdateStatus 状态流转，closed 为终态
func (s *chatServiceImpl) UpdateStatus(ctx context.Context, conversationID string, status string) error {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return mapRepoErr(err)
	}
	if conv.Status == mongo.StatusClosed && status != mongo.StatusClosed {
		return ErrStatusInvalid
	}

	if err := s.repo.UpdateStatus(ctx, conversationID, status); err != nil {
		return mapRepoErr(err)
	}
	s.enqueueSideEffect(func() { s.invalidator.InvalidateConversation(conv) })
	return nil
}

func (s *chatServiceImpl) Close() {
	close(s.stopChan)
	s.wg.Wait()
	log.Info("ChatService shut down gracefully")
}

// findOwnedMessage 校验消息存在且属于当前操作者
func (s *chatServiceImpl) findOwnedMessage(ctx context.Context, actor Actor, conversationID, messageID string) (*mongo.Conversation, *mongo.Message, error) {
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, nil, mapRepoErr(err)
	}

	for i := range conv.Messages {
		m := &conv.Messages[i]
		if m.ID != messageID {
			continue
		}
		if m.IsDeleted {
			return nil, nil, ErrMessageNotFound
		}
		if m.Sender != actor.Sender() {
			return nil, nil, ErrMessageNotOwned
		}
		return conv, m, nil
	}
	return nil, nil, ErrMessageNotFound
}

func (s *chatServiceImpl) sideEffectWorker() {
	defer s.wg.Done()
	for {
		select {
		case fn := <-s.sideChan:
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Error("写后副作用 panic", "recover", r)
					}
				}()
				fn()
			}()
		case <-s.stopChan:
			return
		}
	}
}

func (s *chatServiceImpl) enqueueSideEffect(fn func()) {
	select {
	case s.sideChan <- fn:
	default:
		log.Warn("副作用队列已满，本次丢弃")
	}
}

func mapRepoErr(err error) error {
	if errors.Is(err, mongodrv.ErrNoDocuments) {
		return ErrConversationNotFound
	}
	return err
}

func toChatMessageDTO(conversationID string, m *mongo.Message) *dto.ChatMessageDTO {
	return &dto.ChatMessageDTO{
		Type:             dto.EnvelopeChatMessage,
		ConversationID:   conversationID,
		MessageID:        m.ID,
		Sender:           m.Sender,
		Content:          m.Body,
		MsgType:          m.MsgType,
		Timestamp:        m.SentAt,
		ReadByAgent:      m.ReadByAgent,
		ReadByCustomer:   m.ReadByCustomer,
		IsEdited:         m.IsEdited,
		IsDeleted:        m.IsDeleted,
		ClientSuppliedID: m.ClientSuppliedID,
	}
}
