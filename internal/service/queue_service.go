package service

import (
	"Lighthouse/internal/api/dto"
	"Lighthouse/internal/pkg/cache"
	"Lighthouse/internal/pkg/consts"
	"Lighthouse/internal/pkg/mongo"
	"context"
	log "log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/jinzhu/copier"
)

// QueueService 实时队列列表：读穿缓存 + 批量分类。
// 主动失效是主要的正确性手段，TTL 只兜底漏掉的失效路径。
type QueueService interface {
	GetLiveQueue(ctx context.Context, agentID uint64) (*dto.LiveQueueListDTO, error)
	InvalidateConversation(conv *mongo.Conversation)
	InvalidateAll()
}

type queueServiceImpl struct {
	repo       mongo.ConversationRepo
	classifier *Classifier
	listing    *cache.TTLStore
	now        func() time.Time
}

func NewQueueService(repo mongo.ConversationRepo, classifier *Classifier, listing *cache.TTLStore) QueueService {
	return &queueServiceImpl{
		repo:       repo,
		classifier: classifier,
		listing:    listing,
		now:        time.Now,
	}
}

// GetLiveQueue 获取分类后的待处理列表，agentID 为 0 表示全局视图
func (s *queueServiceImpl) GetLiveQueue(ctx context.Context, agentID uint64) (*dto.LiveQueueListDTO, error) {
	start := time.Now()
	key := scopeKey(agentID)

	if v, ok := s.listing.Get(key); ok {
		cached := v.(*dto.LiveQueueListDTO)
		out := *cached
		out.Meta.ResponseTimeMs = time.Since(start).Milliseconds()
		out.Meta.FromCache = true
		return &out, nil
	}

	convs, err := s.repo.ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]dto.LiveQueueItemDTO, 0, len(convs))
	for _, conv := range convs {
		if agentID != 0 && conv.AssignedAgentID != agentID {
			continue
		}
		// 延后窗口内的会话不进活跃队列
		if conv.PushedBack(now) {
			continue
		}
		items = append(items, s.toItem(conv, now))
	}

	// 优先级降序，同级按最近更新降序
	sort.Slice(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})

	list := &dto.LiveQueueListDTO{
		Items: items,
		Meta: dto.QueueMetaDTO{
			TotalCount:     len(items),
			Timestamp:      now,
			ResponseTimeMs: time.Since(start).Milliseconds(),
		},
	}
	s.listing.Set(key, list)

	log.InfoContext(ctx, "实时队列重建", "scope", key, "count", len(items))
	return list, nil
}

// InvalidateConversation 失效全局键与该会话可能出现的坐席范围键
func (s *queueServiceImpl) InvalidateConversation(conv *mongo.Conversation) {
	keys := []string{consts.LiveQueueAllKey}
	if conv.AssignedAgentID != 0 {
		keys = append(keys, scopeKey(conv.AssignedAgentID))
	}
	s.listing.Delete(keys...)
}

// InvalidateAll 扫描等批量写后整体失效，范围键无法逐一枚举时使用
func (s *queueServiceImpl) InvalidateAll() {
	s.listing.DeletePrefix(consts.LiveQueueAllKey)
	s.listing.DeletePrefix(consts.LiveQueueAgentKey)
}

func (s *queueServiceImpl) toItem(conv *mongo.Conversation, now time.Time) dto.LiveQueueItemDTO {
	var item dto.LiveQueueItemDTO
	_ = copier.Copy(&item, conv)

	item.ConversationID = conv.ID.Hex()
	cls := s.classifier.Classify(conv, now)
	item.Type = cls.Type
	item.Priority = cls.Priority
	item.UnreadCount = conv.UnreadCustomerCount()

	if m := conv.LastMessage(); m != nil {
		item.LastMessage = &dto.LastMessageSummary{
			MessageID: m.ID,
			Sender:    m.Sender,
			Content:   m.Body,
			MsgType:   m.MsgType,
			SentAt:    m.SentAt,
		}
	}
	return item
}

func scopeKey(agentID uint64) string {
	if agentID == 0 {
		return consts.LiveQueueAllKey
	}
	return consts.LiveQueueAgentKey + strconv.FormatUint(agentID, 10)
}
