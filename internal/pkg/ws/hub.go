package ws

import (
	"Lighthouse/internal/pkg/consts"
	"Lighthouse/internal/pkg/redis"
	"context"
	log "log/slog"

	"github.com/goccy/go-json"
)

// Hub 维护全部在线会话并把总线帧扇出到匹配的连接。
// 慢消费者不阻塞总线：缓冲满直接断开该连接。
type Hub struct {
	sessions   map[*Session]struct{}
	register   chan *Session
	unregister chan *Session
}

func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[*Session]struct{}),
		register:   make(chan *Session, 16),
		unregister: make(chan *Session, 16),
	}
}

func (h *Hub) Register(s *Session) {
	h.register <- s
}

func (h *Hub) Unregister(s *Session) {
	h.unregister <- s
}

// Run 订阅分发频道并驱动注册/注销/扇出，阻塞到 ctx 取消
func (h *Hub) Run(ctx context.Context) error {
	sub := redis.Subscribe(ctx, consts.DispatchChannel)
	defer sub.Close()

	log.InfoContext(ctx, "WebSocket Hub 已启动", "channel", consts.DispatchChannel)

	for {
		select {
		case <-ctx.Done():
			for s := range h.sessions {
				s.shutdown()
			}
			return ctx.Err()
		case s := <-h.register:
			h.sessions[s] = struct{}{}
			log.InfoContext(ctx, "会话已注册", "actor_id", s.ActorID, "role", s.Role, "online", len(h.sessions))
		case s := <-h.unregister:
			if _, ok := h.sessions[s]; ok {
				delete(h.sessions, s)
				s.shutdown()
				log.InfoContext(ctx, "会话已注销", "actor_id", s.ActorID, "online", len(h.sessions))
			}
		case msg, ok := <-sub.Channel():
			if !ok {
				return nil
			}
			var frame BusFrame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				log.WarnContext(ctx, "无法解析总线帧", "error", err)
				continue
			}
			h.fanOut(ctx, &frame)
		}
	}
}

// fanOut 客户端收到的就是 Payload 本身，路由元数据不外露
func (h *Hub) fanOut(ctx context.Context, frame *BusFrame) {
	for s := range h.sessions {
		if !s.matches(frame) {
			continue
		}
		if !s.trySend(frame.Payload) {
			log.WarnContext(ctx, "会话缓冲已满，断开连接", "actor_id", s.ActorID)
			delete(h.sessions, s)
			s.shutdown()
		}
	}
}
