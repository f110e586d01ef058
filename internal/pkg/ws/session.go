package ws

import (
	"Lighthouse/internal/api/dto"
	"Lighthouse/internal/pkg/consts"
	"context"
	log "log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// FrameHandler 处理入站帧，由接入层注入，错误会以 error 信封回给本连接
type FrameHandler func(ctx context.Context, s *Session, frame *dto.InboundFrame) *dto.ErrorDTO

// Session 一条 WebSocket 连接。写统一走 send 通道，由 WritePump 独占 conn 写端。
type Session struct {
	ActorID        uint64
	Role           string
	ConversationID string

	conn      *websocket.Conn
	send      chan []byte
	handle    FrameHandler
	heartbeat time.Duration

	mu     sync.Mutex
	closed bool
}

func NewSession(actorID uint64, role, conversationID string, conn *websocket.Conn, bufferSize int, heartbeat time.Duration, handle FrameHandler) *Session {
	return &Session{
		ActorID:        actorID,
		Role:           role,
		ConversationID: conversationID,
		conn:           conn,
		send:           make(chan []byte, bufferSize),
		handle:         handle,
		heartbeat:      heartbeat,
	}
}

// matches 判断帧是否投递给本会话。
// 客服看到全部，客户只看到自己会话的消息与删除事件。
func (s *Session) matches(frame *BusFrame) bool {
	if s.Role == consts.RoleOperator {
		return true
	}
	switch frame.Type {
	case dto.EnvelopeChatMessage, dto.EnvelopeMessageDeleted:
		if frame.CustomerID != 0 && frame.CustomerID == s.ActorID {
			return true
		}
		return frame.ConversationID != "" && frame.ConversationID == s.ConversationID
	case dto.EnvelopeUserPresence:
		return true
	default:
		return false
	}
}

// trySend 非阻塞投递，缓冲满返回 false，由调用方决定断开
func (s *Session) trySend(payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// SendError 以 error 信封回写本连接
func (s *Session) SendError(code int, message string) {
	payload, err := json.Marshal(&dto.ErrorDTO{
		Type:    dto.EnvelopeError,
		Code:    code,
		Message: message,
	})
	if err != nil {
		return
	}
	s.trySend(payload)
}

// shutdown 关闭 send 通道，只能执行一次
func (s *Session) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// ReadPump 读循环，连接关闭或出错时注销会话。
// 畸形帧不断线，回一个 error 信封继续读。
func (s *Session) ReadPump(ctx context.Context, hub *Hub) {
	defer func() {
		hub.Unregister(s)
		_ = s.conn.Close()
	}()

	pongWait := s.heartbeat * 2
	s.conn.SetReadLimit(64 << 10)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WarnContext(ctx, "WebSocket 读取异常", "actor_id", s.ActorID, "error", err)
			}
			return
		}

		var frame dto.InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.SendError(400, "非法的消息格式")
			continue
		}

		if frame.Type == dto.InboundPing {
			continue
		}

		if s.handle == nil {
			continue
		}
		if errDTO := s.handle(ctx, s, &frame); errDTO != nil {
			errDTO.Type = dto.EnvelopeError
			if payload, err := json.Marshal(errDTO); err == nil {
				s.trySend(payload)
			}
		}
	}
}

// WritePump 写循环，独占 conn 写端并按心跳间隔发 ping
func (s *Session) WritePump(ctx context.Context) {
	ticker := time.NewTicker(s.heartbeat)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.WarnContext(ctx, "WebSocket 写入失败", "actor_id", s.ActorID, "error", err)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
