package handler

import (
	"Lighthouse/internal/api/config"
	"Lighthouse/internal/api/dto"
	"Lighthouse/internal/pkg/response"
	"Lighthouse/internal/pkg/security"
	"Lighthouse/internal/pkg/ws"
	"Lighthouse/internal/service"
	"context"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	hub         *ws.Hub
	chatService service.ChatService
	presence    *service.PresenceTracker
	cfg         config.DispatchConfig
}

func NewWSHandler(hub *ws.Hub, chatService service.ChatService, presence *service.PresenceTracker, cfg config.DispatchConfig) *WSHandler {
	return &WSHandler{
		hub:         hub,
		chatService: chatService,
		presence:    presence,
		cfg:         cfg,
	}
}

// Connect 建立实时推送连接。
// 浏览器 WebSocket 无法携带自定义 Header，token 走查询参数。
func (s *WSHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, service.UnauthorizedError)
		return
	}
	claims, err := security.ValidateToken(token)
	if err != nil {
		log.Warn("WS 鉴权失败", "err", err)
		response.Error(c, service.UnauthorizedError)
		return
	}

	// 客户连接绑定单个会话，坐席连接订阅全量
	conversationID := c.Query("conversation_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}

	session := ws.NewSession(
		claims.ActorID,
		claims.Role,
		conversationID,
		conn,
		s.cfg.SendBufferSize,
		s.cfg.HeartbeatInterval,
		s.handleFrame,
	)
	s.hub.Register(session)
	s.presence.Touch(c.Request.Context(), claims.ActorID, claims.Role)

	log.Info("WS 连接已建立", "actor_id", claims.ActorID, "role", claims.Role)

	ctx := context.Background()
	go session.WritePump(ctx)
	session.ReadPump(ctx, s.hub)

	s.presence.Offline(ctx, claims.ActorID, claims.Role)
	log.Info("WS 连接已断开", "actor_id", claims.ActorID)
}

// handleFrame 入站帧分发。消息写路径与 HTTP 接口共用同一套服务，
// 幂等去重在广播出口统一处理。
func (s *WSHandler) handleFrame(ctx context.Context, session *ws.Session, frame *dto.InboundFrame) *dto.ErrorDTO {
	actor := service.Actor{ID: session.ActorID, Role: session.Role}
	s.presence.Touch(ctx, session.ActorID, session.Role)

	switch frame.Type {
	case dto.InboundChatMessage:
		msgType := frame.MsgType
		if msgType == "" {
			msgType = "text"
		}
		req := &dto.SendMessageReq{
			ConversationID:   frame.ConversationID,
			MsgType:          msgType,
			Content:          frame.Content,
			ClientSuppliedID: frame.ClientSuppliedID,
		}
		if req.Content == "" {
			return frameError(service.ErrParamInvalid, frame.ConversationID)
		}
		if _, err := s.chatService.SendMessage(ctx, actor, req); err != nil {
			return frameError(err, frame.ConversationID)
		}
		return nil

	case dto.InboundMarkRead:
		if err := s.chatService.MarkAsRead(ctx, actor, frame.ConversationID); err != nil {
			return frameError(err, frame.ConversationID)
		}
		return nil

	default:
		return frameError(service.ErrParamInvalid, frame.ConversationID)
	}
}

func frameError(err error, conversationID string) *dto.ErrorDTO {
	return &dto.ErrorDTO{
		Type:           dto.EnvelopeError,
		Code:           service.ErrorCode(err),
		Message:        err.Error(),
		ConversationID: conversationID,
	}
}
