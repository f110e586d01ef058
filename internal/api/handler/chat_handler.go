package handler

import (
	"Lighthouse/internal/api/dto"
	"Lighthouse/internal/pkg/response"
	"Lighthouse/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService service.ChatService
}

func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// actorFromCtx 从鉴权中间件注入的上下文中还原操作者身份
func actorFromCtx(c *gin.Context) service.Actor {
	return service.Actor{
		ID:   c.GetUint64("actor_id"),
		Role: c.GetString("role"),
	}
}

// SendMessage 发送消息接口
func (s *ChatHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.chatService.SendMessage(c, actorFromCtx(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// MarkAsRead 坐席标记会话内客户消息为已读
func (s *ChatHandler) MarkAsRead(c *gin.Context) {
	var req dto.MarkAsReadReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err := s.chatService.MarkAsRead(c, actorFromCtx(c), req.ConversationID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// EditMessage 编辑自己发送的消息
func (s *ChatHandler) EditMessage(c *gin.Context) {
	var req dto.EditMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err := s.chatService.EditMessage(c, actorFromCtx(c), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// DeleteMessage 软删除自己发送的消息
func (s *ChatHandler) DeleteMessage(c *gin.Context) {
	var req dto.DeleteMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err := s.chatService.DeleteMessage(c, actorFromCtx(c), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
