package handler

import (
	"Lighthouse/internal/api/dto"
	"Lighthouse/internal/pkg/consts"
	"Lighthouse/internal/pkg/response"
	"Lighthouse/internal/service"
	"time"

	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	chatService     service.ChatService
	reminderService service.ReminderService
}

func NewConversationHandler(chatService service.ChatService, reminderService service.ReminderService) *ConversationHandler {
	return &ConversationHandler{
		chatService:     chatService,
		reminderService: reminderService,
	}
}

// requireOperator 会话管理类操作仅限坐席
func requireOperator(c *gin.Context) bool {
	if c.GetString("role") != consts.RoleOperator {
		response.Error(c, service.UnauthorizedError)
		return false
	}
	return true
}

// GetConversation 拉取单个会话快照
func (s *ConversationHandler) GetConversation(c *gin.Context) {
	res, err := s.chatService.GetConversation(c, c.Param("conversation_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// UpdateStatus 会话状态流转
func (s *ConversationHandler) UpdateStatus(c *gin.Context) {
	if !requireOperator(c) {
		return
	}

	var req dto.StatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err := s.chatService.UpdateStatus(c, c.Param("conversation_id"), req.Status); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// SetPanicRoom 紧急状态开关
func (s *ConversationHandler) SetPanicRoom(c *gin.Context) {
	if !requireOperator(c) {
		return
	}

	var req dto.PanicReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err := s.chatService.SetPanicRoom(c, c.Param("conversation_id"), *req.Enabled); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// PushBack 延后会话，0 分钟表示取消延后
func (s *ConversationHandler) PushBack(c *gin.Context) {
	if !requireOperator(c) {
		return
	}

	var req dto.PushBackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	duration := time.Duration(req.DurationMinutes) * time.Minute
	if err := s.chatService.PushBack(c, c.Param("conversation_id"), duration); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Snooze 暂缓当前提醒
func (s *ConversationHandler) Snooze(c *gin.Context) {
	if !requireOperator(c) {
		return
	}

	var req dto.SnoozeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	duration := time.Duration(req.DurationMinutes) * time.Minute
	if err := s.reminderService.Snooze(c, c.Param("conversation_id"), duration); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// MarkHandled 手动关闭当前提醒周期
func (s *ConversationHandler) MarkHandled(c *gin.Context) {
	if !requireOperator(c) {
		return
	}

	if err := s.reminderService.MarkHandled(c, c.Param("conversation_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
