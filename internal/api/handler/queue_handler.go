package handler

import (
	"Lighthouse/internal/pkg/response"
	"Lighthouse/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type QueueHandler struct {
	queueService service.QueueService
}

func NewQueueHandler(queueService service.QueueService) *QueueHandler {
	return &QueueHandler{queueService: queueService}
}

// GetLiveQueue 获取分类排序后的实时队列，
// 不带 agent_id 时返回全局视图
func (s *QueueHandler) GetLiveQueue(c *gin.Context) {
	if !requireOperator(c) {
		return
	}

	agentID, _ := strconv.ParseUint(c.Query("agent_id"), 10, 64)

	res, err := s.queueService.GetLiveQueue(c, agentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
