package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jamesaja2/warphotokalender/internal/service"
	"github.com/jamesaja2/warphotokalender/pkg/response"
)

// StatusHandler 系统状态与权威时间 HTTP 处理器
type StatusHandler struct {
	statusSvc service.StatusService
}

// NewStatusHandler 创建 StatusHandler
func NewStatusHandler(statusSvc service.StatusService) *StatusHandler {
	return &StatusHandler{statusSvc: statusSvc}
}

// SystemStatus 系统状态
// GET /api/v1/status
func (h *StatusHandler) SystemStatus(c *gin.Context) {
	status, err := h.statusSvc.SystemStatus(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrGateUnknown) {
			response.ServiceUnavailable(c, 20007, "时钟未同步，预约状态未知")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, status)
}

// ServerTime 权威时间端点（校时客户端消费）
// GET /api/v1/time
func (h *StatusHandler) ServerTime(c *gin.Context) {
	now, err := h.statusSvc.ServerTime()
	if err != nil {
		response.ServiceUnavailable(c, 20007, "权威时间不可用")
		return
	}

	// 校时端点禁止缓存，否则偏移计算会被污染
	c.Header("Cache-Control", "no-store")
	response.OK(c, now)
}
