package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jamesaja2/warphotokalender/internal/dto"
	"github.com/jamesaja2/warphotokalender/internal/service"
	"github.com/jamesaja2/warphotokalender/pkg/response"
)

// AuthHandler 管理端认证 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login 管理端登录（共享口令换取会话 Token）
// POST /api/v1/admin/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrWrongPassword) {
			response.Unauthorized(c, 10002, "管理口令错误")
			return
		}
		response.InternalError(c)
		return
	}

	response.OK(c, result)
}
