package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jamesaja2/warphotokalender/config"
	"github.com/jamesaja2/warphotokalender/internal/dto"
	"github.com/jamesaja2/warphotokalender/pkg/jwt"
)

// ── 认证模块业务错误 ──

var (
	ErrWrongPassword = errors.New("管理口令错误")
)

// AuthService 管理端认证业务接口
// 系统没有用户体系，只有一个共享管理口令；校验通过后签发短期 JWT
type AuthService interface {
	Login(ctx context.Context, req *dto.AdminLoginRequest) (*dto.AdminLoginResponse, error)
}

type authService struct {
	cfg    *config.AdminConfig
	jwtMgr *jwt.Manager
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(cfg *config.AdminConfig, jwtMgr *jwt.Manager, logger *zap.Logger) AuthService {
	return &authService{cfg: cfg, jwtMgr: jwtMgr, logger: logger}
}

func (s *authService) Login(ctx context.Context, req *dto.AdminLoginRequest) (*dto.AdminLoginResponse, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("管理端登录失败：口令错误")
		return nil, ErrWrongPassword
	}

	token, err := s.jwtMgr.GenerateAdminToken()
	if err != nil {
		s.logger.Error("签发管理会话失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("管理端登录成功")
	return &dto.AdminLoginResponse{
		Token:     token,
		ExpiresIn: int64(s.cfg.TokenTTL.Seconds()),
	}, nil
}
