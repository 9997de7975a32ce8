package service

import (
	"go.uber.org/zap"

	"github.com/jamesaja2/warphotokalender/config"
	"github.com/jamesaja2/warphotokalender/internal/repository"
	"github.com/jamesaja2/warphotokalender/pkg/clock"
	"github.com/jamesaja2/warphotokalender/pkg/jwt"
	"github.com/jamesaja2/warphotokalender/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth    AuthService
	Status  StatusService
	Booking BookingService
	Admin   AdminService
	Export  ExportService
	Event   EventService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	clk clock.Clock,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	event := NewEventService(rdb, logger)
	status := NewStatusService(repo, clk, event, cfg.Booking.DisplayTimezone, logger)

	return &Service{
		Auth:    NewAuthService(&cfg.Admin, jwtMgr, logger),
		Status:  status,
		Booking: NewBookingService(repo, status, event, logger),
		Admin:   NewAdminService(repo, event, cfg.Booking.MaxSpotCapacity, logger),
		Export:  NewExportService(repo, status, logger),
		Event:   event,
	}
}
