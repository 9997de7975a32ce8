package handler

import (
	"go.uber.org/zap"

	"github.com/jamesaja2/warphotokalender/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth    *AuthHandler
	Status  *StatusHandler
	Booking *BookingHandler
	Admin   *AdminHandler
	Events  *EventsHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(svc.Auth),
		Status:  NewStatusHandler(svc.Status),
		Booking: NewBookingHandler(svc.Booking),
		Admin:   NewAdminHandler(svc.Admin, svc.Export),
		Events:  NewEventsHandler(svc.Event, logger),
	}
}
