package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jamesaja2/warphotokalender/internal/dto"
	"github.com/jamesaja2/warphotokalender/internal/service"
	"github.com/jamesaja2/warphotokalender/pkg/response"
)

// BookingHandler 预约模块 HTTP 处理器
type BookingHandler struct {
	bookingSvc service.BookingService
}

// NewBookingHandler 创建 BookingHandler
func NewBookingHandler(bookingSvc service.BookingService) *BookingHandler {
	return &BookingHandler{bookingSvc: bookingSvc}
}

// Book 发起预约
// POST /api/v1/bookings
func (h *BookingHandler) Book(c *gin.Context) {
	var req dto.BookSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.bookingSvc.AttemptBooking(c.Request.Context(), &req)
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	response.OK(c, result)
}

// ListSpots 点位列表
// GET /api/v1/spots
func (h *BookingHandler) ListSpots(c *gin.Context) {
	spots, err := h.bookingSvc.ListSpots(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, spots)
}

// ListKelas 班级列表
// GET /api/v1/kelas
func (h *BookingHandler) ListKelas(c *gin.Context) {
	kelas, err := h.bookingSvc.ListKelas(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, kelas)
}

// handleBookingError 统一处理预约模块业务错误
// 拒绝是预期结果：返回机器可读 reason，客户端可据此回滚乐观渲染
func (h *BookingHandler) handleBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBookingNotOpen):
		response.Rejected(c, http.StatusForbidden, 20001, "预约尚未开放", dto.ReasonBookingNotOpen)
	case errors.Is(err, service.ErrKelasAlreadyBooked):
		response.Rejected(c, http.StatusConflict, 20002, "班级已选过点位", dto.ReasonKelasAlreadyBooked)
	case errors.Is(err, service.ErrSpotNotFound):
		response.Rejected(c, http.StatusNotFound, 20003, "点位不存在", dto.ReasonSpotNotFound)
	case errors.Is(err, service.ErrSpotFull):
		response.Rejected(c, http.StatusConflict, 20004, "点位已满", dto.ReasonSpotFull)
	case errors.Is(err, service.ErrDuplicateEntry):
		response.Rejected(c, http.StatusConflict, 20005, "班级已登记在该点位", dto.ReasonDuplicateEntry)
	case errors.Is(err, service.ErrKelasNotFound):
		response.Rejected(c, http.StatusNotFound, 20006, "班级不存在", dto.ReasonKelasNotFound)
	case errors.Is(err, service.ErrGateUnknown):
		response.Rejected(c, http.StatusServiceUnavailable, 20007, "时钟未同步，预约状态未知", dto.ReasonGateUnknown)
	default:
		response.InternalError(c)
	}
}
