package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jamesaja2/warphotokalender/internal/dto"
	"github.com/jamesaja2/warphotokalender/internal/service"
	"github.com/jamesaja2/warphotokalender/pkg/response"
)

// AdminHandler 管理模块 HTTP 处理器
type AdminHandler struct {
	adminSvc  service.AdminService
	exportSvc service.ExportService
}

// NewAdminHandler 创建 AdminHandler
func NewAdminHandler(adminSvc service.AdminService, exportSvc service.ExportService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc, exportSvc: exportSvc}
}

// Overview 管理端总览
// GET /api/v1/admin/overview
func (h *AdminHandler) Overview(c *gin.Context) {
	overview, err := h.adminSvc.Overview(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, overview)
}

// AddSpot 新增点位
// POST /api/v1/admin/spots
func (h *AdminHandler) AddSpot(c *gin.Context) {
	var req dto.AddSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	spot, err := h.adminSvc.AddSpot(c.Request.Context(), &req)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}
	response.Created(c, spot)
}

// UpdateSpot 编辑点位
// PUT /api/v1/admin/spots/:id
func (h *AdminHandler) UpdateSpot(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req dto.UpdateSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	spot, err := h.adminSvc.UpdateSpot(c.Request.Context(), id, &req)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}
	response.OK(c, spot)
}

// DeleteSpot 删除点位（仅限无人登记）
// DELETE /api/v1/admin/spots/:id
func (h *AdminHandler) DeleteSpot(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.adminSvc.DeleteSpot(c.Request.Context(), id); err != nil {
		h.handleAdminError(c, err)
		return
	}
	response.OK(c, nil)
}

// AddKelas 新增班级
// POST /api/v1/admin/kelas
func (h *AdminHandler) AddKelas(c *gin.Context) {
	var req dto.AddKelasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	kelas, err := h.adminSvc.AddKelas(c.Request.Context(), &req)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}
	response.Created(c, kelas)
}

// DeleteKelas 删除班级（仅限未预约）
// DELETE /api/v1/admin/kelas/:id
func (h *AdminHandler) DeleteKelas(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.adminSvc.DeleteKelas(c.Request.Context(), id); err != nil {
		h.handleAdminError(c, err)
		return
	}
	response.OK(c, nil)
}

// SetBookingStart 设置/清除预约开放时刻
// PUT /api/v1/admin/booking-start
func (h *AdminHandler) SetBookingStart(c *gin.Context) {
	var req dto.SetBookingStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.adminSvc.SetBookingStart(c.Request.Context(), &req); err != nil {
		h.handleAdminError(c, err)
		return
	}
	response.OK(c, nil)
}

// ResetBookings 全量重置预约
// POST /api/v1/admin/reset
func (h *AdminHandler) ResetBookings(c *gin.Context) {
	if err := h.adminSvc.ResetAllBookings(c.Request.Context()); err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}

// ExportBookings 导出预约名单 Excel
// GET /api/v1/admin/export/bookings
func (h *AdminHandler) ExportBookings(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportBookings(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrExportNoSpots) {
			response.NotFound(c, 22001, "暂无点位可导出")
			return
		}
		response.InternalError(c)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// ExportBookingStartICS 导出预约开放时刻日历
// GET /api/v1/admin/export/booking-start.ics
func (h *AdminHandler) ExportBookingStartICS(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportBookingStartICS(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrExportNoStartTime) {
			response.NotFound(c, 22002, "预约开放时刻未设置")
			return
		}
		response.InternalError(c)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/calendar", buf.Bytes())
}

// pathID 解析路径中的数字 ID
func (h *AdminHandler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "路径参数无效")
		return 0, false
	}
	return id, true
}

// handleAdminError 统一处理管理模块业务错误
func (h *AdminHandler) handleAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyName):
		response.BadRequest(c, 21002, "名称不能为空")
	case errors.Is(err, service.ErrBadCapacity):
		response.BadRequest(c, 21001, "容量必须为正整数且不超过上限")
	case errors.Is(err, service.ErrCapacityTooSmall):
		response.Conflict(c, 21007, "容量不能小于当前已登记数量")
	case errors.Is(err, service.ErrDuplicateKelasName):
		response.Conflict(c, 21003, "班级名称已存在")
	case errors.Is(err, service.ErrBadInstant):
		response.BadRequest(c, 21004, "时间格式无效，需要 RFC3339")
	case errors.Is(err, service.ErrSpotNotEmpty):
		response.Conflict(c, 21005, "点位仍有已登记班级，不能删除")
	case errors.Is(err, service.ErrKelasAssigned):
		response.Conflict(c, 21006, "班级已预约点位，不能删除")
	case errors.Is(err, service.ErrSpotNotFound):
		response.NotFound(c, 20003, "点位不存在")
	case errors.Is(err, service.ErrKelasNotFound):
		response.NotFound(c, 20006, "班级不存在")
	default:
		response.InternalError(c)
	}
}
