package dto

import "github.com/jamesaja2/warphotokalender/internal/model"

// AdminLoginRequest 管理端登录请求（共享口令）
type AdminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// AdminLoginResponse 管理端登录响应
type AdminLoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"` // 秒
}

// AddSpotRequest 新增点位请求
type AddSpotRequest struct {
	Name     string `json:"name" binding:"required"`
	Capacity int    `json:"capacity" binding:"required"`
}

// UpdateSpotRequest 编辑点位请求（部分更新）
type UpdateSpotRequest struct {
	Name     *string `json:"name"`
	Capacity *int    `json:"capacity"`
}

// AddKelasRequest 新增班级请求
type AddKelasRequest struct {
	Name string `json:"name" binding:"required"`
}

// SetBookingStartRequest 设置预约开放时刻
// booking_time 为 RFC3339 时间串；空串表示清除设置（预约永不开放）
type SetBookingStartRequest struct {
	BookingTime string `json:"booking_time"`
}

// AdminOverviewResponse 管理端总览（与原系统 GET /api/admin 对齐）
type AdminOverviewResponse struct {
	Spots    []model.Spot    `json:"spots"`
	Kelas    []model.Kelas   `json:"kelas"`
	Settings []model.Setting `json:"settings"`
}
