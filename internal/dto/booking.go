package dto

// BookSpotRequest 预约请求
// kelas_name 与原系统保持一致由前端透传，服务端以库内名称为准做校验
type BookSpotRequest struct {
	SpotID    int64  `json:"spot_id" binding:"required"`
	KelasID   int64  `json:"kelas_id" binding:"required"`
	KelasName string `json:"kelas_name" binding:"required"`
}

// BookSpotResponse 预约成功响应
type BookSpotResponse struct {
	SpotID   int64    `json:"spot_id"`
	KelasID  int64    `json:"kelas_id"`
	ChosenBy []string `json:"chosen_by"` // 提交后的点位占用列表（含本班级）
}

// ── 拒绝原因（机器可读，顺序即检查优先级）──

const (
	ReasonBookingNotOpen     = "BOOKING_NOT_OPEN"
	ReasonKelasAlreadyBooked = "CLASS_ALREADY_BOOKED"
	ReasonSpotNotFound       = "SPOT_NOT_FOUND"
	ReasonSpotFull           = "SPOT_FULL"
	ReasonDuplicateEntry     = "DUPLICATE_ENTRY"
	ReasonKelasNotFound      = "CLASS_NOT_FOUND"
	ReasonGateUnknown        = "GATE_UNKNOWN"
)
