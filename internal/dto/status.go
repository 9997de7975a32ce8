package dto

// SystemStatusResponse 系统状态
// booking_start_time 为空指针表示未设置（预约永不开放）
type SystemStatusResponse struct {
	BookingActive    bool    `json:"booking_active"`
	BookingStartTime *string `json:"booking_start_time"`
	ServerTime       string  `json:"server_time"` // RFC3339 UTC
}

// ServerTimeResponse 权威时间端点响应
// 与原系统 /api/time 对齐：毫秒时间戳 + ISO 串；WIB 仅为展示字段
type ServerTimeResponse struct {
	Timestamp int64        `json:"timestamp"` // epoch 毫秒
	ISOString string       `json:"iso_string"`
	Timezone  string       `json:"timezone"` // 固定 "UTC"
	WIB       WIBTimeBlock `json:"wib"`
}

// WIBTimeBlock 展示时区（Asia/Jakarta）下的同一时刻
type WIBTimeBlock struct {
	Timestamp    int64  `json:"timestamp"`
	ISOString    string `json:"iso_string"`
	LocaleString string `json:"locale_string"`
}
