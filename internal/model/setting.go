package model

// 设置键名
const (
	// SettingBookingStartTime 预约开放时刻，RFC3339 UTC 字符串；缺失 = 永不开放
	SettingBookingStartTime = "booking_start_time"
)

// Setting 系统设置表 — 对应 settings（key/value）
type Setting struct {
	Key   string `gorm:"type:varchar(100);primaryKey" json:"key"`
	Value string `gorm:"type:text;not null"           json:"value"`
	BaseModel
}

// TableName 指定表名
func (Setting) TableName() string { return "settings" }
