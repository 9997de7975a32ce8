package model

// Kelas 班级表 — 对应 kelas
// SpotID 非空时，所指点位的 chosen_by 中必然恰好包含本班级一次（双向一致）
type Kelas struct {
	ID     int64  `gorm:"primaryKey;autoIncrement"   json:"id"`
	Name   string `gorm:"type:varchar(100);not null;unique" json:"name"`
	SpotID *int64 `gorm:"index"                      json:"spot_id"`
	BaseModel

	// 关联
	Spot *Spot `gorm:"foreignKey:SpotID;references:ID" json:"spot,omitempty"`
}

// TableName 指定表名
func (Kelas) TableName() string { return "kelas" }

// IsBooked 班级是否已完成预约
func (k *Kelas) IsBooked() bool {
	return k.SpotID != nil
}
