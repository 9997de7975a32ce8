package model

// Spot 拍摄点位表 — 对应 spots
// chosen_by 的元素顺序即接受预约的先后顺序，长度始终不超过 capacity
type Spot struct {
	ID       int64       `gorm:"primaryKey;autoIncrement"        json:"id"`
	Name     string      `gorm:"type:varchar(100);not null"      json:"name"`
	Capacity int         `gorm:"not null"                        json:"capacity"`
	ChosenBy StringArray `gorm:"type:text[];not null;default:'{}'" json:"chosen_by"`
	BaseModel
}

// TableName 指定表名
func (Spot) TableName() string { return "spots" }

// IsFull 点位是否已满
func (s *Spot) IsFull() bool {
	return len(s.ChosenBy) >= s.Capacity
}
