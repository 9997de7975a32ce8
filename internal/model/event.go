package model

import "time"

// 变更事件实体类型
type EntityType string

const (
	EntitySpot    EntityType = "spot"
	EntityKelas   EntityType = "kelas"
	EntitySetting EntityType = "setting"
)

// 变更类型
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// ChangeEvent 变更广播事件
// 至少一次投递；观察端按实体 ID 幂等应用（同实体后到覆盖先到）
type ChangeEvent struct {
	ID         string      `json:"id"` // uuid，用于去重
	Entity     EntityType  `json:"entity"`
	ChangeType ChangeType  `json:"change_type"`
	Payload    interface{} `json:"payload"`
	OccurredAt time.Time   `json:"occurred_at"`
}
