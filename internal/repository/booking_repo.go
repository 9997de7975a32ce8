package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jamesaja2/warphotokalender/internal/model"
)

// ── 预约提交冲突错误 ──
//
// 录取判定在事务内完成，结果必须由仓储层表达；
// Service 层把这些哨兵错误翻译成对外的拒绝原因。

var (
	// ErrSpotNotFound 点位不存在
	ErrSpotNotFound = errors.New("点位不存在")
	// ErrKelasNotFound 班级不存在
	ErrKelasNotFound = errors.New("班级不存在")
	// ErrKelasAlreadyBooked 班级已选过点位
	ErrKelasAlreadyBooked = errors.New("班级已选过点位")
	// ErrSpotFull 点位容量已满
	ErrSpotFull = errors.New("点位已满")
	// ErrDuplicateEntry 班级名已出现在该点位（并发重复录取的防御检查）
	ErrDuplicateEntry = errors.New("班级已登记在该点位")
	// ErrCommitConflict 条件提交未命中：锁内检查通过但守卫更新影响 0 行，
	// 说明有其他写入者绕过本实例抢先提交；调用方整体重试一次后按确定性原因拒绝
	ErrCommitConflict = errors.New("预约提交冲突")
)

// BookingRepository 预约事务数据访问接口
type BookingRepository interface {
	// Book 以单个事务完成一次录取：
	// spots.chosen_by 追加班级名 + kelas.spot_id 指向点位，两者同时生效或同时不生效。
	// 追加的班级名取自锁定后的 kelas 行，不信任调用方传来的名称。
	// 任何拒绝原因返回时事务已回滚，库内状态不变。
	Book(ctx context.Context, spotID, kelasID int64) (*model.Spot, *model.Kelas, error)

	// ResetAll 以单个事务清空全部预约：
	// 所有 chosen_by 置空、所有 spot_id 置 NULL，不存在半重置的中间态。
	ResetAll(ctx context.Context) error
}

type bookingRepo struct {
	db *gorm.DB
}

// NewBookingRepo 创建 BookingRepository 实例
func NewBookingRepo(db *gorm.DB) BookingRepository {
	return &bookingRepo{db: db}
}

// Book 并发安全的录取提交
//
// 两层防护：
//  1. SELECT ... FOR UPDATE 行级锁（固定加锁顺序 kelas → spot，避免死锁），
//     把同一点位/同一班级的并发录取串行化；
//  2. 守卫式条件 UPDATE（容量与去重写进 WHERE），防御其他服务实例
//     绕过行锁直接写库的场景；影响行数为 0 即提交冲突。
//
// 先检查先拒绝：班级状态 → 点位存在 → 容量 → 重复，
// 与对外拒绝原因的优先级一致。
func (r *bookingRepo) Book(ctx context.Context, spotID, kelasID int64) (*model.Spot, *model.Kelas, error) {
	var (
		spot  model.Spot
		kelas model.Kelas
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 锁定班级行
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", kelasID).
			First(&kelas).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrKelasNotFound
			}
			return err
		}
		if kelas.SpotID != nil {
			return ErrKelasAlreadyBooked
		}
		kelasName := kelas.Name

		// 2. 锁定点位行
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", spotID).
			First(&spot).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSpotNotFound
			}
			return err
		}

		// 3. 容量检查
		if spot.IsFull() {
			return ErrSpotFull
		}

		// 4. 重复登记防御检查
		if spot.ChosenBy.Contains(kelasName) {
			return ErrDuplicateEntry
		}

		// 5. 守卫式追加：容量与去重条件写进 WHERE，
		//    由数据库在提交点再校验一次
		res := tx.Exec(
			`UPDATE spots
			 SET chosen_by = array_append(chosen_by, ?), updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?
			   AND cardinality(chosen_by) < capacity
			   AND NOT (chosen_by @> ARRAY[?]::text[])`,
			kelasName, spotID, kelasName,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrCommitConflict
		}

		// 6. 班级侧守卫：仅在尚未预约时写入
		res = tx.Exec(
			`UPDATE kelas
			 SET spot_id = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND spot_id IS NULL`,
			spotID, kelasID,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrCommitConflict
		}

		// 7. 回读提交后的状态用于事件广播
		if err := tx.Where("id = ?", spotID).First(&spot).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", kelasID).First(&kelas).Error
	})
	if err != nil {
		return nil, nil, err
	}

	return &spot, &kelas, nil
}

// ResetAll 全量清空预约（幂等）
func (r *bookingRepo) ResetAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`UPDATE spots SET chosen_by = '{}', updated_at = CURRENT_TIMESTAMP`,
		).Error; err != nil {
			return err
		}
		return tx.Exec(
			`UPDATE kelas SET spot_id = NULL, updated_at = CURRENT_TIMESTAMP WHERE spot_id IS NOT NULL`,
		).Error
	})
}
