package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/jamesaja2/warphotokalender/internal/model"
)

// SpotRepository 点位数据访问接口
type SpotRepository interface {
	Create(ctx context.Context, spot *model.Spot) error
	GetByID(ctx context.Context, id int64) (*model.Spot, error)
	// List 按 id 升序返回全部点位
	List(ctx context.Context) ([]model.Spot, error)
	Update(ctx context.Context, spot *model.Spot) error
	Delete(ctx context.Context, id int64) error
}

type spotRepo struct {
	db *gorm.DB
}

// NewSpotRepo 创建 SpotRepository 实例
func NewSpotRepo(db *gorm.DB) SpotRepository {
	return &spotRepo{db: db}
}

func (r *spotRepo) Create(ctx context.Context, spot *model.Spot) error {
	return r.db.WithContext(ctx).Create(spot).Error
}

func (r *spotRepo) GetByID(ctx context.Context, id int64) (*model.Spot, error) {
	var spot model.Spot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&spot).Error
	if err != nil {
		return nil, err
	}
	return &spot, nil
}

func (r *spotRepo) List(ctx context.Context) ([]model.Spot, error) {
	var spots []model.Spot
	err := r.db.WithContext(ctx).Order("id ASC").Find(&spots).Error
	if err != nil {
		return nil, err
	}
	return spots, nil
}

func (r *spotRepo) Update(ctx context.Context, spot *model.Spot) error {
	return r.db.WithContext(ctx).Save(spot).Error
}

func (r *spotRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Spot{}, id).Error
}
