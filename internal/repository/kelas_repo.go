package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/jamesaja2/warphotokalender/internal/model"
)

// KelasRepository 班级数据访问接口
type KelasRepository interface {
	Create(ctx context.Context, kelas *model.Kelas) error
	GetByID(ctx context.Context, id int64) (*model.Kelas, error)
	GetByName(ctx context.Context, name string) (*model.Kelas, error)
	// List 按名称升序返回全部班级
	List(ctx context.Context) ([]model.Kelas, error)
	Delete(ctx context.Context, id int64) error
}

type kelasRepo struct {
	db *gorm.DB
}

// NewKelasRepo 创建 KelasRepository 实例
func NewKelasRepo(db *gorm.DB) KelasRepository {
	return &kelasRepo{db: db}
}

func (r *kelasRepo) Create(ctx context.Context, kelas *model.Kelas) error {
	return r.db.WithContext(ctx).Create(kelas).Error
}

func (r *kelasRepo) GetByID(ctx context.Context, id int64) (*model.Kelas, error) {
	var kelas model.Kelas
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&kelas).Error
	if err != nil {
		return nil, err
	}
	return &kelas, nil
}

func (r *kelasRepo) GetByName(ctx context.Context, name string) (*model.Kelas, error) {
	var kelas model.Kelas
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&kelas).Error
	if err != nil {
		return nil, err
	}
	return &kelas, nil
}

func (r *kelasRepo) List(ctx context.Context) ([]model.Kelas, error) {
	var list []model.Kelas
	err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *kelasRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Kelas{}, id).Error
}
