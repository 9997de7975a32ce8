package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jamesaja2/warphotokalender/internal/dto"
	"github.com/jamesaja2/warphotokalender/internal/model"
	"github.com/jamesaja2/warphotokalender/internal/repository"
)

// ── 管理模块业务错误 ──

var (
	ErrEmptyName          = errors.New("名称不能为空")
	ErrBadCapacity        = errors.New("容量必须为正整数且不超过上限")
	ErrDuplicateKelasName = errors.New("班级名称已存在")
	ErrBadInstant         = errors.New("时间格式无效，需要 RFC3339")
	ErrSpotNotEmpty       = errors.New("点位仍有已登记班级，不能删除")
	ErrKelasAssigned      = errors.New("班级已预约点位，不能删除")
	ErrCapacityTooSmall   = errors.New("容量不能小于当前已登记数量")
)

// AdminService 管理端业务接口
// 所有操作效果幂等：重复执行是安全的
type AdminService interface {
	Overview(ctx context.Context) (*dto.AdminOverviewResponse, error)
	AddSpot(ctx context.Context, req *dto.AddSpotRequest) (*model.Spot, error)
	UpdateSpot(ctx context.Context, id int64, req *dto.UpdateSpotRequest) (*model.Spot, error)
	DeleteSpot(ctx context.Context, id int64) error
	AddKelas(ctx context.Context, req *dto.AddKelasRequest) (*model.Kelas, error)
	DeleteKelas(ctx context.Context, id int64) error
	// SetBookingStart 设置/清除预约开放时刻；下一次闸门求值即生效
	SetBookingStart(ctx context.Context, req *dto.SetBookingStartRequest) error
	// ResetAllBookings 全量清空预约（单事务，无半重置中间态）
	ResetAllBookings(ctx context.Context) error
}

type adminService struct {
	repo            *repository.Repository
	events          EventPublisher
	maxSpotCapacity int
	logger          *zap.Logger
}

// NewAdminService 创建 AdminService 实例
func NewAdminService(repo *repository.Repository, events EventPublisher, maxSpotCapacity int, logger *zap.Logger) AdminService {
	return &adminService{
		repo:            repo,
		events:          events,
		maxSpotCapacity: maxSpotCapacity,
		logger:          logger,
	}
}

// ────────────────────── Overview ──────────────────────

func (s *adminService) Overview(ctx context.Context) (*dto.AdminOverviewResponse, error) {
	spots, err := s.repo.Spot.List(ctx)
	if err != nil {
		s.logger.Error("查询点位列表失败", zap.Error(err))
		return nil, err
	}
	kelas, err := s.repo.Kelas.List(ctx)
	if err != nil {
		s.logger.Error("查询班级列表失败", zap.Error(err))
		return nil, err
	}
	settings, err := s.repo.Setting.List(ctx)
	if err != nil {
		s.logger.Error("查询设置失败", zap.Error(err))
		return nil, err
	}

	return &dto.AdminOverviewResponse{
		Spots:    spots,
		Kelas:    kelas,
		Settings: settings,
	}, nil
}

// ────────────────────── AddSpot ──────────────────────

func (s *adminService) AddSpot(ctx context.Context, req *dto.AddSpotRequest) (*model.Spot, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if req.Capacity <= 0 || req.Capacity > s.maxSpotCapacity {
		return nil, ErrBadCapacity
	}

	spot := &model.Spot{
		Name:     name,
		Capacity: req.Capacity,
		ChosenBy: model.StringArray{},
	}
	if err := s.repo.Spot.Create(ctx, spot); err != nil {
		s.logger.Error("新增点位失败", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	s.logger.Info("新增点位", zap.Int64("id", spot.ID), zap.String("name", name), zap.Int("capacity", req.Capacity))
	s.events.PublishChange(ctx, model.EntitySpot, model.ChangeInsert, spot)
	return spot, nil
}

// ────────────────────── UpdateSpot ──────────────────────

func (s *adminService) UpdateSpot(ctx context.Context, id int64, req *dto.UpdateSpotRequest) (*model.Spot, error) {
	spot, err := s.repo.Spot.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSpotNotFound
		}
		s.logger.Error("查询点位失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		spot.Name = name
	}
	if req.Capacity != nil {
		if *req.Capacity <= 0 || *req.Capacity > s.maxSpotCapacity {
			return nil, ErrBadCapacity
		}
		// 容量只能缩到不低于已登记数量，否则破坏容量不变式
		if *req.Capacity < len(spot.ChosenBy) {
			return nil, ErrCapacityTooSmall
		}
		spot.Capacity = *req.Capacity
	}

	if err := s.repo.Spot.Update(ctx, spot); err != nil {
		s.logger.Error("更新点位失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	s.events.PublishChange(ctx, model.EntitySpot, model.ChangeUpdate, spot)
	return spot, nil
}

// ────────────────────── DeleteSpot ──────────────────────

func (s *adminService) DeleteSpot(ctx context.Context, id int64) error {
	spot, err := s.repo.Spot.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSpotNotFound
		}
		return err
	}
	if len(spot.ChosenBy) > 0 {
		return ErrSpotNotEmpty
	}

	if err := s.repo.Spot.Delete(ctx, id); err != nil {
		s.logger.Error("删除点位失败", zap.Int64("id", id), zap.Error(err))
		return err
	}

	s.events.PublishChange(ctx, model.EntitySpot, model.ChangeDelete, spot)
	return nil
}

// ────────────────────── AddKelas ──────────────────────

func (s *adminService) AddKelas(ctx context.Context, req *dto.AddKelasRequest) (*model.Kelas, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyName
	}

	// 名称唯一：chosen_by 以班级名登记，重名会破坏双向一致
	if _, err := s.repo.Kelas.GetByName(ctx, name); err == nil {
		return nil, ErrDuplicateKelasName
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	kelas := &model.Kelas{Name: name}
	if err := s.repo.Kelas.Create(ctx, kelas); err != nil {
		s.logger.Error("新增班级失败", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	s.logger.Info("新增班级", zap.Int64("id", kelas.ID), zap.String("name", name))
	s.events.PublishChange(ctx, model.EntityKelas, model.ChangeInsert, kelas)
	return kelas, nil
}

// ────────────────────── DeleteKelas ──────────────────────

func (s *adminService) DeleteKelas(ctx context.Context, id int64) error {
	kelas, err := s.repo.Kelas.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrKelasNotFound
		}
		return err
	}
	if kelas.IsBooked() {
		return ErrKelasAssigned
	}

	if err := s.repo.Kelas.Delete(ctx, id); err != nil {
		s.logger.Error("删除班级失败", zap.Int64("id", id), zap.Error(err))
		return err
	}

	s.events.PublishChange(ctx, model.EntityKelas, model.ChangeDelete, kelas)
	return nil
}

// ────────────────────── SetBookingStart ──────────────────────

func (s *adminService) SetBookingStart(ctx context.Context, req *dto.SetBookingStartRequest) error {
	value := strings.TrimSpace(req.BookingTime)

	if value == "" {
		// 清除设置：预约永不开放
		if err := s.repo.Setting.Delete(ctx, model.SettingBookingStartTime); err != nil {
			s.logger.Error("清除预约开放时刻失败", zap.Error(err))
			return err
		}
		s.logger.Info("预约开放时刻已清除")
		s.events.PublishChange(ctx, model.EntitySetting, model.ChangeDelete, map[string]string{
			"key": model.SettingBookingStartTime,
		})
		return nil
	}

	startAt, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return ErrBadInstant
	}

	setting := &model.Setting{
		Key:   model.SettingBookingStartTime,
		Value: startAt.UTC().Format(time.RFC3339),
	}
	if err := s.repo.Setting.Upsert(ctx, setting); err != nil {
		s.logger.Error("写入预约开放时刻失败", zap.Error(err))
		return err
	}

	s.logger.Info("预约开放时刻已更新", zap.Time("start_at", startAt.UTC()))
	s.events.PublishChange(ctx, model.EntitySetting, model.ChangeUpdate, setting)
	return nil
}

// ────────────────────── ResetAllBookings ──────────────────────

func (s *adminService) ResetAllBookings(ctx context.Context) error {
	if err := s.repo.Booking.ResetAll(ctx); err != nil {
		s.logger.Error("重置预约失败", zap.Error(err))
		return err
	}

	s.logger.Info("全部预约已重置")

	// 广播重置后的全量状态，观察端按实体覆盖收敛；
	// 重置本身已提交，广播失败只记日志，观察端靠全量拉取兜底
	spots, err := s.repo.Spot.List(ctx)
	if err != nil {
		s.logger.Error("重置后广播点位状态失败", zap.Error(err))
	} else {
		for i := range spots {
			s.events.PublishChange(ctx, model.EntitySpot, model.ChangeUpdate, &spots[i])
		}
	}
	kelas, err := s.repo.Kelas.List(ctx)
	if err != nil {
		s.logger.Error("重置后广播班级状态失败", zap.Error(err))
	} else {
		for i := range kelas {
			s.events.PublishChange(ctx, model.EntityKelas, model.ChangeUpdate, &kelas[i])
		}
	}
	return nil
}
