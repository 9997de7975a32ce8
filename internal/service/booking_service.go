package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jamesaja2/warphotokalender/internal/dto"
	"github.com/jamesaja2/warphotokalender/internal/model"
	"github.com/jamesaja2/warphotokalender/internal/repository"
)

// ── 预约模块业务错误 ──
//
// 拒绝原因按检查顺序排列；重复发起同样的请求会基于当前库内状态重新判定，
// 而不是复用上一次的结论。

var (
	ErrBookingNotOpen     = errors.New("预约尚未开放")
	ErrKelasAlreadyBooked = errors.New("班级已选过点位")
	ErrSpotNotFound       = errors.New("点位不存在")
	ErrSpotFull           = errors.New("点位已满")
	ErrDuplicateEntry     = errors.New("班级已登记在该点位")
	ErrKelasNotFound      = errors.New("班级不存在")
)

// BookingService 录取业务接口
type BookingService interface {
	// AttemptBooking 尝试一次 (点位, 班级) 录取
	// 成功即终态：无取消、无撤销，只有管理端全量重置能清除
	AttemptBooking(ctx context.Context, req *dto.BookSpotRequest) (*dto.BookSpotResponse, error)

	// ListSpots 预约页点位列表（按 id 升序）
	ListSpots(ctx context.Context) ([]model.Spot, error)
	// ListKelas 预约页班级列表（按名称升序）
	ListKelas(ctx context.Context) ([]model.Kelas, error)
}

type bookingService struct {
	repo   *repository.Repository
	status StatusService
	events EventPublisher
	logger *zap.Logger
}

// NewBookingService 创建 BookingService 实例
func NewBookingService(repo *repository.Repository, status StatusService, events EventPublisher, logger *zap.Logger) BookingService {
	return &bookingService{
		repo:   repo,
		status: status,
		events: events,
		logger: logger,
	}
}

// ────────────────────── AttemptBooking ──────────────────────

func (s *bookingService) AttemptBooking(ctx context.Context, req *dto.BookSpotRequest) (*dto.BookSpotResponse, error) {
	// 1. 闸门前置检查：每次录取都现算，不信任任何缓存标志
	state, err := s.status.EvaluateGate(ctx)
	if err != nil {
		return nil, err
	}
	switch state {
	case GateUnknown:
		// 状态未知时拒绝录取，而不是猜
		return nil, ErrGateUnknown
	case GateClosed:
		return nil, ErrBookingNotOpen
	}

	// 2. 事务提交；条件更新未命中时整体重试一次，
	//    第二次会基于对手方已提交的状态得到确定性的拒绝原因
	spot, kelas, err := s.repo.Booking.Book(ctx, req.SpotID, req.KelasID)
	if errors.Is(err, repository.ErrCommitConflict) {
		s.logger.Warn("录取提交冲突，重试一次",
			zap.Int64("spot_id", req.SpotID),
			zap.Int64("kelas_id", req.KelasID),
		)
		spot, kelas, err = s.repo.Booking.Book(ctx, req.SpotID, req.KelasID)
	}
	if err != nil {
		return nil, s.translateBookingErr(err, req)
	}

	s.logger.Info("录取成功",
		zap.Int64("spot_id", spot.ID),
		zap.String("spot_name", spot.Name),
		zap.Int64("kelas_id", kelas.ID),
		zap.String("kelas_name", kelas.Name),
		zap.Int("occupancy", len(spot.ChosenBy)),
		zap.Int("capacity", spot.Capacity),
	)

	// 3. 广播提交后的双方状态
	s.events.PublishChange(ctx, model.EntitySpot, model.ChangeUpdate, spot)
	s.events.PublishChange(ctx, model.EntityKelas, model.ChangeUpdate, kelas)

	return &dto.BookSpotResponse{
		SpotID:   spot.ID,
		KelasID:  kelas.ID,
		ChosenBy: spot.ChosenBy,
	}, nil
}

// ────────────────────── 列表查询 ──────────────────────

func (s *bookingService) ListSpots(ctx context.Context) ([]model.Spot, error) {
	spots, err := s.repo.Spot.List(ctx)
	if err != nil {
		s.logger.Error("查询点位列表失败", zap.Error(err))
		return nil, err
	}
	return spots, nil
}

func (s *bookingService) ListKelas(ctx context.Context) ([]model.Kelas, error) {
	kelas, err := s.repo.Kelas.List(ctx)
	if err != nil {
		s.logger.Error("查询班级列表失败", zap.Error(err))
		return nil, err
	}
	return kelas, nil
}

// translateBookingErr 仓储哨兵错误 → 业务错误
func (s *bookingService) translateBookingErr(err error, req *dto.BookSpotRequest) error {
	switch {
	case errors.Is(err, repository.ErrKelasNotFound):
		return ErrKelasNotFound
	case errors.Is(err, repository.ErrKelasAlreadyBooked):
		return ErrKelasAlreadyBooked
	case errors.Is(err, repository.ErrSpotNotFound):
		return ErrSpotNotFound
	case errors.Is(err, repository.ErrSpotFull):
		return ErrSpotFull
	case errors.Is(err, repository.ErrDuplicateEntry):
		return ErrDuplicateEntry
	case errors.Is(err, repository.ErrCommitConflict):
		// 连续两次冲突：按点位已满处理（确定性输掉了竞态）
		return ErrSpotFull
	default:
		s.logger.Error("录取事务执行失败",
			zap.Int64("spot_id", req.SpotID),
			zap.Int64("kelas_id", req.KelasID),
			zap.Error(err),
		)
		return err
	}
}
