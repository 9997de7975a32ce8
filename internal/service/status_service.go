package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jamesaja2/warphotokalender/internal/dto"
	"github.com/jamesaja2/warphotokalender/internal/model"
	"github.com/jamesaja2/warphotokalender/internal/repository"
	"github.com/jamesaja2/warphotokalender/pkg/clock"
)

// ── 状态模块业务错误 ──

var (
	// ErrGateUnknown 时钟未同步，闸门状态未知；绝不折算成"关闭"或"开放"
	ErrGateUnknown = errors.New("时钟未同步，预约状态未知")
	// ErrBadStartTime 库内 booking_start_time 不是合法 RFC3339 串
	ErrBadStartTime = errors.New("预约开放时刻格式无效")
)

// GateState 预约闸门状态
type GateState int

const (
	GateClosed  GateState = iota // 未到开放时刻或未设置
	GateOpen                     // 已开放
	GateUnknown                  // 时钟未同步，无法判定
)

// String 便于日志输出
func (g GateState) String() string {
	switch g {
	case GateOpen:
		return "open"
	case GateUnknown:
		return "unknown"
	default:
		return "closed"
	}
}

// 闸门巡检周期：每秒重算一次
const gateWatchInterval = time.Second

// 毫秒精度的 ISO 时间格式（与原 /api/time 输出一致）
const isoMilli = "2006-01-02T15:04:05.000Z07:00"

// StatusService 闸门与系统状态业务接口
//
// 闸门状态永远是现算的：每次求值都重新读设置、重新取权威时间。
// 录取路径不信任任何缓存标志。
type StatusService interface {
	// EvaluateGate 现算闸门状态
	EvaluateGate(ctx context.Context) (GateState, error)
	// SystemStatus 系统状态（booking_active + 开放时刻 + 服务器时间）
	SystemStatus(ctx context.Context) (*dto.SystemStatusResponse, error)
	// ServerTime 权威时间端点载荷
	ServerTime() (*dto.ServerTimeResponse, error)
	// RunGateWatcher 启动巡检：每秒重算，closed→open 首次翻转时广播一次通知。
	// 管理端把开放时刻改回未来后闸门重新关闭，下次到点会再次通知。
	RunGateWatcher(ctx context.Context)
}

type statusService struct {
	repo    *repository.Repository
	clk     clock.Clock
	events  EventPublisher
	logger  *zap.Logger
	display *time.Location
}

// NewStatusService 创建 StatusService 实例
// displayTZ 仅用于 /time 的展示字段，比较与存储一律 UTC
func NewStatusService(repo *repository.Repository, clk clock.Clock, events EventPublisher, displayTZ string, logger *zap.Logger) StatusService {
	loc, err := time.LoadLocation(displayTZ)
	if err != nil {
		// WIB = UTC+7，时区库不可用时退回固定偏移
		logger.Warn("加载展示时区失败，使用固定 UTC+7", zap.String("tz", displayTZ), zap.Error(err))
		loc = time.FixedZone("WIB", 7*3600)
	}
	return &statusService{
		repo:    repo,
		clk:     clk,
		events:  events,
		logger:  logger,
		display: loc,
	}
}

// ────────────────────── EvaluateGate ──────────────────────

func (s *statusService) EvaluateGate(ctx context.Context) (GateState, error) {
	startAt, ok, err := s.bookingStart(ctx)
	if err != nil {
		return GateClosed, err
	}
	if !ok {
		// 未设置开放时刻 = 永不开放
		return GateClosed, nil
	}

	now, err := s.clk.Now()
	if err != nil {
		// 时钟未同步是显式的"未知"，不是"关闭"
		return GateUnknown, nil
	}

	if now.Before(startAt) {
		return GateClosed, nil
	}
	return GateOpen, nil
}

// bookingStart 读取开放时刻设置；ok=false 表示未设置
func (s *statusService) bookingStart(ctx context.Context) (time.Time, bool, error) {
	setting, err := s.repo.Setting.Get(ctx, model.SettingBookingStartTime)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, false, nil
		}
		s.logger.Error("读取预约开放时刻失败", zap.Error(err))
		return time.Time{}, false, err
	}
	if setting.Value == "" {
		return time.Time{}, false, nil
	}

	startAt, err := time.Parse(time.RFC3339, setting.Value)
	if err != nil {
		s.logger.Error("预约开放时刻格式无效",
			zap.String("value", setting.Value),
			zap.Error(err),
		)
		return time.Time{}, false, ErrBadStartTime
	}
	return startAt.UTC(), true, nil
}

// ────────────────────── SystemStatus ──────────────────────

func (s *statusService) SystemStatus(ctx context.Context) (*dto.SystemStatusResponse, error) {
	state, err := s.EvaluateGate(ctx)
	if err != nil {
		return nil, err
	}
	if state == GateUnknown {
		return nil, ErrGateUnknown
	}

	resp := &dto.SystemStatusResponse{
		BookingActive: state == GateOpen,
	}

	if startAt, ok, err := s.bookingStart(ctx); err == nil && ok {
		v := startAt.Format(time.RFC3339)
		resp.BookingStartTime = &v
	}

	if now, err := s.clk.Now(); err == nil {
		resp.ServerTime = now.UTC().Format(time.RFC3339)
	}

	return resp, nil
}

// ────────────────────── ServerTime ──────────────────────

func (s *statusService) ServerTime() (*dto.ServerTimeResponse, error) {
	now, err := s.clk.Now()
	if err != nil {
		return nil, ErrGateUnknown
	}

	now = now.UTC()
	wib := now.In(s.display)

	return &dto.ServerTimeResponse{
		Timestamp: now.UnixMilli(),
		ISOString: now.Format(isoMilli),
		Timezone:  "UTC",
		WIB: dto.WIBTimeBlock{
			Timestamp:    wib.UnixMilli(),
			ISOString:    wib.Format(isoMilli),
			LocaleString: wib.Format("02/01/2006 15.04.05"),
		},
	}, nil
}

// ────────────────────── RunGateWatcher ──────────────────────

func (s *statusService) RunGateWatcher(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(gateWatchInterval)
		defer ticker.Stop()

		prev := GateClosed
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				state, err := s.EvaluateGate(ctx)
				if err != nil {
					continue
				}
				if state == GateOpen && prev != GateOpen {
					// closed→open 首次翻转，广播一次性通知驱动观察端提示
					s.logger.Info("预约通道开放")
					s.events.PublishChange(ctx, model.EntitySetting, model.ChangeUpdate, map[string]string{
						"key":   model.SettingBookingStartTime,
						"state": GateOpen.String(),
					})
				}
				prev = state
			}
		}
	}()
}
