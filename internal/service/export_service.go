package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/jamesaja2/warphotokalender/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSpots     = errors.New("暂无点位可导出")
	ErrExportNoStartTime = errors.New("预约开放时刻未设置")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 预约名单导出为 Excel (.xlsx)：点位 Sheet + 班级 Sheet
//   - 预约开放时刻导出为 iCalendar (.ics)，方便各班主任订阅提醒
//   - 内容以 bytes.Buffer 返回，由 Handler 层设置响应头后写入 Response
type ExportService interface {
	// ExportBookings 导出当前预约名单为 Excel
	ExportBookings(ctx context.Context) (*bytes.Buffer, string, error)
	// ExportBookingStartICS 导出预约开放时刻为 iCalendar 事件
	ExportBookingStartICS(ctx context.Context) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	status StatusService
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, status StatusService, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, status: status, logger: logger}
}

// ────────────────────── ExportBookings ──────────────────────

func (s *exportService) ExportBookings(ctx context.Context) (*bytes.Buffer, string, error) {
	spots, err := s.repo.Spot.List(ctx)
	if err != nil {
		s.logger.Error("查询点位列表失败", zap.Error(err))
		return nil, "", err
	}
	if len(spots) == 0 {
		return nil, "", ErrExportNoSpots
	}
	kelas, err := s.repo.Kelas.List(ctx)
	if err != nil {
		s.logger.Error("查询班级列表失败", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	// ── Sheet 1: 点位占用 ──
	const spotSheet = "Spot"
	f.SetSheetName(f.GetSheetName(0), spotSheet)
	headers := []string{"ID", "点位", "容量", "已登记", "班级名单"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(spotSheet, cell, h)
	}
	for row, spot := range spots {
		values := []interface{}{
			spot.ID,
			spot.Name,
			spot.Capacity,
			len(spot.ChosenBy),
			strings.Join(spot.ChosenBy, ", "),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(spotSheet, cell, v)
		}
	}

	// ── Sheet 2: 班级分配 ──
	const kelasSheet = "Kelas"
	if _, err := f.NewSheet(kelasSheet); err != nil {
		return nil, "", err
	}
	spotNames := make(map[int64]string, len(spots))
	for _, spot := range spots {
		spotNames[spot.ID] = spot.Name
	}
	kelasHeaders := []string{"ID", "班级", "已选点位"}
	for i, h := range kelasHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(kelasSheet, cell, h)
	}
	for row, k := range kelas {
		assigned := "-"
		if k.SpotID != nil {
			assigned = spotNames[*k.SpotID]
		}
		values := []interface{}{k.ID, k.Name, assigned}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(kelasSheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("生成 Excel 失败", zap.Error(err))
		return nil, "", err
	}

	filename := fmt.Sprintf("booking_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	return buf, filename, nil
}

// ────────────────────── ExportBookingStartICS ──────────────────────

func (s *exportService) ExportBookingStartICS(ctx context.Context) (*bytes.Buffer, string, error) {
	status, err := s.status.SystemStatus(ctx)
	if err != nil {
		return nil, "", err
	}
	if status.BookingStartTime == nil {
		return nil, "", ErrExportNoStartTime
	}
	startAt, err := time.Parse(time.RFC3339, *status.BookingStartTime)
	if err != nil {
		return nil, "", ErrBadStartTime
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//warphotokalender//booking//ID")

	event := cal.AddEvent(uuid.New().String())
	event.SetCreatedTime(time.Now().UTC())
	event.SetStartAt(startAt)
	event.SetEndAt(startAt.Add(30 * time.Minute))
	event.SetSummary("Pemilihan spot foto dibuka")
	event.SetDescription("Waktu pemilihan spot foto kalender dimulai. Siapa cepat dia dapat!")

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, "booking_start.ics", nil
}
