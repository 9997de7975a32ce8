package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jamesaja2/warphotokalender/internal/dto"
	"github.com/jamesaja2/warphotokalender/internal/model"
	"github.com/jamesaja2/warphotokalender/internal/repository"
)

// ── 测试辅助 ──

type adminTestEnv struct {
	svc      AdminService
	spots    *mockSpotRepo
	kelas    *mockKelasRepo
	settings *mockSettingRepo
	booking  *mockBookingRepo
	events   *recordingEvents
}

func setupTestAdminService() *adminTestEnv {
	spots := newMockSpotRepo()
	kelas := newMockKelasRepo()
	settings := newMockSettingRepo()
	booking := newMockBookingRepo(spots, kelas)
	repo := &repository.Repository{
		Spot:    spots,
		Kelas:   kelas,
		Setting: settings,
		Booking: booking,
	}
	events := &recordingEvents{}
	svc := NewAdminService(repo, events, 100, zap.NewNop())
	return &adminTestEnv{
		svc:      svc,
		spots:    spots,
		kelas:    kelas,
		settings: settings,
		booking:  booking,
		events:   events,
	}
}

// ── AddSpot 测试 ──

func TestAdminService_AddSpot_Success(t *testing.T) {
	env := setupTestAdminService()

	spot, err := env.svc.AddSpot(context.Background(), &dto.AddSpotRequest{Name: "  Taman Depan  ", Capacity: 3})
	if err != nil {
		t.Fatalf("AddSpot 应成功: %v", err)
	}
	if spot.Name != "Taman Depan" {
		t.Errorf("名称应去除首尾空格，实际=%q", spot.Name)
	}
	if spot.ChosenBy == nil || len(spot.ChosenBy) != 0 {
		t.Errorf("新点位 chosen_by 应为空数组，实际=%v", spot.ChosenBy)
	}

	events := env.events.all()
	if len(events) != 1 || events[0].Entity != model.EntitySpot || events[0].ChangeType != model.ChangeInsert {
		t.Errorf("应广播一条点位 insert 事件，实际=%v", events)
	}
}

func TestAdminService_AddSpot_Invalid(t *testing.T) {
	env := setupTestAdminService()

	if _, err := env.svc.AddSpot(context.Background(), &dto.AddSpotRequest{Name: "   ", Capacity: 3}); !errors.Is(err, ErrEmptyName) {
		t.Errorf("空名称期望 ErrEmptyName，实际: %v", err)
	}
	if _, err := env.svc.AddSpot(context.Background(), &dto.AddSpotRequest{Name: "Taman", Capacity: 0}); !errors.Is(err, ErrBadCapacity) {
		t.Errorf("容量0期望 ErrBadCapacity，实际: %v", err)
	}
	if _, err := env.svc.AddSpot(context.Background(), &dto.AddSpotRequest{Name: "Taman", Capacity: 101}); !errors.Is(err, ErrBadCapacity) {
		t.Errorf("超上限期望 ErrBadCapacity，实际: %v", err)
	}
}

// ── UpdateSpot 测试 ──

func TestAdminService_UpdateSpot_Success(t *testing.T) {
	env := setupTestAdminService()
	spot, _ := env.svc.AddSpot(context.Background(), &dto.AddSpotRequest{Name: "Taman", Capacity: 3})

	newName := "Taman Belakang"
	newCap := 5
	updated, err := env.svc.UpdateSpot(context.Background(), spot.ID, &dto.UpdateSpotRequest{Name: &newName, Capacity: &newCap})
	if err != nil {
		t.Fatalf("UpdateSpot 应成功: %v", err)
	}
	if updated.Name != "Taman Belakang" || updated.Capacity != 5 {
		t.Errorf("更新未生效: name=%s capacity=%d", updated.Name, updated.Capacity)
	}
}

func TestAdminService_UpdateSpot_CapacityBelowOccupancy(t *testing.T) {
	env := setupTestAdminService()
	spot, _ := env.svc.AddSpot(context.Background(), &dto.AddSpotRequest{Name: "Taman", Capacity: 3})

	// 人为登记两个班级
	stored, _ := env.spots.GetByID(context.Background(), spot.ID)
	stored.ChosenBy = model.StringArray{"10A", "10B"}
	if err := env.spots.Update(context.Background(), stored); err != nil {
		t.Fatalf("更新点位失败: %v", err)
	}

	// 缩容不能低于已登记数量
	badCap := 1
	if _, err := env.svc.UpdateSpot(context.Background(), spot.ID, &dto.UpdateSpotRequest{Capacity: &badCap}); !errors.Is(err, ErrCapacityTooSmall) {
		t.Errorf("期望 ErrCapacityTooSmall，实际: %v", err)
	}
	okCap := 2
	if _, err := env.svc.UpdateSpot(context.Background(), spot.ID, &dto.UpdateSpotRequest{Capacity: &okCap}); err != nil {
		t.Errorf("缩到已登记数量应允许: %v", err)
	}
}

func TestAdminService_UpdateSpot_NotFound(t *testing.T) {
	env := setupTestAdminService()
	name := "X"
	if _, err := env.svc.UpdateSpot(context.Background(), 999, &dto.UpdateSpotRequest{Name: &name}); !errors.Is(err, ErrSpotNotFound) {
		t.Errorf("期望 ErrSpotNotFound，实际: %v", err)
	}
}

// ── DeleteSpot 测试 ──

func TestAdminService_DeleteSpot_OnlyWhenEmpty(t *testing.T) {
	env := setupTestAdminService()
	spot, _ := env.svc.AddSpot(context.Background(), &dto.AddSpotRequest{Name: "Taman", Capacity: 3})

	stored, _ := env.spots.GetByID(context.Background(), spot.ID)
	stored.ChosenBy = model.StringArray{"10A"}
	env.spots.Update(context.Background(), stored)

	if err := env.svc.DeleteSpot(context.Background(), spot.ID); !errors.Is(err, ErrSpotNotEmpty) {
		t.Errorf("有登记的点位不能删，期望 ErrSpotNotEmpty，实际: %v", err)
	}

	stored.ChosenBy = model.StringArray{}
	env.spots.Update(context.Background(), stored)
	if err := env.svc.DeleteSpot(context.Background(), spot.ID); err != nil {
		t.Errorf("空点位应可删除: %v", err)
	}
	if _, err := env.spots.GetByID(context.Background(), spot.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Error("删除后点位仍存在")
	}
}

// ── AddKelas 测试 ──

func TestAdminService_AddKelas_DuplicateName(t *testing.T) {
	env := setupTestAdminService()

	if _, err := env.svc.AddKelas(context.Background(), &dto.AddKelasRequest{Name: "10A"}); err != nil {
		t.Fatalf("首次新增应成功: %v", err)
	}
	if _, err := env.svc.AddKelas(context.Background(), &dto.AddKelasRequest{Name: " 10A "}); !errors.Is(err, ErrDuplicateKelasName) {
		t.Errorf("重名期望 ErrDuplicateKelasName，实际: %v", err)
	}
	if _, err := env.svc.AddKelas(context.Background(), &dto.AddKelasRequest{Name: "  "}); !errors.Is(err, ErrEmptyName) {
		t.Errorf("空名称期望 ErrEmptyName，实际: %v", err)
	}
}

// ── DeleteKelas 测试 ──

func TestAdminService_DeleteKelas_OnlyWhenUnbooked(t *testing.T) {
	env := setupTestAdminService()
	kelas, _ := env.svc.AddKelas(context.Background(), &dto.AddKelasRequest{Name: "10A"})

	stored, _ := env.kelas.GetByID(context.Background(), kelas.ID)
	sid := int64(7)
	stored.SpotID = &sid
	env.kelas.Create(context.Background(), stored)

	if err := env.svc.DeleteKelas(context.Background(), kelas.ID); !errors.Is(err, ErrKelasAssigned) {
		t.Errorf("已预约的班级不能删，期望 ErrKelasAssigned，实际: %v", err)
	}

	stored.SpotID = nil
	env.kelas.Create(context.Background(), stored)
	if err := env.svc.DeleteKelas(context.Background(), kelas.ID); err != nil {
		t.Errorf("未预约班级应可删除: %v", err)
	}
}

// ── SetBookingStart 测试 ──

func TestAdminService_SetBookingStart_StoresUTC(t *testing.T) {
	env := setupTestAdminService()

	// WIB（UTC+7）输入应换算为 UTC 存储
	err := env.svc.SetBookingStart(context.Background(), &dto.SetBookingStartRequest{BookingTime: "2026-09-01T07:00:00+07:00"})
	if err != nil {
		t.Fatalf("SetBookingStart 应成功: %v", err)
	}

	setting, err := env.settings.Get(context.Background(), model.SettingBookingStartTime)
	if err != nil {
		t.Fatalf("设置未落库: %v", err)
	}
	if setting.Value != "2026-09-01T00:00:00Z" {
		t.Errorf("期望存储 UTC 串 2026-09-01T00:00:00Z，实际=%s", setting.Value)
	}
}

func TestAdminService_SetBookingStart_Clear(t *testing.T) {
	env := setupTestAdminService()
	env.svc.SetBookingStart(context.Background(), &dto.SetBookingStartRequest{BookingTime: "2026-09-01T00:00:00Z"})

	// 空串 = 清除设置，预约回到永不开放
	if err := env.svc.SetBookingStart(context.Background(), &dto.SetBookingStartRequest{BookingTime: ""}); err != nil {
		t.Fatalf("清除应成功: %v", err)
	}
	if _, err := env.settings.Get(context.Background(), model.SettingBookingStartTime); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Error("清除后设置仍存在")
	}

	events := env.events.all()
	last := events[len(events)-1]
	if last.Entity != model.EntitySetting || last.ChangeType != model.ChangeDelete {
		t.Errorf("清除应广播 setting delete 事件，实际=%v/%v", last.Entity, last.ChangeType)
	}
}

func TestAdminService_SetBookingStart_BadFormat(t *testing.T) {
	env := setupTestAdminService()

	err := env.svc.SetBookingStart(context.Background(), &dto.SetBookingStartRequest{BookingTime: "2026-09-01 00:00:00"})
	if !errors.Is(err, ErrBadInstant) {
		t.Errorf("期望 ErrBadInstant，实际: %v", err)
	}
}

// ── ResetAllBookings 测试 ──

func TestAdminService_ResetAllBookings_ClearsEverything(t *testing.T) {
	env := setupTestAdminService()

	// 构造两组已完成的预约
	spot, _ := env.svc.AddSpot(context.Background(), &dto.AddSpotRequest{Name: "Taman", Capacity: 3})
	kelasA, _ := env.svc.AddKelas(context.Background(), &dto.AddKelasRequest{Name: "10A"})
	kelasB, _ := env.svc.AddKelas(context.Background(), &dto.AddKelasRequest{Name: "10B"})
	for _, k := range []*model.Kelas{kelasA, kelasB} {
		if _, _, err := env.booking.Book(context.Background(), spot.ID, k.ID); err != nil {
			t.Fatalf("预置预约失败: %v", err)
		}
	}

	if err := env.svc.ResetAllBookings(context.Background()); err != nil {
		t.Fatalf("ResetAllBookings 应成功: %v", err)
	}

	// 重置后：所有名单清空、所有班级回到未预约，点位与班级本身保留
	storedSpot, _ := env.spots.GetByID(context.Background(), spot.ID)
	if len(storedSpot.ChosenBy) != 0 {
		t.Errorf("重置后 chosen_by 应为空，实际=%v", storedSpot.ChosenBy)
	}
	for _, k := range []*model.Kelas{kelasA, kelasB} {
		stored, err := env.kelas.GetByID(context.Background(), k.ID)
		if err != nil {
			t.Fatalf("重置不应删除班级: %v", err)
		}
		if stored.SpotID != nil {
			t.Errorf("班级%s spot_id 应为 NULL，实际=%v", stored.Name, *stored.SpotID)
		}
	}

	// 重置后可立即重新录取
	if _, _, err := env.booking.Book(context.Background(), spot.ID, kelasA.ID); err != nil {
		t.Errorf("重置后重新录取应成功: %v", err)
	}
}

func TestAdminService_ResetAllBookings_RebroadcastFailureTolerated(t *testing.T) {
	env := setupTestAdminService()

	spot, _ := env.svc.AddSpot(context.Background(), &dto.AddSpotRequest{Name: "Taman", Capacity: 3})
	kelas, _ := env.svc.AddKelas(context.Background(), &dto.AddKelasRequest{Name: "10A"})
	if _, _, err := env.booking.Book(context.Background(), spot.ID, kelas.ID); err != nil {
		t.Fatalf("预置预约失败: %v", err)
	}

	// 重置已提交后广播用的 List 失败，整体操作不应因此报错
	env.spots.listErr = errors.New("连接中断")
	env.kelas.listErr = errors.New("连接中断")
	before := len(env.events.all())

	if err := env.svc.ResetAllBookings(context.Background()); err != nil {
		t.Fatalf("广播失败不应影响重置结果: %v", err)
	}

	// 重置本身仍然生效
	env.spots.listErr = nil
	storedSpot, _ := env.spots.GetByID(context.Background(), spot.ID)
	if len(storedSpot.ChosenBy) != 0 {
		t.Errorf("重置后 chosen_by 应为空，实际=%v", storedSpot.ChosenBy)
	}

	// List 失败时不应广播任何点位/班级更新事件
	for _, ev := range env.events.all()[before:] {
		if ev.ChangeType == model.ChangeUpdate &&
			(ev.Entity == model.EntitySpot || ev.Entity == model.EntityKelas) {
			t.Errorf("List 失败时不应广播 %v 更新事件", ev.Entity)
		}
	}
}

// ── Overview 测试 ──

func TestAdminService_Overview(t *testing.T) {
	env := setupTestAdminService()
	env.svc.AddSpot(context.Background(), &dto.AddSpotRequest{Name: "Taman", Capacity: 3})
	env.svc.AddKelas(context.Background(), &dto.AddKelasRequest{Name: "10A"})
	env.svc.SetBookingStart(context.Background(), &dto.SetBookingStartRequest{BookingTime: "2026-09-01T00:00:00Z"})

	overview, err := env.svc.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview 应成功: %v", err)
	}
	if len(overview.Spots) != 1 || len(overview.Kelas) != 1 || len(overview.Settings) != 1 {
		t.Errorf("总览数量错误: spots=%d kelas=%d settings=%d",
			len(overview.Spots), len(overview.Kelas), len(overview.Settings))
	}
}
