package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/jamesaja2/warphotokalender/internal/model"
	"github.com/jamesaja2/warphotokalender/internal/repository"
)

// ── Mock SpotRepository ──

type mockSpotRepo struct {
	mu      sync.Mutex
	nextID  int64
	spots   map[int64]*model.Spot
	listErr error
}

func newMockSpotRepo() *mockSpotRepo {
	return &mockSpotRepo{nextID: 1, spots: make(map[int64]*model.Spot)}
}

func (m *mockSpotRepo) Create(_ context.Context, spot *model.Spot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if spot.ID == 0 {
		spot.ID = m.nextID
		m.nextID++
	}
	if spot.ChosenBy == nil {
		spot.ChosenBy = model.StringArray{}
	}
	cp := *spot
	m.spots[spot.ID] = &cp
	return nil
}

func (m *mockSpotRepo) GetByID(_ context.Context, id int64) (*model.Spot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.spots[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSpotRepo) List(_ context.Context) ([]model.Spot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.Spot
	for _, s := range m.spots {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockSpotRepo) Update(_ context.Context, spot *model.Spot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *spot
	m.spots[spot.ID] = &cp
	return nil
}

func (m *mockSpotRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.spots, id)
	return nil
}

// ── Mock KelasRepository ──

type mockKelasRepo struct {
	mu      sync.Mutex
	nextID  int64
	kelas   map[int64]*model.Kelas
	listErr error
}

func newMockKelasRepo() *mockKelasRepo {
	return &mockKelasRepo{nextID: 1, kelas: make(map[int64]*model.Kelas)}
}

func (m *mockKelasRepo) Create(_ context.Context, kelas *model.Kelas) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if kelas.ID == 0 {
		kelas.ID = m.nextID
		m.nextID++
	}
	cp := *kelas
	m.kelas[kelas.ID] = &cp
	return nil
}

func (m *mockKelasRepo) GetByID(_ context.Context, id int64) (*model.Kelas, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k, ok := m.kelas[id]; ok {
		cp := *k
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockKelasRepo) GetByName(_ context.Context, name string) (*model.Kelas, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.kelas {
		if k.Name == name {
			cp := *k
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockKelasRepo) List(_ context.Context) ([]model.Kelas, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.Kelas
	for _, k := range m.kelas {
		result = append(result, *k)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockKelasRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kelas, id)
	return nil
}

// ── Mock SettingRepository ──

type mockSettingRepo struct {
	mu       sync.Mutex
	settings map[string]*model.Setting
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{settings: make(map[string]*model.Setting)}
}

func (m *mockSettingRepo) Get(_ context.Context, key string) (*model.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.settings[key]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSettingRepo) List(_ context.Context) ([]model.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Setting
	for _, s := range m.settings {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (m *mockSettingRepo) Upsert(_ context.Context, setting *model.Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *setting
	m.settings[setting.Key] = &cp
	return nil
}

func (m *mockSettingRepo) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, key)
	return nil
}

// ── Mock BookingRepository ──
//
// 与真实实现一样，Book 在单把锁下完成全部检查与写入，
// 模拟行锁 + 事务的原子性，供并发录取测试使用。

type mockBookingRepo struct {
	mu    sync.Mutex
	spots *mockSpotRepo
	kelas *mockKelasRepo
}

func newMockBookingRepo(spots *mockSpotRepo, kelas *mockKelasRepo) *mockBookingRepo {
	return &mockBookingRepo{spots: spots, kelas: kelas}
}

func (m *mockBookingRepo) Book(_ context.Context, spotID, kelasID int64) (*model.Spot, *model.Kelas, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spots.mu.Lock()
	defer m.spots.mu.Unlock()
	m.kelas.mu.Lock()
	defer m.kelas.mu.Unlock()

	// 检查顺序与真实实现一致：班级 → 已预约 → 点位 → 已满 → 重名
	kelas, ok := m.kelas.kelas[kelasID]
	if !ok {
		return nil, nil, repository.ErrKelasNotFound
	}
	if kelas.SpotID != nil {
		return nil, nil, repository.ErrKelasAlreadyBooked
	}

	spot, ok := m.spots.spots[spotID]
	if !ok {
		return nil, nil, repository.ErrSpotNotFound
	}
	if spot.IsFull() {
		return nil, nil, repository.ErrSpotFull
	}
	if spot.ChosenBy.Contains(kelas.Name) {
		return nil, nil, repository.ErrDuplicateEntry
	}

	spot.ChosenBy = append(spot.ChosenBy, kelas.Name)
	sid := spot.ID
	kelas.SpotID = &sid
	now := time.Now().UTC()
	spot.UpdatedAt = now
	kelas.UpdatedAt = now

	spotCopy := *spot
	spotCopy.ChosenBy = append(model.StringArray{}, spot.ChosenBy...)
	kelasCopy := *kelas
	return &spotCopy, &kelasCopy, nil
}

func (m *mockBookingRepo) ResetAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spots.mu.Lock()
	defer m.spots.mu.Unlock()
	m.kelas.mu.Lock()
	defer m.kelas.mu.Unlock()

	for _, s := range m.spots.spots {
		s.ChosenBy = model.StringArray{}
	}
	for _, k := range m.kelas.kelas {
		k.SpotID = nil
	}
	return nil
}

// ── 测试时钟 ──

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
	err error
}

func (c *fakeClock) Now() (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return time.Time{}, c.err
	}
	return c.now, nil
}

func (c *fakeClock) set(t time.Time, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
	c.err = err
}

// ── 事件记录器 ──

type recordedEvent struct {
	Entity     model.EntityType
	ChangeType model.ChangeType
	Payload    interface{}
}

type recordingEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEvents) PublishChange(_ context.Context, entity model.EntityType, changeType model.ChangeType, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Entity: entity, ChangeType: changeType, Payload: payload})
}

func (r *recordingEvents) all() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}
