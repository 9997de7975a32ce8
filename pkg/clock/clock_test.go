package clock

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// ── 测试时间源 ──

type fakeSource struct {
	mu    sync.Mutex
	now   time.Time
	err   error
	calls int
}

func (s *fakeSource) Fetch(_ context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return time.Time{}, s.err
	}
	return s.now, nil
}

func (s *fakeSource) set(t time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = t
	s.err = err
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// ── SystemClock 测试 ──

func TestSystemClock_ReturnsUTC(t *testing.T) {
	now, err := SystemClock{}.Now()
	if err != nil {
		t.Fatalf("SystemClock 不应返回错误: %v", err)
	}
	if now.Location() != time.UTC {
		t.Errorf("期望 UTC 时区，实际=%v", now.Location())
	}
}

// ── SyncedClock 测试 ──

func TestSyncedClock_NotSyncedBeforeStart(t *testing.T) {
	clk := NewSyncedClock(&fakeSource{}, zap.NewNop())

	// 未校时前必须显式报错，不能回退到本地时钟
	if _, err := clk.Now(); !errors.Is(err, ErrNotSynced) {
		t.Errorf("期望 ErrNotSynced，实际: %v", err)
	}
	if clk.Synced() {
		t.Error("未校时 Synced 应为 false")
	}
}

func TestSyncedClock_AdvancesFromBase(t *testing.T) {
	authoritative := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	source := &fakeSource{now: authoritative}
	clk := NewSyncedClock(source, zap.NewNop())

	if err := clk.sync(context.Background()); err != nil {
		t.Fatalf("校时应成功: %v", err)
	}

	first, err := clk.Now()
	if err != nil {
		t.Fatalf("校时后 Now 应成功: %v", err)
	}
	// 推算时间以权威时刻为基准，与本地挂钟无关
	if first.Before(authoritative) || first.Sub(authoritative) > time.Second {
		t.Errorf("推算时间偏离权威基准: %v", first)
	}

	// 时间应单调推进
	time.Sleep(20 * time.Millisecond)
	second, _ := clk.Now()
	if !second.After(first) {
		t.Errorf("时间未推进: first=%v second=%v", first, second)
	}
	if source.callCount() != 1 {
		t.Errorf("校时成功后不应重复请求时间源，实际请求=%d次", source.callCount())
	}
}

func TestSyncedClock_RetriesUntilSuccess(t *testing.T) {
	source := &fakeSource{err: errors.New("时间源不可达")}
	clk := NewSyncedClock(source, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clk.Start(ctx)

	// 首轮失败后应保持未同步
	time.Sleep(100 * time.Millisecond)
	if clk.Synced() {
		t.Fatal("时间源失败时不应进入已同步状态")
	}

	// 时间源恢复后，重试应最终成功
	source.set(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC), nil)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if clk.Synced() {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if !clk.Synced() {
		t.Fatal("时间源恢复后校时仍未成功")
	}
	if _, err := clk.Now(); err != nil {
		t.Errorf("校时成功后 Now 不应报错: %v", err)
	}
}

// ── HTTPSource 测试 ──

func TestHTTPSource_Fetch(t *testing.T) {
	at := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":0,"message":"成功","data":{"timestamp":1780308000000}}`))
	}))
	defer srv.Close()

	got, err := NewHTTPSource(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch 应成功: %v", err)
	}
	if !got.Equal(at) {
		t.Errorf("期望%v，实际=%v", at, got)
	}
}

func TestHTTPSource_Fetch_BadResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{"HTTP错误", http.StatusInternalServerError, ""},
		{"非JSON", http.StatusOK, "not json"},
		{"缺少timestamp", http.StatusOK, `{"data":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.payload))
			}))
			defer srv.Close()

			if _, err := NewHTTPSource(srv.URL).Fetch(context.Background()); err == nil {
				t.Error("异常响应应返回错误")
			}
		})
	}
}
