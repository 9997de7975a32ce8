// Package clock 提供全系统统一的权威时间源。
//
// 预约开放与否完全由服务端时间决定，任何参与方的本地时钟都不参与判定。
// 非权威进程（查看端、网关等）通过 SyncedClock 做一次性校时：
// 取一次权威时间，之后用本地单调计时器叠加固定偏移推进，
// 校时失败时不回退到本地时间，而是保持"未同步"错误状态并定时重试。
package clock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotSynced 尚未完成校时；闸门判定方必须把它当作"状态未知"，
// 而不是"预约关闭"
var ErrNotSynced = errors.New("时钟尚未与权威时间源同步")

// 校时失败后的固定重试间隔
const resyncInterval = 2 * time.Second

// Clock 统一时间源接口
type Clock interface {
	Now() (time.Time, error)
}

// ── 权威时钟 ──

// SystemClock 进程本地权威时钟（服务端自身即权威），始终返回 UTC
type SystemClock struct{}

func (SystemClock) Now() (time.Time, error) {
	return time.Now().UTC(), nil
}

// ── 校时时钟 ──

// Source 权威时间获取端点
type Source interface {
	Fetch(ctx context.Context) (time.Time, error)
}

// SyncedClock 偏移时钟：一次校时 + 本地单调推进
type SyncedClock struct {
	source Source
	logger *zap.Logger

	mu      sync.RWMutex
	synced  bool
	base    time.Time // 校时成功时的权威时刻
	fetchAt time.Time // 校时成功时的本地读数（携带单调时钟）
}

// NewSyncedClock 创建未同步状态的校时时钟
func NewSyncedClock(source Source, logger *zap.Logger) *SyncedClock {
	return &SyncedClock{source: source, logger: logger}
}

// Start 启动校时循环：成功一次即止，失败按固定间隔重试
// 正确性依赖同步成功，因此没有"放弃并视为关闭"的兜底
func (c *SyncedClock) Start(ctx context.Context) {
	go func() {
		for {
			err := c.sync(ctx)
			if err == nil {
				return
			}
			c.logger.Warn("校时失败，稍后重试",
				zap.Error(err),
				zap.Duration("retry_in", resyncInterval),
			)

			select {
			case <-ctx.Done():
				return
			case <-time.After(resyncInterval):
			}
		}
	}()
}

// sync 执行一次校时
func (c *SyncedClock) sync(ctx context.Context) error {
	authoritative, err := c.source.Fetch(ctx)
	if err != nil {
		return err
	}
	local := time.Now()

	c.mu.Lock()
	c.base = authoritative
	c.fetchAt = local
	c.synced = true
	c.mu.Unlock()

	c.logger.Info("校时成功",
		zap.Time("authoritative", authoritative),
		zap.Duration("offset", authoritative.Sub(local)),
	)
	return nil
}

// Now 返回推算出的权威当前时间；未同步时返回 ErrNotSynced
func (c *SyncedClock) Now() (time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.synced {
		return time.Time{}, ErrNotSynced
	}
	// time.Since 使用本地单调时钟，不受本地挂钟调整影响
	return c.base.Add(time.Since(c.fetchAt)), nil
}

// Synced 是否已完成校时
func (c *SyncedClock) Synced() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synced
}

// ── HTTP 时间源 ──

// HTTPSource 消费 /api/v1/time 端点的时间源
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource 创建 HTTP 时间源；url 指向服务端的时间端点
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Fetch 获取一次权威时间（毫秒时间戳字段）
func (s *HTTPSource) Fetch(ctx context.Context) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("构造校时请求失败: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("请求权威时间失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("权威时间端点返回 HTTP %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			Timestamp int64 `json:"timestamp"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return time.Time{}, fmt.Errorf("解析权威时间响应失败: %w", err)
	}
	if body.Data.Timestamp <= 0 {
		return time.Time{}, fmt.Errorf("权威时间响应缺少 timestamp 字段")
	}

	return time.UnixMilli(body.Data.Timestamp).UTC(), nil
}
