package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jamesaja2/warphotokalender/internal/model"
	"github.com/jamesaja2/warphotokalender/pkg/redis"
)

// 变更事件广播频道
const changeChannel = "warfoto:changes"

// 订阅者通道缓冲；写满说明消费端跟不上，事件被丢弃，
// 观察端靠全量拉取（/status、/admin/overview）兜底收敛
const subscriberBuffer = 64

// EventPublisher 变更事件发布接口（各业务 Service 持有）
type EventPublisher interface {
	// PublishChange 广播一条变更事件，尽力投递，失败只记日志不影响主流程
	PublishChange(ctx context.Context, entity model.EntityType, changeType model.ChangeType, payload interface{})
}

// EventService 变更广播业务接口
type EventService interface {
	EventPublisher

	// Subscribe 注册一个观察者，返回事件通道与注销函数
	Subscribe() (<-chan model.ChangeEvent, func())

	// Run 启动 Redis 订阅循环（多实例部署时收敛其他实例的变更）；
	// 未配置 Redis 时为空操作，事件仅在本进程内扇出
	Run(ctx context.Context)
}

type eventService struct {
	rdb    *redis.Client // 可为 nil：单实例降级为进程内扇出
	logger *zap.Logger

	mu     sync.Mutex
	nextID int64
	subs   map[int64]chan model.ChangeEvent
}

// NewEventService 创建 EventService 实例
func NewEventService(rdb *redis.Client, logger *zap.Logger) EventService {
	return &eventService{
		rdb:    rdb,
		logger: logger,
		subs:   make(map[int64]chan model.ChangeEvent),
	}
}

func (s *eventService) PublishChange(ctx context.Context, entity model.EntityType, changeType model.ChangeType, payload interface{}) {
	event := model.ChangeEvent{
		ID:         uuid.New().String(),
		Entity:     entity,
		ChangeType: changeType,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}

	// 有 Redis 时只经 Redis 投递，订阅循环负责回灌本地，
	// 避免本地直发 + Redis 回流造成的双份投递
	if s.rdb != nil {
		data, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("变更事件序列化失败", zap.Error(err))
			return
		}
		if err := s.rdb.Publish(ctx, changeChannel, data); err != nil {
			s.logger.Error("变更事件发布失败，降级为本地扇出", zap.Error(err))
			s.fanOut(event)
		}
		return
	}

	s.fanOut(event)
}

func (s *eventService) Subscribe() (<-chan model.ChangeEvent, func()) {
	ch := make(chan model.ChangeEvent, subscriberBuffer)

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = ch
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
		s.mu.Unlock()
	}
	return ch, unsubscribe
}

func (s *eventService) Run(ctx context.Context) {
	if s.rdb == nil {
		return
	}

	msgs, closeSub := s.rdb.Subscribe(ctx, changeChannel)
	go func() {
		defer closeSub()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event model.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					s.logger.Warn("变更事件反序列化失败", zap.Error(err))
					continue
				}
				s.fanOut(event)
			}
		}
	}()
}

// fanOut 向所有本地订阅者投递；慢消费者直接丢弃本条
func (s *eventService) fanOut(event model.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- event:
		default:
			s.logger.Warn("订阅者消费过慢，丢弃事件",
				zap.Int64("subscriber", id),
				zap.String("event_id", event.ID),
			)
		}
	}
}
