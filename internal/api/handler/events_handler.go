package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jamesaja2/warphotokalender/internal/service"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// EventsHandler 变更订阅 WebSocket 处理器
// 每条消息是一个 ChangeEvent；推送只读公开数据，无需鉴权
type EventsHandler struct {
	eventSvc service.EventService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewEventsHandler 创建 EventsHandler
func NewEventsHandler(eventSvc service.EventService, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{
		eventSvc: eventSvc,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe 建立订阅连接
// GET /api/v1/events/ws
func (h *EventsHandler) Subscribe(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时 gorilla 已写好响应
		h.logger.Warn("WebSocket 升级失败", zap.Error(err))
		return
	}

	events, unsubscribe := h.eventSvc.Subscribe()

	// 读循环只负责感知对端关闭与应答 pong
	go func() {
		defer unsubscribe()
		conn.SetReadLimit(1024)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// 写循环：事件推送 + 周期心跳
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer func() {
			ticker.Stop()
			_ = conn.Close()
		}()

		for {
			select {
			case event, ok := <-events:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := conn.WriteJSON(event); err != nil {
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()
}
