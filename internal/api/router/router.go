package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jamesaja2/warphotokalender/config"
	"github.com/jamesaja2/warphotokalender/internal/api/handler"
	"github.com/jamesaja2/warphotokalender/internal/api/middleware"
	"github.com/jamesaja2/warphotokalender/pkg/jwt"
	"github.com/jamesaja2/warphotokalender/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(1 << 20)) // 1MB

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 公开只读接口
		v1.GET("/time", h.Status.ServerTime)
		v1.GET("/status", h.Status.SystemStatus)
		v1.GET("/spots", h.Booking.ListSpots)
		v1.GET("/kelas", h.Booking.ListKelas)
		v1.GET("/events/ws", h.Events.Subscribe)

		// 预约：开闸瞬间是流量峰值，限流窗口放宽
		v1.POST("/bookings", middleware.RateLimit(rdb, 30, time.Minute), h.Booking.Book)

		// 管理端
		admin := v1.Group("/admin")
		{
			// 登录接口限流防爆破
			admin.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)

			authorized := admin.Group("")
			authorized.Use(middleware.AdminAuth(jwtMgr))
			{
				authorized.GET("/overview", h.Admin.Overview)
				authorized.POST("/spots", h.Admin.AddSpot)
				authorized.PUT("/spots/:id", h.Admin.UpdateSpot)
				authorized.DELETE("/spots/:id", h.Admin.DeleteSpot)
				authorized.POST("/kelas", h.Admin.AddKelas)
				authorized.DELETE("/kelas/:id", h.Admin.DeleteKelas)
				authorized.PUT("/booking-start", h.Admin.SetBookingStart)
				authorized.POST("/reset", h.Admin.ResetBookings)
				authorized.GET("/export/bookings", h.Admin.ExportBookings)
				authorized.GET("/export/booking-start.ics", h.Admin.ExportBookingStartICS)
			}
		}
	}

	return r
}
