package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jamesaja2/warphotokalender/pkg/redis"
	"github.com/jamesaja2/warphotokalender/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口的速率限制中间件
// 开闸瞬间所有班级同时抢点位属于正常流量，limit 要按此峰值配置。
// rdb 为 nil 时降级放行（单实例部署无 Redis 也能工作）
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate_limit:%s:%s", c.ClientIP(), c.FullPath())
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			// Redis 出错时降级放行
			c.Next()
			return
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
