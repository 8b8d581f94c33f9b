package middleware

import (
	"strconv"
	"time"

	"backend/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics HTTP 指标中间件
// 以路由模板（而不是具体路径）作为标签，避免高基数
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
