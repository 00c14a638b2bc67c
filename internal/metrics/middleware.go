package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPRecorder defines methods needed by the middleware
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, status int)
	RecordHTTPDuration(method, endpoint string, duration float64)
}

// Middleware records request counts and durations per route template, so
// /price/BTC and /price/ETH share one series
func Middleware(collector HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		collector.RecordHTTPRequest(method, path, c.Writer.Status())
		collector.RecordHTTPDuration(method, path, time.Since(start).Seconds())
	}
}
