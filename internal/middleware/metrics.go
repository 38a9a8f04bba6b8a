package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/acadchain-api/internal/service"
)

// Metrics records per-request duration and count. Unmatched routes are
// labeled with the raw path so 404 probes do not explode cardinality on
// registered routes.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
