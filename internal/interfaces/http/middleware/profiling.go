package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
)

// Profiling labels the samples taken while a request runs with its method,
// route and resource, so profiles can be split per endpoint. Unmatched
// routes and the health checks are left unlabeled.
func Profiling(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if !enabled || route == "" || strings.HasPrefix(route, "/health") {
			c.Next()
			return
		}
		telemetry.WithProfilingLabels(c.Request.Context(), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		},
			"method", c.Request.Method,
			"route", route,
			"resource", resourceOf(route),
		)
	}
}

// resourceOf extracts the resource from a route pattern:
// "/api/v1/queues/:id" is "queues"
func resourceOf(route string) string {
	parts := strings.Split(strings.Trim(route, "/"), "/")
	for i, p := range parts {
		if strings.HasPrefix(p, "v") && i+1 < len(parts) && len(p) > 1 && p[1] >= '0' && p[1] <= '9' {
			return parts[i+1]
		}
	}
	if len(parts) > 0 {
		return parts[0]
	}
	return ""
}
