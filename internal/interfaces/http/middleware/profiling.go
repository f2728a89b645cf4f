package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/retailops/ledger/internal/infrastructure/telemetry"
)

// Profiling attaches pprof labels to every request so continuous profiles
// can be filtered by route and tenant. Requests without a matched route
// are not labelled.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || route == "/health" {
			c.Next()
			return
		}

		kv := []string{"method", c.Request.Method, "route", route}
		if actor, ok := GetActor(c); ok {
			kv = append(kv, "tenant_id", actor.TenantID.String())
		}

		telemetry.WithProfilingLabels(c.Request.Context(), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		}, kv...)
	}
}
