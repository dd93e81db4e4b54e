package tracing

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"inboxhook/pkg/logging"
)

// GinMiddleware starts a server span per request and copies its trace id onto
// the request context for log correlation.
func GinMiddleware(serviceName string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		otelgin.Middleware(serviceName),
		func(c *gin.Context) {
			if id := TraceID(c.Request.Context()); id != "" {
				c.Request = c.Request.WithContext(logging.WithTraceID(c.Request.Context(), id))
			}
			c.Next()
		},
	}
}
