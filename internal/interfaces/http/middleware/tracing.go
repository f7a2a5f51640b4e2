package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request via otelgin.
func Tracing(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TraceEnrichment attaches the request id and authenticated profile to
// the active span. It must run after RequestID and, for authenticated
// routes, after JWT.
func TraceEnrichment() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if requestID := c.GetString(RequestIDHeader); requestID != "" {
				span.SetAttributes(attribute.String("http.request_id", requestID))
			}
			if profileID := c.GetString(contextKeyProfileID); profileID != "" {
				span.SetAttributes(attribute.String("app.profile_id", profileID))
			}
		}
		c.Next()
	}
}
