package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// NewMetricMiddleware records latency, request counts and payload sizes per
// route on meter.
func NewMetricMiddleware(meter metric.Meter) gin.HandlerFunc {
	durationHistogram, _ := meter.Int64Histogram(
		"http.server.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("The latency of HTTP requests."),
	)
	requestCounter, _ := meter.Int64Counter(
		"http.server.requests_total",
		metric.WithDescription("The total number of HTTP requests."),
	)
	errorCounter, _ := meter.Int64Counter(
		"http.server.error_requests_total",
		metric.WithDescription("The total number of HTTP requests answered with a 4xx or 5xx status."),
	)
	responseSizeHistogram, _ := meter.Int64Histogram(
		"http.server.response_size_bytes",
		metric.WithUnit("bytes"),
		metric.WithDescription("The size of HTTP responses in bytes."),
	)

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		ctx := c.Request.Context()
		status := c.Writer.Status()
		attrs := metric.WithAttributes(
			semconv.HTTPRoute(c.FullPath()),
			semconv.HTTPRequestMethodKey.String(c.Request.Method),
			semconv.HTTPResponseStatusCode(status),
			attribute.String("http.client_ip", c.ClientIP()),
		)

		durationHistogram.Record(ctx, time.Since(start).Milliseconds(), attrs)
		requestCounter.Add(ctx, 1, attrs)
		if size := c.Writer.Size(); size > 0 {
			responseSizeHistogram.Record(ctx, int64(size), attrs)
		}
		if status >= 400 {
			errorCounter.Add(ctx, 1, attrs)
		}
	}
}
