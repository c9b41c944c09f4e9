package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/catalog/pkg/logger"
)

type httpInstruments struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	requestsInFlight metric.Int64UpDownCounter
}

func newInstruments(meter metric.Meter) *httpInstruments {
	var err error
	inst := &httpInstruments{}
	inst.requestsTotal, err = meter.Int64Counter(
		"catalog_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		logger.Error("Failed to create http requests total counter", "error", err)
		return nil
	}
	inst.requestDuration, err = meter.Float64Histogram(
		"catalog_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithExplicitBucketBoundaries(.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10),
	)
	if err != nil {
		logger.Error("Failed to create http request duration histogram", "error", err)
		return nil
	}
	inst.requestsInFlight, err = meter.Int64UpDownCounter(
		"catalog_http_requests_in_flight",
		metric.WithDescription("Currently active HTTP requests"),
	)
	if err != nil {
		logger.Error("Failed to create http requests in flight counter", "error", err)
		return nil
	}
	return inst
}

// HTTPMetrics returns a Gin middleware recording request counts, latency and
// in-flight requests labeled by route template.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	var inst *httpInstruments
	if meter != nil {
		inst = newInstruments(meter)
	}
	return func(c *gin.Context) {
		if inst == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		start := time.Now()
		inst.requestsInFlight.Add(ctx, 1)
		defer inst.requestsInFlight.Add(ctx, -1)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", path),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)
		inst.requestsTotal.Add(ctx, 1, attrs)
		inst.requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
