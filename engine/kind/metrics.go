package kind

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	kindMetricsOnce      sync.Once
	kindMetricsErr       error
	kindCheckCounter     metric.Int64Counter
	kindCheckHistogram   metric.Float64Histogram
	kindCompileCounter   metric.Int64Counter
	kindCompileHistogram metric.Float64Histogram
)

var kindCheckBuckets = []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05}

func ensureKindMetrics() {
	kindMetricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("catalog.kind")
		kindMetricsErr = initKindMetrics(meter)
	})
}

func initKindMetrics(meter metric.Meter) error {
	var err error
	kindCheckCounter, err = meter.Int64Counter(
		"catalog_kind_checks_total",
		metric.WithDescription("Kind checks performed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	kindCheckHistogram, err = meter.Float64Histogram(
		"catalog_kind_check_duration_seconds",
		metric.WithDescription("Kind check duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(kindCheckBuckets...),
	)
	if err != nil {
		return err
	}
	kindCompileCounter, err = meter.Int64Counter(
		"catalog_kind_schema_compiles_total",
		metric.WithDescription("Kind schema compilation attempts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	kindCompileHistogram, err = meter.Float64Histogram(
		"catalog_kind_schema_compile_duration_seconds",
		metric.WithDescription("Kind schema compilation duration"),
		metric.WithUnit("s"),
	)
	return err
}

func recordCheck(ctx context.Context, kind string, accepted bool, duration time.Duration) {
	ensureKindMetrics()
	if kindMetricsErr != nil {
		return
	}
	ctx = metricsContext(ctx)
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	kindCheckCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
	if duration > 0 {
		kindCheckHistogram.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("kind", kind)))
	}
}

func recordCompile(ctx context.Context, duration time.Duration, cacheHit bool) {
	ensureKindMetrics()
	if kindMetricsErr != nil {
		return
	}
	ctx = metricsContext(ctx)
	kindCompileCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cache_hit", cacheHit)))
	if duration > 0 {
		kindCompileHistogram.Record(ctx, duration.Seconds())
	}
}

func metricsContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
