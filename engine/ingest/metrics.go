package ingest

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/catalog/pkg/logger"
)

// ingestDurationBuckets spans small repositories (sub-second) up to large
// monorepo scans.
var ingestDurationBuckets = []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30}

type entityOutcome string

const (
	outcomeStored   entityOutcome = "stored"
	outcomeRejected entityOutcome = "rejected"
	outcomePruned   entityOutcome = "pruned"
)

type errorLabel string

const (
	errorLabelDiscovery  errorLabel = "discovery_error"
	errorLabelParse      errorLabel = "parse_error"
	errorLabelValidation errorLabel = "validation_error"
	errorLabelDuplicate  errorLabel = "duplicate_error"
	errorLabelSecurity   errorLabel = "security_error"
	errorLabelStore      errorLabel = "store_error"
)

type ingestMetrics struct {
	initOnce sync.Once

	durationHistogram metric.Float64Histogram
	filesProcessed    metric.Int64Counter
	entitiesTotal     metric.Int64Counter
	errorsTotal       metric.Int64Counter
}

var metricsContainer ingestMetrics

func ingestMetricsRecorder(ctx context.Context) *ingestMetrics {
	metricsContainer.initOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("catalog.ingest")
		log := logger.FromContext(ctx)
		var err error

		metricsContainer.durationHistogram, err = meter.Float64Histogram(
			"catalog_ingest_duration_seconds",
			metric.WithDescription("Time to complete an ingestion run"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(ingestDurationBuckets...),
		)
		if err != nil {
			log.Warn("ingest metrics: failed to create duration histogram", "error", err)
		}

		metricsContainer.filesProcessed, err = meter.Int64Counter(
			"catalog_ingest_files_processed_total",
			metric.WithDescription("Descriptor files read by ingestion"),
			metric.WithUnit("1"),
		)
		if err != nil {
			log.Warn("ingest metrics: failed to create files processed counter", "error", err)
		}

		metricsContainer.entitiesTotal, err = meter.Int64Counter(
			"catalog_ingest_entities_total",
			metric.WithDescription("Entities processed by kind and outcome"),
			metric.WithUnit("1"),
		)
		if err != nil {
			log.Warn("ingest metrics: failed to create entities counter", "error", err)
		}

		metricsContainer.errorsTotal, err = meter.Int64Counter(
			"catalog_ingest_errors_total",
			metric.WithDescription("Ingestion errors by category"),
			metric.WithUnit("1"),
		)
		if err != nil {
			log.Warn("ingest metrics: failed to create errors counter", "error", err)
		}
	})
	return &metricsContainer
}

func recordRun(ctx context.Context, result *Result, duration time.Duration) {
	recorder := ingestMetricsRecorder(ctx)
	ctx = context.WithoutCancel(ctx)
	if recorder.durationHistogram != nil {
		recorder.durationHistogram.Record(ctx, duration.Seconds())
	}
	if recorder.filesProcessed != nil && result.FilesProcessed > 0 {
		recorder.filesProcessed.Add(ctx, int64(result.FilesProcessed))
	}
}

func recordEntity(ctx context.Context, kind string, outcome entityOutcome) {
	recorder := ingestMetricsRecorder(ctx)
	if recorder.entitiesTotal == nil {
		return
	}
	recorder.entitiesTotal.Add(context.WithoutCancel(ctx), 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", string(outcome)),
		),
	)
}

func recordError(ctx context.Context, label errorLabel) {
	recorder := ingestMetricsRecorder(ctx)
	if recorder.errorsTotal == nil {
		return
	}
	recorder.errorsTotal.Add(context.WithoutCancel(ctx), 1,
		metric.WithAttributes(attribute.String("error_type", string(label))),
	)
}
