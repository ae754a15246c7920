// Package telemetry holds the OTel meter and tracer shared by ledger,
// itemstore, and fsck, mirroring the teacher's package-level
// doltMetrics/doltTracer pattern: instruments are created once against
// the global provider, which is a no-op until a real provider is
// installed by the embedding application.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/speki-go/ledgerstore"

// Tracer is the shared tracer for ledgerstore spans (append, commit,
// fold, fsck scan).
var Tracer = otel.Tracer(instrumentationName)

// Meter is the shared meter for ledgerstore counters and histograms.
var Meter = otel.Meter(instrumentationName)

// Metrics holds every instrument ledgerstore records. Instruments are
// created eagerly at package init (and again by
// InstallLocalMeterProvider); creation errors are discarded, and call
// sites record into the fields directly without a nil check.
var Metrics = newMetrics()

type metrics struct {
	RetryCount       metric.Int64Counter
	LockWaitMs       metric.Float64Histogram
	CommitsTotal     metric.Int64Counter
	FoldDurationMs   metric.Float64Histogram
	CacheHitTotal    metric.Int64Counter
	CacheMissTotal   metric.Int64Counter
	IndexRebuildTotal metric.Int64Counter
}

func newMetrics() *metrics {
	m := &metrics{}
	m.RetryCount, _ = Meter.Int64Counter("ledgerstore.ledger.retry_count",
		metric.WithDescription("append operations retried due to transient filesystem errors"),
		metric.WithUnit("{retry}"))
	m.LockWaitMs, _ = Meter.Float64Histogram("ledgerstore.ledger.lock_wait_ms",
		metric.WithDescription("time spent waiting to acquire the single-writer ledger lock"),
		metric.WithUnit("ms"))
	m.CommitsTotal, _ = Meter.Int64Counter("ledgerstore.itemstore.commits_total",
		metric.WithDescription("entries appended to the ledger"),
		metric.WithUnit("{commit}"))
	m.FoldDurationMs, _ = Meter.Float64Histogram("ledgerstore.itemstore.fold_duration_ms",
		metric.WithDescription("time spent folding an item's history"),
		metric.WithUnit("ms"))
	m.CacheHitTotal, _ = Meter.Int64Counter("ledgerstore.cache.hit_total",
		metric.WithDescription("per-item cache hits"),
		metric.WithUnit("{hit}"))
	m.CacheMissTotal, _ = Meter.Int64Counter("ledgerstore.cache.miss_total",
		metric.WithDescription("per-item cache misses"),
		metric.WithUnit("{miss}"))
	m.IndexRebuildTotal, _ = Meter.Int64Counter("ledgerstore.index.rebuild_total",
		metric.WithDescription("full index rebuilds from a ledger replay when a store is opened"),
		metric.WithUnit("{rebuild}"))
	return m
}

// Span is a tiny convenience so call sites don't import
// go.opentelemetry.io/otel/trace just to spell the return type.
type Span = trace.Span
