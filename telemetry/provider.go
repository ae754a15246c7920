package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
)

// localReader backs CollectLocalMetrics; nil until InstallLocalMeterProvider
// runs.
var localReader *sdkmetric.ManualReader

// InstallLocalMeterProvider installs an in-process OTel SDK meter provider
// with a ManualReader, so Metrics' instruments actually aggregate in memory
// instead of being no-ops against the global default provider, and can be
// read back with CollectLocalMetrics. Embedding applications that want the
// counters shipped somewhere install their own provider (with a real
// exporter) before opening any store instead of calling this.
func InstallLocalMeterProvider() *sdkmetric.MeterProvider {
	localReader = sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(resource.Default()),
		sdkmetric.WithReader(localReader),
	)
	otel.SetMeterProvider(mp)
	Meter = mp.Meter(instrumentationName)
	Metrics = newMetrics()
	return mp
}

// CollectLocalMetrics gathers the current value of every instrument from the
// ManualReader installed by InstallLocalMeterProvider: counters as their
// cumulative sum, histograms as their observation count. Returns nil if
// InstallLocalMeterProvider was never called.
func CollectLocalMetrics(ctx context.Context) (map[string]float64, error) {
	if localReader == nil {
		return nil, nil
	}
	var rm metricdata.ResourceMetrics
	if err := localReader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch d := m.Data.(type) {
			case metricdata.Sum[int64]:
				var sum int64
				for _, dp := range d.DataPoints {
					sum += dp.Value
				}
				out[m.Name] = float64(sum)
			case metricdata.Histogram[float64]:
				var count uint64
				for _, dp := range d.DataPoints {
					count += dp.Count
				}
				out[m.Name] = float64(count)
			}
		}
	}
	return out, nil
}
