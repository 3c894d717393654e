package kmetrics

import (
	"context"
	"sort"

	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"go.opencensus.io/metric"
	"go.opencensus.io/metric/metricdata"
)

// AddInt64DerivedGaugeWithLabels registers a gauge whose value is pulled from fn at read time.
func AddInt64DerivedGaugeWithLabels(ctx context.Context, r *metric.Registry, fn func() int64, gaugeName string, description string, labels map[string]string) {
	labelKeys := make([]string, 0, len(labels))
	for k := range labels {
		labelKeys = append(labelKeys, k)
	}
	sort.Strings(labelKeys)
	labelValues := make([]metricdata.LabelValue, len(labelKeys))
	for i, k := range labelKeys {
		labelValues[i] = metricdata.NewLabelValue(labels[k])
	}

	gauge, err := r.AddInt64DerivedGauge(gaugeName,
		metric.WithDescription(description),
		metric.WithUnit(metricdata.UnitDimensionless),
		metric.WithLabelKeys(labelKeys...),
	)
	if err != nil {
		panic(kerror.Wrap(err, "MetricProducerFail", "error creating gauge", false).With("gaugeName", gaugeName))
	}
	if err := gauge.UpsertEntry(fn, labelValues...); err != nil {
		panic(kerror.Wrap(err, "UpsertEntryFail", "error gauge UpsertEntry", false).With("gaugeName", gaugeName))
	}
}
