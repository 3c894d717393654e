package kmetrics

import (
	"context"
	"strconv"
)

var (
	LogSizeBytesMetrics  = CreateKmetric(context.Background(), "klogging_volume_byte", "log size in byte (skipped events excluded)", []string{"level", "event"})
	LogErrorCountMetrics = CreateKmetric(context.Background(), "klogging_brief_count", "warn/error log event count (skipped events included)", []string{"level", "event", "logged"}).CountOnly()
)

// LogMetricsReporter implements klogging.LoggerMetricsReporter.
type LogMetricsReporter struct{}

func NewLogMetricsReporter() *LogMetricsReporter {
	return &LogMetricsReporter{}
}

func (lmr *LogMetricsReporter) ReportLogSizeBytes(ctx context.Context, size int, logLevel, eventType string) {
	LogSizeBytesMetrics.GetTimeSequence(ctx, logLevel, eventType).Add(int64(size))
}

func (lmr *LogMetricsReporter) ReportLogErrorCount(ctx context.Context, count int, logLevel, eventType string, isLogged bool) {
	LogErrorCountMetrics.GetTimeSequence(ctx, logLevel, eventType, strconv.FormatBool(isLogged)).Add(int64(count))
}
