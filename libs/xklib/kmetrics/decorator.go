package kmetrics

import (
	"context"

	"github.com/xinkaiwang/helloecho/libs/xklib/kcommon"
	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
)

var (
	OpsLatencyMetric = CreateKmetric(context.Background(), "op_latency_ms", "operation latency in ms", []string{"method", "status", "error", "notes"})
	// metric names cannot conflict, hence `op_lat_ms`
	OpsLatencyHistogram = CreateKhistogram(context.Background(), "op_lat_ms", "operation latency histogram in ms", []string{"method", "status", "error"}, []int64{1, 2, 3, 6, 10, 20, 30, 60, 100, 200, 300, 600, 1000, 2000, 3000, 6000, 10000, 20000, 30000})
)

// FuncTypeVoid is a function being decorated. It reports failure by panic.
type FuncTypeVoid func()

// FuncTypeError is a function being decorated. It reports failure by returning an error.
type FuncTypeError func(ctx context.Context) error

func statusTags(err error) (status string, errTag string) {
	if err == nil {
		return "OK", ""
	}
	if ke, ok := err.(*kerror.Kerror); ok {
		return "ERROR", ke.Type
	}
	return "ERROR", "error"
}

// InstrumentSummaryRunVoid records latency of ef into OpsLatencyMetric. A panic from ef is re-thrown as *kerror.Kerror.
func InstrumentSummaryRunVoid(ctx context.Context, method string, ef FuncTypeVoid, customNotes string) {
	startMs := kcommon.GetMonoTimeMs()
	ke := kcommon.TryCatchRun(ctx, ef)
	elapsedMs := kcommon.GetMonoTimeMs() - startMs

	var err error
	if ke != nil {
		err = ke
	}
	status, errTag := statusTags(err)
	OpsLatencyMetric.GetTimeSequence(ctx, method, status, errTag, customNotes).Add(elapsedMs)
	if ke != nil {
		panic(ke)
	}
}

// InstrumentHistogramRunVoid: histograms are expensive, prefer InstrumentSummaryRunVoid unless the distribution matters.
func InstrumentHistogramRunVoid(ctx context.Context, method string, ef FuncTypeVoid) {
	startMs := kcommon.GetMonoTimeMs()
	ke := kcommon.TryCatchRun(ctx, ef)
	elapsedMs := kcommon.GetMonoTimeMs() - startMs

	var err error
	if ke != nil {
		err = ke
	}
	status, errTag := statusTags(err)
	OpsLatencyHistogram.GetHistoSequence(ctx, method, status, errTag).Add(elapsedMs)
	if ke != nil {
		panic(ke)
	}
}

// InstrumentSummaryRunError records latency of ef into OpsLatencyMetric. Panics from ef are returned as errors.
func InstrumentSummaryRunError(ctx context.Context, method string, ef FuncTypeError, customNotes string) error {
	startMs := kcommon.GetMonoTimeMs()
	var err error
	if ke := kcommon.TryCatchRun(ctx, func() { err = ef(ctx) }); ke != nil {
		err = ke
	}
	elapsedMs := kcommon.GetMonoTimeMs() - startMs

	status, errTag := statusTags(err)
	OpsLatencyMetric.GetTimeSequence(ctx, method, status, errTag, customNotes).Add(elapsedMs)
	return err
}
