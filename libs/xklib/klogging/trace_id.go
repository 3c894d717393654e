package klogging

import (
	"context"
)

const TraceIdKey = "traceId"

// EmbedTraceId attaches traceId to every log entry created from the returned ctx.
func EmbedTraceId(ctx context.Context, traceId string) context.Context {
	ctx2, info := CreateCtxInfo(ctx)
	info.With(TraceIdKey, traceId)
	return ctx2
}

// GetTraceId returns "" when no trace id is attached.
func GetTraceId(ctx context.Context) string {
	return GetCurrentCtxInfo(ctx).FindByKey(TraceIdKey, "")
}
