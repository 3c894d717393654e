package klogging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
)

func TestLoggerBasic(t *testing.T) {
	SetDefaultLogger(&BasicLogger{LogLevel: DebugLevel})
	Info(context.Background()).With("text", "ping").Log("EchoRequest", "received echo request")
	assert.Equal(t, "level=info, event=EchoRequest, msg=received echo request, text=ping", GetLastLoggedMessage())
}

func TestLoggerBelowThresholdIsDropped(t *testing.T) {
	SetDefaultLogger(&BasicLogger{LogLevel: InfoLevel})
	Info(context.Background()).Log("Kept", "")
	Debug(context.Background()).With("x", 1).Log("Dropped", "")
	assert.Equal(t, "level=info, event=Kept, msg=", GetLastLoggedMessage())
}

func TestLoggerWithCtx(t *testing.T) {
	SetDefaultLogger(&BasicLogger{LogLevel: DebugLevel})
	ctx := EmbedTraceId(context.Background(), "req_ABC123")
	ctx, info := CreateCtxInfo(ctx)
	info.With("path", "/api/echo")

	Debug(ctx).With("attempt", 1).Log("EchoDelay", "sleeping")
	assert.Equal(t, "level=debug, event=EchoDelay, msg=sleeping, traceId=req_ABC123, path=/api/echo, attempt=1", GetLastLoggedMessage())
}

func TestLoggerWithKerror(t *testing.T) {
	SetDefaultLogger(&BasicLogger{LogLevel: DebugLevel})
	ke := kerror.Create("TextRequired", "Text is required").WithErrorCode(kerror.EC_INVALID_PARAMETER).With("field", "text")
	entry := Warning(context.Background()).WithError(ke)
	assert.Equal(t, "text", findDetail(entry, "field"))
	assert.Equal(t, "TextRequired", findDetail(entry, "errorType"))
	assert.Equal(t, "INVALID_PARAMETER", findDetail(entry, "errorCode"))
	assert.NotNil(t, findDetail(entry, "stack"))
}

func TestLoggerWithPlainErrorAndPanic(t *testing.T) {
	SetDefaultLogger(&BasicLogger{LogLevel: DebugLevel})
	entry := Error(context.Background()).WithError(errors.New("boom"))
	assert.Equal(t, "boom", findDetail(entry, "error"))

	entry = Error(context.Background()).WithPanic("not an error")
	assert.Equal(t, "not an error", findDetail(entry, "panic"))
	assert.NotNil(t, findDetail(entry, "stack"))
}

func TestFatalCallsOsExit(t *testing.T) {
	SetDefaultLogger(NewNullLogger())
	exitCode := 0
	restore := NewMockOsProvider(func(code int) { exitCode = code }).SetAsDefault()
	defer restore()

	Fatal(context.Background()).Log("Fatal", "")
	assert.Equal(t, 1, exitCode)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, WarnLevel, ParseLogLevel("WARNING"))
	assert.Equal(t, VerboseLevel, ParseLogLevel("trace"))
	assert.Panics(t, func() { ParseLogLevel("loud") })
	assert.Equal(t, InfoLevel, DebugLevel-1)
	assert.True(t, NeedLog(ErrorLevel, InfoLevel))
	assert.False(t, NeedLog(VerboseLevel, InfoLevel))
}

func findDetail(entry *LogEntry, key string) interface{} {
	for _, item := range entry.Details {
		if item.K == key {
			return item.V
		}
	}
	return nil
}
