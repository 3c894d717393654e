package kcommon

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
)

func TestTryCatchRun_WhenFail_ShouldLogStackTrace(t *testing.T) {
	klogging.SetDefaultLogger(klogging.NewNullLogger())
	ctx := context.Background()
	fn1 := func(x int, y int) int {
		return x + y
	}
	fn2 := func(x int, y int) int {
		return x * y
	}
	fn3 := func(x int, y int) int {
		return x / y
	}
	ke := TryCatchRun(ctx, func() {
		fn1(fn2(1, 2), fn3(0, 0))
	})
	assert.NotNil(t, ke)
	assert.Equal(t, "UnknownError", ke.Type)
	assert.NotEmpty(t, ke.Stack)

	logEntry := klogging.Warning(ctx).WithError(ke)
	assert.NotNil(t, getDetail(logEntry.Details, "stack"))
	assert.NotNil(t, getDetail(logEntry.Details, "causedBy"))
	assert.Equal(t, "UnknownError", getDetail(logEntry.Details, "errorType"))
	logEntry.Log("TestLogEntry", "")
}

func TestTryCatchRun(t *testing.T) {
	klogging.SetDefaultLogger(klogging.NewNullLogger())
	ctx := context.Background()

	assert.Nil(t, TryCatchRun(ctx, func() {}))

	orig := kerror.Create("TextRequired", "Text is required").WithErrorCode(kerror.EC_INVALID_PARAMETER)
	ke := TryCatchRun(ctx, func() { panic(orig) })
	assert.Same(t, orig, ke)

	plain := errors.New("boom")
	ke = TryCatchRun(ctx, func() { panic(plain) })
	assert.True(t, errors.Is(ke, plain))
	assert.Equal(t, kerror.EC_UNKNOWN, ke.ErrorCode)

	ke = TryCatchRun(ctx, func() { panic("oops") })
	assert.Equal(t, "NonErrorPanic", ke.Type)
	assert.Equal(t, "oops", ke.Msg)
}

func TestNewTraceId(t *testing.T) {
	ctx := context.Background()
	id := NewTraceId(ctx, "req_", 8)
	assert.Regexp(t, "^req_[A-Z0-9]{8}$", id)
	assert.NotEqual(t, id, NewTraceId(ctx, "req_", 8))
}

func getDetail(details []klogging.Keypair, key string) interface{} {
	for _, detail := range details {
		if detail.K == key {
			return detail.V
		}
	}
	return nil
}
