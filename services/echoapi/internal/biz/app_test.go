package biz

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xinkaiwang/helloecho/libs/xklib/kcommon"
	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
	"github.com/xinkaiwang/helloecho/libs/xklib/kmetrics"
	"golang.org/x/sync/errgroup"
)

func withSilentLog(t *testing.T) {
	old := klogging.GetLogger()
	klogging.SetDefaultLogger(klogging.NewNullLogger())
	t.Cleanup(func() { klogging.SetDefaultLogger(old) })
}

func TestHello(t *testing.T) {
	app := NewApp(0)
	assert.Equal(t, "Hello World", app.Hello(context.Background()))
}

func TestEchoIdentity(t *testing.T) {
	withSilentLog(t)
	ctx := context.Background()
	mockTime := kcommon.NewMockTimeProvider()
	app := NewApp(200)

	inputs := []string{"ping", " spaced ", "ünïcödé ✓", "<script>alert(1)</script>", "line1\nline2", string(make([]byte, 10000))}
	kcommon.RunWithTimeProvider(mockTime, func() {
		for _, s := range inputs {
			start := kcommon.GetMonoTimeMs()
			assert.Equal(t, s, app.Echo(ctx, s))
			assert.Equal(t, int64(200), kcommon.GetMonoTimeMs()-start)
		}
	})
	assert.Len(t, mockTime.Sleeps(), len(inputs))
	assert.Equal(t, int64(0), app.InFlightEchoes())
}

func TestEchoDelayHistogram(t *testing.T) {
	withSilentLog(t)
	ctx := context.Background()
	seq := kmetrics.OpsLatencyHistogram.GetHistoSequence(ctx, EchoDelayMetricName, "OK", "")
	countBefore, sumBefore := seq.Get()

	app := NewApp(200)
	kcommon.RunWithTimeProvider(kcommon.NewMockTimeProvider(), func() {
		app.Echo(ctx, "a")
		app.Echo(ctx, "b")
		// rejected before the delay, not measured
		kcommon.TryCatchRun(ctx, func() { app.Echo(ctx, "") })
	})

	count, sum := seq.Get()
	assert.Equal(t, int64(2), count-countBefore)
	assert.Equal(t, int64(400), sum-sumBefore)
}

func TestEchoTextRequired(t *testing.T) {
	withSilentLog(t)
	mockTime := kcommon.NewMockTimeProvider()
	app := NewApp(200)
	kcommon.RunWithTimeProvider(mockTime, func() {
		ke := kcommon.TryCatchRun(context.Background(), func() {
			app.Echo(context.Background(), "")
		})
		if assert.NotNil(t, ke) {
			assert.Equal(t, "Text is required", ke.Msg)
			assert.Equal(t, kerror.EC_INVALID_PARAMETER, ke.ErrorCode)
		}
	})
	// no delay for a rejected request
	assert.Empty(t, mockTime.Sleeps())
}

func TestEchoConcurrent(t *testing.T) {
	withSilentLog(t)
	ctx := context.Background()
	app := NewApp(5)
	results := make([]string, 50)
	g, _ := errgroup.WithContext(ctx)
	for i := range results {
		i := i
		g.Go(func() error {
			results[i] = app.Echo(ctx, fmt.Sprintf("payload-%d", i))
			return nil
		})
	}
	assert.NoError(t, g.Wait())
	for i, got := range results {
		assert.Equal(t, fmt.Sprintf("payload-%d", i), got)
	}
	assert.Equal(t, int64(0), app.InFlightEchoes())
}
