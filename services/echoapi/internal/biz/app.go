package biz

import (
	"context"
	"sync/atomic"

	"github.com/xinkaiwang/helloecho/libs/xklib/kcommon"
	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
	"github.com/xinkaiwang/helloecho/libs/xklib/kmetrics"
	"github.com/xinkaiwang/helloecho/services/echoapi/api"
)

// EchoDelayMetricName is the op_lat_ms histogram method of the echo delay.
const EchoDelayMetricName = "biz.echo.delay"

var version = "dev"

func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

func GetVersion() string {
	return version
}

// App holds no request state: concurrent calls only share the in-flight counter.
type App struct {
	echoDelayMs int
	inFlight    atomic.Int64
}

func NewApp(echoDelayMs int) *App {
	return &App{echoDelayMs: echoDelayMs}
}

func (a *App) Hello(ctx context.Context) string {
	return api.HelloMessage
}

// Echo returns text unchanged after the configured delay. The delay cannot be cut short.
// Panics with EC_INVALID_PARAMETER when text is empty.
func (a *App) Echo(ctx context.Context, text string) string {
	if text == "" {
		panic(NewTextRequiredError())
	}
	a.inFlight.Add(1)
	defer a.inFlight.Add(-1)

	klogging.Debug(ctx).With("textLen", len(text)).With("delayMs", a.echoDelayMs).Log("EchoDelay", "")
	kmetrics.InstrumentHistogramRunVoid(ctx, EchoDelayMetricName, func() {
		kcommon.SleepMs(ctx, a.echoDelayMs)
	})
	return text
}

// InFlightEchoes counts echo calls currently waiting on their delay.
func (a *App) InFlightEchoes() int64 {
	return a.inFlight.Load()
}

func (a *App) EchoDelayMs() int {
	return a.echoDelayMs
}

func NewTextRequiredError() *kerror.Kerror {
	return kerror.Create("TextRequired", "Text is required").
		WithErrorCode(kerror.EC_INVALID_PARAMETER).
		WithoutStack()
}
