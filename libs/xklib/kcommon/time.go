package kcommon

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type TimeProvider interface {
	GetWallTimeMs() int64
	GetMonoTimeMs() int64
	SleepMs(ctx context.Context, ms int)
}

type timeProviderHolder struct {
	provider TimeProvider
}

var currentTimeProvider atomic.Pointer[timeProviderHolder]

func init() {
	SetTimeProvider(NewSystemTimeProvider())
}

func SetTimeProvider(provider TimeProvider) {
	currentTimeProvider.Store(&timeProviderHolder{provider})
}

func GetTimeProvider() TimeProvider {
	return currentTimeProvider.Load().provider
}

// RunWithTimeProvider swaps the provider for the duration of fn.
func RunWithTimeProvider(tp TimeProvider, fn func()) {
	old := GetTimeProvider()
	SetTimeProvider(tp)
	defer SetTimeProvider(old)
	fn()
}

func GetWallTimeMs() int64 {
	return GetTimeProvider().GetWallTimeMs()
}

func GetMonoTimeMs() int64 {
	return GetTimeProvider().GetMonoTimeMs()
}

// SleepMs blocks the calling goroutine. The system provider ignores ctx: the sleep is not cancellable.
func SleepMs(ctx context.Context, ms int) {
	GetTimeProvider().SleepMs(ctx, ms)
}

// SystemTimeProvider: implements TimeProvider interface
type SystemTimeProvider struct {
	startTime time.Time
}

func NewSystemTimeProvider() *SystemTimeProvider {
	return &SystemTimeProvider{
		startTime: time.Now(),
	}
}

func (provider *SystemTimeProvider) GetWallTimeMs() int64 {
	return time.Now().UnixMilli()
}

func (provider *SystemTimeProvider) GetMonoTimeMs() int64 {
	return time.Since(provider.startTime).Milliseconds()
}

func (provider *SystemTimeProvider) SleepMs(ctx context.Context, ms int) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// MockTimeProvider: implements TimeProvider interface. SleepMs returns immediately and moves
// the clock forward, safe for concurrent sleepers.
type MockTimeProvider struct {
	wallTime atomic.Int64
	monoTime atomic.Int64

	mu     sync.Mutex
	sleeps []int
}

func NewMockTimeProvider() *MockTimeProvider {
	return &MockTimeProvider{}
}

func (provider *MockTimeProvider) GetWallTimeMs() int64 {
	return provider.wallTime.Load()
}

func (provider *MockTimeProvider) GetMonoTimeMs() int64 {
	return provider.monoTime.Load()
}

func (provider *MockTimeProvider) SetTimeMs(timeMs int64) *MockTimeProvider {
	provider.monoTime.Store(timeMs)
	provider.wallTime.Store(timeMs)
	return provider
}

func (provider *MockTimeProvider) AddTimeMs(diffMs int64) *MockTimeProvider {
	provider.monoTime.Add(diffMs)
	provider.wallTime.Add(diffMs)
	return provider
}

func (provider *MockTimeProvider) SleepMs(ctx context.Context, ms int) {
	provider.mu.Lock()
	provider.sleeps = append(provider.sleeps, ms)
	provider.mu.Unlock()
	provider.AddTimeMs(int64(ms))
}

// Sleeps returns every SleepMs duration seen so far, in call order.
func (provider *MockTimeProvider) Sleeps() []int {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	return append([]int(nil), provider.sleeps...)
}
