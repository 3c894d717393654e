package ksysmetrics

import (
	"context"
	"fmt"
	"math"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
	"go.opencensus.io/metric"
	"go.opencensus.io/metric/metricdata"
)

var (
	registry = metric.NewRegistry()

	// last collected values, read by the derived gauges at export time
	currentUserCPU       atomicFloat64
	currentSystemCPU     atomicFloat64
	currentHeapAlloc     atomic.Int64
	currentStackInuse    atomic.Int64
	currentSysMem        atomic.Int64
	currentGoroutines    atomic.Int64
	currentFDs           atomic.Int64
	currentGCPause       atomic.Int64
	currentGCInterval    atomic.Int64
	currentGCCPUFraction atomicFloat64

	currentVersion atomic.Value
	cpuGaugesOnce  sync.Once
)

type atomicFloat64 struct {
	bits atomic.Uint64
}

func (f *atomicFloat64) Store(v float64) { f.bits.Store(math.Float64bits(v)) }
func (f *atomicFloat64) Load() float64   { return math.Float64frombits(f.bits.Load()) }

func init() {
	currentVersion.Store("unknown")
	addInt64Gauge("process_heap_bytes", "Process heap memory in bytes", "bytes", &currentHeapAlloc)
	addInt64Gauge("process_stack_bytes", "Process stack memory in bytes", "bytes", &currentStackInuse)
	addInt64Gauge("process_resident_memory_bytes", "Memory obtained from the OS in bytes", "bytes", &currentSysMem)
	addInt64Gauge("process_goroutines", "Number of goroutines", metricdata.UnitDimensionless, &currentGoroutines)
	addInt64Gauge("process_open_fds", "Number of open file descriptors", metricdata.UnitDimensionless, &currentFDs)
	addInt64Gauge("process_gc_pause_total_ns", "Total GC pause time in nanoseconds", "ns", &currentGCPause)
	addInt64Gauge("process_gc_last_ms", "Wall time of the last GC in unix milliseconds", "ms", &currentGCInterval)

	gcCPUFraction, _ := registry.AddFloat64DerivedGauge(
		"process_gc_cpu_fraction",
		metric.WithDescription("Fraction of CPU time used by GC"))
	gcCPUFraction.UpsertEntry(currentGCCPUFraction.Load)
}

func addInt64Gauge(name, description string, unit metricdata.Unit, value *atomic.Int64) {
	gauge, _ := registry.AddInt64DerivedGauge(name, metric.WithDescription(description), metric.WithUnit(unit))
	gauge.UpsertEntry(value.Load)
}

// SetVersion must be called before StartSysMetricsCollector to show up in the CPU gauges.
func SetVersion(version string) {
	if version != "" {
		currentVersion.Store(version)
	}
}

func GetVersion() string {
	return currentVersion.Load().(string)
}

// StartSysMetricsCollector collects once immediately, then every interval until ctx is done.
// version becomes the "version" label of the CPU gauges.
func StartSysMetricsCollector(ctx context.Context, interval time.Duration, version string) {
	SetVersion(version)
	cpuGaugesOnce.Do(func() {
		label := metricdata.NewLabelValue(GetVersion())
		userCPU, _ := registry.AddFloat64DerivedGauge(
			"process_user_cpu_seconds",
			metric.WithDescription("User CPU time spent in seconds"),
			metric.WithUnit("seconds"),
			metric.WithLabelKeys("version"))
		userCPU.UpsertEntry(currentUserCPU.Load, label)

		systemCPU, _ := registry.AddFloat64DerivedGauge(
			"process_system_cpu_seconds",
			metric.WithDescription("System CPU time spent in seconds"),
			metric.WithUnit("seconds"),
			metric.WithLabelKeys("version"))
		systemCPU.UpsertEntry(currentSystemCPU.Load, label)
	})

	pid := os.Getpid()
	collectMetrics(ctx, pid)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				collectMetrics(ctx, pid)
			}
		}
	}()
}

func collectMetrics(ctx context.Context, pid int) {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err == nil {
		userCPU := time.Duration(rusage.Utime.Sec)*time.Second + time.Duration(rusage.Utime.Usec)*time.Microsecond
		sysCPU := time.Duration(rusage.Stime.Sec)*time.Second + time.Duration(rusage.Stime.Usec)*time.Microsecond
		currentUserCPU.Store(userCPU.Seconds())
		currentSystemCPU.Store(sysCPU.Seconds())
	} else {
		klogging.Error(ctx).WithError(err).Log("CPUMetricsError", "failed to collect CPU metrics")
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	currentHeapAlloc.Store(int64(memStats.HeapAlloc))
	currentStackInuse.Store(int64(memStats.StackInuse))
	currentSysMem.Store(int64(memStats.Sys))
	currentGoroutines.Store(int64(runtime.NumGoroutine()))

	if fds, err := getFDCount(pid); err == nil {
		currentFDs.Store(int64(fds))
	} else {
		// not every platform has /proc
		klogging.Debug(ctx).WithError(err).Log("FDMetricsError", "failed to collect FD metrics")
	}

	currentGCPause.Store(int64(memStats.PauseTotalNs))
	currentGCInterval.Store(int64(memStats.LastGC / 1e6))
	currentGCCPUFraction.Store(memStats.GCCPUFraction)
}

func getFDCount(pid int) (int, error) {
	fds, err := os.ReadDir(fmt.Sprintf("/proc/%d/fd", pid))
	if err != nil {
		return 0, err
	}
	return len(fds), nil
}

// GetRegistry returns the process metrics registry, to be added to metricproducer.GlobalManager().
func GetRegistry() *metric.Registry {
	return registry
}
