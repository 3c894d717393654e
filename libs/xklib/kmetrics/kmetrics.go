package kmetrics

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
	"go.opencensus.io/metric/metricdata"
	"go.opencensus.io/resource"
)

// Kmetric means 1 metric, exported as 2 metric names: "<name>_sum" and "<name>_count" (or only
// "<name>_count" when CountOnly). Each tag value combination is one TimeSequence.
type Kmetric struct {
	mu          sync.Mutex // lock this only when adding new TimeSequence
	metricName  string
	description string
	tagNames    []string
	collection  atomic.Pointer[timeSequenceCollection]
	startTime   time.Time
	countOnly   bool
}

func CreateKmetric(ctx context.Context, name string, description string, tags []string) *Kmetric {
	km := &Kmetric{
		metricName:  name,
		description: description,
		tagNames:    tags,
		startTime:   time.Now(),
	}
	km.collection.Store(&timeSequenceCollection{dict: map[string]*TimeSequence{}})

	GetKmetricsRegistry().RegisterKmetric(km)
	return km
}

func (km *Kmetric) CountOnly() *Kmetric {
	km.countOnly = true
	return km
}

func makeSequenceKey(tags ...string) string {
	return strings.Join(tags, "-")
}

// GetTimeSequence: tags must match tagNames in length and order. Panics otherwise.
func (km *Kmetric) GetTimeSequence(ctx context.Context, tags ...string) *TimeSequence {
	key := makeSequenceKey(tags...)
	if seq, ok := km.collection.Load().dict[key]; ok {
		return seq
	}

	km.mu.Lock()
	defer km.mu.Unlock()

	// double check after lock
	old := km.collection.Load()
	if seq, ok := old.dict[key]; ok {
		return seq
	}

	newCollection := &timeSequenceCollection{dict: make(map[string]*TimeSequence, len(old.dict)+1)}
	for k, v := range old.dict {
		newCollection.dict[k] = v
	}
	seq := newTimeSequence(ctx, key, km, tags)
	newCollection.dict[key] = seq
	km.collection.Store(newCollection)
	return seq
}

func (km *Kmetric) ReadSum() *metricdata.Metric {
	return km.read("_sum", (*TimeSequence).ReadSum)
}

func (km *Kmetric) ReadCount() *metricdata.Metric {
	return km.read("_count", (*TimeSequence).ReadCount)
}

func (km *Kmetric) read(suffix string, fn func(*TimeSequence) *metricdata.TimeSeries) *metricdata.Metric {
	collection := km.collection.Load()
	timeSeries := make([]*metricdata.TimeSeries, 0, len(collection.dict))
	for _, ts := range collection.dict {
		timeSeries = append(timeSeries, fn(ts))
	}
	return &metricdata.Metric{
		Descriptor: newDescriptor(km.metricName+suffix, km.description, km.tagNames),
		Resource:   newResource(),
		TimeSeries: timeSeries,
	}
}

func newDescriptor(name, description string, tagNames []string) metricdata.Descriptor {
	keys := make([]metricdata.LabelKey, len(tagNames))
	for i, tagName := range tagNames {
		keys[i] = metricdata.LabelKey{Key: tagName}
	}
	return metricdata.Descriptor{
		Name:        name,
		Description: description,
		Unit:        metricdata.UnitDimensionless,
		Type:        metricdata.TypeCumulativeInt64,
		LabelKeys:   keys,
	}
}

func newResource() *resource.Resource {
	return &resource.Resource{
		Type:   "helloecho",
		Labels: map[string]string{},
	}
}

func newLabelValues(tagValues []string) []metricdata.LabelValue {
	values := make([]metricdata.LabelValue, len(tagValues))
	for i, item := range tagValues {
		values[i] = metricdata.NewLabelValue(item)
	}
	return values
}

// timeSequenceCollection is immutable; adding a TimeSequence swaps in a new copy.
type timeSequenceCollection struct {
	dict map[string]*TimeSequence // key is `-` separated tag values, order same as tagNames
}

// TimeSequence is 1 unique tag value combination.
type TimeSequence struct {
	parent      *Kmetric
	key         string
	labelValues []metricdata.LabelValue
	count       atomic.Int64
	sum         atomic.Int64
}

func newTimeSequence(ctx context.Context, key string, parent *Kmetric, tagValues []string) *TimeSequence {
	if len(tagValues) != len(parent.tagNames) {
		panic(kerror.Create("InvalidTagValues", "number of tag values does not match tag name list").
			With("metricName", parent.metricName).
			With("expectedLen", len(parent.tagNames)).
			With("gotLen", len(tagValues)))
	}
	seq := &TimeSequence{
		parent:      parent,
		key:         key,
		labelValues: newLabelValues(tagValues),
	}
	metricName := parent.metricName
	go func() {
		// logging may report metrics back into this Kmetric: never log while holding its lock.
		klogging.Verbose(ctx).With("metricName", metricName).With("tagKey", key).Log("CreateTimeSequence", "")
	}()
	return seq
}

func (ts *TimeSequence) Add(val int64) {
	ts.count.Add(1)
	ts.sum.Add(val)
}

// Touch makes a zero-valued sequence visible before the first Add. GetTimeSequence already did the work.
func (ts *TimeSequence) Touch() {}

func (ts *TimeSequence) Get() (count int64, sum int64) {
	return ts.count.Load(), ts.sum.Load()
}

func (ts *TimeSequence) ReadSum() *metricdata.TimeSeries {
	return newTimeSeries(ts.labelValues, ts.sum.Load(), ts.parent.startTime)
}

func (ts *TimeSequence) ReadCount() *metricdata.TimeSeries {
	return newTimeSeries(ts.labelValues, ts.count.Load(), ts.parent.startTime)
}

func newTimeSeries(labelValues []metricdata.LabelValue, value int64, startTime time.Time) *metricdata.TimeSeries {
	return &metricdata.TimeSeries{
		LabelValues: labelValues,
		Points:      []metricdata.Point{metricdata.NewInt64Point(time.Now(), value)},
		StartTime:   startTime,
	}
}
