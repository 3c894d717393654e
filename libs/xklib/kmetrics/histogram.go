package kmetrics

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"go.opencensus.io/metric/metricdata"
)

// Khistogram exports "<name>_bucket" (with an extra "le" tag), "<name>_sum" and "<name>_count".
type Khistogram struct {
	mu          sync.Mutex // lock this only when adding new HistoSequence
	metricName  string
	description string
	tagNames    []string
	buckets     []int64
	collection  atomic.Pointer[histoSequenceCollection]
	startTime   time.Time
}

// example buckets: []int64{1,3,10,100,1000,10000,60000}
// example buckets: []int64{1,2,3,6,10,20,30,60,100,200,300,600,1000,2000,3000,6000,10000,20000,30000}
func CreateKhistogram(ctx context.Context, name string, description string, tags []string, buckets []int64) *Khistogram {
	his := &Khistogram{
		metricName:  name,
		description: description,
		tagNames:    tags,
		buckets:     buckets,
		startTime:   time.Now(),
	}
	his.collection.Store(&histoSequenceCollection{dict: map[string]*HistoSequence{}})

	GetKmetricsRegistry().RegisterHistogram(his)
	return his
}

// GetHistoSequence: tags must match tagNames in length and order. Panics otherwise.
func (m *Khistogram) GetHistoSequence(ctx context.Context, tags ...string) *HistoSequence {
	key := makeSequenceKey(tags...)
	if seq, ok := m.collection.Load().dict[key]; ok {
		return seq
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.collection.Load()
	if seq, ok := old.dict[key]; ok {
		return seq
	}
	newCollection := &histoSequenceCollection{dict: make(map[string]*HistoSequence, len(old.dict)+1)}
	for k, v := range old.dict {
		newCollection.dict[k] = v
	}
	seq := newHistoSequence(m, tags)
	newCollection.dict[key] = seq
	m.collection.Store(newCollection)
	return seq
}

func (m *Khistogram) Read() []*metricdata.Metric {
	return []*metricdata.Metric{m.ReadBucket(), m.ReadSum(), m.ReadCount()}
}

func (m *Khistogram) ReadBucket() *metricdata.Metric {
	tagNames := append(append([]string{}, m.tagNames...), "le")
	var timeSeries []*metricdata.TimeSeries
	for _, seq := range m.collection.Load().dict {
		timeSeries = append(timeSeries, seq.ReadBuckets()...)
	}
	return &metricdata.Metric{
		Descriptor: newDescriptor(m.metricName+"_bucket", m.description, tagNames),
		Resource:   newResource(),
		TimeSeries: timeSeries,
	}
}

func (m *Khistogram) ReadSum() *metricdata.Metric {
	var timeSeries []*metricdata.TimeSeries
	for _, seq := range m.collection.Load().dict {
		timeSeries = append(timeSeries, newTimeSeries(seq.labelValues, seq.sum.Load(), m.startTime))
	}
	return &metricdata.Metric{
		Descriptor: newDescriptor(m.metricName+"_sum", m.description, m.tagNames),
		Resource:   newResource(),
		TimeSeries: timeSeries,
	}
}

func (m *Khistogram) ReadCount() *metricdata.Metric {
	var timeSeries []*metricdata.TimeSeries
	for _, seq := range m.collection.Load().dict {
		timeSeries = append(timeSeries, newTimeSeries(seq.labelValues, seq.count.Load(), m.startTime))
	}
	return &metricdata.Metric{
		Descriptor: newDescriptor(m.metricName+"_count", m.description, m.tagNames),
		Resource:   newResource(),
		TimeSeries: timeSeries,
	}
}

type histoSequenceCollection struct {
	dict map[string]*HistoSequence
}

/*********************** HistoSequence ************************/

type HistoSequence struct {
	parent      *Khistogram
	buckets     []*histoBucket // last one is "+Inf"
	count       atomic.Int64
	sum         atomic.Int64
	labelValues []metricdata.LabelValue
}

func newHistoSequence(parent *Khistogram, tagValues []string) *HistoSequence {
	if len(tagValues) != len(parent.tagNames) {
		panic(kerror.Create("InvalidTagValues", "number of tag values does not match tag name list").
			With("metricName", parent.metricName).
			With("expectedLen", len(parent.tagNames)).
			With("gotLen", len(tagValues)))
	}
	hs := &HistoSequence{
		parent:      parent,
		labelValues: newLabelValues(tagValues),
	}
	for _, bucket := range parent.buckets {
		hs.buckets = append(hs.buckets, newHistoBucket(tagValues, strconv.FormatInt(bucket, 10)))
	}
	hs.buckets = append(hs.buckets, newHistoBucket(tagValues, "+Inf"))
	return hs
}

// Add: buckets are cumulative, a value counts toward every bucket whose bound is >= val.
func (hs *HistoSequence) Add(val int64) {
	for i, bound := range hs.parent.buckets {
		if val <= bound {
			hs.buckets[i].counter.Add(1)
		}
	}
	hs.buckets[len(hs.parent.buckets)].counter.Add(1)
	hs.count.Add(1)
	hs.sum.Add(val)
}

func (hs *HistoSequence) Get() (count int64, sum int64) {
	return hs.count.Load(), hs.sum.Load()
}

func (hs *HistoSequence) ReadBuckets() []*metricdata.TimeSeries {
	list := make([]*metricdata.TimeSeries, 0, len(hs.buckets))
	for _, bucket := range hs.buckets {
		list = append(list, newTimeSeries(bucket.labelValues, bucket.counter.Load(), hs.parent.startTime))
	}
	return list
}

type histoBucket struct {
	counter     atomic.Int64
	labelValues []metricdata.LabelValue // tag values plus le
}

func newHistoBucket(tagValues []string, le string) *histoBucket {
	return &histoBucket{
		labelValues: newLabelValues(append(append([]string{}, tagValues...), le)),
	}
}
