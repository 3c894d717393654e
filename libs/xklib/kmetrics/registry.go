package kmetrics

import (
	"sync"
	"sync/atomic"

	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"go.opencensus.io/metric/metricdata"
)

// KmetricsRegistry implements the metricproducer.Producer interface.
type KmetricsRegistry struct {
	mu         sync.Mutex // lock this only when registering
	collection atomic.Pointer[kmetricsCollection]
	globalTags atomic.Pointer[map[string]string]

	// tag name -> metric name, to detect conflicts with globalTags.
	allTagNames map[string]string
}

func NewKmetricsRegistry() *KmetricsRegistry {
	registry := &KmetricsRegistry{
		allTagNames: make(map[string]string),
	}
	registry.collection.Store(&kmetricsCollection{
		dict:  map[string]*Kmetric{},
		histo: map[string]*Khistogram{},
	})
	registry.globalTags.Store(&map[string]string{})
	return registry
}

var kmetricsRegistry = NewKmetricsRegistry()

func GetKmetricsRegistry() *KmetricsRegistry {
	return kmetricsRegistry
}

func (registry *KmetricsRegistry) RegisterKmetric(km *Kmetric) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.checkTagNames(km.metricName, km.tagNames)

	newCollection := registry.collection.Load().clone()
	newCollection.dict[km.metricName] = km
	registry.collection.Store(newCollection)
}

func (registry *KmetricsRegistry) RegisterHistogram(his *Khistogram) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.checkTagNames(his.metricName, his.tagNames)

	newCollection := registry.collection.Load().clone()
	newCollection.histo[his.metricName] = his
	registry.collection.Store(newCollection)
}

// AddGlobalTag adds a tag to every metric read from this registry. Panics if a registered metric already uses that tag name.
func (registry *KmetricsRegistry) AddGlobalTag(key, value string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if metricName, exists := registry.allTagNames[key]; exists {
		panic(kerror.Create("TagNameConflict", "global tag name conflicts with an existing metric tag").
			With("tagName", key).
			With("metricName", metricName))
	}
	old := *registry.globalTags.Load()
	tags := make(map[string]string, len(old)+1)
	for k, v := range old {
		tags[k] = v
	}
	tags[key] = value
	registry.globalTags.Store(&tags)
}

// Read implements metricproducer.Producer.
func (registry *KmetricsRegistry) Read() []*metricdata.Metric {
	collection := registry.collection.Load()
	globalTags := *registry.globalTags.Load()
	list := []*metricdata.Metric{}
	for _, km := range collection.dict {
		list = append(list, attachGlobalTags(km.ReadCount(), globalTags))
		if !km.countOnly {
			list = append(list, attachGlobalTags(km.ReadSum(), globalTags))
		}
	}
	for _, his := range collection.histo {
		for _, item := range his.Read() {
			list = append(list, attachGlobalTags(item, globalTags))
		}
	}
	return list
}

func attachGlobalTags(metric *metricdata.Metric, globalTags map[string]string) *metricdata.Metric {
	for key, value := range globalTags {
		metric.Descriptor.LabelKeys = append(metric.Descriptor.LabelKeys, metricdata.LabelKey{Key: key})
		for _, ts := range metric.TimeSeries {
			// label values are shared with the sequence, copy before appending
			values := make([]metricdata.LabelValue, len(ts.LabelValues), len(ts.LabelValues)+1)
			copy(values, ts.LabelValues)
			ts.LabelValues = append(values, metricdata.NewLabelValue(value))
		}
	}
	return metric
}

// checkTagNames must be called with mu held.
func (registry *KmetricsRegistry) checkTagNames(metricName string, tagNames []string) {
	globalTags := *registry.globalTags.Load()
	for _, tagName := range tagNames {
		if _, exists := globalTags[tagName]; exists {
			panic(kerror.Create("TagNameConflict", "metric tag name conflicts with a global tag").
				With("tagName", tagName).
				With("metricName", metricName))
		}
	}
	for _, tagName := range tagNames {
		registry.allTagNames[tagName] = metricName
	}
}

// kmetricsCollection is immutable; registering swaps in a new copy.
type kmetricsCollection struct {
	dict  map[string]*Kmetric
	histo map[string]*Khistogram
}

func (collection *kmetricsCollection) clone() *kmetricsCollection {
	newCollection := &kmetricsCollection{
		dict:  make(map[string]*Kmetric, len(collection.dict)+1),
		histo: make(map[string]*Khistogram, len(collection.histo)+1),
	}
	for k, v := range collection.dict {
		newCollection.dict[k] = v
	}
	for k, v := range collection.histo {
		newCollection.histo[k] = v
	}
	return newCollection
}
