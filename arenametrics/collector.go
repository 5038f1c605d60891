// Package arenametrics exports arena accounting as Prometheus gauges.
package arenametrics

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pavanmanishd/linarena"
)

// StatsSource is anything that can snapshot an arena. Both *linarena.Arena
// and *linarena.Locked qualify; only the latter is safe to scrape while
// another goroutine allocates.
type StatsSource interface {
	Stats() linarena.Stats
}

var _ prometheus.Collector = &Collector{}

// Collector reports used, available and capacity bytes for every tracked
// arena, labelled by arena name and kind (root or sub).
type Collector struct {
	used      *prometheus.Desc
	available *prometheus.Desc
	capacity  *prometheus.Desc

	mtx     sync.RWMutex
	sources map[string]StatsSource
}

// NewCollector returns a collector whose metric names are prefixed with
// namespace, e.g. "<namespace>_arena_used_bytes".
func NewCollector(namespace string) *Collector {
	labels := []string{"arena", "kind"}
	return &Collector{
		used: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "arena", "used_bytes"),
			"Bytes consumed in the arena, alignment padding included.",
			labels, nil,
		),
		available: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "arena", "available_bytes"),
			"Bytes still free in the arena.",
			labels, nil,
		),
		capacity: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "arena", "capacity_bytes"),
			"Fixed capacity of the arena.",
			labels, nil,
		),
		sources: map[string]StatsSource{},
	}
}

// Track starts reporting src under its current name. Tracking a second
// source with the same name replaces the first.
func (c *Collector) Track(src StatsSource) {
	name := src.Stats().Name
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.sources[name] = src
}

// Untrack stops reporting the arena called name.
func (c *Collector) Untrack(name string) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	delete(c.sources, name)
}

// Tracked returns the names of tracked arenas, sorted.
func (c *Collector) Tracked() []string {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.used
	descs <- c.available
	descs <- c.capacity
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	for name, src := range c.sources {
		s := src.Stats()
		kind := "root"
		if s.Sub {
			kind = "sub"
		}
		metrics <- prometheus.MustNewConstMetric(c.used, prometheus.GaugeValue, float64(s.Used), name, kind)
		metrics <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, float64(s.Available), name, kind)
		metrics <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity), name, kind)
	}
}
