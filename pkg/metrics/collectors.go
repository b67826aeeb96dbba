package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

// RuntimeCollector отдаёт метрики Go runtime. Решатель считает на CPU
// и строит большие остаточные сети в памяти, поэтому давление на кучу
// и паузы GC напрямую видны в латентности решений.
type RuntimeCollector struct {
	goroutines  *prometheus.Desc
	heapAlloc   *prometheus.Desc
	heapObjects *prometheus.Desc
	totalAlloc  *prometheus.Desc
	memSys      *prometheus.Desc
	gcPause     *prometheus.Desc
	gcRuns      *prometheus.Desc
}

// NewRuntimeCollector создаёт коллектор runtime метрик
func NewRuntimeCollector(namespace, subsystem string) *RuntimeCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, name),
			help, nil, nil,
		)
	}
	return &RuntimeCollector{
		goroutines:  desc("runtime_goroutines", "Number of goroutines"),
		heapAlloc:   desc("runtime_heap_alloc_bytes", "Bytes allocated and still in use"),
		heapObjects: desc("runtime_heap_objects", "Number of allocated heap objects"),
		totalAlloc:  desc("runtime_total_alloc_bytes", "Cumulative bytes allocated, including freed"),
		memSys:      desc("runtime_memory_sys_bytes", "Bytes obtained from the OS"),
		gcPause:     desc("runtime_gc_last_pause_seconds", "Duration of the most recent GC pause"),
		gcRuns:      desc("runtime_gc_runs_total", "Completed GC cycles"),
	}
}

// Describe implements prometheus.Collector
func (c *RuntimeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.goroutines
	ch <- c.heapAlloc
	ch <- c.heapObjects
	ch <- c.totalAlloc
	ch <- c.memSys
	ch <- c.gcPause
	ch <- c.gcRuns
}

// Collect implements prometheus.Collector
func (c *RuntimeCollector) Collect(ch chan<- prometheus.Metric) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	ch <- prometheus.MustNewConstMetric(c.goroutines, prometheus.GaugeValue, float64(runtime.NumGoroutine()))
	ch <- prometheus.MustNewConstMetric(c.heapAlloc, prometheus.GaugeValue, float64(stats.HeapAlloc))
	ch <- prometheus.MustNewConstMetric(c.heapObjects, prometheus.GaugeValue, float64(stats.HeapObjects))
	ch <- prometheus.MustNewConstMetric(c.totalAlloc, prometheus.CounterValue, float64(stats.TotalAlloc))
	ch <- prometheus.MustNewConstMetric(c.memSys, prometheus.GaugeValue, float64(stats.Sys))
	ch <- prometheus.MustNewConstMetric(c.gcRuns, prometheus.CounterValue, float64(stats.NumGC))

	// Пауза последнего завершённого цикла GC
	if stats.NumGC > 0 {
		ch <- prometheus.MustNewConstMetric(c.gcPause, prometheus.GaugeValue, float64(stats.PauseNs[(stats.NumGC-1)%256])/1e9)
	}
}

// PoolStatsFunc снимает занятость пула решателя: сколько слотов
// занято и сколько всего.
type PoolStatsFunc func() (inUse, capacity int)

// PoolCollector отдаёт занятость пула решателя. Заполненный пул
// означает, что входящие запросы ждут слот.
type PoolCollector struct {
	stats    PoolStatsFunc
	inUse    *prometheus.Desc
	capacity *prometheus.Desc
}

// NewPoolCollector создаёт коллектор занятости пула
func NewPoolCollector(namespace, subsystem string, stats PoolStatsFunc) *PoolCollector {
	return &PoolCollector{
		stats: stats,
		inUse: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "solver_slots_in_use"),
			"Solver pool slots currently occupied",
			nil, nil,
		),
		capacity: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "solver_slots_capacity"),
			"Total solver pool slots",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.inUse
	ch <- c.capacity
}

// Collect implements prometheus.Collector
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	inUse, capacity := c.stats()
	ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(inUse))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(capacity))
}
