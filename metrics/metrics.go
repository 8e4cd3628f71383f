// Package metrics exports LIC engine counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/lic"
)

// StatsSource is implemented by *lic.Engine.
type StatsSource interface {
	Stats() lic.Stats
}

// Collector reads engine stats on every scrape.
type Collector struct {
	src StatsSource

	executions    *prometheus.Desc
	failures      *prometheus.Desc
	dispatches    *prometheus.Desc
	bufAllocated  *prometheus.Desc
	bufReleased   *prometheus.Desc
	liveBuffers   *prometheus.Desc
	liveBytes     *prometheus.Desc
	builds        *prometheus.Desc
	buildFailures *prometheus.Desc
	lastDuration  *prometheus.Desc
}

// NewCollector returns a collector for src. Labels are attached to every
// metric, for example to tell engines apart.
func NewCollector(src StatsSource, labels prometheus.Labels) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("lic", "engine", name), help, nil, labels)
	}
	return &Collector{
		src:           src,
		executions:    desc("executions_total", "Execute calls."),
		failures:      desc("failures_total", "Execute calls that returned an error."),
		dispatches:    desc("dispatches_total", "Completed compute dispatches."),
		bufAllocated:  desc("buffers_allocated_total", "Device buffers created."),
		bufReleased:   desc("buffers_released_total", "Device buffers destroyed."),
		liveBuffers:   desc("buffers_live", "Device buffers currently allocated."),
		liveBytes:     desc("buffer_bytes", "Size of the allocated device buffers in bytes."),
		builds:        desc("program_builds_total", "Successful program builds."),
		buildFailures: desc("program_build_failures_total", "Failed program compile or link attempts."),
		lastDuration:  desc("last_execute_seconds", "Wall time of the most recent successful Execute."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.executions
	ch <- c.failures
	ch <- c.dispatches
	ch <- c.bufAllocated
	ch <- c.bufReleased
	ch <- c.liveBuffers
	ch <- c.liveBytes
	ch <- c.builds
	ch <- c.buildFailures
	ch <- c.lastDuration
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter(c.executions, s.Executions)
	counter(c.failures, s.Failures)
	counter(c.dispatches, s.Dispatches)
	counter(c.bufAllocated, s.BuffersAllocated)
	counter(c.bufReleased, s.BuffersReleased)
	gauge(c.liveBuffers, float64(s.LiveBuffers()))
	gauge(c.liveBytes, float64(s.BytesAllocated))
	counter(c.builds, s.ProgramBuilds)
	counter(c.buildFailures, s.BuildFailures)
	gauge(c.lastDuration, s.LastDuration.Seconds())
}
