// Package metrics exposes gridcore components as Prometheus collectors so a
// host service can register them on its own registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chalkan3-sloth/gridcore/collector"
	"github.com/chalkan3-sloth/gridcore/conc"
	"github.com/chalkan3-sloth/gridcore/transport"
)

// QueueStats is the counter surface a queue collector reads. ActiveQueue
// satisfies it for every item type.
type QueueStats interface {
	NEnqueued() uint64
	NDone() uint64
	Stopped() bool
}

var _ QueueStats = (*conc.ActiveQueue[int])(nil)

type queueCollector struct {
	stats    QueueStats
	enqueued *prometheus.Desc
	done     *prometheus.Desc
	pending  *prometheus.Desc
}

// NewQueueCollector describes an ActiveQueue's progress counters.
func NewQueueCollector(name string, stats QueueStats) prometheus.Collector {
	labels := prometheus.Labels{"queue": name}
	return &queueCollector{
		stats: stats,
		enqueued: prometheus.NewDesc("gridcore_queue_enqueued_total",
			"Items pushed into the queue", nil, labels),
		done: prometheus.NewDesc("gridcore_queue_done_total",
			"Handler invocations completed", nil, labels),
		pending: prometheus.NewDesc("gridcore_queue_pending",
			"Items awaiting a handler", nil, labels),
	}
}

func (c *queueCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.enqueued
	ch <- c.done
	ch <- c.pending
}

func (c *queueCollector) Collect(ch chan<- prometheus.Metric) {
	enq := c.stats.NEnqueued()
	done := c.stats.NDone()
	ch <- prometheus.MustNewConstMetric(c.enqueued, prometheus.CounterValue, float64(enq))
	ch <- prometheus.MustNewConstMetric(c.done, prometheus.CounterValue, float64(done))
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(enq-done))
}

// TableStats is the surface a table collector reads.
type TableStats interface {
	NBlocks() int
	MaxBlockID() uint64
	NColumns() int
}

type tableCollector struct {
	stats    TableStats
	blocks   *prometheus.Desc
	maxBlock *prometheus.Desc
}

// NewTableCollector describes a collector.Table's block population.
func NewTableCollector[T any](name string, t *collector.Table[T]) prometheus.Collector {
	labels := prometheus.Labels{"table": name}
	var stats TableStats = t
	return &tableCollector{
		stats: stats,
		blocks: prometheus.NewDesc("gridcore_table_blocks",
			"Block entries held by the collector", nil, labels),
		maxBlock: prometheus.NewDesc("gridcore_table_max_block_id",
			"Largest block id seen", nil, labels),
	}
}

func (c *tableCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.blocks
	ch <- c.maxBlock
}

func (c *tableCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.blocks, prometheus.GaugeValue, float64(c.stats.NBlocks()))
	ch <- prometheus.MustNewConstMetric(c.maxBlock, prometheus.GaugeValue, float64(c.stats.MaxBlockID()))
}

type socketCollector struct {
	w         *transport.Wrapper
	valid     *prometheus.Desc
	endpoints *prometheus.Desc
}

// NewSocketCollector describes a transport wrapper's lifecycle state.
func NewSocketCollector(name string, w *transport.Wrapper) prometheus.Collector {
	labels := prometheus.Labels{"socket": name}
	return &socketCollector{
		w: w,
		valid: prometheus.NewDesc("gridcore_socket_valid",
			"Whether the socket has a live binding or connection", nil, labels),
		endpoints: prometheus.NewDesc("gridcore_socket_endpoints",
			"Recorded endpoints", nil, labels),
	}
}

func (c *socketCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.valid
	ch <- c.endpoints
}

func (c *socketCollector) Collect(ch chan<- prometheus.Metric) {
	valid := 0.0
	if c.w.Valid() {
		valid = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.valid, prometheus.GaugeValue, valid)
	ch <- prometheus.MustNewConstMetric(c.endpoints, prometheus.GaugeValue, float64(len(c.w.Endpoints())))
}

// ObserveDrain times a WaitEmpty call into a summary-friendly histogram.
func ObserveDrain(h prometheus.Observer, fn func() bool) bool {
	start := time.Now()
	ok := fn()
	h.Observe(time.Since(start).Seconds())
	return ok
}
