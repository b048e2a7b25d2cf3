package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/selftime/tracking"
)

// Collector exports the state of a tracking session as Prometheus metrics.
// Only operations that have ended report their times.
type Collector struct {
	session *tracking.Synchronized

	elapsed    *prometheus.Desc
	selfTime   *prometheus.Desc
	begun      *prometheus.Desc
	inProgress *prometheus.Desc
}

// NewCollector creates a Collector for the given session.
func NewCollector(session *tracking.Synchronized) *Collector {
	return &Collector{
		session: session,
		elapsed: prometheus.NewDesc(
			"selftime_operation_elapsed_seconds",
			"Time taken by an operation, including its dependencies.",
			[]string{"operation"}, nil),
		selfTime: prometheus.NewDesc(
			"selftime_operation_self_seconds",
			"Time taken by an operation, excluding its direct dependencies.",
			[]string{"operation"}, nil),
		begun: prometheus.NewDesc(
			"selftime_operations_begun",
			"Number of distinct operations that have begun.",
			nil, nil),
		inProgress: prometheus.NewDesc(
			"selftime_operations_in_progress",
			"Number of operations that have begun and not ended.",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.elapsed
	ch <- c.selfTime
	ch <- c.begun
	ch <- c.inProgress
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.session.Read(func(t *tracking.Tracker) {
		for _, n := range t.Metrics() {
			if t.IsInProgress(n.ID()) {
				continue
			}

			ch <- prometheus.MustNewConstMetric(c.elapsed,
				prometheus.GaugeValue, n.Elapsed().Seconds(), n.ID())
			ch <- prometheus.MustNewConstMetric(c.selfTime,
				prometheus.GaugeValue, n.SelfTime().Seconds(), n.ID())
		}

		ch <- prometheus.MustNewConstMetric(c.begun,
			prometheus.GaugeValue, float64(t.OperationCount()))
		ch <- prometheus.MustNewConstMetric(c.inProgress,
			prometheus.GaugeValue, float64(t.Depth()))
	})
}

var _ prometheus.Collector = (*Collector)(nil)
