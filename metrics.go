package taskpool

import "github.com/prometheus/client_golang/prometheus"

// Stats is a point-in-time snapshot of pool activity.
type Stats struct {
	// Workers is the fixed pool size.
	Workers int
	// Queued counts tasks that are ready and waiting for a worker.
	Queued int
	// Running counts tasks currently executing.
	Running int
	// Detached counts fire-and-forget tasks that have not finished yet.
	Detached int

	// Submitted counts every submission, including rejected ones.
	Submitted int64
	// Succeeded counts tasks that finished with a value.
	Succeeded int64
	// Failed counts tasks whose error was captured, propagated failures
	// and rejected submissions included.
	Failed int64
	// PropagatedFailures counts tasks that never ran because a dependency
	// failed. Each is also counted in Failed.
	PropagatedFailures int64

	Closed bool
}

// Stats returns a snapshot of the pool's counters. The counters are read
// individually, so a snapshot taken while tasks settle may be momentarily
// inconsistent with itself.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	return Stats{
		Workers:            len(p.workers),
		Queued:             p.queue.len(),
		Running:            int(p.running.Load()),
		Detached:           int(p.detachedLive.Load()),
		Submitted:          p.submitted.Load(),
		Succeeded:          p.succeeded.Load(),
		Failed:             p.failed.Load(),
		PropagatedFailures: p.propagated.Load(),
		Closed:             closed,
	}
}

// Collector exposes a pool's statistics as Prometheus metrics:
//
//	prometheus.MustRegister(taskpool.NewCollector(pool))
//
// Gauges follow the live state; the *_total counters are monotone for the
// lifetime of the pool.
type Collector struct {
	pool *Pool

	workers    *prometheus.Desc
	queued     *prometheus.Desc
	running    *prometheus.Desc
	detached   *prometheus.Desc
	submitted  *prometheus.Desc
	succeeded  *prometheus.Desc
	failed     *prometheus.Desc
	propagated *prometheus.Desc
}

// NewCollector builds a collector for p.
func NewCollector(p *Pool) *Collector {
	return &Collector{
		pool: p,
		workers: prometheus.NewDesc("taskpool_workers",
			"Number of workers in the pool.", nil, nil),
		queued: prometheus.NewDesc("taskpool_tasks_queued",
			"Tasks ready and waiting for a worker.", nil, nil),
		running: prometheus.NewDesc("taskpool_tasks_running",
			"Tasks currently executing.", nil, nil),
		detached: prometheus.NewDesc("taskpool_tasks_detached",
			"Unfinished fire-and-forget tasks.", nil, nil),
		submitted: prometheus.NewDesc("taskpool_tasks_submitted_total",
			"Tasks submitted since the pool started.", nil, nil),
		succeeded: prometheus.NewDesc("taskpool_tasks_succeeded_total",
			"Tasks that finished with a value.", nil, nil),
		failed: prometheus.NewDesc("taskpool_tasks_failed_total",
			"Tasks that failed, propagated failures included.", nil, nil),
		propagated: prometheus.NewDesc("taskpool_dependency_failures_total",
			"Tasks that never ran because a dependency failed.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.workers
	ch <- c.queued
	ch <- c.running
	ch <- c.detached
	ch <- c.submitted
	ch <- c.succeeded
	ch <- c.failed
	ch <- c.propagated
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stats()
	ch <- prometheus.MustNewConstMetric(c.workers, prometheus.GaugeValue, float64(s.Workers))
	ch <- prometheus.MustNewConstMetric(c.queued, prometheus.GaugeValue, float64(s.Queued))
	ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, float64(s.Running))
	ch <- prometheus.MustNewConstMetric(c.detached, prometheus.GaugeValue, float64(s.Detached))
	ch <- prometheus.MustNewConstMetric(c.submitted, prometheus.CounterValue, float64(s.Submitted))
	ch <- prometheus.MustNewConstMetric(c.succeeded, prometheus.CounterValue, float64(s.Succeeded))
	ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(s.Failed))
	ch <- prometheus.MustNewConstMetric(c.propagated, prometheus.CounterValue, float64(s.PropagatedFailures))
}
