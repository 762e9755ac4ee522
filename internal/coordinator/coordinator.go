// Package coordinator implements the Scrape Coordinator (spec §4.5): on
// each HTTP scrape it fans out to every Instance Worker in parallel,
// enforces a scrape-wide deadline, and merges their samples into one
// response. It reuses prometheus.Registry/Gather to do that fan-in and
// consistency checking rather than reimplementing family merging.
package coordinator

import (
	"context"
	"time"

	"github.com/dbmetrics/pg_exporter/internal/instance"
	"github.com/dbmetrics/pg_exporter/internal/log"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// scraper is the subset of *instance.Worker the coordinator depends on.
// Declaring it here (rather than storing *instance.Worker directly) lets
// tests drive Gather/workerCollector against a fake that blocks or fails on
// demand, without opening a real database connection.
type scraper interface {
	Scrape(ctx context.Context) []prometheus.Metric
	PgUpDesc() *prometheus.Desc
}

// Coordinator owns the set of instance workers for one process and serves
// scrapes against them.
type Coordinator struct {
	workers       []scraper
	scrapeTimeout time.Duration
}

// New builds a Coordinator over workers, using scrapeTimeout as the default
// scrape-wide deadline when a request doesn't specify one.
func New(workers []*instance.Worker, scrapeTimeout time.Duration) *Coordinator {
	if scrapeTimeout <= 0 {
		scrapeTimeout = 10 * time.Second
	}
	ws := make([]scraper, len(workers))
	for i, w := range workers {
		ws[i] = w
	}
	return &Coordinator{workers: ws, scrapeTimeout: scrapeTimeout}
}

// Gather runs one scrape across all workers under the given deadline and
// returns the merged metric families ready for exposition.
func (c *Coordinator) Gather(ctx context.Context, deadline time.Duration) ([]*dto.MetricFamily, error) {
	if deadline <= 0 {
		deadline = c.scrapeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	reg := prometheus.NewRegistry()
	for _, w := range c.workers {
		// workerCollector's Describe sends nothing, registering it as an
		// "unchecked" collector: the family set a worker emits varies by
		// capability and can't be declared up front.
		if err := reg.Register(workerCollector{worker: w, ctx: ctx}); err != nil {
			log.Errorf("register instance collector failed: %s", err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		// Gather returns a MultiError alongside whatever metrics it could
		// still assemble; log and expose the partial result rather than
		// failing the whole scrape (spec §7: scrapes always return 200).
		log.Warnf("scrape produced inconsistent metrics: %s", err)
	}
	return families, nil
}

// workerCollector adapts one instance.Worker to prometheus.Collector so the
// fan-out across instances and the per-family Gather consistency checks are
// the library's, not ours. Collect enforces the per-worker share of the
// scrape deadline: if the worker doesn't finish before ctx is done, its
// partial samples are discarded and a synthetic pg_up=0 is emitted instead
// (spec §4.5 "Deadline enforcement").
type workerCollector struct {
	worker scraper
	ctx    context.Context
}

func (wc workerCollector) Describe(chan<- *prometheus.Desc) {}

func (wc workerCollector) Collect(ch chan<- prometheus.Metric) {
	done := make(chan []prometheus.Metric, 1)
	go func() { done <- wc.worker.Scrape(wc.ctx) }()

	select {
	case metrics := <-done:
		if wc.ctx.Err() != nil {
			ch <- prometheus.MustNewConstMetric(wc.worker.PgUpDesc(), prometheus.GaugeValue, 0)
			return
		}
		for _, m := range metrics {
			ch <- m
		}
	case <-wc.ctx.Done():
		ch <- prometheus.MustNewConstMetric(wc.worker.PgUpDesc(), prometheus.GaugeValue, 0)
	}
}
