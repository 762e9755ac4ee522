// Package instance implements the Instance Worker (spec §4.4): one per
// configured PostgreSQL target, owning its connection/pool lifecycle and
// servicing scrape requests by invoking the runner across every registered
// collector.
package instance

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dbmetrics/pg_exporter/internal/capability"
	"github.com/dbmetrics/pg_exporter/internal/filter"
	"github.com/dbmetrics/pg_exporter/internal/log"
	"github.com/dbmetrics/pg_exporter/internal/model"
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/dbmetrics/pg_exporter/internal/runner"
	"github.com/dbmetrics/pg_exporter/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultStatementTimeoutMS = 5000
	defaultPoolMaxConns       = 4
	backoffBase               = 2 * time.Second
	backoffMax                = 2 * time.Minute
)

// Settings configures one Worker; it mirrors internal/config.Instance
// without importing the config package, keeping the dependency direction
// one-way (config depends on nothing here).
type Settings struct {
	Name            string
	DSN             string
	ConstLabels     map[string]string
	ExcludeDBNames  []string
	CollectTopQuery int
	CollectTopIndex int
	CollectTopTable int
	NoTrackMode     bool
	Filters         map[string]filter.Filter
}

// Worker owns one instance's connection lifecycle and runs its collector
// set on every scrape.
type Worker struct {
	name     string
	dsn      string
	settings registry.InstanceSettings
	defs     []registry.Definition
	pgUpDesc *prometheus.Desc
	backoff  *Backoff

	mu    sync.Mutex
	db    *store.DB
	pools *store.PoolSet
	caps  model.Capabilities
}

// New builds a Worker bound to reg's collector catalogue.
func New(s Settings, reg *registry.Registry) *Worker {
	constLabels := prometheus.Labels{}
	for k, v := range s.ConstLabels {
		constLabels[k] = v
	}

	return &Worker{
		name: s.Name,
		dsn:  s.DSN,
		settings: registry.InstanceSettings{
			ExcludeDBNames:  s.ExcludeDBNames,
			CollectTopQuery: s.CollectTopQuery,
			CollectTopIndex: s.CollectTopIndex,
			CollectTopTable: s.CollectTopTable,
			NoTrackMode:     s.NoTrackMode,
			Filters:         s.Filters,
		},
		defs:     reg.Build(constLabels),
		pgUpDesc: prometheus.NewDesc("pg_up", "Whether the last scrape of this instance succeeded.", nil, constLabels),
		backoff:  NewBackoff(backoffBase, backoffMax),
	}
}

// PgUpDesc exposes this worker's pg_up descriptor so callers (the scrape
// coordinator) can emit a synthetic pg_up=0 sample when a scrape is
// abandoned before Scrape returns.
func (w *Worker) PgUpDesc() *prometheus.Desc {
	return w.pgUpDesc
}

// Scrape runs every registered collector against this instance and always
// returns a pg_up sample (spec §3 invariant): 1 on a healthy connection, 0
// on any connection failure, with no other samples in that case.
func (w *Worker) Scrape(ctx context.Context) []prometheus.Metric {
	if err := w.ensureConnected(ctx); err != nil {
		log.Warnf("instance %s: %s", w.name, err)
		return []prometheus.Metric{prometheus.MustNewConstMetric(w.pgUpDesc, prometheus.GaugeValue, 0)}
	}

	metrics := []prometheus.Metric{prometheus.MustNewConstMetric(w.pgUpDesc, prometheus.GaugeValue, 1)}

	w.mu.Lock()
	db, pools, caps := w.db, w.pools, w.caps
	w.mu.Unlock()

	for _, def := range w.defs {
		select {
		case <-ctx.Done():
			log.Warnf("instance %s: scrape deadline exceeded before collector %s ran", w.name, def.Name)
			return metrics
		default:
		}

		m, err := runner.Run(ctx, def, caps, db, pools, w.settings)
		if err != nil {
			log.Errorf("instance %s: collector %s failed: %s; skip", w.name, def.Name, err)
			continue
		}
		metrics = append(metrics, m...)
	}

	if db.Conn.IsClosed() {
		w.discard()
	}

	return metrics
}

// ensureConnected opens a connection and probes capabilities if this is the
// first scrape, or the previous one left the worker disconnected. It does
// nothing while within a backoff window after a failed attempt.
func (w *Worker) ensureConnected(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.db != nil {
		return nil
	}

	if w.backoff.Blocked() {
		return model.NewError(model.ConnectError, "instance.Worker.ensureConnected", errBackoffActive)
	}

	db, err := store.NewDB(ctx, w.dsn, defaultStatementTimeoutMS)
	if err != nil {
		w.backoff.Failure()
		return model.NewError(model.ConnectError, "instance.Worker.ensureConnected", err)
	}

	caps, err := capability.Probe(ctx, db)
	if err != nil {
		db.Close(ctx)
		w.backoff.Failure()
		return err
	}

	w.db = db
	w.pools = store.NewPoolSet(w.dsn, defaultPoolMaxConns)
	w.caps = caps
	w.backoff.Success()

	return nil
}

// discard drops the current connection and pools; the next scrape's
// ensureConnected will reconnect and re-probe.
func (w *Worker) discard() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pools != nil {
		w.pools.Close()
		w.pools = nil
	}
	w.db = nil
}

// Close drains pools and disconnects (spec §4.4 close()).
func (w *Worker) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pools != nil {
		w.pools.Close()
		w.pools = nil
	}
	if w.db != nil {
		w.db.Close(context.Background())
		w.db = nil
	}
}

var errBackoffActive = errors.New("reconnect withheld during backoff window")
