package collector

import (
	"github.com/dbmetrics/pg_exporter/internal/model"
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/dbmetrics/pg_exporter/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// walQuery17 targets Postgres 14 through 17, where pg_stat_wal still carries
// the write/sync call counters later folded away (spec's HasStatWAL gate,
// >=14).
const walQuery17 = `SELECT pg_is_in_recovery()::int AS recovery,
  (CASE pg_is_in_recovery() WHEN 'f' THEN FALSE::int ELSE pg_is_wal_replay_paused()::int END) AS recovery_paused,
  wal_records, wal_fpi,
  (CASE pg_is_in_recovery() WHEN 't' THEN pg_last_wal_receive_lsn() - '0/00000000' ELSE pg_current_wal_lsn() - '0/00000000' END) AS wal_written,
  wal_bytes, wal_buffers_full, wal_write, wal_sync, wal_write_time, wal_sync_time,
  extract(epoch from stats_reset) AS reset_time
FROM pg_stat_wal`

// walQueryLatest targets Postgres 18+, where wal_write/wal_sync moved to
// pg_stat_io and pg_stat_wal keeps only the byte/record counters.
const walQueryLatest = `SELECT pg_is_in_recovery()::int AS recovery,
  (CASE pg_is_in_recovery() WHEN 'f' THEN FALSE::int ELSE pg_is_wal_replay_paused()::int END) AS recovery_paused,
  wal_records, wal_fpi,
  (CASE pg_is_in_recovery() WHEN 't' THEN pg_last_wal_receive_lsn() - '0/00000000' ELSE pg_current_wal_lsn() - '0/00000000' END) AS wal_written,
  wal_bytes, wal_buffers_full,
  extract(epoch from stats_reset) AS reset_time
FROM pg_stat_wal`

// NewPostgresWalFactory returns a Factory exposing WAL generation and
// recovery state (spec §6 pg_stat_wal), gated on the view's availability
// (HasStatWAL, Postgres >= 14).
func NewPostgresWalFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "recovery", "info"), "Current recovery state, 1 if in recovery.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "recovery", "paused"), "Current recovery pause state, 1 if pause is requested.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "wal", "records_total"), "Total number of WAL records generated.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "wal", "fpi_total"), "Total number of WAL full page images generated.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "wal", "written_bytes_total"), "Current WAL write position (or receive position on a standby), in bytes since cluster init.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "wal", "bytes_total"), "Total amount of WAL generated since the last stats reset, in bytes.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "wal", "buffers_full_total"), "Total number of times WAL data was written to disk because WAL buffers became full.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "wal", "write_total"), "Total number of times WAL buffers were written out to disk.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "wal", "sync_total"), "Total number of times WAL files were synced to disk.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "wal", "seconds_total"), "Total time spent processing WAL buffers, by operation, in seconds.", []string{"op"}, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "wal", "stats_reset_time"), "Time at which WAL statistics were last reset, in unixtime.", nil, constLabels),
		}

		return registry.Definition{
			Name:  "pg_wal",
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: func(c model.Capabilities) bool { return c.HasStatWAL && c.AtLeast(model.PostgresV18) }, SQL: walQueryLatest, Project: walProjector},
				{Predicate: func(c model.Capabilities) bool { return c.HasStatWAL }, SQL: walQuery17, Project: walProjector},
			},
		}
	}
}

func walProjector(res *store.QueryResult, _ registry.ProjectContext, descs []*prometheus.Desc) ([]prometheus.Metric, error) {
	cols := map[string]int{}
	for i, c := range res.Colnames {
		cols[string(c.Name)] = i
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	row := res.Rows[0]

	get := func(name string) (float64, bool) {
		idx, ok := cols[name]
		if !ok {
			return 0, false
		}
		return parseFloatOrZero(row[idx]), true
	}

	var metrics []prometheus.Metric
	simple := []struct {
		column string
		desc   int
		typ    prometheus.ValueType
	}{
		{"recovery", 0, prometheus.GaugeValue},
		{"recovery_paused", 1, prometheus.GaugeValue},
		{"wal_records", 2, prometheus.CounterValue},
		{"wal_fpi", 3, prometheus.CounterValue},
		{"wal_written", 4, prometheus.CounterValue},
		{"wal_bytes", 5, prometheus.CounterValue},
		{"wal_buffers_full", 6, prometheus.CounterValue},
		{"wal_write", 7, prometheus.CounterValue},
		{"wal_sync", 8, prometheus.CounterValue},
		{"reset_time", 10, prometheus.CounterValue},
	}
	for _, s := range simple {
		if v, ok := get(s.column); ok {
			metrics = append(metrics, prometheus.MustNewConstMetric(descs[s.desc], s.typ, v))
		}
	}

	if v, ok := get("wal_write_time"); ok {
		metrics = append(metrics, prometheus.MustNewConstMetric(descs[9], prometheus.CounterValue, v*.001, "write"))
	}
	if v, ok := get("wal_sync_time"); ok {
		metrics = append(metrics, prometheus.MustNewConstMetric(descs[9], prometheus.CounterValue, v*.001, "sync"))
	}

	return metrics, nil
}
