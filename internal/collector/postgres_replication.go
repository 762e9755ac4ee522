package collector

import (
	"github.com/dbmetrics/pg_exporter/internal/model"
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/dbmetrics/pg_exporter/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// replicationQueryLegacy targets Postgres <10, where WAL location functions
// and pg_stat_replication's lsn columns still carry their pre-10 "xlog"
// names (spec §6 pg_stat_replication / LSN functions renamed at PG10).
const replicationQueryLegacy = `SELECT pid, coalesce(client_addr::text, 'local') AS client_addr, usename, application_name, state,
  pg_current_xlog_location() - sent_location AS pending_lag_bytes,
  sent_location - write_location AS write_lag_bytes,
  write_location - flush_location AS flush_lag_bytes,
  flush_location - replay_location AS replay_lag_bytes,
  pg_current_xlog_location() - replay_location AS total_lag_bytes,
  0 AS write_lag_seconds, 0 AS flush_lag_seconds, 0 AS replay_lag_seconds, 0 AS total_lag_seconds
FROM pg_stat_replication`

// replicationQueryLatest additionally surfaces write/flush/replay_lag
// (interval columns added at PG10) converted to seconds.
const replicationQueryLatest = `SELECT pid, coalesce(client_addr::text, 'local') AS client_addr, usename, application_name, state,
  pg_current_wal_lsn() - sent_lsn AS pending_lag_bytes,
  sent_lsn - write_lsn AS write_lag_bytes,
  write_lsn - flush_lsn AS flush_lag_bytes,
  flush_lsn - replay_lsn AS replay_lag_bytes,
  pg_current_wal_lsn() - replay_lsn AS total_lag_bytes,
  coalesce(extract(epoch from write_lag), 0) AS write_lag_seconds,
  coalesce(extract(epoch from flush_lag), 0) AS flush_lag_seconds,
  coalesce(extract(epoch from replay_lag), 0) AS replay_lag_seconds,
  coalesce(extract(epoch from write_lag+flush_lag+replay_lag), 0) AS total_lag_seconds
FROM pg_stat_replication`

var replicationLabels = []string{"client_addr", "usename", "application_name", "state"}

// NewPostgresReplicationFactory returns a Factory exposing streaming
// replication lag per connected standby (spec §6 pg_stat_replication).
func NewPostgresReplicationFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "replication", "lag_bytes"), "Number of bytes standby is behind than primary in each WAL processing phase.", append(append([]string{}, replicationLabels...), "phase"), constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "replication", "lag_seconds"), "Number of seconds standby is behind than primary in each WAL processing phase.", append(append([]string{}, replicationLabels...), "phase"), constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "replication", "lag_all_bytes"), "Number of bytes standby is behind than primary including all phases.", replicationLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "replication", "lag_all_seconds"), "Number of seconds standby is behind than primary including all phases.", replicationLabels, constLabels),
		}

		return registry.Definition{
			Name:  "pg_replication",
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: func(c model.Capabilities) bool { return c.AtLeast(model.PostgresV10) }, SQL: replicationQueryLatest, Project: replicationProjector},
				{Predicate: always, SQL: replicationQueryLegacy, Project: replicationProjector},
			},
		}
	}
}

func replicationProjector(res *store.QueryResult, _ registry.ProjectContext, descs []*prometheus.Desc) ([]prometheus.Metric, error) {
	cols := map[string]int{}
	for i, c := range res.Colnames {
		cols[string(c.Name)] = i
	}

	var metrics []prometheus.Metric
	phases := []string{"pending", "write", "flush", "replay"}
	byteCols := []string{"pending_lag_bytes", "write_lag_bytes", "flush_lag_bytes", "replay_lag_bytes"}
	secCols := []string{"", "write_lag_seconds", "flush_lag_seconds", "replay_lag_seconds"}

	for _, row := range res.Rows {
		labelValues := make([]string, len(replicationLabels))
		for i, lc := range replicationLabels {
			if idx, ok := cols[lc]; ok {
				labelValues[i] = row[idx].String
			}
		}

		for i, phase := range phases {
			if idx, ok := cols[byteCols[i]]; ok {
				args := append(append([]string{}, labelValues...), phase)
				metrics = append(metrics, prometheus.MustNewConstMetric(descs[0], prometheus.GaugeValue, parseFloatOrZero(row[idx]), args...))
			}
			if secCols[i] != "" {
				if idx, ok := cols[secCols[i]]; ok {
					args := append(append([]string{}, labelValues...), phase)
					metrics = append(metrics, prometheus.MustNewConstMetric(descs[1], prometheus.GaugeValue, parseFloatOrZero(row[idx]), args...))
				}
			}
		}

		if idx, ok := cols["total_lag_bytes"]; ok {
			metrics = append(metrics, prometheus.MustNewConstMetric(descs[2], prometheus.GaugeValue, parseFloatOrZero(row[idx]), labelValues...))
		}
		if idx, ok := cols["total_lag_seconds"]; ok {
			metrics = append(metrics, prometheus.MustNewConstMetric(descs[3], prometheus.GaugeValue, parseFloatOrZero(row[idx]), labelValues...))
		}
	}

	return metrics, nil
}
