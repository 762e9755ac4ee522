package collector

import (
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/prometheus/client_golang/prometheus"
)

const databaseQuery = `SELECT
  coalesce(datname, '__shared__') AS datname,
  xact_commit, xact_rollback,
  blks_read, blks_hit,
  tup_returned, tup_fetched, tup_inserted, tup_updated, tup_deleted,
  conflicts, temp_files, temp_bytes, deadlocks,
  coalesce(checksum_failures, 0) AS checksum_failures
FROM pg_stat_database`

// NewPostgresDatabaseFactory returns a Factory exposing per-database
// transaction, I/O and conflict counters (spec §6 pg_stat_database).
func NewPostgresDatabaseFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		labels := []string{"datname"}

		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "database", "xact_commit_total"), "Total number of transactions committed.", labels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "database", "xact_rollback_total"), "Total number of transactions rolled back.", labels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "database", "blks_read_total"), "Total number of disk blocks read.", labels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "database", "blks_hit_total"), "Total number of times disk blocks were found already in the buffer cache.", labels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "database", "tup_returned_total"), "Total number of rows returned by queries.", labels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "database", "tup_fetched_total"), "Total number of rows fetched by queries.", labels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "database", "tup_inserted_total"), "Total number of rows inserted.", labels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "database", "tup_updated_total"), "Total number of rows updated.", labels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "database", "tup_deleted_total"), "Total number of rows deleted.", labels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "database", "conflicts_total"), "Total number of queries canceled due to recovery conflicts.", labels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "database", "temp_files_total"), "Total number of temporary files created by queries.", labels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "database", "temp_bytes_total"), "Total amount of data written to temporary files.", labels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "database", "deadlocks_total"), "Total number of deadlocks detected.", labels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "database", "checksum_failures_total"), "Total number of data page checksum failures detected.", labels, constLabels),
		}

		columns := []columnMetric{
			{column: "xact_commit", desc: 0, valueType: prometheus.CounterValue},
			{column: "xact_rollback", desc: 1, valueType: prometheus.CounterValue},
			{column: "blks_read", desc: 2, valueType: prometheus.CounterValue},
			{column: "blks_hit", desc: 3, valueType: prometheus.CounterValue},
			{column: "tup_returned", desc: 4, valueType: prometheus.CounterValue},
			{column: "tup_fetched", desc: 5, valueType: prometheus.CounterValue},
			{column: "tup_inserted", desc: 6, valueType: prometheus.CounterValue},
			{column: "tup_updated", desc: 7, valueType: prometheus.CounterValue},
			{column: "tup_deleted", desc: 8, valueType: prometheus.CounterValue},
			{column: "conflicts", desc: 9, valueType: prometheus.CounterValue},
			{column: "temp_files", desc: 10, valueType: prometheus.CounterValue},
			{column: "temp_bytes", desc: 11, valueType: prometheus.CounterValue},
			{column: "deadlocks", desc: 12, valueType: prometheus.CounterValue},
			{column: "checksum_failures", desc: 13, valueType: prometheus.CounterValue},
		}

		return registry.Definition{
			Name:  "pg_database",
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: always, SQL: databaseQuery, Project: labelRowProjector([]string{"datname"}, columns)},
			},
		}
	}
}
