package collector

import (
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/dbmetrics/pg_exporter/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// indexesQueryTemplate runs once per database (spec §6 per-DB fan-out),
// skipping indexes currently held under AccessExclusiveLock (about to be
// dropped/rewritten) the way the teacher's userIndexesQuery does, and caps
// the result to the {{.TopN}} busiest indexes by scan count when
// collect_top_index is configured.
const indexesQueryTemplate = `SELECT
  schemaname, relname, indexrelname, (i.indisprimary OR i.indisunique) AS key,
  idx_scan, idx_tup_read, idx_tup_fetch, idx_blks_read, idx_blks_hit,
  pg_relation_size(s1.indexrelid) AS size_bytes
FROM pg_stat_user_indexes s1
JOIN pg_statio_user_indexes s2 USING (schemaname, relname, indexrelname)
JOIN pg_index i ON s1.indexrelid = i.indexrelid
WHERE NOT EXISTS (SELECT 1 FROM pg_locks WHERE relation = s1.indexrelid AND mode = 'AccessExclusiveLock' AND granted)
ORDER BY idx_scan DESC
{{if gt .TopN 0}}LIMIT {{.TopN}}{{end}}`

var indexesLabels = []string{"schemaname", "relname", "indexrelname", "key"}

// NewPostgresIndexesFactory returns a Factory exposing per-index scan,
// tuple, and I/O counters plus size (spec §6 pg_stat_user_indexes /
// pg_statio_user_indexes).
func NewPostgresIndexesFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		fullLabels := append([]string{"datname"}, indexesLabels...)
		tupleLabels := append(append([]string{"datname"}, indexesLabels[:3]...), "op")
		ioLabels := append(append([]string{"datname"}, indexesLabels[:3]...), "cache_hit")

		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "index", "scans_total"), "Total number of index scans initiated.", fullLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "index", "size_bytes"), "Size of the index, in bytes.", fullLabels[:len(fullLabels)-1], constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "index", "tuples_total"), "Total number of index entries processed by scans, by operation.", tupleLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "index_io", "blocks_total"), "Total number of index blocks processed, by cache outcome.", ioLabels, constLabels),
		}

		return registry.Definition{
			Name:  "pg_indexes",
			PerDB: true,
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: always, SQL: indexesQueryTemplate, Project: indexesProjector},
			},
		}
	}
}

// indexesProjector emits scans and size unconditionally and tuple/block
// counters only when non-zero, avoiding metric spam for cold indexes
// (teacher convention).
func indexesProjector(res *store.QueryResult, pctx registry.ProjectContext, descs []*prometheus.Desc) ([]prometheus.Metric, error) {
	cols := map[string]int{}
	for i, c := range res.Colnames {
		cols[string(c.Name)] = i
	}

	schemaFilter := pctx.Settings.Filters["schema/name"]

	var metrics []prometheus.Metric
	for _, row := range res.Rows {
		schemaname, relname, indexrelname, key := row[cols["schemaname"]].String, row[cols["relname"]].String, row[cols["indexrelname"]].String, row[cols["key"]].String
		if !schemaFilter.Pass(schemaname) {
			continue
		}

		get := func(name string) float64 { return parseFloatOrZero(row[cols[name]]) }

		metrics = append(metrics,
			prometheus.MustNewConstMetric(descs[0], prometheus.CounterValue, get("idx_scan"), pctx.Database, schemaname, relname, indexrelname, key),
			prometheus.MustNewConstMetric(descs[1], prometheus.GaugeValue, get("size_bytes"), pctx.Database, schemaname, relname, indexrelname),
		)

		if v := get("idx_tup_read"); v > 0 {
			metrics = append(metrics, prometheus.MustNewConstMetric(descs[2], prometheus.CounterValue, v, pctx.Database, schemaname, relname, indexrelname, "read"))
		}
		if v := get("idx_tup_fetch"); v > 0 {
			metrics = append(metrics, prometheus.MustNewConstMetric(descs[2], prometheus.CounterValue, v, pctx.Database, schemaname, relname, indexrelname, "fetch"))
		}
		if v := get("idx_blks_read"); v > 0 {
			metrics = append(metrics, prometheus.MustNewConstMetric(descs[3], prometheus.CounterValue, v, pctx.Database, schemaname, relname, indexrelname, "false"))
		}
		if v := get("idx_blks_hit"); v > 0 {
			metrics = append(metrics, prometheus.MustNewConstMetric(descs[3], prometheus.CounterValue, v, pctx.Database, schemaname, relname, indexrelname, "true"))
		}
	}

	return metrics, nil
}
