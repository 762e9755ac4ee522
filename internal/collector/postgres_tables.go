package collector

import (
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/dbmetrics/pg_exporter/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// tablesQueryTemplate runs once per database, skipping tables currently held
// under AccessExclusiveLock like the teacher's userTablesQuery, and caps the
// result to the {{.TopN}} tables with the most sequential scans when
// collect_top_table is configured.
const tablesQueryTemplate = `SELECT
  s1.schemaname, s1.relname,
  seq_scan, seq_tup_read, idx_scan, idx_tup_fetch,
  n_tup_ins, n_tup_upd, n_tup_del, n_tup_hot_upd,
  n_live_tup, n_dead_tup, n_mod_since_analyze,
  extract('epoch' from age(now(), greatest(last_vacuum, last_autovacuum))) AS last_vacuum_seconds,
  extract('epoch' from age(now(), greatest(last_analyze, last_autoanalyze))) AS last_analyze_seconds,
  vacuum_count, autovacuum_count, analyze_count, autoanalyze_count,
  heap_blks_read, heap_blks_hit, idx_blks_read, idx_blks_hit,
  toast_blks_read, toast_blks_hit, tidx_blks_read, tidx_blks_hit,
  pg_relation_size(s1.relid) AS size_bytes
FROM pg_stat_user_tables s1
JOIN pg_statio_user_tables s2 USING (schemaname, relname)
WHERE NOT EXISTS (SELECT 1 FROM pg_locks WHERE relation = s1.relid AND mode = 'AccessExclusiveLock' AND granted)
ORDER BY seq_scan DESC
{{if gt .TopN 0}}LIMIT {{.TopN}}{{end}}`

// NewPostgresTablesFactory returns a Factory exposing per-table scan,
// tuple, maintenance, I/O, and size stats (spec §6 pg_stat_user_tables /
// pg_statio_user_tables).
func NewPostgresTablesFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		base := []string{"datname", "schemaname", "relname"}
		opLabels := append(append([]string{}, base...), "operation")
		typeLabels := append(append([]string{}, base...), "type")
		maintLabels := append(append([]string{}, base...), "type")
		ioLabels := append(append([]string{}, base...), "type", "cache_hit")

		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "table", "seq_scan_total"), "Total number of sequential scans.", base, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "table", "seq_tup_read_total"), "Total number of tuples read by sequential scans.", base, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "table", "idx_scan_total"), "Total number of index scans initiated on this table.", base, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "table", "idx_tup_fetch_total"), "Total number of live rows fetched by index scans.", base, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "table", "tuples_modified_total"), "Total number of row-modifying operations, by kind.", opLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "table", "tuples_total"), "Estimated number of rows in the table, by kind.", typeLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "table", "last_vacuum_seconds"), "Time since the table was last vacuumed, manually or automatically.", base, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "table", "last_analyze_seconds"), "Time since the table was last analyzed, manually or automatically.", base, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "table", "maintenance_total"), "Total number of times the table has been vacuumed or analyzed, by kind.", maintLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "table_io", "blocks_total"), "Total number of table blocks processed, by relation part and cache outcome.", ioLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "table", "size_bytes"), "Size of the table, in bytes.", base, constLabels),
		}

		return registry.Definition{
			Name:  "pg_tables",
			PerDB: true,
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: always, SQL: tablesQueryTemplate, Project: tablesProjector},
			},
		}
	}
}

func tablesProjector(res *store.QueryResult, pctx registry.ProjectContext, descs []*prometheus.Desc) ([]prometheus.Metric, error) {
	cols := map[string]int{}
	for i, c := range res.Colnames {
		cols[string(c.Name)] = i
	}

	schemaFilter := pctx.Settings.Filters["schema/name"]

	var metrics []prometheus.Metric
	for _, row := range res.Rows {
		schemaname, relname := row[cols["schemaname"]].String, row[cols["relname"]].String
		if !schemaFilter.Pass(schemaname) {
			continue
		}
		lbl := []string{pctx.Database, schemaname, relname}

		get := func(name string) float64 { return parseFloatOrZero(row[cols[name]]) }

		metrics = append(metrics,
			prometheus.MustNewConstMetric(descs[0], prometheus.CounterValue, get("seq_scan"), lbl...),
			prometheus.MustNewConstMetric(descs[1], prometheus.CounterValue, get("seq_tup_read"), lbl...),
			prometheus.MustNewConstMetric(descs[2], prometheus.CounterValue, get("idx_scan"), lbl...),
			prometheus.MustNewConstMetric(descs[3], prometheus.CounterValue, get("idx_tup_fetch"), lbl...),
			prometheus.MustNewConstMetric(descs[4], prometheus.CounterValue, get("n_tup_ins"), append(append([]string{}, lbl...), "inserted")...),
			prometheus.MustNewConstMetric(descs[4], prometheus.CounterValue, get("n_tup_upd"), append(append([]string{}, lbl...), "updated")...),
			prometheus.MustNewConstMetric(descs[4], prometheus.CounterValue, get("n_tup_del"), append(append([]string{}, lbl...), "deleted")...),
			prometheus.MustNewConstMetric(descs[4], prometheus.CounterValue, get("n_tup_hot_upd"), append(append([]string{}, lbl...), "hot_updated")...),
			prometheus.MustNewConstMetric(descs[5], prometheus.GaugeValue, get("n_live_tup"), append(append([]string{}, lbl...), "live")...),
			prometheus.MustNewConstMetric(descs[5], prometheus.GaugeValue, get("n_dead_tup"), append(append([]string{}, lbl...), "dead")...),
			prometheus.MustNewConstMetric(descs[5], prometheus.GaugeValue, get("n_mod_since_analyze"), append(append([]string{}, lbl...), "modified")...),
			prometheus.MustNewConstMetric(descs[10], prometheus.GaugeValue, get("size_bytes"), lbl...),
		)

		if v := get("last_vacuum_seconds"); v > 0 {
			metrics = append(metrics, prometheus.MustNewConstMetric(descs[6], prometheus.GaugeValue, v, lbl...))
		}
		if v := get("last_analyze_seconds"); v > 0 {
			metrics = append(metrics, prometheus.MustNewConstMetric(descs[7], prometheus.GaugeValue, v, lbl...))
		}

		for _, m := range []struct {
			column, kind string
		}{
			{"vacuum_count", "vacuum"}, {"autovacuum_count", "autovacuum"},
			{"analyze_count", "analyze"}, {"autoanalyze_count", "autoanalyze"},
		} {
			if v := get(m.column); v > 0 {
				metrics = append(metrics, prometheus.MustNewConstMetric(descs[8], prometheus.CounterValue, v, append(append([]string{}, lbl...), m.kind)...))
			}
		}

		for _, io := range []struct {
			readCol, hitCol, kind string
		}{
			{"heap_blks_read", "heap_blks_hit", "heap"},
			{"idx_blks_read", "idx_blks_hit", "idx"},
			{"toast_blks_read", "toast_blks_hit", "toast"},
			{"tidx_blks_read", "tidx_blks_hit", "tidx"},
		} {
			if v := get(io.readCol); v > 0 {
				metrics = append(metrics, prometheus.MustNewConstMetric(descs[9], prometheus.CounterValue, v, append(append([]string{}, lbl...), io.kind, "false")...))
			}
			if v := get(io.hitCol); v > 0 {
				metrics = append(metrics, prometheus.MustNewConstMetric(descs[9], prometheus.CounterValue, v, append(append([]string{}, lbl...), io.kind, "true")...))
			}
		}
	}

	return metrics, nil
}
