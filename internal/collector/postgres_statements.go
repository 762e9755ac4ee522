package collector

import (
	"strconv"

	"github.com/dbmetrics/pg_exporter/internal/log"
	"github.com/dbmetrics/pg_exporter/internal/model"
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/dbmetrics/pg_exporter/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// statementsQueryTemplate queries pg_stat_statements for the database the
// runner is currently connected to (spec §6 per-DB collector fan-out). In
// no_track_mode the literal query text is replaced with a constant rather
// than sent to Prometheus (spec §6 collect_top_query / no_track_mode),
// grounded on the teacher's postgresStatementsQueryTemplate. Results are
// capped to the {{.TopN}} statements with the most total time when a limit
// is configured, keeping queryid cardinality bounded (spec §8 scenario 5).
const statementsQueryTemplate = `SELECT
  pg_get_userbyid(p.userid) AS usename, p.queryid::text AS queryid,
  {{if .NoTrackMode}}'no-track'{{else}}left(regexp_replace(p.query, E'\\s+', ' ', 'g'), 1024){{end}} AS query,
  p.calls, p.rows, p.total_time, p.blk_read_time, p.blk_write_time,
  nullif(p.shared_blks_hit, 0) AS shared_blks_hit, nullif(p.shared_blks_read, 0) AS shared_blks_read,
  nullif(p.shared_blks_dirtied, 0) AS shared_blks_dirtied, nullif(p.shared_blks_written, 0) AS shared_blks_written,
  nullif(p.local_blks_hit, 0) AS local_blks_hit, nullif(p.local_blks_read, 0) AS local_blks_read,
  nullif(p.local_blks_dirtied, 0) AS local_blks_dirtied, nullif(p.local_blks_written, 0) AS local_blks_written,
  nullif(p.temp_blks_read, 0) AS temp_blks_read, nullif(p.temp_blks_written, 0) AS temp_blks_written
FROM pg_stat_statements p
WHERE p.dbid = (SELECT oid FROM pg_database WHERE datname = current_database())
ORDER BY p.total_time DESC
{{if gt .TopN 0}}LIMIT {{.TopN}}{{end}}`

var statementsLabels = []string{"database", "usename", "queryid", "query"}

// NewPostgresStatementsFactory returns a Factory exposing pg_stat_statements
// aggregates, gated on the extension's presence (spec §8 scenario 4).
func NewPostgresStatementsFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		queryLabels := statementsLabels
		rowsLabels := []string{"database", "usename", "queryid"}
		timeLabels := append(append([]string{}, rowsLabels...), "mode")
		blockLabels := append(append([]string{}, rowsLabels...), "type", "access")

		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "statements", "calls_total"),
				"Total number of times the statement has been executed.", queryLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "statements", "rows_total"),
				"Total number of rows retrieved or affected by the statement.", rowsLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "statements", "time_seconds_total"),
				"Total time spent executing the statement, by phase, in seconds.", timeLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "statements", "blocks_total"),
				"Total number of blocks processed by the statement, by kind and access.", blockLabels, constLabels),
		}

		return registry.Definition{
			Name:  "pg_statements",
			PerDB: true,
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: func(c model.Capabilities) bool { return c.HasPgStatStatements }, SQL: statementsQueryTemplate, Project: statementsProjector},
			},
		}
	}
}

func statementsProjector(res *store.QueryResult, pctx registry.ProjectContext, descs []*prometheus.Desc) ([]prometheus.Metric, error) {
	cols := map[string]int{}
	for i, c := range res.Colnames {
		cols[string(c.Name)] = i
	}

	var metrics []prometheus.Metric
	for _, row := range res.Rows {
		usename := row[cols["usename"]].String
		queryid := row[cols["queryid"]].String
		query := row[cols["query"]].String

		get := func(name string) (float64, bool) {
			idx, ok := cols[name]
			if !ok || row[idx].String == "" {
				return 0, false
			}
			v, err := strconv.ParseFloat(row[idx].String, 64)
			if err != nil {
				log.Warnf("pg_statements: skip non-numeric %s: %s", name, err)
				return 0, false
			}
			return v, true
		}

		calls, _ := get("calls")
		rows, _ := get("rows")
		totalTime, _ := get("total_time")
		blkReadTime, _ := get("blk_read_time")
		blkWriteTime, _ := get("blk_write_time")

		metrics = append(metrics,
			prometheus.MustNewConstMetric(descs[0], prometheus.CounterValue, calls, pctx.Database, usename, queryid, query),
			prometheus.MustNewConstMetric(descs[1], prometheus.CounterValue, rows, pctx.Database, usename, queryid),
			prometheus.MustNewConstMetric(descs[2], prometheus.CounterValue, totalTime*.001, pctx.Database, usename, queryid, "total"),
		)

		if blkReadTime > 0 || blkWriteTime > 0 {
			metrics = append(metrics, prometheus.MustNewConstMetric(descs[2], prometheus.CounterValue,
				(totalTime-(blkReadTime+blkWriteTime))*.001, pctx.Database, usename, queryid, "executing"))
		}
		if blkReadTime > 0 {
			metrics = append(metrics, prometheus.MustNewConstMetric(descs[2], prometheus.CounterValue, blkReadTime*.001, pctx.Database, usename, queryid, "ioread"))
		}
		if blkWriteTime > 0 {
			metrics = append(metrics, prometheus.MustNewConstMetric(descs[2], prometheus.CounterValue, blkWriteTime*.001, pctx.Database, usename, queryid, "iowrite"))
		}

		for _, block := range []struct {
			column, kind, access string
		}{
			{"shared_blks_hit", "shared", "hit"}, {"shared_blks_read", "shared", "read"},
			{"shared_blks_dirtied", "shared", "dirtied"}, {"shared_blks_written", "shared", "written"},
			{"local_blks_hit", "local", "hit"}, {"local_blks_read", "local", "read"},
			{"local_blks_dirtied", "local", "dirtied"}, {"local_blks_written", "local", "written"},
			{"temp_blks_read", "temp", "read"}, {"temp_blks_written", "temp", "written"},
		} {
			if v, ok := get(block.column); ok && v > 0 {
				metrics = append(metrics, prometheus.MustNewConstMetric(descs[3], prometheus.CounterValue, v, pctx.Database, usename, queryid, block.kind, block.access))
			}
		}
	}

	return metrics, nil
}
