package collector

import (
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/dbmetrics/pg_exporter/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

const conflictsQuery = `SELECT
  datname AS database, confl_tablespace, confl_lock, confl_snapshot, confl_bufferpin, confl_deadlock
FROM pg_stat_database_conflicts
WHERE pg_is_in_recovery()`

// NewPostgresConflictsFactory returns a Factory exposing recovery conflict
// counters on standbys (spec §6 pg_stat_database_conflicts).
func NewPostgresConflictsFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "recovery", "conflicts_total"), "Total number of recovery conflicts occurred by each conflict type.", []string{"database", "reason"}, constLabels),
		}

		return registry.Definition{
			Name:  "pg_conflicts",
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: always, SQL: conflictsQuery, Project: conflictsProjector()},
			},
		}
	}
}

// conflictsProjector expands each of the five confl_* columns into a
// separate sample on the "reason" label, rather than one family per column.
func conflictsProjector() registry.Projector {
	reasons := []string{"tablespace", "lock", "snapshot", "bufferpin", "deadlock"}
	columns := []string{"confl_tablespace", "confl_lock", "confl_snapshot", "confl_bufferpin", "confl_deadlock"}

	return func(res *store.QueryResult, pctx registry.ProjectContext, descs []*prometheus.Desc) ([]prometheus.Metric, error) {
		var metrics []prometheus.Metric

		cols := map[string]int{}
		for i, c := range res.Colnames {
			cols[string(c.Name)] = i
		}
		dbIdx, hasDB := cols["database"]

		for _, row := range res.Rows {
			database := ""
			if hasDB {
				database = row[dbIdx].String
			}
			for i, col := range columns {
				idx, ok := cols[col]
				if !ok {
					continue
				}
				metrics = append(metrics, prometheus.MustNewConstMetric(descs[0], prometheus.CounterValue, parseFloatOrZero(row[idx]), database, reasons[i]))
			}
		}

		return metrics, nil
	}
}
