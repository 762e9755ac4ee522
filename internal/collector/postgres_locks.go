package collector

import (
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/dbmetrics/pg_exporter/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

const locksQuery = "SELECT " +
	"count(*) FILTER (WHERE mode = 'AccessShareLock') AS access_share_lock, " +
	"count(*) FILTER (WHERE mode = 'RowShareLock') AS row_share_lock, " +
	"count(*) FILTER (WHERE mode = 'RowExclusiveLock') AS row_exclusive_lock, " +
	"count(*) FILTER (WHERE mode = 'ShareUpdateExclusiveLock') AS share_update_exclusive_lock, " +
	"count(*) FILTER (WHERE mode = 'ShareLock') AS share_lock, " +
	"count(*) FILTER (WHERE mode = 'ShareRowExclusiveLock') AS share_row_exclusive_lock, " +
	"count(*) FILTER (WHERE mode = 'ExclusiveLock') AS exclusive_lock, " +
	"count(*) FILTER (WHERE mode = 'AccessExclusiveLock') AS access_exclusive_lock, " +
	"count(*) FILTER (WHERE not granted) AS not_granted, " +
	"count(*) AS total " +
	"FROM pg_locks"

var lockModeColumns = []string{
	"access_share_lock", "row_share_lock", "row_exclusive_lock",
	"share_update_exclusive_lock", "share_lock", "share_row_exclusive_lock",
	"exclusive_lock", "access_exclusive_lock",
}

var lockModeNames = []string{
	"AccessShareLock", "RowShareLock", "RowExclusiveLock",
	"ShareUpdateExclusiveLock", "ShareLock", "ShareRowExclusiveLock",
	"ExclusiveLock", "AccessExclusiveLock",
}

// NewPostgresLocksFactory returns a Factory exposing in-flight lock counts
// by mode (spec §6 pg_locks).
func NewPostgresLocksFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "locks", "in_flight"), "Number of in-flight locks held by active processes, by mode.", []string{"mode"}, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "locks", "not_granted_in_flight"), "Number of in-flight not-granted locks held by active processes.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "locks", "all_in_flight"), "Total number of all in-flight locks held by active processes.", nil, constLabels),
		}

		return registry.Definition{
			Name:  "pg_locks",
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: always, SQL: locksQuery, Project: locksProjector},
			},
		}
	}
}

func locksProjector(res *store.QueryResult, _ registry.ProjectContext, descs []*prometheus.Desc) ([]prometheus.Metric, error) {
	var metrics []prometheus.Metric
	if len(res.Rows) == 0 {
		return metrics, nil
	}

	cols := map[string]int{}
	for i, c := range res.Colnames {
		cols[string(c.Name)] = i
	}
	row := res.Rows[0]

	for i, col := range lockModeColumns {
		if idx, ok := cols[col]; ok {
			metrics = append(metrics, prometheus.MustNewConstMetric(descs[0], prometheus.GaugeValue, parseFloatOrZero(row[idx]), lockModeNames[i]))
		}
	}
	if idx, ok := cols["not_granted"]; ok {
		metrics = append(metrics, prometheus.MustNewConstMetric(descs[1], prometheus.GaugeValue, parseFloatOrZero(row[idx])))
	}
	if idx, ok := cols["total"]; ok {
		metrics = append(metrics, prometheus.MustNewConstMetric(descs[2], prometheus.GaugeValue, parseFloatOrZero(row[idx])))
	}

	return metrics, nil
}
