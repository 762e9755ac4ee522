package collector

import (
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/dbmetrics/pg_exporter/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

const activityQuery = `SELECT
  state, wait_event_type,
  coalesce(extract(epoch FROM clock_timestamp() - coalesce(xact_start, query_start)), 0) AS since_start_seconds,
  (SELECT count(*) FROM pg_prepared_xacts) AS prepared_total
FROM pg_stat_activity
WHERE backend_type = 'client backend'`

// Backend states accordingly to pg_stat_activity.state.
const (
	stActive          = "active"
	stIdle            = "idle"
	stIdleXact        = "idle in transaction"
	stIdleXactAborted = "idle in transaction (aborted)"
	stFastpath        = "fastpath function call"
	stDisabled        = "disabled"
)

// NewPostgresActivityFactory returns a Factory exposing backend counts by
// state, the longest-running transaction per state, and prepared two-phase
// transactions (spec §6 pg_stat_activity / pg_prepared_xacts).
func NewPostgresActivityFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "activity", "connections_in_flight"), "The total number of connections in each state.", []string{"state"}, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "activity", "max_seconds"), "The current longest activity duration in each state.", []string{"state"}, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "activity", "prepared_xact_total"), "The total number of transactions currently prepared for two-phase commit.", nil, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "activity", "connections_all_in_flight"), "Total number of connections in any state.", nil, constLabels),
		}

		return registry.Definition{
			Name:  "pg_activity",
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: always, SQL: activityQuery, Project: activityProjector},
			},
		}
	}
}

func activityProjector(res *store.QueryResult, _ registry.ProjectContext, descs []*prometheus.Desc) ([]prometheus.Metric, error) {
	cols := map[string]int{}
	for i, c := range res.Colnames {
		cols[string(c.Name)] = i
	}

	counts := map[string]float64{}
	maxSeconds := map[string]float64{}

	stateIdx, hasState := cols["state"]
	waitIdx, hasWait := cols["wait_event_type"]
	ageIdx, hasAge := cols["since_start_seconds"]

	for _, row := range res.Rows {
		state := ""
		if hasState {
			state = row[stateIdx].String
		}
		if hasWait && row[waitIdx].Valid && row[waitIdx].String == "Lock" {
			state = "waiting"
		}
		switch state {
		case stActive, stIdle, stIdleXact, stIdleXactAborted, stFastpath, stDisabled, "waiting":
		default:
			state = "other"
		}
		counts[state]++

		if hasAge && row[ageIdx].Valid {
			age := parseFloatOrZero(row[ageIdx])
			if age > maxSeconds[state] {
				maxSeconds[state] = age
			}
		}
	}

	var metrics []prometheus.Metric
	var total float64
	for state, n := range counts {
		metrics = append(metrics, prometheus.MustNewConstMetric(descs[0], prometheus.GaugeValue, n, state))
		metrics = append(metrics, prometheus.MustNewConstMetric(descs[1], prometheus.GaugeValue, maxSeconds[state], state))
		total += n
	}

	if idx, ok := cols["prepared_total"]; ok && len(res.Rows) > 0 {
		metrics = append(metrics, prometheus.MustNewConstMetric(descs[2], prometheus.GaugeValue, parseFloatOrZero(res.Rows[0][idx])))
	}

	metrics = append(metrics, prometheus.MustNewConstMetric(descs[3], prometheus.GaugeValue, total))

	return metrics, nil
}
