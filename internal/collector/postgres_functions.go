package collector

import (
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/prometheus/client_golang/prometheus"
)

const functionsQuery = `SELECT schemaname, funcname, calls, total_time, self_time FROM pg_stat_user_functions`

var functionsLabels = []string{"schemaname", "funcname"}

// NewPostgresFunctionsFactory returns a Factory exposing SQL/PL function
// call counts and timings (spec §6 pg_stat_user_functions).
func NewPostgresFunctionsFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		labels := append([]string{"datname"}, functionsLabels...)

		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "function", "calls_total"), "Total number of times the function has been called.", labels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "function", "total_time_seconds"), "Total time spent in the function and all functions it called, in seconds.", labels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "function", "self_time_seconds"), "Total time spent in the function itself, in seconds.", labels, constLabels),
		}

		columns := []columnMetric{
			{column: "calls", desc: 0, valueType: prometheus.CounterValue},
			{column: "total_time", desc: 1, valueType: prometheus.CounterValue, factor: .001},
			{column: "self_time", desc: 2, valueType: prometheus.CounterValue, factor: .001},
		}

		return registry.Definition{
			Name:  "pg_functions",
			PerDB: true,
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: always, SQL: functionsQuery, Project: labelRowProjector(functionsLabels, columns)},
			},
		}
	}
}
