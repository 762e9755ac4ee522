package runner

import (
	"context"
	"testing"

	"github.com/dbmetrics/pg_exporter/internal/model"
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestRun_noMatchingVariant_skipsWithoutError(t *testing.T) {
	def := registry.Definition{
		Name: "pg_stat_io",
		Variants: []registry.Variant{
			{Predicate: func(c model.Capabilities) bool { return c.HasPgStatIO }, SQL: "select 1"},
		},
	}

	metrics, err := Run(context.Background(), def, model.Capabilities{HasPgStatIO: false}, nil, nil, registry.InstanceSettings{})
	assert.NoError(t, err)
	assert.Nil(t, metrics)
}

func TestRenderSQL_topNAndNoTrack(t *testing.T) {
	def := registry.Definition{Name: "pg_statements"}
	sqlSrc := `SELECT {{if .NoTrackMode}}'no-track'{{else}}query{{end}} AS q FROM pg_stat_statements {{if gt .TopN 0}}LIMIT {{.TopN}}{{end}}`

	out, err := renderSQL(def, sqlSrc, registry.InstanceSettings{CollectTopQuery: 5, NoTrackMode: true})
	assert.NoError(t, err)
	assert.Contains(t, out, "'no-track'")
	assert.Contains(t, out, "LIMIT 5")

	out, err = renderSQL(def, sqlSrc, registry.InstanceSettings{CollectTopQuery: 0, NoTrackMode: false})
	assert.NoError(t, err)
	assert.Contains(t, out, "query")
	assert.NotContains(t, out, "LIMIT")
}

func TestRenderSQL_excludeDBNames(t *testing.T) {
	def := registry.Definition{Name: "pg_tables"}
	sqlSrc := `SELECT datname FROM pg_database {{if .ExcludeDBNames}}WHERE datname NOT IN ({{sqlList .ExcludeDBNames}}){{end}}`

	out, err := renderSQL(def, sqlSrc, registry.InstanceSettings{ExcludeDBNames: []string{"template0", "o'brien"}})
	assert.NoError(t, err)
	assert.Contains(t, out, "'template0'")
	assert.Contains(t, out, "'o''brien'")
}

func TestCheckUnique_detectsDuplicateLabelTuples(t *testing.T) {
	desc := prometheus.NewDesc("pg_example", "help", []string{"database"}, nil)
	m1 := prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, 1, "a")
	m2 := prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, 2, "a")

	err := checkUnique("pg_example", []prometheus.Metric{m1, m2})
	assert.Error(t, err)
	assert.True(t, model.IsKind(err, model.ProjectorFailed))
}

func TestCheckUnique_distinctLabelsOK(t *testing.T) {
	desc := prometheus.NewDesc("pg_example", "help", []string{"database"}, nil)
	m1 := prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, 1, "a")
	m2 := prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, 2, "b")

	assert.NoError(t, checkUnique("pg_example", []prometheus.Metric{m1, m2}))
}
