package registry

import (
	"testing"

	"github.com/dbmetrics/pg_exporter/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestDefinition_Resolve_firstMatchWins(t *testing.T) {
	def := Definition{
		Name: "example",
		Variants: []Variant{
			{Predicate: func(c model.Capabilities) bool { return c.AtLeast(model.PostgresV17) }, SQL: "v17"},
			{Predicate: func(c model.Capabilities) bool { return c.AtLeast(model.PostgresV10) }, SQL: "v10"},
			{Predicate: func(model.Capabilities) bool { return true }, SQL: "fallback"},
		},
	}

	v, ok := def.Resolve(model.Capabilities{ServerVersionNum: model.PostgresV17})
	assert.True(t, ok)
	assert.Equal(t, "v17", v.SQL)

	v, ok = def.Resolve(model.Capabilities{ServerVersionNum: model.PostgresV13})
	assert.True(t, ok)
	assert.Equal(t, "v10", v.SQL)

	v, ok = def.Resolve(model.Capabilities{ServerVersionNum: 90500})
	assert.True(t, ok)
	assert.Equal(t, "fallback", v.SQL)
}

func TestDefinition_Resolve_noMatch(t *testing.T) {
	def := Definition{
		Name: "example",
		Variants: []Variant{
			{Predicate: func(c model.Capabilities) bool { return c.HasPgStatIO }, SQL: "stat_io"},
		},
	}

	_, ok := def.Resolve(model.Capabilities{ServerVersionNum: model.PostgresV13, HasPgStatIO: false})
	assert.False(t, ok)
}

func TestRegistry_Build(t *testing.T) {
	factory := func(constLabels prometheus.Labels) Definition {
		return Definition{
			Name:  "example",
			Descs: []*prometheus.Desc{prometheus.NewDesc("pg_example", "help", nil, constLabels)},
		}
	}

	reg := New(factory, factory)
	defs := reg.Build(prometheus.Labels{"cluster": "c1"})
	assert.Len(t, defs, 2)
	assert.Contains(t, defs[0].Descs[0].String(), "cluster")
}
