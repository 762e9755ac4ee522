package collector

import (
	"context"
	"regexp"
	"testing"

	"github.com/dbmetrics/pg_exporter/internal/log"
	"github.com/dbmetrics/pg_exporter/internal/model"
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/dbmetrics/pg_exporter/internal/runner"
	"github.com/dbmetrics/pg_exporter/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

var fqNameRE = regexp.MustCompile(`fqName: "([a-z0-9_]+)"`)

// pipelineInput describes one collector factory's expected output, in the
// teacher's testing.go pipeline() idiom generalized to the registry/runner
// shape: a Factory replaces the teacher's bare Collector constructor, and
// runner.Run replaces the teacher's Collector.Update.
type pipelineInput struct {
	// required metric family names that must be produced at least once.
	required []string
	// optional family names that may be absent (version/capability gated).
	optional []string
	// factory builds the Definition under test.
	factory registry.Factory
	// settings threads top-N/no_track/exclude settings through the runner.
	settings registry.InstanceSettings
	// caps overrides the default capability snapshot (ServerVersionNum
	// PostgresV17 with every feature flag false; the test database is not
	// probed); set fields to exercise version-gated variants without a
	// matching live server.
	caps *model.Capabilities
}

// pipeline builds the collector against a live connection (per the
// teacher's testing convention), runs it through runner.Run, and asserts
// every produced sample's family is accounted for in required/optional.
func pipeline(t *testing.T, input pipelineInput) {
	t.Helper()

	db, teardown := store.TestDB(t, store.TestConnString())
	defer teardown()

	caps := model.Capabilities{ServerVersionNum: model.PostgresV17}
	if input.caps != nil {
		caps = *input.caps
	}

	def := input.factory(prometheus.Labels{"example_label": "example_value"})

	pools := store.NewPoolSet(store.TestConnString(), 2)
	defer pools.Close()

	metrics, err := runner.Run(context.Background(), def, caps, db, pools, input.settings)
	assert.NoError(t, err)

	seen := map[string]int{}
	for _, m := range metrics {
		match := fqNameRE.FindStringSubmatch(m.Desc().String())
		assert.NotNil(t, match, "metric desc missing fqName: %s", m.Desc().String())
		name := match[1]
		assert.Contains(t, append(input.required, input.optional...), name)
		seen[name]++
	}

	for _, name := range input.required {
		assert.Greater(t, seen[name], 0, "required metric not produced: %s", name)
	}
	for _, name := range input.optional {
		if seen[name] == 0 {
			log.Warnf("optional metric not produced: %s", name)
		}
	}
}
