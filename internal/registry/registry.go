// Package registry implements the Collector Registry (spec §4.2): a static,
// process-global catalogue of collector definitions, each a name plus an
// ordered list of (predicate, SQL, projector) variants. Variant selection
// is a simple "first predicate that matches wins" walk, kept declarative so
// the table reads like documentation (spec §9 design notes).
package registry

import (
	"github.com/dbmetrics/pg_exporter/internal/filter"
	"github.com/dbmetrics/pg_exporter/internal/model"
	"github.com/dbmetrics/pg_exporter/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// ProjectContext carries the per-scrape context a projector needs beyond the
// raw result set: which database the query ran against (for per-DB
// collectors) and the instance settings, of which projectors currently read
// only Filters (the "schema/name" exclusion); no_track_mode and the top-N
// caps are applied when the runner renders the SQL template.
type ProjectContext struct {
	Database string
	Settings InstanceSettings
}

// InstanceSettings is the subset of an instance's configuration the runner
// and projectors need; decoupled from internal/config's YAML-tagged struct
// so this package doesn't import the config layer.
type InstanceSettings struct {
	ExcludeDBNames  []string
	CollectTopQuery int
	CollectTopIndex int
	CollectTopTable int
	NoTrackMode     bool
	Filters         map[string]filter.Filter
}

// Projector maps one result set to zero or more Prometheus metrics.
type Projector func(res *store.QueryResult, ctx ProjectContext, descs []*prometheus.Desc) ([]prometheus.Metric, error)

// Variant is one (predicate, SQL, projector) triple. SQL may be a
// text/template source referencing ".NoTrackMode", ".TopN", ".ExcludeDBNames"
// — collectors that don't need templating just use a plain string, which
// text/template renders unchanged.
type Variant struct {
	Predicate func(model.Capabilities) bool
	SQL       string
	Project   Projector
}

// Definition is one collector: a name, the family descriptors it emits, and
// its ordered variants. PerDB marks collectors the runner must execute once
// per user database (spec §4.3).
type Definition struct {
	Name     string
	PerDB    bool
	Descs    []*prometheus.Desc
	Variants []Variant
}

// Resolve returns the first variant whose predicate matches caps, in
// declaration order. ok is false when no variant matches — the collector is
// skipped, not an error (spec §4.2).
func (d Definition) Resolve(caps model.Capabilities) (Variant, bool) {
	for _, v := range d.Variants {
		if v.Predicate(caps) {
			return v, true
		}
	}
	return Variant{}, false
}

// Factory builds a Definition bound to one instance's constant labels: the
// family Descs must bake in each instance's const labels at construction
// time (prometheus.NewDesc's constLabels parameter), so one Factory
// invocation happens once per instance, not once per scrape.
type Factory func(constLabels prometheus.Labels) Definition

// Registry is the immutable, process-wide catalogue of collector factories,
// populated once at startup from internal/collector's catalogue.
type Registry struct {
	factories []Factory
}

// New builds a Registry from the given factories, in the order they should
// be run.
func New(factories ...Factory) *Registry {
	return &Registry{factories: factories}
}

// Build realizes every factory against one instance's constant labels,
// producing the concrete Definition set that instance's worker will run on
// every scrape.
func (r *Registry) Build(constLabels prometheus.Labels) []Definition {
	defs := make([]Definition, 0, len(r.factories))
	for _, f := range r.factories {
		defs = append(defs, f(constLabels))
	}
	return defs
}
