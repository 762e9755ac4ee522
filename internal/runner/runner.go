// Package runner implements the Collector Runner (spec §4.3): for a single
// instance, it resolves each registered collector against the probed
// capabilities, executes the chosen query (parameterized for top-N limits,
// excluded databases, and no_track_mode), and yields metric samples,
// fanning out per-database for collectors that need it.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/dbmetrics/pg_exporter/internal/log"
	"github.com/dbmetrics/pg_exporter/internal/model"
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/dbmetrics/pg_exporter/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// templateData is the set of values a collector's SQL template may
// reference; collectors that need none of them just use a plain string,
// which text/template renders unchanged.
type templateData struct {
	NoTrackMode    bool
	TopN           int
	ExcludeDBNames []string
}

var templateFuncs = template.FuncMap{
	"sqlList": func(values []string) string {
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
		}
		return strings.Join(quoted, ", ")
	},
}

// Run executes one collector definition against db (and, for per-DB
// collectors, pools) under ctx's deadline, returning the samples it
// produced. When no variant matches current capabilities it returns nil,
// nil (skip, not an error), matching spec §4.2/§4.3; a matched variant whose
// projector yields no samples can also return nil, nil.
func Run(ctx context.Context, def registry.Definition, caps model.Capabilities, db *store.DB, pools *store.PoolSet, settings registry.InstanceSettings) ([]prometheus.Metric, error) {
	variant, ok := def.Resolve(caps)
	if !ok {
		return nil, nil
	}

	sqlText, err := renderSQL(def, variant.SQL, settings)
	if err != nil {
		return nil, model.NewError(model.QueryFailed, "runner.Run:"+def.Name, err)
	}

	pctx := registry.ProjectContext{Settings: settings}

	var metrics []prometheus.Metric
	if def.PerDB {
		metrics, err = runPerDB(ctx, def, variant, sqlText, db, pools, settings)
	} else {
		var res *store.QueryResult
		res, err = db.GetStats(ctx, sqlText)
		if err == nil {
			metrics, err = variant.Project(res, pctx, def.Descs)
		}
	}

	if err != nil {
		return nil, err
	}

	if err := checkUnique(def.Name, metrics); err != nil {
		return nil, err
	}

	return metrics, nil
}

func runPerDB(ctx context.Context, def registry.Definition, variant registry.Variant, sqlText string, db *store.DB, pools *store.PoolSet, settings registry.InstanceSettings) ([]prometheus.Metric, error) {
	dbnames, err := db.GetDatabases(ctx)
	if err != nil {
		return nil, model.NewError(model.QueryFailed, "runner.Run:"+def.Name, err)
	}

	excluded := make(map[string]bool, len(settings.ExcludeDBNames))
	for _, name := range settings.ExcludeDBNames {
		excluded[name] = true
	}

	var all []prometheus.Metric
	for _, dbname := range dbnames {
		if excluded[dbname] {
			continue
		}

		pool, err := pools.Pool(ctx, dbname)
		if err != nil {
			log.Warnf("%s: connect to database %q failed: %s; skip", def.Name, dbname, err)
			continue
		}

		conn, err := pool.Acquire(ctx)
		if err != nil {
			log.Warnf("%s: acquire connection for database %q failed: %s; skip", def.Name, dbname, err)
			continue
		}

		tmp := &store.DB{Conn: conn.Conn()}
		res, err := tmp.GetStats(ctx, sqlText)
		conn.Release()
		if err != nil {
			log.Warnf("%s: query failed on database %q: %s; skip", def.Name, dbname, err)
			continue
		}

		pctx := registry.ProjectContext{Database: dbname, Settings: settings}
		metrics, err := variant.Project(res, pctx, def.Descs)
		if err != nil {
			return nil, model.NewError(model.ProjectorFailed, "runner.Run:"+def.Name, err)
		}
		all = append(all, metrics...)
	}

	return all, nil
}

// renderSQL parameterizes a variant's SQL with the instance settings
// relevant to def (top-N cap selection depends on the collector's kind).
func renderSQL(def registry.Definition, sqlSrc string, settings registry.InstanceSettings) (string, error) {
	data := templateData{
		NoTrackMode:    settings.NoTrackMode,
		ExcludeDBNames: settings.ExcludeDBNames,
	}

	switch def.Name {
	case "pg_statements":
		data.TopN = settings.CollectTopQuery
	case "pg_indexes":
		data.TopN = settings.CollectTopIndex
	case "pg_tables":
		data.TopN = settings.CollectTopTable
	}

	tmpl, err := template.New(def.Name).Funcs(templateFuncs).Parse(sqlSrc)
	if err != nil {
		return "", fmt.Errorf("parse query template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render query template: %w", err)
	}

	return buf.String(), nil
}

// checkUnique enforces the per-family uniqueness invariant (spec §3, §4.3
// step 5): no two samples of one family may share a label-value tuple.
func checkUnique(collectorName string, metrics []prometheus.Metric) error {
	seen := make(map[string]bool, len(metrics))

	for _, m := range metrics {
		var pb dto.Metric
		if err := m.Write(&pb); err != nil {
			return model.NewError(model.ProjectorFailed, "runner.checkUnique:"+collectorName, err)
		}

		labels := make([]string, 0, len(pb.Label))
		for _, lp := range pb.Label {
			labels = append(labels, lp.GetName()+"="+lp.GetValue())
		}
		sort.Strings(labels)

		key := m.Desc().String() + "|" + strings.Join(labels, ",")
		if seen[key] {
			return model.NewError(model.ProjectorFailed, "runner.checkUnique:"+collectorName,
				fmt.Errorf("duplicate label tuple for family: %s", key))
		}
		seen[key] = true
	}

	return nil
}
