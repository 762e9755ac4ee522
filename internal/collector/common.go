// Package collector holds the static catalogue of collector definitions
// (spec §4.2): one file per statistics view, each exposing a
// registry.Factory built from a Definition and its Variants. Projectors
// follow the teacher's typedDesc/mustNewConstMetric idiom, generalized
// into the declarative registry.Projector shape.
package collector

import (
	"database/sql"
	"strconv"

	"github.com/dbmetrics/pg_exporter/internal/log"
	"github.com/dbmetrics/pg_exporter/internal/model"
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/dbmetrics/pg_exporter/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// columnMetric maps one non-label result column onto a family, by its
// index into the Descs slice the projector is handed.
type columnMetric struct {
	column    string
	desc      int
	valueType prometheus.ValueType
	factor    float64
}

// labelRowProjector builds a registry.Projector for the common shape most
// of the catalogue shares: one result row per entity, a fixed set of label
// columns, and one result column per metric family. Collectors whose shape
// doesn't fit (bgwriter's column-group pivot, statements' time/block
// pivot, settings' name/value rows) write a bespoke projector instead.
func labelRowProjector(labelCols []string, columns []columnMetric) registry.Projector {
	return func(res *store.QueryResult, pctx registry.ProjectContext, descs []*prometheus.Desc) ([]prometheus.Metric, error) {
		var metrics []prometheus.Metric

		colIndex := make(map[string]int, res.Ncols)
		for i, c := range res.Colnames {
			colIndex[string(c.Name)] = i
		}

		schemaFilter := pctx.Settings.Filters["schema/name"]

		for _, row := range res.Rows {
			labelValues := make([]string, len(labelCols))
			skip := false
			for i, lc := range labelCols {
				if idx, ok := colIndex[lc]; ok {
					labelValues[i] = row[idx].String
					if lc == "schemaname" && !schemaFilter.Pass(labelValues[i]) {
						skip = true
					}
				}
			}
			if skip {
				continue
			}
			if pctx.Database != "" {
				labelValues = append([]string{pctx.Database}, labelValues...)
			}

			for _, cm := range columns {
				idx, ok := colIndex[cm.column]
				if !ok || !row[idx].Valid {
					continue
				}

				s := row[idx].String
				if s == "" {
					s = "0"
				}

				v, err := strconv.ParseFloat(s, 64)
				if err != nil {
					log.Warnf("skip collecting %s: %s", cm.column, err)
					continue
				}
				if cm.factor != 0 {
					v *= cm.factor
				}

				metrics = append(metrics, prometheus.MustNewConstMetric(descs[cm.desc], cm.valueType, v, labelValues...))
			}
		}

		return metrics, nil
	}
}

// parseFloatOrZero parses a nullable column value, treating NULL and empty
// strings as zero (teacher convention: absent counters read as zero rather
// than being omitted).
func parseFloatOrZero(v sql.NullString) float64 {
	if !v.Valid || v.String == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v.String, 64)
	if err != nil {
		log.Warnf("skip unparsable numeric value %q: %s", v.String, err)
		return 0
	}
	return f
}

// always is a Variant predicate that matches every capability snapshot,
// used by collectors whose query has no version-dependent variant.
func always(model.Capabilities) bool {
	return true
}
