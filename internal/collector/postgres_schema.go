package collector

import (
	"github.com/dbmetrics/pg_exporter/internal/model"
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/dbmetrics/pg_exporter/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// This file groups a handful of schema-health checks grounded on the
// teacher's postgres_schema.go: each is a cheap system-catalog query run
// once per database, surfacing design issues (missing keys, invalid or
// redundant indexes, type-mismatched or unindexed foreign keys, sequences
// nearing exhaustion) as info-style gauges rather than time-series.

const systemCatalogSizeQuery = `SELECT coalesce(sum(pg_total_relation_size(relid)), 0) AS bytes FROM pg_catalog.pg_stat_sys_tables WHERE schemaname = 'pg_catalog'`

const nonPKTablesQuery = `SELECT n.nspname AS schemaname, c.relname AS relname
FROM pg_class c JOIN pg_namespace n ON c.relnamespace = n.oid
WHERE NOT EXISTS (SELECT 1 FROM pg_index i WHERE c.oid = i.indrelid AND (i.indisprimary OR i.indisunique))
  AND c.relkind = 'r' AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')`

const invalidIndexesQuery = `SELECT c1.relnamespace::regnamespace::text AS schemaname, c2.relname AS relname, c1.relname AS indexrelname,
  pg_relation_size(c1.oid) AS bytes
FROM pg_index i JOIN pg_class c1 ON i.indexrelid = c1.oid JOIN pg_class c2 ON i.indrelid = c2.oid
WHERE NOT i.indisvalid`

const nonIndexedFKQuery = `SELECT
  c.connamespace::regnamespace::text AS schemaname, s.relname AS relname,
  string_agg(a.attname, ',' ORDER BY x.n) AS colnames, c.conname AS constraint_name,
  c.confrelid::regclass::text AS referenced
FROM pg_constraint c CROSS JOIN LATERAL unnest(c.conkey) WITH ORDINALITY AS x(attnum, n)
JOIN pg_attribute a ON a.attnum = x.attnum AND a.attrelid = c.conrelid
JOIN pg_class s ON c.conrelid = s.oid
WHERE NOT EXISTS (SELECT 1 FROM pg_index i WHERE i.indrelid = c.conrelid AND (i.indkey::int2[])[0:cardinality(c.conkey)-1] @> c.conkey)
  AND c.contype = 'f'
GROUP BY c.connamespace, s.relname, c.conname, c.confrelid`

const redundantIndexesQuery = `WITH index_data AS (
  SELECT *, string_to_array(indkey::text,' ') AS key_array, array_length(string_to_array(indkey::text,' '),1) AS nkeys FROM pg_index
)
SELECT
  c1.relnamespace::regnamespace::text AS schemaname, c1.relname AS relname, c2.relname AS indexrelname,
  pg_get_indexdef(i1.indexrelid) AS indexdef, pg_get_indexdef(i2.indexrelid) AS redundantdef,
  pg_relation_size(i2.indexrelid) AS bytes
FROM index_data i1 JOIN index_data i2 ON i1.indrelid = i2.indrelid AND i1.indexrelid <> i2.indexrelid
JOIN pg_class c1 ON i1.indrelid = c1.oid
JOIN pg_class c2 ON i2.indexrelid = c2.oid
WHERE (regexp_replace(i1.indpred, 'location \d+', 'location', 'g') IS NOT DISTINCT FROM regexp_replace(i2.indpred, 'location \d+', 'location', 'g'))
  AND (regexp_replace(i1.indexprs, 'location \d+', 'location', 'g') IS NOT DISTINCT FROM regexp_replace(i2.indexprs, 'location \d+', 'location', 'g'))
  AND ((i1.nkeys > i2.nkeys AND NOT i2.indisunique)
    OR (i1.nkeys = i2.nkeys AND ((i1.indisunique AND i2.indisunique AND i1.indexrelid > i2.indexrelid)
    OR (NOT i1.indisunique AND NOT i2.indisunique AND i1.indexrelid > i2.indexrelid)
    OR (i1.indisunique AND NOT i2.indisunique))))
  AND i1.key_array[1:i2.nkeys] = i2.key_array`

const sequencesQuery = `SELECT schemaname, sequencename AS seqname, coalesce(last_value, 0) / max_value::float AS ratio FROM pg_sequences`

const fkTypeMismatchQuery = `SELECT
  c1.relnamespace::regnamespace::text AS schemaname, c1.relname AS relname, a1.attname||'::'||t1.typname AS colname,
  c2.relnamespace::regnamespace::text AS refschemaname, c2.relname AS refrelname, a2.attname||'::'||t2.typname AS refcolname
FROM pg_constraint
JOIN pg_class c1 ON c1.oid = conrelid
JOIN pg_class c2 ON c2.oid = confrelid
JOIN pg_attribute a1 ON a1.attnum = conkey[1] AND a1.attrelid = conrelid
JOIN pg_attribute a2 ON a2.attnum = confkey[1] AND a2.attrelid = confrelid
JOIN pg_type t1 ON t1.oid = a1.atttypid
JOIN pg_type t2 ON t2.oid = a2.atttypid
WHERE a1.atttypid <> a2.atttypid AND contype = 'f'`

// NewPostgresSchemaCatalogSizeFactory exposes the on-disk size of the system
// catalog itself, per database.
func NewPostgresSchemaCatalogSizeFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "schema", "system_catalog_bytes"), "Total size of the system catalog, in bytes.", []string{"datname"}, constLabels),
		}
		return registry.Definition{
			Name:  "pg_schema_catalog_size",
			PerDB: true,
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: always, SQL: systemCatalogSizeQuery, Project: labelRowProjector(nil, []columnMetric{{column: "bytes", desc: 0, valueType: prometheus.GaugeValue}})},
			},
		}
	}
}

// NewPostgresSchemaNonPKTablesFactory exposes tables with neither a primary
// key nor a unique constraint.
func NewPostgresSchemaNonPKTablesFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		labels := []string{"datname", "schemaname", "relname"}
		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "schema", "non_pk_table_info"), "A table with no primary or unique key constraint.", labels, constLabels),
		}
		return registry.Definition{
			Name:  "pg_schema_non_pk_tables",
			PerDB: true,
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: always, SQL: nonPKTablesQuery, Project: presenceRowProjector([]string{"schemaname", "relname"}, 0)},
			},
		}
	}
}

// NewPostgresSchemaInvalidIndexesFactory exposes indexes left invalid by a
// failed CREATE INDEX CONCURRENTLY or REINDEX CONCURRENTLY.
func NewPostgresSchemaInvalidIndexesFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		labels := []string{"datname", "schemaname", "relname", "indexrelname"}
		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "schema", "invalid_index_bytes"), "Size of an invalid index occupying disk space with no query benefit, in bytes.", labels, constLabels),
		}
		return registry.Definition{
			Name:  "pg_schema_invalid_indexes",
			PerDB: true,
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: always, SQL: invalidIndexesQuery, Project: labelRowProjector([]string{"schemaname", "relname", "indexrelname"}, []columnMetric{{column: "bytes", desc: 0, valueType: prometheus.GaugeValue}})},
			},
		}
	}
}

// NewPostgresSchemaRedundantIndexesFactory exposes indexes made redundant by
// a broader index on the same leading columns.
func NewPostgresSchemaRedundantIndexesFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		labels := []string{"datname", "schemaname", "relname", "indexrelname", "indexdef", "redundantdef"}
		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "schema", "redundant_index_bytes"), "Size of an index made redundant by another index on the same leading columns, in bytes.", labels, constLabels),
		}
		return registry.Definition{
			Name:  "pg_schema_redundant_indexes",
			PerDB: true,
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: always, SQL: redundantIndexesQuery, Project: labelRowProjector([]string{"schemaname", "relname", "indexrelname", "indexdef", "redundantdef"}, []columnMetric{{column: "bytes", desc: 0, valueType: prometheus.GaugeValue}})},
			},
		}
	}
}

// NewPostgresSchemaNonIndexedFKFactory exposes foreign key constraints whose
// referencing columns have no supporting index, a common source of lock
// escalation on the referenced table.
func NewPostgresSchemaNonIndexedFKFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		labels := []string{"datname", "schemaname", "relname", "colnames", "constraint_name", "referenced"}
		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "schema", "non_indexed_fkey_info"), "A foreign key constraint with no supporting index on the referencing columns.", labels, constLabels),
		}
		return registry.Definition{
			Name:  "pg_schema_non_indexed_fkeys",
			PerDB: true,
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: always, SQL: nonIndexedFKQuery, Project: presenceRowProjector([]string{"schemaname", "relname", "colnames", "constraint_name", "referenced"}, 0)},
			},
		}
	}
}

// NewPostgresSchemaFKTypeMismatchFactory exposes foreign key constraints
// whose referencing and referenced columns have different data types,
// which defeats index usage on join.
func NewPostgresSchemaFKTypeMismatchFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		labels := []string{"datname", "schemaname", "relname", "colname", "refschemaname", "refrelname", "refcolname"}
		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "schema", "mistyped_fkey_info"), "A foreign key constraint whose referencing and referenced columns have different data types.", labels, constLabels),
		}
		return registry.Definition{
			Name:  "pg_schema_mistyped_fkeys",
			PerDB: true,
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: always, SQL: fkTypeMismatchQuery, Project: presenceRowProjector([]string{"schemaname", "relname", "colname", "refschemaname", "refrelname", "refcolname"}, 0)},
			},
		}
	}
}

// NewPostgresSchemaSequencesFactory exposes how close each sequence is to
// exhausting its attached column's value range (spec-supplemented, gated on
// pg_sequences which Postgres introduced at 10).
func NewPostgresSchemaSequencesFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		labels := []string{"datname", "schemaname", "seqname"}
		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "schema", "sequence_exhaustion_ratio"), "Fraction of the sequence's value range already consumed.", labels, constLabels),
		}
		return registry.Definition{
			Name:  "pg_schema_sequences",
			PerDB: true,
			Descs: descs,
			Variants: []registry.Variant{
				{
					Predicate: func(c model.Capabilities) bool { return c.AtLeast(model.PostgresV10) },
					SQL:       sequencesQuery,
					Project:   labelRowProjector([]string{"schemaname", "seqname"}, []columnMetric{{column: "ratio", desc: 0, valueType: prometheus.GaugeValue}}),
				},
			},
		}
	}
}

// presenceRowProjector builds a Projector for queries that only enumerate
// entities of interest with no numeric measure of their own: every returned
// row becomes a sample pinned at 1, the row's presence in the result being
// the signal (teacher's mustNewConstMetric(1, ...) convention for these
// schema-health checks).
func presenceRowProjector(labelCols []string, desc int) registry.Projector {
	return func(res *store.QueryResult, pctx registry.ProjectContext, descs []*prometheus.Desc) ([]prometheus.Metric, error) {
		colIndex := make(map[string]int, res.Ncols)
		for i, c := range res.Colnames {
			colIndex[string(c.Name)] = i
		}
		schemaFilter := pctx.Settings.Filters["schema/name"]

		var metrics []prometheus.Metric
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
			metrics = append(metrics, prometheus.MustNewConstMetric(descs[desc], prometheus.GaugeValue, 1, labelValues...))
		}
		return metrics, nil
	}
}
