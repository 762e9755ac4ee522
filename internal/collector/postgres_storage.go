package collector

import (
	"github.com/dbmetrics/pg_exporter/internal/model"
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/prometheus/client_golang/prometheus"
)

// tempFilesQuery relies on pg_ls_tmpdir(), available since Postgres 10
// (spec §6 gates this collector on that version).
const tempFilesQuery = `SELECT spcname AS tablespace,
  count(*) AS files_total,
  coalesce(sum(size), 0) AS bytes_total,
  coalesce(extract(epoch from clock_timestamp() - min(modification)), 0) AS max_age_seconds
FROM (SELECT spcname, (pg_ls_tmpdir(oid)).* FROM pg_tablespace WHERE spcname != 'pg_global') t
GROUP BY spcname`

var storageLabels = []string{"tablespace"}

// NewPostgresStorageFactory returns a Factory exposing in-flight temporary
// file usage per tablespace (spec §6 pg_ls_tmpdir). The teacher's companion
// directory-size/mountpoint stats read local OS paths (/proc/mounts,
// filepath.Walk on data_directory) rather than server-side catalogs and are
// intentionally not carried over.
func NewPostgresStorageFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "temp_files", "in_flight"),
				"Number of temporary files currently present, by tablespace.", storageLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "temp_bytes", "in_flight"),
				"Number of bytes occupied by temporary files currently present, by tablespace.", storageLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "temp_files", "max_age_seconds"),
				"Age of the oldest temporary file currently present, in seconds.", storageLabels, constLabels),
		}

		return registry.Definition{
			Name:  "pg_storage",
			Descs: descs,
			Variants: []registry.Variant{
				{
					Predicate: func(c model.Capabilities) bool { return c.AtLeast(model.PostgresV10) },
					SQL:       tempFilesQuery,
					Project: labelRowProjector(storageLabels, []columnMetric{
						{column: "files_total", desc: 0, valueType: prometheus.GaugeValue},
						{column: "bytes_total", desc: 1, valueType: prometheus.GaugeValue},
						{column: "max_age_seconds", desc: 2, valueType: prometheus.GaugeValue},
					}),
				},
			},
		}
	}
}
