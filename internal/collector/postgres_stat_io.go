package collector

import (
	"github.com/dbmetrics/pg_exporter/internal/model"
	"github.com/dbmetrics/pg_exporter/internal/registry"
	"github.com/prometheus/client_golang/prometheus"
)

var statIOLabels = []string{"backend_type", "object", "context"}

// statIOQuery17 targets Postgres 16-17, where pg_stat_io reports a single
// op_bytes per row and per-operation byte counts must be derived from it.
const statIOQuery17 = `SELECT backend_type, object, context,
  coalesce(reads, 0) AS reads, coalesce(read_time, 0) AS read_time,
  coalesce(writes, 0) AS writes, coalesce(write_time, 0) AS write_time,
  coalesce(writebacks, 0) AS writebacks, coalesce(writeback_time, 0) AS writeback_time,
  coalesce(extends, 0) AS extends, coalesce(extend_time, 0) AS extend_time,
  coalesce(hits, 0) AS hits, coalesce(evictions, 0) AS evictions, coalesce(reuses, 0) AS reuses,
  coalesce(fsyncs, 0) AS fsyncs, coalesce(fsync_time, 0) AS fsync_time,
  coalesce(reads, 0) * coalesce(op_bytes, 0) AS read_bytes,
  coalesce(writes, 0) * coalesce(op_bytes, 0) AS write_bytes,
  coalesce(extends, 0) * coalesce(op_bytes, 0) AS extend_bytes
FROM pg_stat_io`

// statIOQueryLatest targets Postgres 18+, where pg_stat_io reports the
// per-operation byte counts directly and op_bytes is gone.
const statIOQueryLatest = `SELECT backend_type, object, context,
  coalesce(reads, 0) AS reads, coalesce(read_time, 0) AS read_time,
  coalesce(writes, 0) AS writes, coalesce(write_time, 0) AS write_time,
  coalesce(writebacks, 0) AS writebacks, coalesce(writeback_time, 0) AS writeback_time,
  coalesce(extends, 0) AS extends, coalesce(extend_time, 0) AS extend_time,
  coalesce(hits, 0) AS hits, coalesce(evictions, 0) AS evictions, coalesce(reuses, 0) AS reuses,
  coalesce(fsyncs, 0) AS fsyncs, coalesce(fsync_time, 0) AS fsync_time,
  coalesce(read_bytes, 0) AS read_bytes, coalesce(write_bytes, 0) AS write_bytes, coalesce(extend_bytes, 0) AS extend_bytes
FROM pg_stat_io`

// NewPostgresStatIOFactory returns a Factory exposing the generalized I/O
// stats view (spec §6 pg_stat_io), gated on HasPgStatIO (Postgres >= 16).
func NewPostgresStatIOFactory() registry.Factory {
	return func(constLabels prometheus.Labels) registry.Definition {
		descs := []*prometheus.Desc{
			prometheus.NewDesc(prometheus.BuildFQName("pg", "stat_io", "reads_total"), "Number of read operations, each of the size specified in op_bytes.", statIOLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "stat_io", "read_time_seconds_total"), "Time spent in read operations, in seconds.", statIOLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "stat_io", "writes_total"), "Number of write operations, each of the size specified in op_bytes.", statIOLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "stat_io", "write_time_seconds_total"), "Time spent in write operations, in seconds.", statIOLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "stat_io", "writebacks_total"), "Number of blocks the process requested the kernel write out to permanent storage.", statIOLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "stat_io", "writeback_time_seconds_total"), "Time spent in writeback operations, in seconds.", statIOLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "stat_io", "extends_total"), "Number of relation extend operations, each of the size specified in op_bytes.", statIOLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "stat_io", "extend_time_seconds_total"), "Time spent in extend operations, in seconds.", statIOLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "stat_io", "hits_total"), "Number of times a desired block was found in a shared buffer.", statIOLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "stat_io", "evictions_total"), "Number of times a block was written out from a buffer to make it available for another use.", statIOLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "stat_io", "reuses_total"), "Number of times an existing buffer in a size-limited ring buffer was reused.", statIOLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "stat_io", "fsyncs_total"), "Number of fsync calls, tracked only in context normal.", statIOLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "stat_io", "fsync_time_seconds_total"), "Time spent in fsync operations, in seconds.", statIOLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "stat_io", "read_bytes_total"), "Number of bytes read.", statIOLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "stat_io", "write_bytes_total"), "Number of bytes written.", statIOLabels, constLabels),
			prometheus.NewDesc(prometheus.BuildFQName("pg", "stat_io", "extend_bytes_total"), "Number of bytes used to extend relations.", statIOLabels, constLabels),
		}

		columns := []columnMetric{
			{column: "reads", desc: 0, valueType: prometheus.CounterValue},
			{column: "read_time", desc: 1, valueType: prometheus.CounterValue, factor: .001},
			{column: "writes", desc: 2, valueType: prometheus.CounterValue},
			{column: "write_time", desc: 3, valueType: prometheus.CounterValue, factor: .001},
			{column: "writebacks", desc: 4, valueType: prometheus.CounterValue},
			{column: "writeback_time", desc: 5, valueType: prometheus.CounterValue, factor: .001},
			{column: "extends", desc: 6, valueType: prometheus.CounterValue},
			{column: "extend_time", desc: 7, valueType: prometheus.CounterValue, factor: .001},
			{column: "hits", desc: 8, valueType: prometheus.CounterValue},
			{column: "evictions", desc: 9, valueType: prometheus.CounterValue},
			{column: "reuses", desc: 10, valueType: prometheus.CounterValue},
			{column: "fsyncs", desc: 11, valueType: prometheus.CounterValue},
			{column: "fsync_time", desc: 12, valueType: prometheus.CounterValue, factor: .001},
			{column: "read_bytes", desc: 13, valueType: prometheus.CounterValue},
			{column: "write_bytes", desc: 14, valueType: prometheus.CounterValue},
			{column: "extend_bytes", desc: 15, valueType: prometheus.CounterValue},
		}

		return registry.Definition{
			Name:  "pg_stat_io",
			Descs: descs,
			Variants: []registry.Variant{
				{Predicate: func(c model.Capabilities) bool { return c.HasPgStatIO && c.AtLeast(model.PostgresV18) }, SQL: statIOQueryLatest, Project: labelRowProjector(statIOLabels, columns)},
				{Predicate: func(c model.Capabilities) bool { return c.HasPgStatIO }, SQL: statIOQuery17, Project: labelRowProjector(statIOLabels, columns)},
			},
		}
	}
}
