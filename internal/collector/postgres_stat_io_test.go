package collector

import (
	"testing"

	"github.com/dbmetrics/pg_exporter/internal/model"
)

func TestPostgresStatIOFactory(t *testing.T) {
	pipeline(t, pipelineInput{
		optional: []string{
			"pg_stat_io_reads_total", "pg_stat_io_read_time_seconds_total",
			"pg_stat_io_writes_total", "pg_stat_io_write_time_seconds_total",
			"pg_stat_io_writebacks_total", "pg_stat_io_writeback_time_seconds_total",
			"pg_stat_io_extends_total", "pg_stat_io_extend_time_seconds_total",
			"pg_stat_io_hits_total", "pg_stat_io_evictions_total", "pg_stat_io_reuses_total",
			"pg_stat_io_fsyncs_total", "pg_stat_io_fsync_time_seconds_total",
			"pg_stat_io_read_bytes_total", "pg_stat_io_write_bytes_total", "pg_stat_io_extend_bytes_total",
		},
		factory: NewPostgresStatIOFactory(),
		caps:    &model.Capabilities{ServerVersionNum: model.PostgresV17, HasPgStatIO: true},
	})
}
