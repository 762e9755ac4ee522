package collector

import (
	"testing"

	"github.com/dbmetrics/pg_exporter/internal/model"
)

func TestPostgresWalFactory(t *testing.T) {
	pipeline(t, pipelineInput{
		required: []string{
			"pg_recovery_info", "pg_recovery_paused",
			"pg_wal_records_total", "pg_wal_fpi_total", "pg_wal_written_bytes_total",
			"pg_wal_bytes_total", "pg_wal_buffers_full_total", "pg_wal_stats_reset_time",
		},
		optional: []string{"pg_wal_write_total", "pg_wal_sync_total", "pg_wal_seconds_total"},
		factory:  NewPostgresWalFactory(),
		caps:     &model.Capabilities{ServerVersionNum: model.PostgresV17, HasStatWAL: true},
	})
}
