package collector

import (
	"testing"

	"github.com/dbmetrics/pg_exporter/internal/model"
)

func TestPostgresReplicationFactory(t *testing.T) {
	// A standalone test instance has no connected standbys, so
	// pg_stat_replication legitimately returns zero rows.
	pipeline(t, pipelineInput{
		optional: []string{
			"pg_replication_lag_bytes", "pg_replication_lag_seconds",
			"pg_replication_lag_all_bytes", "pg_replication_lag_all_seconds",
		},
		factory: NewPostgresReplicationFactory(),
	})
}

func TestPostgresReplicationSlotFactory(t *testing.T) {
	// No replication slots exist on a freshly provisioned test instance.
	pipeline(t, pipelineInput{
		optional: []string{"pg_replication_slot_wal_retain_bytes"},
		factory:  NewPostgresReplicationSlotFactory(),
		caps:     &model.Capabilities{ServerVersionNum: model.PostgresV17, HasReplicationSlots: true},
	})
}
