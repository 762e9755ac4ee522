package collector

import "testing"

func TestPostgresDatabaseFactory(t *testing.T) {
	pipeline(t, pipelineInput{
		required: []string{
			"pg_database_xact_commit_total", "pg_database_xact_rollback_total",
			"pg_database_blks_read_total", "pg_database_blks_hit_total",
			"pg_database_tup_returned_total", "pg_database_tup_fetched_total",
			"pg_database_tup_inserted_total", "pg_database_tup_updated_total",
			"pg_database_tup_deleted_total", "pg_database_conflicts_total",
			"pg_database_temp_files_total", "pg_database_temp_bytes_total",
			"pg_database_deadlocks_total", "pg_database_checksum_failures_total",
		},
		factory: NewPostgresDatabaseFactory(),
	})
}
