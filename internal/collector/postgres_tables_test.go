package collector

import "testing"

func TestPostgresTablesFactory(t *testing.T) {
	pipeline(t, pipelineInput{
		optional: []string{
			"pg_table_seq_scan_total", "pg_table_seq_tup_read_total",
			"pg_table_idx_scan_total", "pg_table_idx_tup_fetch_total",
			"pg_table_tuples_modified_total", "pg_table_tuples_total",
			"pg_table_last_vacuum_seconds", "pg_table_last_analyze_seconds",
			"pg_table_maintenance_total", "pg_table_io_blocks_total", "pg_table_size_bytes",
		},
		factory: NewPostgresTablesFactory(),
	})
}
