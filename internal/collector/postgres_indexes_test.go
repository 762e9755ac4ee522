package collector

import "testing"

func TestPostgresIndexesFactory(t *testing.T) {
	pipeline(t, pipelineInput{
		optional: []string{
			"pg_index_scans_total", "pg_index_size_bytes",
			"pg_index_tuples_total", "pg_index_io_blocks_total",
		},
		factory: NewPostgresIndexesFactory(),
	})
}
