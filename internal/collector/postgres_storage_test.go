package collector

import "testing"

func TestPostgresStorageFactory(t *testing.T) {
	// A freshly provisioned instance has no in-flight temporary files, so
	// the family legitimately produces zero samples.
	pipeline(t, pipelineInput{
		optional: []string{
			"pg_temp_files_in_flight", "pg_temp_bytes_in_flight", "pg_temp_files_max_age_seconds",
		},
		factory: NewPostgresStorageFactory(),
	})
}
