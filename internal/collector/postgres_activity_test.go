package collector

import "testing"

func TestPostgresActivityFactory(t *testing.T) {
	pipeline(t, pipelineInput{
		required: []string{
			"pg_activity_connections_in_flight",
			"pg_activity_max_seconds",
			"pg_activity_connections_all_in_flight",
			"pg_activity_prepared_xact_total",
		},
		factory: NewPostgresActivityFactory(),
	})
}
