package collector

import "testing"

func TestPostgresLocksFactory(t *testing.T) {
	pipeline(t, pipelineInput{
		required: []string{
			"pg_locks_in_flight", "pg_locks_not_granted_in_flight", "pg_locks_all_in_flight",
		},
		factory: NewPostgresLocksFactory(),
	})
}
