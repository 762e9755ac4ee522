package collector

import "testing"

func TestPostgresConflictsFactory(t *testing.T) {
	// The driving query is restricted to standbys (pg_is_in_recovery()), so
	// against a primary test database it legitimately returns zero rows.
	pipeline(t, pipelineInput{
		optional: []string{"pg_recovery_conflicts_total"},
		factory:  NewPostgresConflictsFactory(),
	})
}
