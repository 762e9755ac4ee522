package collector

import "testing"

func TestPostgresFunctionsFactory(t *testing.T) {
	// No user-defined functions exist on a freshly provisioned database.
	pipeline(t, pipelineInput{
		optional: []string{
			"pg_function_calls_total", "pg_function_total_time_seconds", "pg_function_self_time_seconds",
		},
		factory: NewPostgresFunctionsFactory(),
	})
}
