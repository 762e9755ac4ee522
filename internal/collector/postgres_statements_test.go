package collector

import (
	"testing"

	"github.com/dbmetrics/pg_exporter/internal/model"
)

func TestPostgresStatementsFactory(t *testing.T) {
	pipeline(t, pipelineInput{
		required: []string{
			"pg_statements_calls_total", "pg_statements_rows_total", "pg_statements_time_seconds_total",
		},
		optional: []string{"pg_statements_blocks_total"},
		factory:  NewPostgresStatementsFactory(),
		caps:     &model.Capabilities{ServerVersionNum: model.PostgresV17, HasPgStatStatements: true},
	})
}
