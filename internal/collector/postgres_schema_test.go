package collector

import "testing"

func TestPostgresSchemaCatalogSizeFactory(t *testing.T) {
	pipeline(t, pipelineInput{
		required: []string{"pg_schema_system_catalog_bytes"},
		factory:  NewPostgresSchemaCatalogSizeFactory(),
	})
}

func TestPostgresSchemaNonPKTablesFactory(t *testing.T) {
	pipeline(t, pipelineInput{
		optional: []string{"pg_schema_non_pk_table_info"},
		factory:  NewPostgresSchemaNonPKTablesFactory(),
	})
}

func TestPostgresSchemaInvalidIndexesFactory(t *testing.T) {
	pipeline(t, pipelineInput{
		optional: []string{"pg_schema_invalid_index_bytes"},
		factory:  NewPostgresSchemaInvalidIndexesFactory(),
	})
}

func TestPostgresSchemaRedundantIndexesFactory(t *testing.T) {
	pipeline(t, pipelineInput{
		optional: []string{"pg_schema_redundant_index_bytes"},
		factory:  NewPostgresSchemaRedundantIndexesFactory(),
	})
}

func TestPostgresSchemaNonIndexedFKFactory(t *testing.T) {
	pipeline(t, pipelineInput{
		optional: []string{"pg_schema_non_indexed_fkey_info"},
		factory:  NewPostgresSchemaNonIndexedFKFactory(),
	})
}

func TestPostgresSchemaFKTypeMismatchFactory(t *testing.T) {
	pipeline(t, pipelineInput{
		optional: []string{"pg_schema_mistyped_fkey_info"},
		factory:  NewPostgresSchemaFKTypeMismatchFactory(),
	})
}

func TestPostgresSchemaSequencesFactory(t *testing.T) {
	pipeline(t, pipelineInput{
		optional: []string{"pg_schema_sequence_exhaustion_ratio"},
		factory:  NewPostgresSchemaSequencesFactory(),
	})
}
