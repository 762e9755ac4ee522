package collector

import "github.com/dbmetrics/pg_exporter/internal/registry"

// All returns every collector Factory known to the exporter. A Registry
// built from this list resolves, at each collection round, to whichever
// Variant the connected server's capabilities satisfy.
func All() []registry.Factory {
	return []registry.Factory{
		NewPostgresActivityFactory(),
		NewPostgresBgwriterFactory(),
		NewPostgresConflictsFactory(),
		NewPostgresDatabaseFactory(),
		NewPostgresFunctionsFactory(),
		NewPostgresIndexesFactory(),
		NewPostgresLocksFactory(),
		NewPostgresReplicationFactory(),
		NewPostgresReplicationSlotFactory(),
		NewPostgresSchemaCatalogSizeFactory(),
		NewPostgresSchemaNonPKTablesFactory(),
		NewPostgresSchemaInvalidIndexesFactory(),
		NewPostgresSchemaRedundantIndexesFactory(),
		NewPostgresSchemaNonIndexedFKFactory(),
		NewPostgresSchemaFKTypeMismatchFactory(),
		NewPostgresSchemaSequencesFactory(),
		NewPostgresSettingsFactory(),
		NewPostgresStatIOFactory(),
		NewPostgresStatementsFactory(),
		NewPostgresStorageFactory(),
		NewPostgresTablesFactory(),
		NewPostgresWalFactory(),
	}
}
