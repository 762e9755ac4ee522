// Package model holds the data shapes shared across the capability probe,
// collector registry, runner, and instance worker: the Capabilities
// snapshot and the well-known server_version_num boundaries collector
// variants are gated on.
package model

// Server version boundaries used by collector variant predicates. Expressed
// as server_version_num integers (e.g. 150003 for 15.3), matching the value
// SHOW server_version_num and pg_settings.setting return.
const (
	PostgresV96 = 90600
	PostgresV10 = 100000
	PostgresV13 = 130000
	PostgresV14 = 140000
	PostgresV16 = 160000
	PostgresV17 = 170000
	PostgresV18 = 180000

	// PostgresVMin is the oldest server version this catalogue targets;
	// collectors are not guaranteed to produce sane output on anything older.
	PostgresVMin = PostgresV96
)

// Capabilities is an immutable snapshot of one server's version and feature
// surface, produced by the capability probe and consumed by the collector
// registry to select query variants. Re-probed when a connection is
// (re)established.
type Capabilities struct {
	ServerVersionNum       int
	IsInRecovery           bool
	HasPgStatStatements    bool
	PgStatStatementsSource string
	HasPgStatIO            bool // pg_stat_io view, >= 16
	HasRestartpoints       bool // pg_stat_checkpointer split from pg_stat_bgwriter, >= 17
	HasIOTiming            bool // track_io_timing = on
	HasReplicationSlots    bool // pg_replication_slots view, >= 9.4
	HasStatWAL             bool // pg_stat_wal view, >= 14
}

// AtLeast reports whether the server version is at or above the given
// server_version_num boundary.
func (c Capabilities) AtLeast(version int) bool {
	return c.ServerVersionNum >= version
}
