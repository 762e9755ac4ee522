// Package capability implements the capability probe (spec §4.1): given a
// live session, it determines server version and the feature flags the
// collector registry gates query variants on.
package capability

import (
	"context"
	"strconv"

	"github.com/dbmetrics/pg_exporter/internal/model"
	"github.com/dbmetrics/pg_exporter/internal/store"
)

// Probe runs the fixed bundle of introspection queries against db and folds
// the results into a Capabilities snapshot. It is idempotent and cheap;
// callers cache the result for the lifetime of the connection (spec §9).
func Probe(ctx context.Context, db *store.DB) (model.Capabilities, error) {
	var c model.Capabilities

	var versionNum string
	if err := db.Conn.QueryRow(ctx, "SHOW server_version_num").Scan(&versionNum); err != nil {
		return c, model.NewError(model.ProbeError, "capability.Probe", err)
	}
	n, err := strconv.Atoi(versionNum)
	if err != nil {
		return c, model.NewError(model.ProbeError, "capability.Probe", err)
	}
	c.ServerVersionNum = n

	if err := db.Conn.QueryRow(ctx, "SELECT pg_is_in_recovery()").Scan(&c.IsInRecovery); err != nil {
		return c, model.NewError(model.ProbeError, "capability.Probe", err)
	}

	var hasExt bool
	if err := db.Conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'pg_stat_statements')").Scan(&hasExt); err != nil {
		return c, model.NewError(model.ProbeError, "capability.Probe", err)
	}
	c.HasPgStatStatements = hasExt
	if hasExt {
		c.PgStatStatementsSource = "pg_extension"
	}

	var trackIOTiming string
	if err := db.Conn.QueryRow(ctx, "SHOW track_io_timing").Scan(&trackIOTiming); err != nil {
		return c, model.NewError(model.ProbeError, "capability.Probe", err)
	}
	c.HasIOTiming = trackIOTiming == "on"

	c.HasPgStatIO = c.AtLeast(model.PostgresV16) && viewExists(ctx, db, "pg_stat_io")
	c.HasRestartpoints = c.AtLeast(model.PostgresV17) && viewExists(ctx, db, "pg_stat_checkpointer")
	c.HasStatWAL = c.AtLeast(model.PostgresV14) && viewExists(ctx, db, "pg_stat_wal")
	c.HasReplicationSlots = c.AtLeast(90400) && viewExists(ctx, db, "pg_replication_slots")

	return c, nil
}

// viewExists checks pg_catalog.pg_views for a system view's presence; used
// instead of querying the view directly since an absent view would fail the
// query rather than simply returning no rows.
func viewExists(ctx context.Context, db *store.DB, name string) bool {
	var exists bool
	query := "SELECT EXISTS (SELECT 1 FROM pg_catalog.pg_views WHERE viewname = $1)"
	if err := db.Conn.QueryRow(ctx, query, name).Scan(&exists); err != nil {
		return false
	}
	return exists
}
