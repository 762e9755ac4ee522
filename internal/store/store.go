// Package store wraps a single pgx connection with the query-to-rows
// plumbing every collector needs: a context-aware GetStats that scans an
// arbitrary result set into a generic QueryResult, and the small set of
// introspection queries (database list, extension presence); the runner
// uses the database list for its per-DB fan-out.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbmetrics/pg_exporter/internal/log"
	"github.com/jackc/pgproto3/v2"
	"github.com/jackc/pgx/v4"
)

const queryDatabasesList = "SELECT datname FROM pg_database WHERE NOT datistemplate AND datallowconn"

// DB wraps a single live connection.
type DB struct {
	Config *pgx.ConnConfig
	Conn   *pgx.Conn
}

// NewDB parses connString and connects, applying the statement_timeout
// asked for by the caller (0 disables it).
func NewDB(ctx context.Context, connString string, statementTimeout int) (*DB, error) {
	config, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	return NewDBConfig(ctx, config, statementTimeout)
}

// NewDBConfig connects using an already-parsed config, enabling simple-query
// protocol for pgbouncer compatibility and setting a per-session statement
// timeout (spec §5 layer 2).
func NewDBConfig(ctx context.Context, config *pgx.ConnConfig, statementTimeout int) (*DB, error) {
	config.PreferSimpleProtocol = true

	conn, err := pgx.ConnectConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	db := &DB{Config: config, Conn: conn}

	if statementTimeout > 0 {
		stmt := fmt.Sprintf("SET statement_timeout = %d", statementTimeout)
		if _, err := conn.Exec(ctx, stmt); err != nil {
			conn.Close(ctx)
			return nil, err
		}
	}

	return db, nil
}

// GetDatabases returns the databases available for connection, used by
// per-DB collectors and the runner's database fan-out.
func (db *DB) GetDatabases(ctx context.Context) ([]string, error) {
	rows, err := db.Conn.Query(ctx, queryDatabasesList)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]string, 0, 10)
	for rows.Next() {
		var dbname string
		if err := rows.Scan(&dbname); err != nil {
			return nil, err
		}
		list = append(list, dbname)
	}
	return list, rows.Err()
}

// IsExtensionAvailable returns true if the view/relation backing an
// extension exists and is queryable. The capability probe does not call it;
// it runs its own pg_extension and pg_views checks.
func (db *DB) IsExtensionAvailable(ctx context.Context, name string) bool {
	var (
		checkExtensionQuery = fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM information_schema.views WHERE table_name = '%s')", name)
		checkContentQuery   = fmt.Sprintf("SELECT 1 FROM %s LIMIT 1", name)
		exists              bool
		count               int
	)

	if err := db.Conn.QueryRow(ctx, checkExtensionQuery).Scan(&exists); err != nil {
		log.Errorln("failed to check extensions in information_schema: ", err)
		return false
	}
	if !exists {
		return false
	}

	if err := db.Conn.QueryRow(ctx, checkContentQuery).Scan(&count); err != nil {
		log.Errorf("%s exists but not queryable: %s", name, err)
		return false
	}
	return true
}

// Close closes the connection, logging (not failing) on error since callers
// are always on a teardown path.
func (db *DB) Close(ctx context.Context) {
	if err := db.Conn.Close(ctx); err != nil {
		log.Warnf("failed to close database connection: %s; ignore", err)
	}
}

// QueryResult is a generic, driver-agnostic capture of a result set: the
// column metadata and every row's values as nullable strings. Projectors
// consume this rather than scanning into typed structs themselves.
type QueryResult struct {
	Nrows    int
	Ncols    int
	Colnames []pgproto3.FieldDescription
	Rows     [][]sql.NullString
}

// GetStats executes query and captures the full result set into a
// QueryResult. Rows that fail to scan are skipped (logged), matching the
// "skip collecting stats" behavior collectors have relied on historically.
func (db *DB) GetStats(ctx context.Context, query string) (*QueryResult, error) {
	rows, err := db.Conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	colnames := rows.FieldDescriptions()
	ncols := len(colnames)

	rowsStore := make([][]sql.NullString, 0, 10)

	for rows.Next() {
		pointers := make([]interface{}, ncols)
		values := make([]sql.NullString, ncols)
		for i := range pointers {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			log.Warnf("skip collecting stats: %s", err)
			continue
		}
		rowsStore = append(rowsStore, values)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueryResult{
		Nrows:    len(rowsStore),
		Ncols:    ncols,
		Colnames: colnames,
		Rows:     rowsStore,
	}, nil
}
