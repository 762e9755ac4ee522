package store

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
)

// TestConnString returns the DSN used by store package tests.
func TestConnString() string {
	return "host=127.0.0.1 dbname=postgres user=postgres sslmode=disable"
}

// TestConnConfig parses TestConnString for tests that need a *pgx.ConnConfig
// directly.
func TestConnConfig(t *testing.T) *pgx.ConnConfig {
	config, err := pgx.ParseConfig(TestConnString())
	assert.NoError(t, err)
	assert.NotNil(t, config)
	return config
}

// TestDB opens a connection for tests and returns a teardown func that
// truncates the given tables (if any) and closes the connection.
func TestDB(t *testing.T, connString string) (*DB, func(...string)) {
	t.Helper()
	assert.NotEmpty(t, connString)

	ctx := context.Background()
	db, err := NewDB(ctx, connString, 0)
	assert.NoError(t, err)
	assert.NotNil(t, db)

	return db, func(tables ...string) {
		if len(tables) > 0 {
			if _, err := db.Conn.Exec(ctx, fmt.Sprintf("TRUNCATE %s CASCADE", strings.Join(tables, ","))); err != nil {
				t.Fatal(err)
			}
		}
		db.Close(ctx)
	}
}
