package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
)

func TestNewDB(t *testing.T) {
	testcases := []struct {
		dsn   string
		valid bool
	}{
		{dsn: TestConnString(), valid: true},
		{dsn: "invalid_string", valid: false},
	}

	for _, tc := range testcases {
		db, err := NewDB(context.Background(), tc.dsn, 0)
		if tc.valid {
			assert.NoError(t, err)
			assert.NotNil(t, db)
			db.Close(context.Background())
		} else {
			assert.Error(t, err)
			assert.Nil(t, db)
		}
	}
}

func TestNewDBConfig_statementTimeout(t *testing.T) {
	config, err := pgx.ParseConfig(TestConnString())
	assert.NoError(t, err)

	db, err := NewDBConfig(context.Background(), config, 1000)
	assert.NoError(t, err)
	assert.NotNil(t, db)
	defer db.Close(context.Background())

	var timeout string
	err = db.Conn.QueryRow(context.Background(), "SHOW statement_timeout").Scan(&timeout)
	assert.NoError(t, err)
	assert.Equal(t, "1s", timeout)
}

func TestDB_GetStats(t *testing.T) {
	db, teardown := TestDB(t, TestConnString())
	defer teardown()

	res, err := db.GetStats(context.Background(), "SELECT 'example'||i AS example, i+1 AS one FROM generate_series(1,3) AS gs(i)")
	assert.NoError(t, err)
	assert.Equal(t, 3, res.Nrows)
	assert.Equal(t, 2, res.Ncols)

	_, err = db.GetStats(context.Background(), "not valid sql")
	assert.Error(t, err)
}

func TestDB_GetDatabases(t *testing.T) {
	db, teardown := TestDB(t, TestConnString())
	defer teardown()

	list, err := db.GetDatabases(context.Background())
	assert.NoError(t, err)
	assert.NotEmpty(t, list)
}

func TestDB_IsExtensionAvailable(t *testing.T) {
	db, teardown := TestDB(t, TestConnString())
	defer teardown()

	assert.False(t, db.IsExtensionAvailable(context.Background(), "no_such_view_exists"))
}
