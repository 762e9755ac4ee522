package capability

import (
	"context"
	"testing"

	"github.com/dbmetrics/pg_exporter/internal/model"
	"github.com/dbmetrics/pg_exporter/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestProbe(t *testing.T) {
	db, teardown := store.TestDB(t, store.TestConnString())
	defer teardown()

	c, err := Probe(context.Background(), db)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, c.ServerVersionNum, model.PostgresVMin)
	assert.False(t, c.IsInRecovery)
}

func TestViewExists(t *testing.T) {
	db, teardown := store.TestDB(t, store.TestConnString())
	defer teardown()

	assert.False(t, viewExists(context.Background(), db, "no_such_view_should_exist"))
	assert.True(t, viewExists(context.Background(), db, "pg_stat_activity"))
}
