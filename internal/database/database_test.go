package database

import (
	"bytes"
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/pageza/fridgechef/backend/config"
	"github.com/pageza/fridgechef/backend/internal/logging"
	"github.com/pageza/fridgechef/backend/internal/model"
)

func TestNewSQLite(t *testing.T) {
	cfg := &config.Config{DatabaseDriver: "sqlite", DatabaseURL: ":memory:"}

	db, err := New(cfg, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db))
	assert.NoError(t, HealthCheck(context.Background(), db))

	analysis := &model.Analysis{Ingredients: model.StringList{"egg"}}
	require.NoError(t, db.Create(analysis).Error)

	var stored model.Analysis
	require.NoError(t, db.First(&stored, "id = ?", analysis.ID).Error)
	assert.Equal(t, model.StringList{"egg"}, stored.Ingredients)
}

func TestNewUnsupportedDriver(t *testing.T) {
	_, err := New(&config.Config{DatabaseDriver: "oracle"}, logging.Discard())
	assert.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0", logging.Discard())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	mr.CheckGet(t, "k", "v")
}

func TestNewRedisClientBadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not a url", logging.Discard())
	assert.Error(t, err)
}

func TestOpenRejectsUnreachableSQLitePath(t *testing.T) {
	_, err := Open(sqlite.Open("/nonexistent-dir/sub/fridgechef.db"), logging.Discard())
	assert.Error(t, err)
}

func TestOpenLogsQueryErrorsThroughLogrus(t *testing.T) {
	var buf bytes.Buffer
	db, err := Open(sqlite.Open(":memory:"), logging.NewWithWriter(&buf, "warn", true))
	require.NoError(t, err)

	require.Error(t, db.Exec("SELECT * FROM missing_table").Error)

	line := buf.String()
	assert.Contains(t, line, `"component":"gorm"`)
	assert.Contains(t, line, `"level":"warning"`)
	assert.Contains(t, line, "missing_table")
}
