package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pageza/fridgechef/backend/internal/database"
	"github.com/pageza/fridgechef/backend/internal/logging"
	"github.com/pageza/fridgechef/backend/internal/model"
)

func setupHistoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:"), logging.Discard())
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))
	return db
}

func TestHistoryRecordAndRecent(t *testing.T) {
	svc := NewHistoryService(setupHistoryDB(t))
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, title := range []string{"first", "second", "third"} {
		require.NoError(t, svc.Record(ctx, &model.Analysis{
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
			ContentType:  "image/jpeg",
			Ingredients:  model.StringList{"egg"},
			RecipeTitles: model.StringList{title},
		}))
	}

	recent, err := svc.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, model.StringList{"third"}, recent[0].RecipeTitles)
	assert.Equal(t, model.StringList{"second"}, recent[1].RecipeTitles)
	assert.NotEqual(t, recent[0].ID, recent[1].ID)
	assert.Equal(t, model.StringList{"egg"}, recent[0].Ingredients)
}

func TestHistoryRecentLimits(t *testing.T) {
	svc := NewHistoryService(setupHistoryDB(t))
	ctx := context.Background()

	for i := 0; i < DefaultHistoryLimit+5; i++ {
		require.NoError(t, svc.Record(ctx, &model.Analysis{}))
	}

	recent, err := svc.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, DefaultHistoryLimit)

	recent, err = svc.Recent(ctx, 1000)
	require.NoError(t, err)
	assert.Len(t, recent, DefaultHistoryLimit+5)
	assert.Equal(t, model.StringList{}, recent[0].Ingredients)
}
