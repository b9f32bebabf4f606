package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestQueue(t *testing.T) *GormQueue {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "queue.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	queue, err := NewQueue(db)
	require.NoError(t, err)
	return queue
}

func TestQueueScheduleRepeatableIsIdempotent(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, queue.ScheduleRepeatable(ctx, "scores:live:team:celtics", "@every 1m", []byte(`{"mode":"live"}`)))
	require.NoError(t, queue.ScheduleRepeatable(ctx, "scores:live:team:celtics", "@every 2m", []byte(`{"mode":"live"}`)))

	records, err := queue.ListRepeatables(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "scores:live:team:celtics", records[0].Key)
	assert.Equal(t, "@every 2m", records[0].Spec)
}

func TestQueueListOrdersByKey(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, queue.ScheduleRepeatable(ctx, "scores:live:team:lakers", "@every 1m", nil))
	require.NoError(t, queue.ScheduleRepeatable(ctx, "maintenance:reconcile", "@every 15m", nil))
	require.NoError(t, queue.ScheduleRepeatable(ctx, "scores:live:team:celtics", "@every 1m", nil))

	records, err := queue.ListRepeatables(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "maintenance:reconcile", records[0].Key)
	assert.Equal(t, "scores:live:team:celtics", records[1].Key)
	assert.Equal(t, "scores:live:team:lakers", records[2].Key)
}

func TestQueueRemoveRepeatable(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, queue.ScheduleRepeatable(ctx, "scores:live:team:celtics", "@every 1m", nil))
	require.NoError(t, queue.RemoveRepeatable(ctx, "scores:live:team:celtics"))

	records, err := queue.ListRepeatables(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	// Removing an absent key is a no-op.
	require.NoError(t, queue.RemoveRepeatable(ctx, "scores:live:team:celtics"))
}

func TestQueueRunHistoryAndCleanup(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()
	now := time.Now().UTC()

	old := now.Add(-48 * time.Hour)
	require.NoError(t, queue.RecordRun(ctx, "scores:live:team:celtics", StateCompleted, "", old, old.Add(time.Second)))
	require.NoError(t, queue.RecordRun(ctx, "scores:live:team:celtics", StateFailed, "boom", old, old.Add(time.Second)))
	require.NoError(t, queue.RecordRun(ctx, "scores:live:team:celtics", StateCompleted, "", now, now.Add(time.Second)))

	cleaned, err := queue.CleanHistory(ctx, []string{StateCompleted, StateFailed}, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), cleaned)

	var remaining int64
	require.NoError(t, queue.db.Model(&JobRun{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

func TestQueueCleanHistoryFiltersByState(t *testing.T) {
	queue := newTestQueue(t)
	ctx := context.Background()
	old := time.Now().UTC().Add(-48 * time.Hour)

	require.NoError(t, queue.RecordRun(ctx, "k", StateCompleted, "", old, old))
	require.NoError(t, queue.RecordRun(ctx, "k", StateFailed, "boom", old, old))

	cleaned, err := queue.CleanHistory(ctx, []string{StateFailed}, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleaned)
}
