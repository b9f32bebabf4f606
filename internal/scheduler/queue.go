package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Job-run terminal states recorded in history.
const (
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// TriggerRecord is one durable repeatable trigger.
type TriggerRecord struct {
	Key       string `gorm:"primaryKey"`
	Spec      string
	Payload   datatypes.JSON
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TriggerRecord) TableName() string { return "triggers" }

// JobRun is one historical invocation of a trigger.
type JobRun struct {
	ID         string `gorm:"primaryKey"`
	TriggerKey string `gorm:"index"`
	State      string `gorm:"index"`
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time `gorm:"index"`
}

func (JobRun) TableName() string { return "job_runs" }

// Queue is the durable repeatable-trigger registry plus run history. All
// operations are idempotent so a partial or repeated reconciliation cannot
// corrupt state.
type Queue interface {
	ScheduleRepeatable(ctx context.Context, key, spec string, payload []byte) error
	ListRepeatables(ctx context.Context) ([]TriggerRecord, error)
	RemoveRepeatable(ctx context.Context, key string) error
	RecordRun(ctx context.Context, key, state, errMsg string, startedAt, finishedAt time.Time) error
	CleanHistory(ctx context.Context, states []string, olderThan time.Time) (int64, error)
}

// GormQueue implements Queue on the shared gorm handle.
type GormQueue struct {
	db *gorm.DB
}

// NewQueue wraps the handle and migrates the queue tables.
func NewQueue(db *gorm.DB) (*GormQueue, error) {
	if err := db.AutoMigrate(&TriggerRecord{}, &JobRun{}); err != nil {
		return nil, err
	}
	return &GormQueue{db: db}, nil
}

// ScheduleRepeatable registers or refreshes one trigger under its
// deterministic key.
func (q *GormQueue) ScheduleRepeatable(ctx context.Context, key, spec string, payload []byte) error {
	rec := TriggerRecord{Key: key, Spec: spec, Payload: payload}
	return q.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			UpdateAll: true,
		}).
		Create(&rec).Error
}

// ListRepeatables returns every registered trigger.
func (q *GormQueue) ListRepeatables(ctx context.Context) ([]TriggerRecord, error) {
	var records []TriggerRecord
	if err := q.db.WithContext(ctx).Order("key").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// RemoveRepeatable deletes one trigger; removing an absent key is a no-op.
func (q *GormQueue) RemoveRepeatable(ctx context.Context, key string) error {
	return q.db.WithContext(ctx).Delete(&TriggerRecord{}, "key = ?", key).Error
}

// RecordRun appends one invocation to the history.
func (q *GormQueue) RecordRun(ctx context.Context, key, state, errMsg string, startedAt, finishedAt time.Time) error {
	run := JobRun{
		ID:         uuid.NewString(),
		TriggerKey: key,
		State:      state,
		Error:      errMsg,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
	return q.db.WithContext(ctx).Create(&run).Error
}

// CleanHistory removes runs in the given states finished before olderThan,
// returning how many rows went away.
func (q *GormQueue) CleanHistory(ctx context.Context, states []string, olderThan time.Time) (int64, error) {
	res := q.db.WithContext(ctx).
		Where("state IN ?", states).
		Where("finished_at < ?", olderThan).
		Delete(&JobRun{})
	return res.RowsAffected, res.Error
}
