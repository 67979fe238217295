package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskType identifies the unit of work a SyncTask carries
type TaskType string

const (
	TaskSyncProduct    TaskType = "SYNC_PRODUCT"
	TaskSyncInventory  TaskType = "SYNC_INVENTORY"
	TaskSyncCategory   TaskType = "SYNC_CATEGORY"
	TaskDeleteProduct  TaskType = "DELETE_PRODUCT"
	TaskBulkSync       TaskType = "BULK_SYNC"
	TaskRetrySweep     TaskType = "RETRY_SWEEP"
	TaskSyncPending    TaskType = "SYNC_PENDING"
	TaskInventorySweep TaskType = "INVENTORY_SWEEP"
	TaskResetStale     TaskType = "RESET_STALE"
	TaskPurgeAudit     TaskType = "PURGE_AUDIT"
	TaskHealthCheck    TaskType = "HEALTH_CHECK"
	TaskDailyReport    TaskType = "DAILY_REPORT"
)

// String returns the string representation of TaskType
func (t TaskType) String() string {
	return string(t)
}

// SyncTask is a unit of work published by the orchestrator and consumed by
// a worker. Tasks are plain data so they can cross a message broker.
type SyncTask struct {
	ID       string      `json:"id"`
	Type     TaskType    `json:"type"`
	LocalID  string      `json:"local_id,omitempty"`
	LocalIDs []string    `json:"local_ids,omitempty"`
	RemoteID string      `json:"remote_id,omitempty"`
	Trigger  TriggerType `json:"trigger"`
	// Limit bounds sweep tasks
	Limit int `json:"limit,omitempty"`
	// OlderThan is the age cutoff for stale-pending resets
	OlderThan time.Duration `json:"older_than,omitempty"`
	// NotBefore delays execution until the given time
	NotBefore time.Time `json:"not_before,omitempty"`
	Attempt   int       `json:"attempt"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSyncTask creates a task for a single entity
func NewSyncTask(taskType TaskType, localID string, trigger TriggerType) *SyncTask {
	return &SyncTask{
		ID:        uuid.New().String(),
		Type:      taskType,
		LocalID:   localID,
		Trigger:   trigger,
		CreatedAt: time.Now(),
	}
}

// Delay sets NotBefore relative to now
func (t *SyncTask) Delay(d time.Duration) *SyncTask {
	if d > 0 {
		t.NotBefore = time.Now().Add(d)
	}
	return t
}

// Key returns the partitioning key, so tasks for one entity stay ordered
func (t *SyncTask) Key() string {
	if t.LocalID != "" {
		return string(t.Type) + ":" + t.LocalID
	}
	return string(t.Type)
}

// TaskPublisher enqueues units of work
type TaskPublisher interface {
	Publish(ctx context.Context, task *SyncTask) error
}

// TaskHandler executes units of work
type TaskHandler interface {
	HandleTask(ctx context.Context, task *SyncTask) error
}
