package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/storesync/backend/internal/domain/storefront"
)

// SyncTaskModel is the persistence model for sync tasks
type SyncTaskModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_sync_tasks_tenant_status,priority:1"`
	Lane        string     `gorm:"type:varchar(30);not null;index:idx_sync_tasks_lane_due,priority:1"`
	Payload     []byte     `gorm:"type:jsonb;not null"`
	Status      string     `gorm:"type:varchar(20);not null;index:idx_sync_tasks_tenant_status,priority:2;index:idx_sync_tasks_lane_due,priority:2"`
	Attempts    int        `gorm:"not null;default:0"`
	MaxAttempts int        `gorm:"not null;default:3"`
	Deferrals   int        `gorm:"not null;default:0"`
	LastError   string     `gorm:"type:text"`
	NextRunAt   *time.Time `gorm:"index:idx_sync_tasks_lane_due,priority:3"`
	StartedAt   *time.Time
	FinishedAt  *time.Time
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncTaskModel) TableName() string {
	return "sync_tasks"
}

// ToDomain converts the model to a domain task
func (m *SyncTaskModel) ToDomain() *storefront.SyncTask {
	return &storefront.SyncTask{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Lane:        storefront.TaskLane(m.Lane),
		Payload:     m.Payload,
		Status:      storefront.TaskStatus(m.Status),
		Attempts:    m.Attempts,
		MaxAttempts: m.MaxAttempts,
		Deferrals:   m.Deferrals,
		LastError:   m.LastError,
		NextRunAt:   m.NextRunAt,
		StartedAt:   m.StartedAt,
		FinishedAt:  m.FinishedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// SyncTaskModelFromDomain converts a domain task to its persistence model
func SyncTaskModelFromDomain(task *storefront.SyncTask) *SyncTaskModel {
	return &SyncTaskModel{
		ID:          task.ID,
		TenantID:    task.TenantID,
		Lane:        string(task.Lane),
		Payload:     task.Payload,
		Status:      string(task.Status),
		Attempts:    task.Attempts,
		MaxAttempts: task.MaxAttempts,
		Deferrals:   task.Deferrals,
		LastError:   task.LastError,
		NextRunAt:   task.NextRunAt,
		StartedAt:   task.StartedAt,
		FinishedAt:  task.FinishedAt,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}
