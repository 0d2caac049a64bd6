package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storesync/backend/internal/domain/shared"
	"github.com/storesync/backend/internal/domain/storefront"
	"github.com/storesync/backend/internal/infrastructure/persistence/models"
)

// runningLease bounds how long a claimed task may sit in Running before it
// is presumed abandoned by a dead worker and becomes claimable again. It
// must comfortably exceed the worker's per-task timeout.
const runningLease = 10 * time.Minute

// GormSyncTaskRepository implements storefront.TaskRepository using GORM
type GormSyncTaskRepository struct {
	db *gorm.DB
}

// NewGormSyncTaskRepository creates a new GORM-based sync task repository
func NewGormSyncTaskRepository(db *gorm.DB) *GormSyncTaskRepository {
	return &GormSyncTaskRepository{db: db}
}

// Save persists one or more tasks
func (r *GormSyncTaskRepository) Save(ctx context.Context, tasks ...*storefront.SyncTask) error {
	if len(tasks) == 0 {
		return nil
	}
	rows := make([]*models.SyncTaskModel, len(tasks))
	for i, task := range tasks {
		rows[i] = models.SyncTaskModelFromDomain(task)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to save sync tasks: %w", err)
	}
	return nil
}

// Update updates an existing task
func (r *GormSyncTaskRepository) Update(ctx context.Context, task *storefront.SyncTask) error {
	row := models.SyncTaskModelFromDomain(task)
	result := r.db.WithContext(ctx).Model(&models.SyncTaskModel{}).
		Where("id = ?", row.ID).
		Select("status", "attempts", "deferrals", "last_error",
			"next_run_at", "started_at", "finished_at", "updated_at").
		Updates(row)
	if result.Error != nil {
		return fmt.Errorf("failed to update sync task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID retrieves a task by id
func (r *GormSyncTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*storefront.SyncTask, error) {
	var row models.SyncTaskModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find sync task: %w", err)
	}
	return row.ToDomain(), nil
}

// ClaimDue atomically claims up to limit due tasks on a lane. The status flip
// is a compare-and-swap guarded on the previous status, so two workers racing
// on the same row see exactly one winner. Running rows whose lease has lapsed
// are reclaimed as well, so a worker dying mid-attempt never strands a task.
func (r *GormSyncTaskRepository) ClaimDue(ctx context.Context, lane storefront.TaskLane, now time.Time, limit int) ([]*storefront.SyncTask, error) {
	if limit < 1 {
		return nil, nil
	}

	claimable := []string{
		string(storefront.TaskStatusPending),
		string(storefront.TaskStatusRetrying),
	}

	var rows []models.SyncTaskModel
	err := r.db.WithContext(ctx).
		Where("lane = ?", string(lane)).
		Where("status IN ?", claimable).
		Where("next_run_at IS NULL OR next_run_at <= ?", now).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select due tasks: %w", err)
	}

	var claimed []*storefront.SyncTask
	for i := range rows {
		previousStatus := rows[i].Status
		task := rows[i].ToDomain()
		if err := task.Start(); err != nil {
			continue
		}
		updated := models.SyncTaskModelFromDomain(task)
		result := r.db.WithContext(ctx).Model(&models.SyncTaskModel{}).
			Where("id = ? AND status = ?", updated.ID, previousStatus).
			Select("status", "attempts", "next_run_at", "started_at", "updated_at").
			Updates(updated)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to mark task running: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			// Another worker claimed it first
			continue
		}
		claimed = append(claimed, task)
	}

	if len(claimed) >= limit {
		return claimed, nil
	}
	stale, err := r.reclaimStale(ctx, lane, now, limit-len(claimed))
	if err != nil {
		return nil, err
	}
	return append(claimed, stale...), nil
}

// reclaimStale re-claims Running tasks whose lease lapsed. The guard repeats
// the stale cutoff in the UPDATE, so of two workers racing on the same row
// only the first sees a row still carrying the old started_at.
func (r *GormSyncTaskRepository) reclaimStale(ctx context.Context, lane storefront.TaskLane, now time.Time, limit int) ([]*storefront.SyncTask, error) {
	cutoff := now.Add(-runningLease)

	var rows []models.SyncTaskModel
	err := r.db.WithContext(ctx).
		Where("lane = ?", string(lane)).
		Where("status = ?", string(storefront.TaskStatusRunning)).
		Where("started_at IS NOT NULL AND started_at <= ?", cutoff).
		Order("started_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select stale running tasks: %w", err)
	}

	var reclaimed []*storefront.SyncTask
	for i := range rows {
		task := rows[i].ToDomain()
		if err := task.Reclaim(); err != nil {
			continue
		}
		updated := models.SyncTaskModelFromDomain(task)
		result := r.db.WithContext(ctx).Model(&models.SyncTaskModel{}).
			Where("id = ? AND status = ? AND started_at <= ?",
				updated.ID, string(storefront.TaskStatusRunning), cutoff).
			Select("status", "attempts", "next_run_at", "started_at", "updated_at").
			Updates(updated)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to reclaim stale task: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			continue
		}
		reclaimed = append(reclaimed, task)
	}
	return reclaimed, nil
}

// FindDead retrieves dead-letter tasks with pagination
func (r *GormSyncTaskRepository) FindDead(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]*storefront.SyncTask, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := r.db.WithContext(ctx).Model(&models.SyncTaskModel{}).
		Where("tenant_id = ? AND status = ?", tenantID, string(storefront.TaskStatusFailed))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count dead tasks: %w", err)
	}

	var rows []models.SyncTaskModel
	err := query.
		Order("finished_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list dead tasks: %w", err)
	}

	tasks := make([]*storefront.SyncTask, len(rows))
	for i := range rows {
		tasks[i] = rows[i].ToDomain()
	}
	return tasks, total, nil
}

// CountByStatus returns the number of tasks per status
func (r *GormSyncTaskRepository) CountByStatus(ctx context.Context) (map[storefront.TaskStatus]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var rows []statusCount
	err := r.db.WithContext(ctx).Model(&models.SyncTaskModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}

	counts := make(map[storefront.TaskStatus]int64, len(rows))
	for _, row := range rows {
		counts[storefront.TaskStatus(row.Status)] = row.Count
	}
	return counts, nil
}

// DeleteFinishedBefore removes succeeded tasks older than the cutoff
func (r *GormSyncTaskRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND finished_at < ?", string(storefront.TaskStatusSucceeded), cutoff).
		Delete(&models.SyncTaskModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete finished tasks: %w", result.Error)
	}
	return result.RowsAffected, nil
}
