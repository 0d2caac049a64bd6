package storefront

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Sync task state machine
// ---------------------------------------------------------------------------

// TaskStatus represents the lifecycle state of a sync task:
// Pending → Running → {Succeeded | Retrying → Running | Failed}.
// Failed is the dead-letter state; the task input is preserved for manual
// or delayed reprocessing.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusRunning   TaskStatus = "RUNNING"
	TaskStatusRetrying  TaskStatus = "RETRYING"
	TaskStatusSucceeded TaskStatus = "SUCCEEDED"
	TaskStatusFailed    TaskStatus = "FAILED"
)

// IsValid returns true if the status is valid
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusRetrying,
		TaskStatusSucceeded, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of TaskStatus
func (s TaskStatus) String() string {
	return string(s)
}

// TaskLane names an independent worker lane so a backlogged operation type
// does not starve others.
type TaskLane string

const (
	LaneInsert    TaskLane = "insert"
	LaneUpdate    TaskLane = "update"
	LaneVariable  TaskLane = "variable-product"
	LaneAttribute TaskLane = "attribute-sync"
)

// IsValid returns true if the lane is known
func (l TaskLane) IsValid() bool {
	switch l {
	case LaneInsert, LaneUpdate, LaneVariable, LaneAttribute:
		return true
	default:
		return false
	}
}

// Lanes returns all task lanes
func Lanes() []TaskLane {
	return []TaskLane{LaneInsert, LaneUpdate, LaneVariable, LaneAttribute}
}

// TaskPolicy declares the retry bounds of a lane: max attempts and a
// monotonically increasing backoff schedule applied between attempts.
type TaskPolicy struct {
	MaxAttempts int
	Backoff     []time.Duration
}

// DefaultPolicies returns the per-lane retry policies
func DefaultPolicies() map[TaskLane]TaskPolicy {
	return map[TaskLane]TaskPolicy{
		LaneInsert:    {MaxAttempts: 3, Backoff: backoffSeconds(10, 30, 60)},
		LaneUpdate:    {MaxAttempts: 3, Backoff: backoffSeconds(10, 30, 60)},
		LaneVariable:  {MaxAttempts: 5, Backoff: backoffSeconds(15, 30, 60, 120, 300)},
		LaneAttribute: {MaxAttempts: 4, Backoff: backoffSeconds(10, 30, 60, 120)},
	}
}

func backoffSeconds(seconds ...int) []time.Duration {
	schedule := make([]time.Duration, len(seconds))
	for i, s := range seconds {
		schedule[i] = time.Duration(s) * time.Second
	}
	return schedule
}

// Delay returns the backoff before the next attempt after attempt n (1-based).
// Past the end of the schedule the last entry repeats.
func (p TaskPolicy) Delay(attempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(p.Backoff) {
		return p.Backoff[len(p.Backoff)-1]
	}
	return p.Backoff[attempt-1]
}

// Task state errors
var (
	ErrTaskNotStartable = errors.New("storefront: task is not pending or retrying")
	ErrTaskNotRunning   = errors.New("storefront: task is not running")
	ErrTaskNotDead      = errors.New("storefront: task is not in the dead letter")
	ErrTaskInvalidLane  = errors.New("storefront: invalid task lane")
)

// MaxOrphanDeferrals bounds how many times a child task may be deferred
// waiting for its parent before the deferral escalates to a standing warning.
const MaxOrphanDeferrals = 5

// SyncTask is one unit of work pulled by a lane worker. Payload carries the
// task input verbatim so a dead-lettered task can be inspected and requeued
// without data loss.
type SyncTask struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Lane        TaskLane
	Payload     []byte
	Status      TaskStatus
	Attempts    int
	MaxAttempts int
	Deferrals   int
	LastError   string
	NextRunAt   *time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSyncTask creates a pending task on the given lane
func NewSyncTask(tenantID uuid.UUID, lane TaskLane, payload []byte, policy TaskPolicy) (*SyncTask, error) {
	if !lane.IsValid() {
		return nil, ErrTaskInvalidLane
	}
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	now := time.Now()
	return &SyncTask{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Lane:        lane,
		Payload:     payload,
		Status:      TaskStatusPending,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Start transitions the task to Running and counts the attempt
func (t *SyncTask) Start() error {
	if t.Status != TaskStatusPending && t.Status != TaskStatusRetrying {
		return ErrTaskNotStartable
	}
	now := time.Now()
	t.Status = TaskStatusRunning
	t.Attempts++
	t.StartedAt = &now
	t.NextRunAt = nil
	t.UpdatedAt = now
	return nil
}

// Succeed transitions the task to Succeeded
func (t *SyncTask) Succeed() error {
	if t.Status != TaskStatusRunning {
		return ErrTaskNotRunning
	}
	now := time.Now()
	t.Status = TaskStatusSucceeded
	t.FinishedAt = &now
	t.LastError = ""
	t.UpdatedAt = now
	return nil
}

// Fail records a transient failure. The task moves to Retrying with the
// policy's backoff until attempts are exhausted, then to Failed (dead letter)
// with the input preserved.
func (t *SyncTask) Fail(errMsg string, policy TaskPolicy) error {
	if t.Status != TaskStatusRunning {
		return ErrTaskNotRunning
	}
	now := time.Now()
	t.LastError = errMsg
	t.UpdatedAt = now

	if t.Attempts >= t.MaxAttempts {
		t.Status = TaskStatusFailed
		t.FinishedAt = &now
		return nil
	}

	t.Status = TaskStatusRetrying
	nextRun := now.Add(policy.Delay(t.Attempts))
	t.NextRunAt = &nextRun
	return nil
}

// FailStructural records a structural failure (missing credentials, disabled
// sync, invalid configuration): the task goes straight to the dead letter
// without consuming retries.
func (t *SyncTask) FailStructural(errMsg string) error {
	if t.Status != TaskStatusRunning {
		return ErrTaskNotRunning
	}
	now := time.Now()
	t.Status = TaskStatusFailed
	t.LastError = errMsg
	t.FinishedAt = &now
	t.UpdatedAt = now
	return nil
}

// Reclaim restarts a Running task whose worker lease lapsed without a
// recorded outcome (worker crash, lost database connection). The lost
// attempt stays counted and the reclaim counts a fresh one, so a task that
// keeps dying mid-flight still exhausts its budget and dead-letters.
func (t *SyncTask) Reclaim() error {
	if t.Status != TaskStatusRunning {
		return ErrTaskNotRunning
	}
	now := time.Now()
	t.Attempts++
	t.StartedAt = &now
	t.NextRunAt = nil
	t.UpdatedAt = now
	return nil
}

// Defer requeues the task after delay without counting an attempt; used for
// orphan variants whose parent may simply not have been processed yet.
// Returns true while the deferral budget lasts.
func (t *SyncTask) Defer(delay time.Duration) bool {
	if t.Deferrals >= MaxOrphanDeferrals {
		return false
	}
	now := time.Now()
	t.Deferrals++
	t.Attempts-- // deferral is not a failed attempt
	if t.Attempts < 0 {
		t.Attempts = 0
	}
	t.Status = TaskStatusRetrying
	nextRun := now.Add(delay)
	t.NextRunAt = &nextRun
	t.UpdatedAt = now
	return true
}

// ResetForRetry requeues a dead-lettered task for reprocessing
func (t *SyncTask) ResetForRetry() error {
	if t.Status != TaskStatusFailed {
		return ErrTaskNotDead
	}
	t.Status = TaskStatusPending
	t.Attempts = 0
	t.Deferrals = 0
	t.LastError = ""
	t.NextRunAt = nil
	t.StartedAt = nil
	t.FinishedAt = nil
	t.UpdatedAt = time.Now()
	return nil
}

// IsDead returns true if the task is in the dead letter
func (t *SyncTask) IsDead() bool {
	return t.Status == TaskStatusFailed
}

// ---------------------------------------------------------------------------
// TaskRepository Interface
// ---------------------------------------------------------------------------

// TaskRepository defines persistence for sync tasks
type TaskRepository interface {
	// Save persists one or more tasks
	Save(ctx context.Context, tasks ...*SyncTask) error

	// Update updates an existing task
	Update(ctx context.Context, task *SyncTask) error

	// FindByID retrieves a task by id
	FindByID(ctx context.Context, id uuid.UUID) (*SyncTask, error)

	// ClaimDue atomically claims up to limit pending/retrying tasks on a lane
	// whose NextRunAt has passed, marking them Running. Running tasks whose
	// worker lease has lapsed are reclaimed the same way.
	ClaimDue(ctx context.Context, lane TaskLane, now time.Time, limit int) ([]*SyncTask, error)

	// FindDead retrieves dead-letter tasks with pagination
	FindDead(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]*SyncTask, int64, error)

	// CountByStatus returns the number of tasks per status
	CountByStatus(ctx context.Context) (map[TaskStatus]int64, error)

	// DeleteFinishedBefore removes succeeded tasks older than the cutoff
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
