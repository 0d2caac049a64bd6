package dto

import (
	"encoding/json"
	"time"

	"github.com/storesync/backend/internal/domain/storefront"
)

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// SubmitBatchRequest carries one raw change batch from the ERP. Records keep
// their raw field names; canonicalization happens inside the pipeline.
type SubmitBatchRequest struct {
	// BatchKey deduplicates redelivered batches; optional
	BatchKey string           `json:"batch_key"`
	Records  []map[string]any `json:"records" binding:"required,min=1,max=1000"`
}

// ReconcileStatusRequest asks for the remote state of a set of ERP item ids
type ReconcileStatusRequest struct {
	ErpItemIDs []string `json:"erp_item_ids" binding:"required,min=1,max=200"`
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

// ResyncResponse reports how many tasks a full resync enqueued
type ResyncResponse struct {
	TasksEnqueued int `json:"tasks_enqueued"`
}

// SyncTaskResponse is the wire shape of one sync task
type SyncTaskResponse struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	Lane        string          `json:"lane"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Deferrals   int             `json:"deferrals"`
	LastError   string          `json:"last_error,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	NextRunAt   *time.Time      `json:"next_run_at,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SyncTaskResponseFromDomain converts a sync task to its wire shape
func SyncTaskResponseFromDomain(task *storefront.SyncTask) SyncTaskResponse {
	return SyncTaskResponse{
		ID:          task.ID.String(),
		TenantID:    task.TenantID.String(),
		Lane:        string(task.Lane),
		Status:      string(task.Status),
		Attempts:    task.Attempts,
		MaxAttempts: task.MaxAttempts,
		Deferrals:   task.Deferrals,
		LastError:   task.LastError,
		Payload:     json.RawMessage(task.Payload),
		NextRunAt:   task.NextRunAt,
		StartedAt:   task.StartedAt,
		FinishedAt:  task.FinishedAt,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// SyncTaskListResponse converts a page of sync tasks
func SyncTaskListResponse(tasks []*storefront.SyncTask) []SyncTaskResponse {
	out := make([]SyncTaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, SyncTaskResponseFromDomain(task))
	}
	return out
}

// RemoteEntryResponse is the remote state of one ERP item
type RemoteEntryResponse struct {
	UniqueID     string `json:"unique_id"`
	SKU          string `json:"sku"`
	StorefrontID int64  `json:"storefront_id"`
	ParentID     int64  `json:"parent_id,omitempty"`
	Type         string `json:"type"`
	IsVariation  bool   `json:"is_variation"`
}

// ReconcileStatusResponse reports the remote state per requested item: items
// absent remotely carry a null entry
type ReconcileStatusResponse struct {
	Items map[string]*RemoteEntryResponse `json:"items"`
}

// ReconcileStatusResponseFromDomain builds the reconciliation report over the
// full requested id set
func ReconcileStatusResponseFromDomain(erpItemIDs []string, existing map[string]storefront.RemoteEntry) ReconcileStatusResponse {
	items := make(map[string]*RemoteEntryResponse, len(erpItemIDs))
	for _, id := range erpItemIDs {
		entry, ok := existing[id]
		if !ok {
			items[id] = nil
			continue
		}
		items[id] = &RemoteEntryResponse{
			UniqueID:     entry.UniqueID,
			SKU:          entry.SKU,
			StorefrontID: entry.StorefrontID,
			ParentID:     entry.ParentID,
			Type:         string(entry.Type),
			IsVariation:  entry.IsVariation(),
		}
	}
	return ReconcileStatusResponse{Items: items}
}

// QueueStatsResponse reports task counts by status
type QueueStatsResponse struct {
	Counts map[string]int64 `json:"counts"`
}

// QueueStatsResponseFromDomain converts the per-status count map
func QueueStatsResponseFromDomain(counts map[storefront.TaskStatus]int64) QueueStatsResponse {
	out := make(map[string]int64, len(counts))
	for status, count := range counts {
		out[string(status)] = count
	}
	return QueueStatsResponse{Counts: out}
}
