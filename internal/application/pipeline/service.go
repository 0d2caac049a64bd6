package pipeline

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/domain/catalog"
	"github.com/storesync/backend/internal/domain/shared"
	"github.com/storesync/backend/internal/domain/storefront"
)

// resyncPageSize bounds how many items one resync pass loads at a time
const resyncPageSize = 500

// SyncService is the pipeline facade: one call takes a raw change batch
// through canonicalization, classification, local commit and task fan-out.
// Both the HTTP surface and the stream consumer go through it.
type SyncService struct {
	intake       *IntakeService
	orchestrator *Orchestrator
	itemRepo     catalog.ItemRepository
	idempotency  shared.IdempotencyStore
	logger       *zap.Logger
}

// NewSyncService creates a new SyncService
func NewSyncService(
	intake *IntakeService,
	orchestrator *Orchestrator,
	itemRepo catalog.ItemRepository,
	idempotency shared.IdempotencyStore,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		intake:       intake,
		orchestrator: orchestrator,
		itemRepo:     itemRepo,
		idempotency:  idempotency,
		logger:       logger,
	}
}

// SubmitRaw canonicalizes raw records through the field-mapping table and
// submits them as a change batch
func (s *SyncService) SubmitRaw(ctx context.Context, tenantID uuid.UUID, rawRecords []map[string]any) (*IntakeResult, error) {
	records := make([]ChangeRecord, 0, len(rawRecords))
	for _, raw := range rawRecords {
		records = append(records, Canonicalize(raw))
	}
	return s.Submit(ctx, tenantID, records)
}

// Submit classifies a change batch, commits it to the local mirror in one
// atomic unit and fans lane tasks out for asynchronous dispatch
func (s *SyncService) Submit(ctx context.Context, tenantID uuid.UUID, records []ChangeRecord) (*IntakeResult, error) {
	set, err := s.intake.Classify(ctx, tenantID, records)
	if err != nil {
		return nil, err
	}

	result, err := s.intake.CommitLocal(ctx, set)
	if err != nil {
		return nil, err
	}

	if _, err := s.orchestrator.EnqueueFromChangeSet(ctx, set); err != nil {
		return nil, err
	}
	return result, nil
}

// SubmitOnce submits a batch at most once per batch key. Redelivered batches
// (stream consumer restarts, ERP retries) are dropped after the first
// successful processing within the configured window.
func (s *SyncService) SubmitOnce(ctx context.Context, tenantID uuid.UUID, batchKey string, records []ChangeRecord, cfg shared.IdempotencyConfig) (*IntakeResult, bool, error) {
	if batchKey != "" && s.idempotency != nil {
		first, err := s.idempotency.MarkProcessed(ctx, batchKey, cfg.TTL)
		if err != nil {
			return nil, false, err
		}
		if !first {
			s.logger.Info("dropping already-processed change batch",
				zap.String("tenant_id", tenantID.String()),
				zap.String("batch_key", batchKey))
			return nil, true, nil
		}
	}
	result, err := s.Submit(ctx, tenantID, records)
	return result, false, err
}

// Resync walks the tenant's whole local mirror and enqueues every item for
// dispatch again. Remote existence checks keep the pass idempotent: items
// already applied remotely resolve to updates or no-ops, never duplicates.
func (s *SyncService) Resync(ctx context.Context, tenantID uuid.UUID) (int, error) {
	enqueued := 0
	for page := 1; ; page++ {
		items, total, err := s.itemRepo.FindAllByTenant(ctx, tenantID, page, resyncPageSize)
		if err != nil {
			return enqueued, err
		}
		if len(items) == 0 {
			break
		}

		set := &ChangeSet{TenantID: tenantID}
		for i := range items {
			item := &items[i]
			record := ChangeRecord{
				Op:              OpUpdate,
				ErpItemID:       item.ErpItemID,
				Barcode:         item.Barcode,
				Name:            item.Name,
				IsVariant:       item.IsVariant,
				ParentErpItemID: item.ParentErpItemID,
			}
			set.ToUpdate = append(set.ToUpdate, ClassifiedRecord{
				Record:   record,
				Role:     item.Role(),
				Op:       OpUpdate,
				Existing: item,
			})
		}

		tasks, err := s.orchestrator.EnqueueFromChangeSet(ctx, set)
		if err != nil {
			return enqueued, err
		}
		enqueued += len(tasks)

		if int64(page*resyncPageSize) >= total {
			break
		}
	}

	s.logger.Info("full resync enqueued",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("tasks", enqueued))
	return enqueued, nil
}

// ReconcileStatus reports the remote state for a set of ERP item ids; used
// by the reconciliation read-through endpoint
func (s *SyncService) ReconcileStatus(ctx context.Context, tenantID uuid.UUID, erpItemIDs []string) (map[string]storefront.RemoteEntry, error) {
	items, err := s.orchestrator.loadItems(ctx, tenantID, erpItemIDs)
	if err != nil {
		return nil, err
	}
	return s.orchestrator.remoteExistence(ctx, tenantID, items)
}
