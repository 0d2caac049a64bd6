package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/domain/catalog"
	"github.com/storesync/backend/internal/domain/shared"
)

// IntakeService validates, classifies and locally commits change batches.
// Classification is lookup-driven: the local mirror is consulted by barcode
// (stable across re-syncs), so a record's declared direction never causes a
// failure, only a demotion.
type IntakeService struct {
	itemRepo catalog.ItemRepository
	attrRepo catalog.AttributeRepository
	tx       shared.TxManager
	logger   *zap.Logger
}

// NewIntakeService creates a new IntakeService
func NewIntakeService(itemRepo catalog.ItemRepository, attrRepo catalog.AttributeRepository, tx shared.TxManager, logger *zap.Logger) *IntakeService {
	return &IntakeService{
		itemRepo: itemRepo,
		attrRepo: attrRepo,
		tx:       tx,
		logger:   logger,
	}
}

// Classify routes each record to create or update and computes its role.
// Records missing a barcode or name are rejected individually without
// failing the batch. A declared update with no local match is demoted to
// create rather than failed, healing stale routing on the ERP side.
func (s *IntakeService) Classify(ctx context.Context, tenantID uuid.UUID, records []ChangeRecord) (*ChangeSet, error) {
	set := &ChangeSet{TenantID: tenantID}

	for _, record := range records {
		if strings.TrimSpace(record.Barcode) == "" || strings.TrimSpace(record.Name) == "" {
			set.Rejected++
			s.logger.Warn("rejecting change record with missing barcode or name",
				zap.String("tenant_id", tenantID.String()),
				zap.String("erp_item_id", record.ErpItemID),
				zap.String("barcode", record.Barcode))
			continue
		}

		existing, err := s.itemRepo.FindByBarcode(ctx, tenantID, record.Barcode)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}

		classified := ClassifiedRecord{
			Record:   record,
			Role:     record.Role(),
			Existing: existing,
		}

		if existing == nil {
			classified.Op = OpInsert
			if record.Op == OpUpdate {
				set.Demoted++
				s.logger.Info("demoting declared update to create, no local match",
					zap.String("tenant_id", tenantID.String()),
					zap.String("erp_item_id", record.ErpItemID),
					zap.String("barcode", record.Barcode))
			}
			set.ToCreate = append(set.ToCreate, classified)
			continue
		}

		classified.Op = OpUpdate
		set.ToUpdate = append(set.ToUpdate, classified)

		if classified.Role == catalog.RoleParent && len(record.Attributes) > 0 {
			resetIDs, err := s.collectLinkResets(ctx, tenantID, existing, record.Attributes)
			if err != nil {
				return nil, err
			}
			set.LinkResetItemIDs = append(set.LinkResetItemIDs, resetIDs...)
		}
	}

	s.logger.Info("classified change batch",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("to_create", len(set.ToCreate)),
		zap.Int("to_update", len(set.ToUpdate)),
		zap.Int("rejected", set.Rejected),
		zap.Int("demoted", set.Demoted))

	return set, nil
}

// collectLinkResets compares a parent's incoming attribute names against its
// stored link rows. When they diverge, the parent's links and every child's
// links are scheduled for deletion so the next resolution pass rebuilds them
// instead of drifting.
func (s *IntakeService) collectLinkResets(ctx context.Context, tenantID uuid.UUID, parent *catalog.Item, pairs []AttributePair) ([]uuid.UUID, error) {
	links, err := s.attrRepo.FindLinksByItem(ctx, parent.ID)
	if err != nil {
		return nil, err
	}

	linked := make(map[uuid.UUID]bool, len(links))
	for _, link := range links {
		linked[link.AttributeID] = true
	}

	changed := false
	seen := make(map[string]bool)
	incoming := 0
	for _, pair := range pairs {
		name := strings.ToLower(strings.TrimSpace(pair.Name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		incoming++

		attr, err := s.attrRepo.FindAttributeByName(ctx, tenantID, pair.Name)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if attr == nil || !linked[attr.ID] {
			changed = true
		}
	}
	if incoming != len(linked) {
		changed = true
	}
	if !changed {
		return nil, nil
	}

	children, err := s.itemRepo.FindChildren(ctx, tenantID, parent.ErpItemID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(children)+1)
	ids = append(ids, parent.ID)
	for _, child := range children {
		ids = append(ids, child.ID)
	}

	s.logger.Info("parent attribute payload changed, resetting variant links",
		zap.String("tenant_id", tenantID.String()),
		zap.String("parent_erp_item_id", parent.ErpItemID),
		zap.Int("items", len(ids)))

	return ids, nil
}

// CommitLocal applies a classified change set to the local mirror in one
// atomic unit: link resets and item rows commit together or not at all,
// keeping the store consistent with what will subsequently be dispatched
// remotely.
func (s *IntakeService) CommitLocal(ctx context.Context, set *ChangeSet) (*IntakeResult, error) {
	items := make([]*catalog.Item, 0, set.Size())

	for _, classified := range set.ToCreate {
		item, err := newItemFromRecord(set.TenantID, classified.Record)
		if err != nil {
			// required fields were checked during classification
			return nil, err
		}
		items = append(items, item)
	}

	for _, classified := range set.ToUpdate {
		item := classified.Existing
		applyRecord(item, classified.Record)
		items = append(items, item)
	}

	err := s.tx.Do(ctx, func(ctx context.Context) error {
		if len(set.LinkResetItemIDs) > 0 {
			if err := s.attrRepo.DeleteLinksByItems(ctx, set.TenantID, set.LinkResetItemIDs); err != nil {
				return err
			}
		}
		return s.itemRepo.SaveBatch(ctx, items)
	})
	if err != nil {
		return nil, err
	}

	return &IntakeResult{
		Created:  len(set.ToCreate),
		Updated:  len(set.ToUpdate),
		Rejected: set.Rejected,
		Demoted:  set.Demoted,
	}, nil
}

func newItemFromRecord(tenantID uuid.UUID, record ChangeRecord) (*catalog.Item, error) {
	erpItemID := strings.TrimSpace(record.ErpItemID)
	if erpItemID == "" {
		// legacy feeds omit the item id; the barcode is the stable stand-in
		erpItemID = record.Barcode
	}
	item, err := catalog.NewItem(tenantID, erpItemID, record.Barcode, record.Name)
	if err != nil {
		return nil, err
	}
	applyRecord(item, record)
	return item, nil
}

func applyRecord(item *catalog.Item, record ChangeRecord) {
	item.Name = strings.TrimSpace(record.Name)
	item.Department = record.Department
	item.IsVariant = record.IsVariant
	item.ParentErpItemID = strings.TrimSpace(record.ParentErpItemID)
	item.SetPricing(record.UnitPrice, record.DiscountedPrice, record.DiscountPercent)
	if record.WarehouseCode != "" {
		item.SetStockLevel(record.WarehouseCode, record.StockQty)
	}
}
