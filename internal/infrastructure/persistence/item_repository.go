package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storesync/backend/internal/domain/catalog"
	"github.com/storesync/backend/internal/domain/shared"
)

// GormItemRepository implements catalog.ItemRepository using GORM
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GORM-based item repository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByID finds an item by its local id
func (r *GormItemRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Item, error) {
	var item catalog.Item
	err := dbFromContext(ctx, r.db).
		Preload("StockLevels").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find item: %w", err)
	}
	return &item, nil
}

// FindByBarcode finds an item by its barcode within a tenant
func (r *GormItemRepository) FindByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*catalog.Item, error) {
	var item catalog.Item
	err := dbFromContext(ctx, r.db).
		Preload("StockLevels").
		Where("tenant_id = ? AND barcode = ?", tenantID, barcode).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find item by barcode: %w", err)
	}
	return &item, nil
}

// FindByErpItemID finds an item by its ERP item id within a tenant
func (r *GormItemRepository) FindByErpItemID(ctx context.Context, tenantID uuid.UUID, erpItemID string) (*catalog.Item, error) {
	var item catalog.Item
	err := dbFromContext(ctx, r.db).
		Preload("StockLevels").
		Where("tenant_id = ? AND erp_item_id = ?", tenantID, erpItemID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find item by erp item id: %w", err)
	}
	return &item, nil
}

// FindByErpItemIDs finds items for a set of ERP item ids
func (r *GormItemRepository) FindByErpItemIDs(ctx context.Context, tenantID uuid.UUID, erpItemIDs []string) ([]catalog.Item, error) {
	if len(erpItemIDs) == 0 {
		return nil, nil
	}
	var items []catalog.Item
	err := dbFromContext(ctx, r.db).
		Preload("StockLevels").
		Where("tenant_id = ? AND erp_item_id IN ?", tenantID, erpItemIDs).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find items by erp item ids: %w", err)
	}
	return items, nil
}

// FindChildren finds the variant items under a parent ERP item id
func (r *GormItemRepository) FindChildren(ctx context.Context, tenantID uuid.UUID, parentErpItemID string) ([]catalog.Item, error) {
	var items []catalog.Item
	err := dbFromContext(ctx, r.db).
		Preload("StockLevels").
		Where("tenant_id = ? AND is_variant = ? AND parent_erp_item_id = ?", tenantID, true, parentErpItemID).
		Order("barcode ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find child items: %w", err)
	}
	return items, nil
}

// FindAllByTenant pages through every item of a tenant
func (r *GormItemRepository) FindAllByTenant(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]catalog.Item, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}

	query := dbFromContext(ctx, r.db).Model(&catalog.Item{}).Where("tenant_id = ?", tenantID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	var items []catalog.Item
	err := query.
		Preload("StockLevels").
		Order("barcode ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}
	return items, total, nil
}

// Save creates or updates one item together with its stock levels
func (r *GormItemRepository) Save(ctx context.Context, item *catalog.Item) error {
	return dbFromContext(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		return saveItemTx(tx, item)
	})
}

// SaveBatch persists a batch of items atomically
func (r *GormItemRepository) SaveBatch(ctx context.Context, items []*catalog.Item) error {
	if len(items) == 0 {
		return nil
	}
	return dbFromContext(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if err := saveItemTx(tx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

// saveItemTx upserts the item row and replaces its stock level rows. Stock
// quantities arrive as full snapshots, so a delete-and-insert keeps the local
// rows exactly matching the feed.
func saveItemTx(tx *gorm.DB, item *catalog.Item) error {
	levels := item.StockLevels
	item.StockLevels = nil
	defer func() { item.StockLevels = levels }()

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"barcode", "name", "unit_price", "discounted_price", "discount_percent",
			"department", "is_variant", "parent_erp_item_id", "updated_at",
		}),
	}).Create(item).Error
	if err != nil {
		return fmt.Errorf("failed to save item %s: %w", item.ErpItemID, err)
	}

	if err := tx.Where("item_id = ?", item.ID).Delete(&catalog.StockLevel{}).Error; err != nil {
		return fmt.Errorf("failed to clear stock levels: %w", err)
	}
	if len(levels) > 0 {
		for i := range levels {
			levels[i].ItemID = item.ID
		}
		if err := tx.Create(&levels).Error; err != nil {
			return fmt.Errorf("failed to save stock levels: %w", err)
		}
	}
	return nil
}
