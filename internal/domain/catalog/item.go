package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storesync/backend/internal/domain/shared"
)

// ItemRole classifies an item into exactly one sync role.
// The classification is computed once at intake and carried through the
// pipeline so later stages dispatch on the role instead of re-deriving it.
type ItemRole string

const (
	// RoleSimple is a standalone product without variations
	RoleSimple ItemRole = "SIMPLE"
	// RoleParent is a variable product that owns variants
	RoleParent ItemRole = "PARENT"
	// RoleChild is a single variant under a parent
	RoleChild ItemRole = "CHILD"
)

// String returns the string representation of ItemRole
func (r ItemRole) String() string {
	return string(r)
}

// Item validation errors
var (
	ErrItemInvalidTenantID = shared.NewDomainError("ITEM_INVALID_TENANT", "Item requires a tenant id")
	ErrItemMissingErpID    = shared.NewDomainError("ITEM_MISSING_ERP_ID", "Item requires an ERP item id")
	ErrItemMissingBarcode  = shared.NewDomainError("ITEM_MISSING_BARCODE", "Item requires a barcode")
	ErrItemMissingName     = shared.NewDomainError("ITEM_MISSING_NAME", "Item requires a display name")
)

// Item is one ERP-side catalog record mirrored locally.
// ErpItemID is the opaque ERP identifier ("unique id" once pushed to the
// storefront); Barcode is the human-facing SKU used as the join key before
// the unique id is established remotely.
type Item struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_items_tenant_erp,priority:1;index:idx_items_tenant_barcode,priority:1"`
	ErpItemID       string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_items_tenant_erp,priority:2"`
	Barcode         string          `gorm:"type:varchar(100);not null;index:idx_items_tenant_barcode,priority:2"`
	Name            string          `gorm:"type:varchar(255);not null"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountedPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
	Department      string          `gorm:"type:varchar(100)"`
	IsVariant       bool            `gorm:"not null;default:false"`
	ParentErpItemID string          `gorm:"type:varchar(100);index"`
	StockLevels     []StockLevel    `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "items"
}

// StockLevel is the stock quantity of an item in one warehouse
type StockLevel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	ItemID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	WarehouseCode string          `gorm:"type:varchar(50);not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (StockLevel) TableName() string {
	return "item_stock_levels"
}

// NewItem creates a new local item mirror record.
// Barcode and name are the minimal required fields; records missing either
// must be rejected at intake before reaching this constructor.
func NewItem(tenantID uuid.UUID, erpItemID, barcode, name string) (*Item, error) {
	if tenantID == uuid.Nil {
		return nil, ErrItemInvalidTenantID
	}
	if strings.TrimSpace(erpItemID) == "" {
		return nil, ErrItemMissingErpID
	}
	if strings.TrimSpace(barcode) == "" {
		return nil, ErrItemMissingBarcode
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrItemMissingName
	}

	now := time.Now()
	return &Item{
		ID:              uuid.New(),
		TenantID:        tenantID,
		ErpItemID:       strings.TrimSpace(erpItemID),
		Barcode:         strings.TrimSpace(barcode),
		Name:            strings.TrimSpace(name),
		UnitPrice:       decimal.Zero,
		DiscountedPrice: decimal.Zero,
		DiscountPercent: decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Role computes the sync role of the item:
// is_variant with an empty parent id is a parent (variable) product,
// is_variant with a parent id is a child (variant),
// everything else is a simple product.
func (i *Item) Role() ItemRole {
	if !i.IsVariant {
		return RoleSimple
	}
	if strings.TrimSpace(i.ParentErpItemID) == "" {
		return RoleParent
	}
	return RoleChild
}

// SetPricing updates the pricing fields of the item
func (i *Item) SetPricing(unitPrice, discountedPrice, discountPercent decimal.Decimal) {
	i.UnitPrice = unitPrice
	i.DiscountedPrice = discountedPrice
	i.DiscountPercent = discountPercent
	i.UpdatedAt = time.Now()
}

// SetStockLevel replaces the stock quantity for one warehouse
func (i *Item) SetStockLevel(warehouseCode string, quantity decimal.Decimal) {
	code := strings.TrimSpace(warehouseCode)
	for idx := range i.StockLevels {
		if strings.EqualFold(i.StockLevels[idx].WarehouseCode, code) {
			i.StockLevels[idx].Quantity = quantity
			i.UpdatedAt = time.Now()
			return
		}
	}
	i.StockLevels = append(i.StockLevels, StockLevel{
		ID:            uuid.New(),
		ItemID:        i.ID,
		WarehouseCode: code,
		Quantity:      quantity,
	})
	i.UpdatedAt = time.Now()
}

// AvailableQuantity sums the item's stock across warehouses.
// When an allow-list is configured only warehouses on it count, matched
// case-insensitively on the warehouse code; an empty allow-list sums all
// warehouses.
func (i *Item) AvailableQuantity(warehouseAllowList []string) decimal.Decimal {
	total := decimal.Zero
	for _, level := range i.StockLevels {
		if len(warehouseAllowList) > 0 && !warehouseAllowed(level.WarehouseCode, warehouseAllowList) {
			continue
		}
		total = total.Add(level.Quantity)
	}
	return total
}

// InStock returns true if the aggregated quantity is strictly positive
func (i *Item) InStock(warehouseAllowList []string) bool {
	return i.AvailableQuantity(warehouseAllowList).IsPositive()
}

func warehouseAllowed(code string, allowList []string) bool {
	for _, allowed := range allowList {
		if strings.EqualFold(strings.TrimSpace(allowed), strings.TrimSpace(code)) {
			return true
		}
	}
	return false
}
