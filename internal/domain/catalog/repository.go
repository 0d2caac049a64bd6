package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ItemRepository defines the keyed record store of local ERP item mirrors.
// Barcode lookups drive intake classification (barcodes are stable across
// re-syncs); ERP item id lookups drive parent/child resolution.
type ItemRepository interface {
	// FindByID finds an item by its local id
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Item, error)

	// FindByBarcode finds an item by its barcode within a tenant
	FindByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*Item, error)

	// FindByErpItemID finds an item by its ERP item id within a tenant
	FindByErpItemID(ctx context.Context, tenantID uuid.UUID, erpItemID string) (*Item, error)

	// FindByErpItemIDs finds items for a set of ERP item ids
	FindByErpItemIDs(ctx context.Context, tenantID uuid.UUID, erpItemIDs []string) ([]Item, error)

	// FindChildren finds the variant items under a parent ERP item id
	FindChildren(ctx context.Context, tenantID uuid.UUID, parentErpItemID string) ([]Item, error)

	// FindAllByTenant pages through every item of a tenant; used by full
	// resyncs
	FindAllByTenant(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]Item, int64, error)

	// Save creates or updates one item together with its stock levels
	Save(ctx context.Context, item *Item) error

	// SaveBatch persists a batch of items atomically: either every item row
	// commits or none do, keeping the local mirror consistent with what will
	// subsequently be dispatched remotely.
	SaveBatch(ctx context.Context, items []*Item) error
}

// AttributeRepository defines persistence for the per-tenant attribute
// taxonomy: attributes, their properties and the item link rows.
type AttributeRepository interface {
	// FindAttributeByName finds an attribute by (tenant, name); lookup is
	// case-insensitive so near-duplicate codes resolve to the existing row
	FindAttributeByName(ctx context.Context, tenantID uuid.UUID, name string) (*Attribute, error)

	// FindAttributesByTenant lists all attributes of a tenant
	FindAttributesByTenant(ctx context.Context, tenantID uuid.UUID) ([]Attribute, error)

	// SaveAttribute creates or updates an attribute
	SaveAttribute(ctx context.Context, attribute *Attribute) error

	// FindPropertyByValue finds a property by (attribute, value),
	// case-insensitive
	FindPropertyByValue(ctx context.Context, attributeID uuid.UUID, value string) (*Property, error)

	// FindPropertiesByAttribute lists the properties under an attribute
	FindPropertiesByAttribute(ctx context.Context, attributeID uuid.UUID) ([]Property, error)

	// SaveProperty creates or updates a property
	SaveProperty(ctx context.Context, property *Property) error

	// ReplaceLinks atomically replaces the link rows of an item
	ReplaceLinks(ctx context.Context, itemID uuid.UUID, links []*AttributeLink) error

	// FindLinksByItem lists the link rows of an item
	FindLinksByItem(ctx context.Context, itemID uuid.UUID) ([]AttributeLink, error)

	// DeleteLinksByItems removes the link rows of the given items; used when a
	// parent's attribute payload changed and its variant links must be rebuilt
	DeleteLinksByItems(ctx context.Context, tenantID uuid.UUID, itemIDs []uuid.UUID) error
}
