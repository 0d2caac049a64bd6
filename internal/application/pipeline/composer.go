package pipeline

import (
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/domain/catalog"
	"github.com/storesync/backend/internal/domain/storefront"
)

// ComposeInput carries the batch-scoped context composition reads from:
// tenant settings, the resolved attribute map, the raw attribute pairs per
// item, the remote existence map and the remote category index.
type ComposeInput struct {
	Settings *storefront.TenantSettings
	Resolved AttributeMap
	// Pairs holds the attribute pairs per ERP item id
	Pairs map[string][]AttributePair
	// Existing maps unique id -> remote entry, the idempotence source of truth
	Existing map[string]storefront.RemoteEntry
	// Categories maps lowercase remote category name -> storefront id
	Categories map[string]int64
}

// ComposedBatch is the composer output for one parent and its children.
// ParentCreate is nil when the parent already exists remotely; in that case
// ParentStorefrontID carries the confirmed remote id and only the missing
// children are present in VariationCreates.
type ComposedBatch struct {
	ParentCreate       *storefront.ProductPayload
	ParentStorefrontID int64
	VariationCreates   []storefront.VariationPayload
	SkippedExisting    int
}

// IsEmpty reports whether the batch requires no remote calls
func (b *ComposedBatch) IsEmpty() bool {
	return b.ParentCreate == nil && len(b.VariationCreates) == 0
}

// VariantComposer assembles create/update payloads per item role. It is a
// pure computation over already-loaded state; remote existence is consulted
// through the input map, never fetched here.
type VariantComposer struct {
	calc   *storefront.PriceCalculator
	logger *zap.Logger
}

// NewVariantComposer creates a new VariantComposer
func NewVariantComposer(calc *storefront.PriceCalculator, logger *zap.Logger) *VariantComposer {
	return &VariantComposer{
		calc:   calc,
		logger: logger,
	}
}

// ---------------------------------------------------------------------------
// Simple products
// ---------------------------------------------------------------------------

// ComposeSimple builds the payload for a simple product. When the item
// already exists remotely the payload carries the remote id and becomes an
// update; composing the same item twice therefore never double-creates.
// Updates honor the tenant's field-level sync flags: a disabled field is
// dropped from the payload so the storefront value stays untouched. Creates
// always carry the full shape.
func (c *VariantComposer) ComposeSimple(item *catalog.Item, in ComposeInput) (*storefront.ProductPayload, error) {
	payload, err := c.baseProductPayload(item, storefront.RemoteTypeSimple, in)
	if err != nil {
		return nil, err
	}
	if entry, ok := in.Existing[item.ErpItemID]; ok {
		payload.StorefrontID = entry.StorefrontID
		if !in.Settings.SyncName {
			payload.Name = ""
		}
		payload.OmitPrice = !in.Settings.SyncPrice
		payload.OmitStock = !in.Settings.SyncStock
	}
	return payload, nil
}

// ---------------------------------------------------------------------------
// Variable products
// ---------------------------------------------------------------------------

// ComposeVariable builds the batch for one parent and its children. If the
// parent exists remotely only the missing children are composed; an existing
// parent or child is never recomposed or resent. If the parent is absent the
// full set is composed and the dispatcher must confirm the parent create
// before sending children.
func (c *VariantComposer) ComposeVariable(parent *catalog.Item, children []*catalog.Item, in ComposeInput) (*ComposedBatch, error) {
	batch := &ComposedBatch{}

	parentEntry, parentExists := in.Existing[parent.ErpItemID]
	if parentExists && !parentEntry.IsVariation() {
		batch.ParentStorefrontID = parentEntry.StorefrontID
		batch.SkippedExisting++
	} else {
		payload, err := c.baseProductPayload(parent, storefront.RemoteTypeVariable, in)
		if err != nil {
			return nil, err
		}
		payload.Attributes = c.parentAttributes(in.Resolved)
		batch.ParentCreate = payload
	}

	for _, child := range children {
		if entry, ok := in.Existing[child.ErpItemID]; ok && entry.IsVariation() {
			batch.SkippedExisting++
			continue
		}
		payload, err := c.composeVariation(child, in)
		if err != nil {
			return nil, err
		}
		batch.VariationCreates = append(batch.VariationCreates, *payload)
	}

	c.logger.Info("composed variable product batch",
		zap.String("tenant_id", parent.TenantID.String()),
		zap.String("parent_erp_item_id", parent.ErpItemID),
		zap.Bool("parent_exists_remotely", batch.ParentCreate == nil),
		zap.Int("variations_to_create", len(batch.VariationCreates)),
		zap.Int("skipped_existing", batch.SkippedExisting))

	return batch, nil
}

func (c *VariantComposer) composeVariation(child *catalog.Item, in ComposeInput) (*storefront.VariationPayload, error) {
	regular, sale, err := c.composePrices(child, in.Settings)
	if err != nil {
		return nil, err
	}

	qty := child.AvailableQuantity(in.Settings.WarehouseAllowList)
	payload := &storefront.VariationPayload{
		UniqueID:     child.ErpItemID,
		SKU:          child.Barcode,
		RegularPrice: regular,
		SalePrice:    sale,
		StockQty:     qty,
		StockStatus:  storefront.StockStatusFor(qty),
	}
	if entry, ok := in.Existing[child.ErpItemID]; ok && entry.IsVariation() {
		payload.StorefrontID = entry.StorefrontID
		payload.ParentID = entry.ParentID
		payload.OmitPrice = !in.Settings.SyncPrice
		payload.OmitStock = !in.Settings.SyncStock
	}

	// Only variation axes appear on the child; descriptive attributes stay
	// on the parent
	for _, pair := range in.Pairs[child.ErpItemID] {
		entry, ok := in.Resolved.Lookup(pair.Name)
		if !ok || !entry.Attribute.IsVariation {
			continue
		}
		prop, ok := entry.Properties[strings.ToLower(strings.TrimSpace(pair.Value))]
		if !ok {
			continue
		}
		payload.Attributes = append(payload.Attributes, storefront.VariationAttribute{
			Name:   entry.Attribute.Name,
			Slug:   entry.Attribute.Slug,
			Option: prop.Value,
		})
	}

	return payload, nil
}

// parentAttributes aggregates the resolved attributes onto the parent:
// variation axes carry their full option list, descriptive attributes ride
// along when visible.
func (c *VariantComposer) parentAttributes(resolved AttributeMap) []storefront.PayloadAttribute {
	attrs := make([]storefront.PayloadAttribute, 0, len(resolved))
	for _, entry := range resolved {
		if !entry.Attribute.IsVariation && !entry.Attribute.IsVisible {
			continue
		}
		attrs = append(attrs, storefront.PayloadAttribute{
			Name:        entry.Attribute.Name,
			Slug:        entry.Attribute.Slug,
			Options:     entry.Values,
			IsVariation: entry.Attribute.IsVariation,
			Visible:     entry.Attribute.IsVisible,
			Position:    entry.Attribute.SortOrder,
		})
	}
	return attrs
}

// ---------------------------------------------------------------------------
// Shared payload assembly
// ---------------------------------------------------------------------------

func (c *VariantComposer) baseProductPayload(item *catalog.Item, remoteType storefront.RemoteType, in ComposeInput) (*storefront.ProductPayload, error) {
	regular, sale, err := c.composePrices(item, in.Settings)
	if err != nil {
		return nil, err
	}

	qty := item.AvailableQuantity(in.Settings.WarehouseAllowList)
	payload := &storefront.ProductPayload{
		UniqueID:     item.ErpItemID,
		SKU:          item.Barcode,
		Name:         item.Name,
		Type:         remoteType,
		RegularPrice: regular,
		SalePrice:    sale,
		StockQty:     qty,
		StockStatus:  storefront.StockStatusFor(qty),
		ShippingTier: in.Settings.DefaultShippingTier,
	}

	if id, ok := in.Categories[strings.ToLower(strings.TrimSpace(item.Department))]; ok {
		payload.CategoryIDs = []int64{id}
	} else if in.Settings.DefaultCategoryID > 0 {
		payload.CategoryIDs = []int64{in.Settings.DefaultCategoryID}
	}

	return payload, nil
}

// composePrices derives the regular and sale price in the storefront's unit.
// The tenant's increase percentage applies to both so a discount keeps its
// relative depth. An empty sale string clears a stale discount on update.
func (c *VariantComposer) composePrices(item *catalog.Item, settings *storefront.TenantSettings) (decimal.Decimal, string, error) {
	regular := c.calc.FinalPrice(item.UnitPrice, decimal.Zero, decimal.NewFromFloat(settings.PriceIncreasePct))
	regular, err := c.calc.ConvertUnit(regular, settings.ErpPriceUnit, settings.StorefrontPriceUnit)
	if err != nil {
		return decimal.Zero, "", err
	}

	sale, ok := c.calc.SalePrice(item.UnitPrice, item.DiscountedPrice, item.DiscountPercent)
	if !ok {
		return regular, "", nil
	}

	sale = c.calc.FinalPrice(sale, decimal.Zero, decimal.NewFromFloat(settings.PriceIncreasePct))
	sale, err = c.calc.ConvertUnit(sale, settings.ErpPriceUnit, settings.StorefrontPriceUnit)
	if err != nil {
		return decimal.Zero, "", err
	}
	return regular, sale.StringFixed(2), nil
}
