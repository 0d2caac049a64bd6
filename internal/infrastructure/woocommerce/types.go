package woocommerce

import (
	"strings"

	"github.com/storesync/backend/internal/domain/storefront"
)

// uniqueIDMetaKey is the product metafield carrying the ERP item id
const uniqueIDMetaKey = "erp_unique_id"

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type wireMeta struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type wireCategoryRef struct {
	ID int64 `json:"id"`
}

type wireAttribute struct {
	Name      string   `json:"name"`
	Slug      string   `json:"slug,omitempty"`
	Options   []string `json:"options,omitempty"`
	Option    string   `json:"option,omitempty"`
	Variation bool     `json:"variation"`
	Visible   bool     `json:"visible"`
	Position  int      `json:"position"`
}

// wireItemError is the per-item error object inside a batch response
type wireItemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type wireProduct struct {
	ID            int64           `json:"id,omitempty"`
	SKU           string          `json:"sku,omitempty"`
	Name          string          `json:"name,omitempty"`
	Type          string          `json:"type,omitempty"`
	ParentID      int64           `json:"parent_id,omitempty"`
	RegularPrice  string          `json:"regular_price,omitempty"`
	SalePrice     *string         `json:"sale_price,omitempty"`
	ManageStock   *bool           `json:"manage_stock,omitempty"`
	StockQuantity *int64          `json:"stock_quantity,omitempty"`
	StockStatus   string          `json:"stock_status,omitempty"`
	ShippingClass string          `json:"shipping_class,omitempty"`
	Categories    []wireCategoryRef `json:"categories,omitempty"`
	Attributes    []wireAttribute `json:"attributes,omitempty"`
	MetaData      []wireMeta      `json:"meta_data,omitempty"`
	Error         *wireItemError  `json:"error,omitempty"`
}

type wireBatchProductsRequest struct {
	Create []wireProduct `json:"create,omitempty"`
	Update []wireProduct `json:"update,omitempty"`
}

type wireBatchProductsResponse struct {
	Create []wireProduct `json:"create"`
	Update []wireProduct `json:"update"`
}

type wireAttributeDef struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
	Type string `json:"type,omitempty"`
}

type wireTerm struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type wireCategory struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Parent int64  `json:"parent"`
}

// wireError is the top-level error envelope the storefront returns on a
// failed call
type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

// isDuplicateCode reports whether a per-item error code means the entry
// already exists remotely; such outcomes are success-equivalent.
func isDuplicateCode(code string) bool {
	switch code {
	case "product_invalid_sku", "duplicate_sku", "term_exists", "duplicate_term_slug":
		return true
	default:
		return strings.Contains(code, "already_exists")
	}
}

func productToWire(p storefront.ProductPayload) wireProduct {
	w := wireProduct{
		ID:            p.StorefrontID,
		SKU:           p.SKU,
		Name:          p.Name,
		Type:          string(p.Type),
		ShippingClass: p.ShippingTier,
	}
	// A suppressed field group stays off the wire entirely so the storefront
	// keeps its current values
	if !p.OmitPrice {
		sale := p.SalePrice
		w.RegularPrice = p.RegularPrice.String()
		w.SalePrice = &sale
	}
	if !p.OmitStock {
		manage := true
		qty := p.StockQty.IntPart()
		w.ManageStock = &manage
		w.StockQuantity = &qty
		w.StockStatus = string(p.StockStatus)
	}
	for _, id := range p.CategoryIDs {
		w.Categories = append(w.Categories, wireCategoryRef{ID: id})
	}
	for _, attr := range p.Attributes {
		w.Attributes = append(w.Attributes, wireAttribute{
			Name:      attr.Name,
			Slug:      attr.Slug,
			Options:   attr.Options,
			Variation: attr.IsVariation,
			Visible:   attr.Visible,
			Position:  attr.Position,
		})
	}
	if p.UniqueID != "" {
		w.MetaData = []wireMeta{{Key: uniqueIDMetaKey, Value: p.UniqueID}}
	}
	return w
}

func variationToWire(v storefront.VariationPayload) wireProduct {
	w := wireProduct{
		ID:  v.StorefrontID,
		SKU: v.SKU,
	}
	if !v.OmitPrice {
		sale := v.SalePrice
		w.RegularPrice = v.RegularPrice.String()
		w.SalePrice = &sale
	}
	if !v.OmitStock {
		manage := true
		qty := v.StockQty.IntPart()
		w.ManageStock = &manage
		w.StockQuantity = &qty
		w.StockStatus = string(v.StockStatus)
	}
	for _, attr := range v.Attributes {
		w.Attributes = append(w.Attributes, wireAttribute{
			Name:   attr.Name,
			Slug:   attr.Slug,
			Option: attr.Option,
		})
	}
	if v.UniqueID != "" {
		w.MetaData = []wireMeta{{Key: uniqueIDMetaKey, Value: v.UniqueID}}
	}
	return w
}

func wireToRemoteEntry(w wireProduct) storefront.RemoteEntry {
	entry := storefront.RemoteEntry{
		StorefrontID: w.ID,
		SKU:          w.SKU,
		ParentID:     w.ParentID,
		Type:         storefront.RemoteType(w.Type),
	}
	if w.Type == string(storefront.RemoteTypeVariation) {
		id := w.ID
		entry.VariationID = &id
	}
	for _, meta := range w.MetaData {
		if meta.Key == uniqueIDMetaKey {
			entry.UniqueID = meta.Value
			break
		}
	}
	return entry
}
