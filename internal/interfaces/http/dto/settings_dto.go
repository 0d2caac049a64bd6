package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/storesync/backend/internal/domain/storefront"
)

// SettingsResponse is the wire shape of tenant sync settings
type SettingsResponse struct {
	TenantID                string    `json:"tenant_id"`
	SyncNewProducts         bool      `json:"sync_new_products"`
	SyncPrice               bool      `json:"sync_price"`
	SyncStock               bool      `json:"sync_stock"`
	SyncName                bool      `json:"sync_name"`
	ErpPriceUnit            string    `json:"erp_price_unit"`
	StorefrontPriceUnit     string    `json:"storefront_price_unit"`
	PriceIncreasePct        float64   `json:"price_increase_pct"`
	WarehouseAllowList      []string  `json:"warehouse_allow_list"`
	VariationAxisVocabulary []string  `json:"variation_axis_vocabulary"`
	DefaultCategoryID       int64     `json:"default_category_id"`
	DefaultShippingTier     string    `json:"default_shipping_tier"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// SettingsResponseFromDomain converts tenant settings to the wire shape
func SettingsResponseFromDomain(s *storefront.TenantSettings) SettingsResponse {
	return SettingsResponse{
		TenantID:                s.TenantID.String(),
		SyncNewProducts:         s.SyncNewProducts,
		SyncPrice:               s.SyncPrice,
		SyncStock:               s.SyncStock,
		SyncName:                s.SyncName,
		ErpPriceUnit:            string(s.ErpPriceUnit),
		StorefrontPriceUnit:     string(s.StorefrontPriceUnit),
		PriceIncreasePct:        s.PriceIncreasePct,
		WarehouseAllowList:      s.WarehouseAllowList,
		VariationAxisVocabulary: s.VariationAxisVocabulary,
		DefaultCategoryID:       s.DefaultCategoryID,
		DefaultShippingTier:     s.DefaultShippingTier,
		UpdatedAt:               s.UpdatedAt,
	}
}

// UpdateSettingsRequest replaces the tenant's sync settings in full
type UpdateSettingsRequest struct {
	SyncNewProducts         bool     `json:"sync_new_products"`
	SyncPrice               bool     `json:"sync_price"`
	SyncStock               bool     `json:"sync_stock"`
	SyncName                bool     `json:"sync_name"`
	ErpPriceUnit            string   `json:"erp_price_unit" binding:"required,oneof=MAJOR MINOR"`
	StorefrontPriceUnit     string   `json:"storefront_price_unit" binding:"required,oneof=MAJOR MINOR"`
	PriceIncreasePct        float64  `json:"price_increase_pct" binding:"omitempty,min=0,max=1000"`
	WarehouseAllowList      []string `json:"warehouse_allow_list"`
	VariationAxisVocabulary []string `json:"variation_axis_vocabulary"`
	DefaultCategoryID       int64    `json:"default_category_id" binding:"omitempty,min=0"`
	DefaultShippingTier     string   `json:"default_shipping_tier" binding:"omitempty,max=100"`
}

// ToDomain builds tenant settings from the request
func (r *UpdateSettingsRequest) ToDomain(tenantID uuid.UUID) *storefront.TenantSettings {
	return &storefront.TenantSettings{
		TenantID:                tenantID,
		SyncNewProducts:         r.SyncNewProducts,
		SyncPrice:               r.SyncPrice,
		SyncStock:               r.SyncStock,
		SyncName:                r.SyncName,
		ErpPriceUnit:            storefront.PriceUnit(r.ErpPriceUnit),
		StorefrontPriceUnit:     storefront.PriceUnit(r.StorefrontPriceUnit),
		PriceIncreasePct:        r.PriceIncreasePct,
		WarehouseAllowList:      r.WarehouseAllowList,
		VariationAxisVocabulary: r.VariationAxisVocabulary,
		DefaultCategoryID:       r.DefaultCategoryID,
		DefaultShippingTier:     r.DefaultShippingTier,
		UpdatedAt:               time.Now(),
	}
}
