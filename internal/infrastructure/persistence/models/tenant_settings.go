package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/storesync/backend/internal/domain/storefront"
)

// TenantSettingsModel is the persistence model for per-tenant sync settings.
// The list-valued fields are stored as JSON columns.
type TenantSettingsModel struct {
	TenantID                uuid.UUID `gorm:"type:uuid;primary_key"`
	SyncNewProducts         bool      `gorm:"not null;default:true"`
	SyncPrice               bool      `gorm:"not null;default:true"`
	SyncStock               bool      `gorm:"not null;default:true"`
	SyncName                bool      `gorm:"not null;default:true"`
	ErpPriceUnit            string    `gorm:"type:varchar(10);not null"`
	StorefrontPriceUnit     string    `gorm:"type:varchar(10);not null"`
	PriceIncreasePct        float64   `gorm:"not null;default:0"`
	WarehouseAllowList      []byte    `gorm:"type:jsonb"`
	VariationAxisVocabulary []byte    `gorm:"type:jsonb"`
	DefaultCategoryID       int64     `gorm:"not null;default:0"`
	DefaultShippingTier     string    `gorm:"type:varchar(50)"`
	UpdatedAt               time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TenantSettingsModel) TableName() string {
	return "tenant_sync_settings"
}

// ToDomain converts the model to domain settings
func (m *TenantSettingsModel) ToDomain() (*storefront.TenantSettings, error) {
	settings := &storefront.TenantSettings{
		TenantID:            m.TenantID,
		SyncNewProducts:     m.SyncNewProducts,
		SyncPrice:           m.SyncPrice,
		SyncStock:           m.SyncStock,
		SyncName:            m.SyncName,
		ErpPriceUnit:        storefront.PriceUnit(m.ErpPriceUnit),
		StorefrontPriceUnit: storefront.PriceUnit(m.StorefrontPriceUnit),
		PriceIncreasePct:    m.PriceIncreasePct,
		DefaultCategoryID:   m.DefaultCategoryID,
		DefaultShippingTier: m.DefaultShippingTier,
		UpdatedAt:           m.UpdatedAt,
	}
	if len(m.WarehouseAllowList) > 0 {
		if err := json.Unmarshal(m.WarehouseAllowList, &settings.WarehouseAllowList); err != nil {
			return nil, err
		}
	}
	if len(m.VariationAxisVocabulary) > 0 {
		if err := json.Unmarshal(m.VariationAxisVocabulary, &settings.VariationAxisVocabulary); err != nil {
			return nil, err
		}
	}
	return settings, nil
}

// TenantSettingsModelFromDomain converts domain settings to the persistence model
func TenantSettingsModelFromDomain(settings *storefront.TenantSettings) (*TenantSettingsModel, error) {
	allowList, err := json.Marshal(settings.WarehouseAllowList)
	if err != nil {
		return nil, err
	}
	vocabulary, err := json.Marshal(settings.VariationAxisVocabulary)
	if err != nil {
		return nil, err
	}
	return &TenantSettingsModel{
		TenantID:                settings.TenantID,
		SyncNewProducts:         settings.SyncNewProducts,
		SyncPrice:               settings.SyncPrice,
		SyncStock:               settings.SyncStock,
		SyncName:                settings.SyncName,
		ErpPriceUnit:            string(settings.ErpPriceUnit),
		StorefrontPriceUnit:     string(settings.StorefrontPriceUnit),
		PriceIncreasePct:        settings.PriceIncreasePct,
		WarehouseAllowList:      allowList,
		VariationAxisVocabulary: vocabulary,
		DefaultCategoryID:       settings.DefaultCategoryID,
		DefaultShippingTier:     settings.DefaultShippingTier,
		UpdatedAt:               settings.UpdatedAt,
	}, nil
}
