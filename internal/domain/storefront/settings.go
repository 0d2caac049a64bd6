package storefront

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/storesync/backend/internal/domain/shared"
)

// TenantSettings is the per-tenant sync configuration: which fields to push,
// warehouse filters, price units and defaults applied during composition.
type TenantSettings struct {
	TenantID uuid.UUID

	// Field-level sync flags
	SyncNewProducts bool
	SyncPrice       bool
	SyncStock       bool
	SyncName        bool

	// Price handling
	ErpPriceUnit        PriceUnit
	StorefrontPriceUnit PriceUnit
	PriceIncreasePct    float64

	// WarehouseAllowList restricts stock aggregation to these warehouse
	// codes (case-insensitive); empty means all warehouses
	WarehouseAllowList []string

	// VariationAxisVocabulary lists attribute names that default to
	// variation axes on first sighting; everything else defaults to a plain
	// descriptive property until an operator promotes it
	VariationAxisVocabulary []string

	// Storefront defaults
	DefaultCategoryID   int64
	DefaultShippingTier string

	UpdatedAt time.Time
}

// DefaultTenantSettings returns settings with every sync flag enabled and
// matching price units
func DefaultTenantSettings(tenantID uuid.UUID) *TenantSettings {
	return &TenantSettings{
		TenantID:                tenantID,
		SyncNewProducts:         true,
		SyncPrice:               true,
		SyncStock:               true,
		SyncName:                true,
		ErpPriceUnit:            PriceUnitMajor,
		StorefrontPriceUnit:     PriceUnitMajor,
		VariationAxisVocabulary: []string{"size", "color", "colour"},
		UpdatedAt:               time.Now(),
	}
}

// Validate checks the settings for structural problems that must fail a task
// without retries
func (s *TenantSettings) Validate() error {
	if s.TenantID == uuid.Nil {
		return shared.ErrInvalidInput
	}
	if !s.ErpPriceUnit.IsValid() || !s.StorefrontPriceUnit.IsValid() {
		return shared.NewDomainError("INVALID_PRICE_UNIT", "Tenant price units are not configured correctly")
	}
	return nil
}

// SettingsRepository provides tenant sync configuration.
// The settings themselves are owned by an external settings collaborator;
// this port only reads them.
type SettingsRepository interface {
	// FindByTenant returns the tenant's settings, or defaults when the tenant
	// has never customized them
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*TenantSettings, error)

	// Save persists tenant settings
	Save(ctx context.Context, settings *TenantSettings) error
}
