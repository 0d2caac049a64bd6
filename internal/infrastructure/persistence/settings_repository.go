package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storesync/backend/internal/domain/storefront"
	"github.com/storesync/backend/internal/infrastructure/persistence/models"
)

// GormSettingsRepository implements storefront.SettingsRepository using GORM
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GORM-based settings repository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

// FindByTenant returns the tenant's settings. A tenant that never customized
// anything gets the defaults, so callers never see a not-found here.
func (r *GormSettingsRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*storefront.TenantSettings, error) {
	var row models.TenantSettingsModel
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return storefront.DefaultTenantSettings(tenantID), nil
		}
		return nil, fmt.Errorf("failed to find tenant settings: %w", err)
	}
	settings, err := row.ToDomain()
	if err != nil {
		return nil, fmt.Errorf("failed to decode tenant settings: %w", err)
	}
	return settings, nil
}

// Save persists tenant settings
func (r *GormSettingsRepository) Save(ctx context.Context, settings *storefront.TenantSettings) error {
	row, err := models.TenantSettingsModelFromDomain(settings)
	if err != nil {
		return fmt.Errorf("failed to encode tenant settings: %w", err)
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}},
		UpdateAll: true,
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to save tenant settings: %w", err)
	}
	return nil
}
