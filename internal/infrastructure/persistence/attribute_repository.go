package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storesync/backend/internal/domain/catalog"
	"github.com/storesync/backend/internal/domain/shared"
)

// GormAttributeRepository implements catalog.AttributeRepository using GORM
type GormAttributeRepository struct {
	db *gorm.DB
}

// NewGormAttributeRepository creates a new GORM-based attribute repository
func NewGormAttributeRepository(db *gorm.DB) *GormAttributeRepository {
	return &GormAttributeRepository{db: db}
}

// ---------------------------------------------------------------------------
// Attributes
// ---------------------------------------------------------------------------

// FindAttributeByName finds an attribute by (tenant, name), case-insensitive
func (r *GormAttributeRepository) FindAttributeByName(ctx context.Context, tenantID uuid.UUID, name string) (*catalog.Attribute, error) {
	var attribute catalog.Attribute
	err := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND LOWER(name) = LOWER(?)", tenantID, name).
		First(&attribute).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find attribute: %w", err)
	}
	return &attribute, nil
}

// FindAttributesByTenant lists all attributes of a tenant
func (r *GormAttributeRepository) FindAttributesByTenant(ctx context.Context, tenantID uuid.UUID) ([]catalog.Attribute, error) {
	var attributes []catalog.Attribute
	err := dbFromContext(ctx, r.db).
		Where("tenant_id = ?", tenantID).
		Order("sort_order ASC, name ASC").
		Find(&attributes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attributes: %w", err)
	}
	return attributes, nil
}

// SaveAttribute creates or updates an attribute
func (r *GormAttributeRepository) SaveAttribute(ctx context.Context, attribute *catalog.Attribute) error {
	if err := dbFromContext(ctx, r.db).Save(attribute).Error; err != nil {
		return fmt.Errorf("failed to save attribute: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Properties
// ---------------------------------------------------------------------------

// FindPropertyByValue finds a property by (attribute, value), case-insensitive
func (r *GormAttributeRepository) FindPropertyByValue(ctx context.Context, attributeID uuid.UUID, value string) (*catalog.Property, error) {
	var property catalog.Property
	err := dbFromContext(ctx, r.db).
		Where("attribute_id = ? AND LOWER(value) = LOWER(?)", attributeID, value).
		First(&property).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find property: %w", err)
	}
	return &property, nil
}

// FindPropertiesByAttribute lists the properties under an attribute
func (r *GormAttributeRepository) FindPropertiesByAttribute(ctx context.Context, attributeID uuid.UUID) ([]catalog.Property, error) {
	var properties []catalog.Property
	err := dbFromContext(ctx, r.db).
		Where("attribute_id = ?", attributeID).
		Order("value ASC").
		Find(&properties).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return properties, nil
}

// SaveProperty creates or updates a property
func (r *GormAttributeRepository) SaveProperty(ctx context.Context, property *catalog.Property) error {
	if err := dbFromContext(ctx, r.db).Save(property).Error; err != nil {
		return fmt.Errorf("failed to save property: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Links
// ---------------------------------------------------------------------------

// ReplaceLinks atomically replaces the link rows of an item
func (r *GormAttributeRepository) ReplaceLinks(ctx context.Context, itemID uuid.UUID, links []*catalog.AttributeLink) error {
	return dbFromContext(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", itemID).Delete(&catalog.AttributeLink{}).Error; err != nil {
			return fmt.Errorf("failed to clear attribute links: %w", err)
		}
		if len(links) == 0 {
			return nil
		}
		if err := tx.Create(&links).Error; err != nil {
			return fmt.Errorf("failed to create attribute links: %w", err)
		}
		return nil
	})
}

// FindLinksByItem lists the link rows of an item
func (r *GormAttributeRepository) FindLinksByItem(ctx context.Context, itemID uuid.UUID) ([]catalog.AttributeLink, error) {
	var links []catalog.AttributeLink
	err := dbFromContext(ctx, r.db).
		Where("item_id = ?", itemID).
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attribute links: %w", err)
	}
	return links, nil
}

// DeleteLinksByItems removes the link rows of the given items
func (r *GormAttributeRepository) DeleteLinksByItems(ctx context.Context, tenantID uuid.UUID, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	err := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND item_id IN ?", tenantID, itemIDs).
		Delete(&catalog.AttributeLink{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete attribute links: %w", err)
	}
	return nil
}
