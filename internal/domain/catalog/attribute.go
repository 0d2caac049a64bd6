package catalog

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/storesync/backend/internal/domain/shared"
)

// Attribute validation errors
var (
	ErrAttributeInvalidTenantID = shared.NewDomainError("ATTRIBUTE_INVALID_TENANT", "Attribute requires a tenant id")
	ErrAttributeMissingName     = shared.NewDomainError("ATTRIBUTE_MISSING_NAME", "Attribute requires a name")
	ErrPropertyMissingValue     = shared.NewDomainError("PROPERTY_MISSING_VALUE", "Property requires a value")
)

// Attribute is a per-tenant attribute resolved lazily from ERP payloads.
// IsVariation marks the attribute as a storefront variation axis; a newly
// discovered attribute defaults to non-variation unless its name matches the
// tenant's variation-axis vocabulary, and an operator may reclassify later.
type Attribute struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_attributes_tenant_name,priority:1"`
	Name        string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_attributes_tenant_name,priority:2"`
	Slug        string    `gorm:"type:varchar(100);not null"`
	IsVariation bool      `gorm:"not null;default:false"`
	IsActive    bool      `gorm:"not null;default:true"`
	IsVisible   bool      `gorm:"not null;default:true"`
	SortOrder   int       `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Attribute) TableName() string {
	return "attributes"
}

// NewAttribute creates a new attribute for first sighting of a name.
// variationVocabulary lists attribute names (case-insensitive) that become
// variation axes by default, e.g. size/color equivalents.
func NewAttribute(tenantID uuid.UUID, name string, variationVocabulary []string) (*Attribute, error) {
	if tenantID == uuid.Nil {
		return nil, ErrAttributeInvalidTenantID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrAttributeMissingName
	}

	now := time.Now()
	return &Attribute{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Name:        name,
		Slug:        Slugify(name),
		IsVariation: matchesVocabulary(name, variationVocabulary),
		IsActive:    true,
		IsVisible:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// MarkVariation promotes the attribute to a variation axis
func (a *Attribute) MarkVariation() {
	a.IsVariation = true
	a.UpdatedAt = time.Now()
}

// Deactivate excludes the attribute and its values from future syncs
// without deleting history
func (a *Attribute) Deactivate() {
	a.IsActive = false
	a.UpdatedAt = time.Now()
}

// Property is one value (term) under an attribute, created lazily on first
// sighting of a previously-unseen value.
type Property struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	AttributeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_properties_attr_value,priority:1"`
	Value       string    `gorm:"type:varchar(150);not null;uniqueIndex:idx_properties_attr_value,priority:2"`
	Slug        string    `gorm:"type:varchar(150);not null"`
	IsActive    bool      `gorm:"not null;default:true"`
	IsDefault   bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Property) TableName() string {
	return "attribute_properties"
}

// NewProperty creates a new property under an attribute
func NewProperty(attributeID uuid.UUID, value string) (*Property, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrPropertyMissingValue
	}

	now := time.Now()
	return &Property{
		ID:          uuid.New(),
		AttributeID: attributeID,
		Value:       value,
		Slug:        Slugify(value),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// AttributeLink ties one item to one attribute/property pair.
// A parent item carries one link per attribute aggregating its options; a
// child carries one link per (attribute, property).
type AttributeLink struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ItemID      uuid.UUID `gorm:"type:uuid;not null;index:idx_attribute_links_item"`
	AttributeID uuid.UUID `gorm:"type:uuid;not null"`
	PropertyID  uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AttributeLink) TableName() string {
	return "attribute_links"
}

// NewAttributeLink creates a link row between an item and a resolved
// attribute/property pair
func NewAttributeLink(tenantID, itemID, attributeID, propertyID uuid.UUID) *AttributeLink {
	return &AttributeLink{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ItemID:      itemID,
		AttributeID: attributeID,
		PropertyID:  propertyID,
		CreatedAt:   time.Now(),
	}
}

// Slugify lowercases a name and replaces runs of non-alphanumeric characters
// with single dashes, matching the storefront's slug conventions.
func Slugify(name string) string {
	var builder strings.Builder
	lastDash := true // suppress leading dash
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			builder.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				builder.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(builder.String(), "-")
}

func matchesVocabulary(name string, vocabulary []string) bool {
	for _, candidate := range vocabulary {
		if strings.EqualFold(strings.TrimSpace(candidate), name) {
			return true
		}
	}
	return false
}
