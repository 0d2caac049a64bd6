package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/domain/catalog"
	"github.com/storesync/backend/internal/domain/shared"
)

// ResolvedAttribute is one attribute resolved for a batch: the row itself,
// the ordered distinct values seen and the property per value
type ResolvedAttribute struct {
	Attribute *catalog.Attribute
	// Values preserves first-seen order of the distinct values
	Values []string
	// Properties maps lowercase value to its property row
	Properties map[string]*catalog.Property
}

// AttributeMap is the resolver output keyed by lowercase attribute name
type AttributeMap map[string]*ResolvedAttribute

// Lookup finds a resolved attribute by name, case-insensitive
func (m AttributeMap) Lookup(name string) (*ResolvedAttribute, bool) {
	resolved, ok := m[strings.ToLower(strings.TrimSpace(name))]
	return resolved, ok
}

// AttributeResolver resolves ERP attribute name/value pairs against the
// per-tenant taxonomy, creating rows lazily on first sighting. Lookups always
// precede creates so re-running resolution on the same inputs never produces
// duplicate attribute or property rows.
type AttributeResolver struct {
	attrRepo catalog.AttributeRepository
	logger   *zap.Logger
}

// NewAttributeResolver creates a new AttributeResolver
func NewAttributeResolver(attrRepo catalog.AttributeRepository, logger *zap.Logger) *AttributeResolver {
	return &AttributeResolver{
		attrRepo: attrRepo,
		logger:   logger,
	}
}

// Resolve processes the attribute pairs of a variant batch in three passes:
// collect distinct (name, value) pairs, resolve or create the attribute per
// name, resolve or create the property per value. Finally it writes the link
// rows tying each variant item to its resolved pairs. Attributes with
// is_active=false are skipped entirely so an operator can exclude one
// without deleting history.
func (r *AttributeResolver) Resolve(
	ctx context.Context,
	tenantID uuid.UUID,
	items []*catalog.Item,
	pairsByErpItemID map[string][]AttributePair,
	variationVocabulary []string,
) (AttributeMap, error) {
	// Pass 1: distinct (name, value) pairs across the batch, order preserved
	names := make([]string, 0)
	valuesByName := make(map[string][]string)
	seenValue := make(map[string]bool)
	for _, item := range items {
		for _, pair := range pairsByErpItemID[item.ErpItemID] {
			name := strings.TrimSpace(pair.Name)
			value := strings.TrimSpace(pair.Value)
			if name == "" || value == "" {
				continue
			}
			nameKey := strings.ToLower(name)
			if _, ok := valuesByName[nameKey]; !ok {
				names = append(names, name)
				valuesByName[nameKey] = nil
			}
			valueKey := nameKey + "\x00" + strings.ToLower(value)
			if !seenValue[valueKey] {
				seenValue[valueKey] = true
				valuesByName[nameKey] = append(valuesByName[nameKey], value)
			}
		}
	}

	// Pass 2: resolve or create each attribute
	resolved := make(AttributeMap, len(names))
	for _, name := range names {
		attr, err := r.resolveAttribute(ctx, tenantID, name, variationVocabulary)
		if err != nil {
			return nil, err
		}
		if !attr.IsActive {
			r.logger.Info("skipping inactive attribute",
				zap.String("tenant_id", tenantID.String()),
				zap.String("attribute", attr.Name))
			continue
		}
		resolved[strings.ToLower(name)] = &ResolvedAttribute{
			Attribute:  attr,
			Properties: make(map[string]*catalog.Property),
		}
	}

	// Pass 3: resolve or create each property under its attribute
	for nameKey, entry := range resolved {
		for _, value := range valuesByName[nameKey] {
			prop, err := r.resolveProperty(ctx, entry.Attribute, value)
			if err != nil {
				return nil, err
			}
			entry.Values = append(entry.Values, prop.Value)
			entry.Properties[strings.ToLower(prop.Value)] = prop
		}
	}

	// Link each variant item to its resolved pairs
	for _, item := range items {
		links := buildLinks(tenantID, item, pairsByErpItemID[item.ErpItemID], resolved)
		if links == nil {
			continue
		}
		if err := r.attrRepo.ReplaceLinks(ctx, item.ID, links); err != nil {
			return nil, err
		}
	}

	return resolved, nil
}

// resolveAttribute looks up an attribute by name before creating it. A
// case-mismatched code resolves to the existing row with a warning instead
// of creating a near-duplicate.
func (r *AttributeResolver) resolveAttribute(ctx context.Context, tenantID uuid.UUID, name string, vocabulary []string) (*catalog.Attribute, error) {
	attr, err := r.attrRepo.FindAttributeByName(ctx, tenantID, name)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if attr != nil {
		if attr.Name != name {
			r.logger.Warn("attribute name case mismatch, preferring existing row",
				zap.String("tenant_id", tenantID.String()),
				zap.String("incoming", name),
				zap.String("existing", attr.Name))
		}
		return attr, nil
	}

	attr, err = catalog.NewAttribute(tenantID, name, vocabulary)
	if err != nil {
		return nil, err
	}
	if err := r.attrRepo.SaveAttribute(ctx, attr); err != nil {
		return nil, err
	}
	r.logger.Info("created attribute on first sighting",
		zap.String("tenant_id", tenantID.String()),
		zap.String("attribute", attr.Name),
		zap.Bool("is_variation", attr.IsVariation))
	return attr, nil
}

func (r *AttributeResolver) resolveProperty(ctx context.Context, attr *catalog.Attribute, value string) (*catalog.Property, error) {
	prop, err := r.attrRepo.FindPropertyByValue(ctx, attr.ID, value)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if prop != nil {
		if prop.Value != value {
			r.logger.Warn("property value case mismatch, preferring existing row",
				zap.String("attribute", attr.Name),
				zap.String("incoming", value),
				zap.String("existing", prop.Value))
		}
		return prop, nil
	}

	prop, err = catalog.NewProperty(attr.ID, value)
	if err != nil {
		return nil, err
	}
	if err := r.attrRepo.SaveProperty(ctx, prop); err != nil {
		return nil, err
	}
	return prop, nil
}

// buildLinks produces one link row per (attribute, property) pair of the
// item. Returns nil when the item carries no resolvable pairs so callers can
// leave existing links untouched.
func buildLinks(tenantID uuid.UUID, item *catalog.Item, pairs []AttributePair, resolved AttributeMap) []*catalog.AttributeLink {
	if len(pairs) == 0 {
		return nil
	}
	links := make([]*catalog.AttributeLink, 0, len(pairs))
	for _, pair := range pairs {
		entry, ok := resolved.Lookup(pair.Name)
		if !ok {
			continue // inactive or unresolvable
		}
		prop, ok := entry.Properties[strings.ToLower(strings.TrimSpace(pair.Value))]
		if !ok {
			continue
		}
		links = append(links, catalog.NewAttributeLink(tenantID, item.ID, entry.Attribute.ID, prop.ID))
	}
	if len(links) == 0 {
		return nil
	}
	return links
}
