package pipeline

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storesync/backend/internal/domain/catalog"
)

// ChangeOp is the declared direction of a change record
type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
)

// IsValid returns true if the change op is known
func (o ChangeOp) IsValid() bool {
	return o == OpInsert || o == OpUpdate
}

// AttributePair is one name/value attribute carried on a change record
type AttributePair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ChangeRecord is the canonical internal shape of one item change. Raw
// records arrive under multiple historical field-name variants (camel-case
// and snake-case keys for the same value); Canonicalize maps them into this
// shape exactly once at intake so downstream stages never branch on
// field-name variants.
type ChangeRecord struct {
	Op              ChangeOp
	ErpItemID       string
	Barcode         string
	Name            string
	UnitPrice       decimal.Decimal
	DiscountedPrice decimal.Decimal
	DiscountPercent decimal.Decimal
	StockQty        decimal.Decimal
	WarehouseCode   string
	Department      string
	IsVariant       bool
	ParentErpItemID string
	Attributes      []AttributePair
}

// fieldAliases maps each canonical field to the raw key variants the ERP has
// used over time. First alias found wins; lookups are done in declaration
// order so the modern snake-case key takes precedence.
var fieldAliases = map[string][]string{
	"item_id":          {"item_id", "itemId", "itemID"},
	"barcode":          {"barcode", "sku"},
	"name":             {"name", "item_name", "itemName"},
	"price":            {"price", "unit_price", "unitPrice"},
	"discounted_price": {"discounted_price", "discountedPrice", "price_after_discount", "priceAfterDiscount"},
	"discount_percent": {"discount_percent", "discountPercent", "discount"},
	"stock_qty":        {"stock_qty", "stockQty", "quantity", "qty"},
	"warehouse_id":     {"warehouse_id", "warehouseId", "warehouse"},
	"department":       {"department", "department_name", "departmentName"},
	"is_variant":       {"is_variant", "isVariant"},
	"parent_item_id":   {"parent_item_id", "parentItemId", "parent_id", "parentId"},
	"attributes":       {"attributes", "attrs"},
	"change_type":      {"change_type", "changeType", "op"},
}

var attributeAliases = map[string][]string{
	"name":  {"name", "attribute_name", "attributeName"},
	"value": {"value", "attribute_value", "attributeValue"},
}

func lookupAlias(raw map[string]any, canonical string, aliases map[string][]string) (any, bool) {
	for _, key := range aliases[canonical] {
		if v, ok := raw[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

func asDecimal(v any) decimal.Decimal {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t)
	case int64:
		return decimal.NewFromInt(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case json.Number:
		if d, err := decimal.NewFromString(t.String()); err == nil {
			return d
		}
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(t)); err == nil {
			return d
		}
	}
	return decimal.Zero
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "1" || s == "yes"
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return false
	}
}

// Canonicalize applies the field-mapping table to one raw record. Missing
// fields become zero values; validation of required fields happens during
// classification, not here.
func Canonicalize(raw map[string]any) ChangeRecord {
	record := ChangeRecord{Op: OpUpdate}

	if v, ok := lookupAlias(raw, "change_type", fieldAliases); ok {
		op := ChangeOp(strings.ToLower(asString(v)))
		if op.IsValid() {
			record.Op = op
		}
	}
	if v, ok := lookupAlias(raw, "item_id", fieldAliases); ok {
		record.ErpItemID = asString(v)
	}
	if v, ok := lookupAlias(raw, "barcode", fieldAliases); ok {
		record.Barcode = asString(v)
	}
	if v, ok := lookupAlias(raw, "name", fieldAliases); ok {
		record.Name = asString(v)
	}
	if v, ok := lookupAlias(raw, "price", fieldAliases); ok {
		record.UnitPrice = asDecimal(v)
	}
	if v, ok := lookupAlias(raw, "discounted_price", fieldAliases); ok {
		record.DiscountedPrice = asDecimal(v)
	}
	if v, ok := lookupAlias(raw, "discount_percent", fieldAliases); ok {
		record.DiscountPercent = asDecimal(v)
	}
	if v, ok := lookupAlias(raw, "stock_qty", fieldAliases); ok {
		record.StockQty = asDecimal(v)
	}
	if v, ok := lookupAlias(raw, "warehouse_id", fieldAliases); ok {
		record.WarehouseCode = asString(v)
	}
	if v, ok := lookupAlias(raw, "department", fieldAliases); ok {
		record.Department = asString(v)
	}
	if v, ok := lookupAlias(raw, "is_variant", fieldAliases); ok {
		record.IsVariant = asBool(v)
	}
	if v, ok := lookupAlias(raw, "parent_item_id", fieldAliases); ok {
		record.ParentErpItemID = asString(v)
	}
	if v, ok := lookupAlias(raw, "attributes", fieldAliases); ok {
		record.Attributes = canonicalizeAttributes(v)
	}

	return record
}

func canonicalizeAttributes(v any) []AttributePair {
	entries, ok := v.([]any)
	if !ok {
		return nil
	}
	pairs := make([]AttributePair, 0, len(entries))
	for _, entry := range entries {
		raw, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		var pair AttributePair
		if nv, ok := lookupAlias(raw, "name", attributeAliases); ok {
			pair.Name = asString(nv)
		}
		if vv, ok := lookupAlias(raw, "value", attributeAliases); ok {
			pair.Value = asString(vv)
		}
		if pair.Name != "" && pair.Value != "" {
			pairs = append(pairs, pair)
		}
	}
	return pairs
}

// Role computes the sync role of the canonical record from the variant flag
// and parent id, the same rule items apply locally
func (r ChangeRecord) Role() catalog.ItemRole {
	if !r.IsVariant {
		return catalog.RoleSimple
	}
	if strings.TrimSpace(r.ParentErpItemID) == "" {
		return catalog.RoleParent
	}
	return catalog.RoleChild
}

// ClassifiedRecord is one record after classification: its canonical shape,
// computed role, resolved direction and the local row when one exists
type ClassifiedRecord struct {
	Record   ChangeRecord
	Role     catalog.ItemRole
	Op       ChangeOp
	Existing *catalog.Item
}

// ChangeSet is the classifier output: records routed by direction plus the
// side effects the commit pass must apply
type ChangeSet struct {
	TenantID uuid.UUID

	ToCreate []ClassifiedRecord
	ToUpdate []ClassifiedRecord

	// LinkResetItemIDs lists local items whose attribute links must be
	// dropped and rebuilt because their parent's attribute payload changed
	LinkResetItemIDs []uuid.UUID

	// Rejected counts records skipped for missing barcode or name
	Rejected int
	// Demoted counts declared updates demoted to create for lack of a local row
	Demoted int
}

// Size returns the number of accepted records
func (s *ChangeSet) Size() int {
	return len(s.ToCreate) + len(s.ToUpdate)
}

// Records returns all accepted records, creates first
func (s *ChangeSet) Records() []ClassifiedRecord {
	out := make([]ClassifiedRecord, 0, s.Size())
	out = append(out, s.ToCreate...)
	out = append(out, s.ToUpdate...)
	return out
}

// IntakeResult summarizes one committed intake batch
type IntakeResult struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Rejected int `json:"rejected"`
	Demoted  int `json:"demoted"`
}
