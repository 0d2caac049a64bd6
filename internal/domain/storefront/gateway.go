package storefront

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Gateway Errors
// ---------------------------------------------------------------------------

var (
	// Transport / platform errors
	ErrGatewayNotConfigured   = errors.New("storefront: gateway not configured for tenant")
	ErrGatewayUnavailable     = errors.New("storefront: gateway temporarily unavailable")
	ErrGatewayRequestFailed   = errors.New("storefront: gateway request failed")
	ErrGatewayInvalidResponse = errors.New("storefront: invalid gateway response")
	ErrGatewayAuthFailed      = errors.New("storefront: gateway authentication failed")
	ErrGatewayRateLimited     = errors.New("storefront: gateway rate limited")

	// Per-item errors
	ErrRemoteDuplicate = errors.New("storefront: remote entry already exists")
	ErrRemoteNotFound  = errors.New("storefront: remote entry not found")

	// Composition errors
	ErrParentNotCreated = errors.New("storefront: parent product was not created")
	ErrOrphanVariant    = errors.New("storefront: variant references an unknown parent")
)

// IsTransient reports whether an error should be retried under the backoff
// policy. Structural failures (missing credentials, disabled sync, invalid
// configuration) are final and go straight to the dead letter.
func IsTransient(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable) ||
		errors.Is(err, ErrGatewayRequestFailed) ||
		errors.Is(err, ErrGatewayInvalidResponse) ||
		errors.Is(err, ErrGatewayRateLimited) ||
		errors.Is(err, context.DeadlineExceeded)
}

// ---------------------------------------------------------------------------
// Remote catalog reads
// ---------------------------------------------------------------------------

// RemoteType is the storefront-side product type
type RemoteType string

const (
	RemoteTypeSimple    RemoteType = "simple"
	RemoteTypeVariable  RemoteType = "variable"
	RemoteTypeVariation RemoteType = "variation"
)

// RemoteEntry is one storefront-side catalog record used for reconciliation.
// Before the UniqueID metafield is populated the join key is the SKU; once
// populated the UniqueID is authoritative and preferred for matching.
type RemoteEntry struct {
	// StorefrontID is the numeric id assigned by the storefront
	StorefrontID int64
	// UniqueID mirrors the ERP item id once established
	UniqueID string
	// SKU is the barcode-level join key
	SKU string
	// ParentID is the storefront id of the parent product for variations
	ParentID int64
	// VariationID is non-nil when the entry is a variation of a parent
	VariationID *int64
	// Type is the storefront product type
	Type RemoteType
}

// IsVariation reports whether this remote entry is a child variation
func (e RemoteEntry) IsVariation() bool {
	return e.VariationID != nil
}

// RemoteAttribute is a storefront-side attribute with its terms, fetched to
// avoid duplicate remote creation
type RemoteAttribute struct {
	ID    int64
	Name  string
	Slug  string
	Terms []RemoteTerm
}

// RemoteTerm is one value under a storefront attribute
type RemoteTerm struct {
	ID   int64
	Name string
	Slug string
}

// RemoteCategory is a storefront category, used for department mapping
type RemoteCategory struct {
	ID     int64
	Name   string
	Slug   string
	Parent int64
}

// ---------------------------------------------------------------------------
// Composed payloads
// ---------------------------------------------------------------------------

// StockStatus is the storefront stock status derived from aggregated quantity
type StockStatus string

const (
	StockStatusInStock    StockStatus = "instock"
	StockStatusOutOfStock StockStatus = "outofstock"
)

// StockStatusFor derives the stock status from an aggregated quantity
func StockStatusFor(quantity decimal.Decimal) StockStatus {
	if quantity.IsPositive() {
		return StockStatusInStock
	}
	return StockStatusOutOfStock
}

// PayloadAttribute is one attribute on a parent or simple product payload.
// Variation axes carry IsVariation=true; descriptive attributes are attached
// to the parent only and never repeated per child.
type PayloadAttribute struct {
	Name        string
	Slug        string
	Options     []string
	IsVariation bool
	Visible     bool
	Position    int
}

// VariationAttribute is the single value a child carries for one variation axis
type VariationAttribute struct {
	Name   string
	Slug   string
	Option string
}

// ProductPayload is the composed create/update shape for a simple or parent
// product. SalePrice is sent verbatim; an empty SalePrice on update clears a
// stale discount on the storefront.
type ProductPayload struct {
	// UniqueID is the ERP item id pushed into the storefront metafield
	UniqueID string
	// StorefrontID is non-zero for updates of an existing remote entry
	StorefrontID int64
	SKU          string
	Name         string
	Type         RemoteType
	RegularPrice decimal.Decimal
	SalePrice    string
	StockQty     decimal.Decimal
	StockStatus  StockStatus
	CategoryIDs  []int64
	ShippingTier string
	Attributes   []PayloadAttribute
	// OmitPrice suppresses the price fields on the wire; set on updates when
	// the tenant has disabled price sync
	OmitPrice bool
	// OmitStock suppresses the stock fields on the wire; set on updates when
	// the tenant has disabled stock sync
	OmitStock bool
}

// VariationPayload is the composed create/update shape for one child variant,
// scoped under its parent's storefront id.
type VariationPayload struct {
	UniqueID     string
	StorefrontID int64
	ParentID     int64
	SKU          string
	RegularPrice decimal.Decimal
	SalePrice    string
	StockQty     decimal.Decimal
	StockStatus  StockStatus
	Attributes   []VariationAttribute
	// OmitPrice and OmitStock mirror the product payload flags for updates
	OmitPrice bool
	OmitStock bool
}

// ---------------------------------------------------------------------------
// Batch outcomes
// ---------------------------------------------------------------------------

// ItemOutcome is the per-item result of one batch dispatch
type ItemOutcome struct {
	// UniqueID identifies the item within the batch
	UniqueID string
	// StorefrontID is the id assigned (or confirmed) by the storefront
	StorefrontID int64
	// Duplicate is true when the storefront reported the entry as already
	// existing; treated as success-equivalent, not an error
	Duplicate bool
	// Err is the per-item failure, nil on success
	Err error
}

// Succeeded reports whether the outcome counts as applied remotely
func (o ItemOutcome) Succeeded() bool {
	return o.Err == nil || o.Duplicate
}

// BatchResult is the explicit per-batch result object returned by each
// pipeline stage and aggregated by the orchestrator.
type BatchResult struct {
	Created  int
	Updated  int
	Skipped  int
	Failed   int
	Outcomes []ItemOutcome
}

// Merge folds another result into this one
func (r *BatchResult) Merge(other *BatchResult) {
	if other == nil {
		return
	}
	r.Created += other.Created
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Outcomes = append(r.Outcomes, other.Outcomes...)
}

// FirstError returns the first real per-item error, ignoring duplicates
func (r *BatchResult) FirstError() error {
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil && !outcome.Duplicate {
			return outcome.Err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Gateway Port Interface
// ---------------------------------------------------------------------------

// Gateway defines the port interface to the remote commerce platform.
// Implementations must honor per-call timeouts supplied via ctx; every batch
// operation returns a per-item outcome so partial failures never abort the
// whole batch.
type Gateway interface {
	// IsConfigured returns true if the tenant has usable credentials
	IsConfigured(ctx context.Context, tenantID uuid.UUID) (bool, error)

	// BatchCreateProducts creates products (simple or variable) in one call
	BatchCreateProducts(ctx context.Context, tenantID uuid.UUID, payloads []ProductPayload) (*BatchResult, error)

	// BatchUpdateProducts updates existing products in one call
	BatchUpdateProducts(ctx context.Context, tenantID uuid.UUID, payloads []ProductPayload) (*BatchResult, error)

	// BatchCreateVariations creates variations under a parent's storefront id
	BatchCreateVariations(ctx context.Context, tenantID uuid.UUID, parentID int64, payloads []VariationPayload) (*BatchResult, error)

	// BatchUpdateVariations updates existing variations under a parent
	BatchUpdateVariations(ctx context.Context, tenantID uuid.UUID, parentID int64, payloads []VariationPayload) (*BatchResult, error)

	// ListByUniqueIDs fetches remote entries whose unique-id metafield matches
	// any of the given ERP item ids; used to build the existing-remote map
	// before composition
	ListByUniqueIDs(ctx context.Context, tenantID uuid.UUID, uniqueIDs []string) ([]RemoteEntry, error)

	// ListBySKUs fetches remote entries by SKU, the pre-metafield join key
	ListBySKUs(ctx context.Context, tenantID uuid.UUID, skus []string) ([]RemoteEntry, error)

	// FetchAttributeTree fetches existing attributes and their terms
	FetchAttributeTree(ctx context.Context, tenantID uuid.UUID) ([]RemoteAttribute, error)

	// CreateAttribute creates a storefront attribute, returning its id
	CreateAttribute(ctx context.Context, tenantID uuid.UUID, name, slug string) (int64, error)

	// CreateTerm creates a term under a storefront attribute, returning its id
	CreateTerm(ctx context.Context, tenantID uuid.UUID, attributeID int64, name, slug string) (int64, error)

	// ListCategories fetches the storefront category tree
	ListCategories(ctx context.Context, tenantID uuid.UUID) ([]RemoteCategory, error)
}

// ---------------------------------------------------------------------------
// Dispatch configuration
// ---------------------------------------------------------------------------

// DispatchConfig bounds one batch dispatch
type DispatchConfig struct {
	// ChunkSize is the number of payloads per remote call
	ChunkSize int
	// InterChunkDelay is the pause between chunk submissions to respect
	// remote rate limits
	InterChunkDelay time.Duration
}

// DefaultProductDispatchConfig returns the default chunking for products
func DefaultProductDispatchConfig() DispatchConfig {
	return DispatchConfig{ChunkSize: 50, InterChunkDelay: 500 * time.Millisecond}
}

// DefaultVariationDispatchConfig returns the default chunking for variations
func DefaultVariationDispatchConfig() DispatchConfig {
	return DispatchConfig{ChunkSize: 10, InterChunkDelay: 500 * time.Millisecond}
}
