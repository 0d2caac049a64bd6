package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storesync/backend/internal/domain/storefront"
)

// maxResponseSize is the maximum allowed response size from the storefront (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Gateway implements the storefront.Gateway port against a WooCommerce-style
// REST API. Credentials are held per tenant; a tenant without credentials is
// simply not configured, which callers treat as a structural failure.
type Gateway struct {
	config     *Config
	httpClient *http.Client

	tenantConfigs map[uuid.UUID]*Config
	mu            sync.RWMutex
}

// NewGateway creates a gateway with an optional default configuration.
// Pass nil when every tenant carries its own credentials.
func NewGateway(config *Config) (*Gateway, error) {
	timeout := 30 * time.Second
	if config != nil {
		if err := config.Validate(); err != nil {
			return nil, err
		}
		timeout = time.Duration(config.TimeoutSeconds) * time.Second
	}

	return &Gateway{
		config:        config,
		httpClient:    &http.Client{Timeout: timeout},
		tenantConfigs: make(map[uuid.UUID]*Config),
	}, nil
}

// SetTenantConfig sets the configuration for a specific tenant
func (g *Gateway) SetTenantConfig(tenantID uuid.UUID, config *Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tenantConfigs[tenantID] = config
	return nil
}

// getTenantConfig retrieves the configuration for a tenant
func (g *Gateway) getTenantConfig(tenantID uuid.UUID) (*Config, error) {
	g.mu.RLock()
	config, ok := g.tenantConfigs[tenantID]
	g.mu.RUnlock()
	if ok {
		return config, nil
	}
	if g.config != nil {
		return g.config, nil
	}
	return nil, storefront.ErrGatewayNotConfigured
}

// IsConfigured returns true if the tenant has usable credentials
func (g *Gateway) IsConfigured(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	_, err := g.getTenantConfig(tenantID)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// ---------------------------------------------------------------------------
// Product batches
// ---------------------------------------------------------------------------

// BatchCreateProducts creates products (simple or variable) in one call
func (g *Gateway) BatchCreateProducts(ctx context.Context, tenantID uuid.UUID, payloads []storefront.ProductPayload) (*storefront.BatchResult, error) {
	return g.batchProducts(ctx, tenantID, payloads, true)
}

// BatchUpdateProducts updates existing products in one call
func (g *Gateway) BatchUpdateProducts(ctx context.Context, tenantID uuid.UUID, payloads []storefront.ProductPayload) (*storefront.BatchResult, error) {
	return g.batchProducts(ctx, tenantID, payloads, false)
}

func (g *Gateway) batchProducts(ctx context.Context, tenantID uuid.UUID, payloads []storefront.ProductPayload, create bool) (*storefront.BatchResult, error) {
	config, err := g.getTenantConfig(tenantID)
	if err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return &storefront.BatchResult{}, nil
	}

	wires := make([]wireProduct, len(payloads))
	for i, p := range payloads {
		wires[i] = productToWire(p)
	}
	var req wireBatchProductsRequest
	if create {
		req.Create = wires
	} else {
		req.Update = wires
	}

	respBody, err := g.doRequest(ctx, config, http.MethodPost, "products/batch", nil, req)
	if err != nil {
		return nil, err
	}

	var resp wireBatchProductsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", storefront.ErrGatewayInvalidResponse, err)
	}

	items := resp.Create
	if !create {
		items = resp.Update
	}
	return collectOutcomes(payloads, items, create)
}

// collectOutcomes maps a batch response back onto the request payloads.
// The storefront returns items in request order; a response shorter than the
// request is an invalid response.
func collectOutcomes(payloads []storefront.ProductPayload, items []wireProduct, create bool) (*storefront.BatchResult, error) {
	if len(items) != len(payloads) {
		return nil, fmt.Errorf("%w: expected %d batch items, got %d",
			storefront.ErrGatewayInvalidResponse, len(payloads), len(items))
	}

	result := &storefront.BatchResult{}
	for i, item := range items {
		outcome := storefront.ItemOutcome{
			UniqueID:     payloads[i].UniqueID,
			StorefrontID: item.ID,
		}
		switch {
		case item.Error == nil:
			if create {
				result.Created++
			} else {
				result.Updated++
			}
		case isDuplicateCode(item.Error.Code):
			outcome.Duplicate = true
			result.Skipped++
		default:
			outcome.Err = fmt.Errorf("%w: %s: %s",
				storefront.ErrGatewayRequestFailed, item.Error.Code, item.Error.Message)
			result.Failed++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Variation batches
// ---------------------------------------------------------------------------

// BatchCreateVariations creates variations under a parent's storefront id
func (g *Gateway) BatchCreateVariations(ctx context.Context, tenantID uuid.UUID, parentID int64, payloads []storefront.VariationPayload) (*storefront.BatchResult, error) {
	return g.batchVariations(ctx, tenantID, parentID, payloads, true)
}

// BatchUpdateVariations updates existing variations under a parent
func (g *Gateway) BatchUpdateVariations(ctx context.Context, tenantID uuid.UUID, parentID int64, payloads []storefront.VariationPayload) (*storefront.BatchResult, error) {
	return g.batchVariations(ctx, tenantID, parentID, payloads, false)
}

func (g *Gateway) batchVariations(ctx context.Context, tenantID uuid.UUID, parentID int64, payloads []storefront.VariationPayload, create bool) (*storefront.BatchResult, error) {
	config, err := g.getTenantConfig(tenantID)
	if err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return &storefront.BatchResult{}, nil
	}

	wires := make([]wireProduct, len(payloads))
	for i, v := range payloads {
		wires[i] = variationToWire(v)
	}
	var req wireBatchProductsRequest
	if create {
		req.Create = wires
	} else {
		req.Update = wires
	}

	path := fmt.Sprintf("products/%d/variations/batch", parentID)
	respBody, err := g.doRequest(ctx, config, http.MethodPost, path, nil, req)
	if err != nil {
		return nil, err
	}

	var resp wireBatchProductsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", storefront.ErrGatewayInvalidResponse, err)
	}

	items := resp.Create
	if !create {
		items = resp.Update
	}
	if len(items) != len(payloads) {
		return nil, fmt.Errorf("%w: expected %d batch items, got %d",
			storefront.ErrGatewayInvalidResponse, len(payloads), len(items))
	}

	result := &storefront.BatchResult{}
	for i, item := range items {
		outcome := storefront.ItemOutcome{
			UniqueID:     payloads[i].UniqueID,
			StorefrontID: item.ID,
		}
		switch {
		case item.Error == nil:
			if create {
				result.Created++
			} else {
				result.Updated++
			}
		case isDuplicateCode(item.Error.Code):
			outcome.Duplicate = true
			result.Skipped++
		default:
			outcome.Err = fmt.Errorf("%w: %s: %s",
				storefront.ErrGatewayRequestFailed, item.Error.Code, item.Error.Message)
			result.Failed++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Remote catalog reads
// ---------------------------------------------------------------------------

// listPageSize is the storefront API's per_page maximum; it bounds both the
// filter values per request and the rows per page
const listPageSize = 100

// ListByUniqueIDs fetches remote entries whose unique-id metafield matches any
// of the given ERP item ids
func (g *Gateway) ListByUniqueIDs(ctx context.Context, tenantID uuid.UUID, uniqueIDs []string) ([]storefront.RemoteEntry, error) {
	return g.listByFilter(ctx, tenantID, "unique_id", uniqueIDs)
}

// ListBySKUs fetches remote entries by SKU, the pre-metafield join key
func (g *Gateway) ListBySKUs(ctx context.Context, tenantID uuid.UUID, skus []string) ([]storefront.RemoteEntry, error) {
	return g.listByFilter(ctx, tenantID, "sku", skus)
}

// listByFilter fetches every remote entry matching any of the filter values.
// Values are chunked to the per_page bound and each chunk is paged to
// exhaustion: an entry missed here would look absent and be re-created.
func (g *Gateway) listByFilter(ctx context.Context, tenantID uuid.UUID, param string, values []string) ([]storefront.RemoteEntry, error) {
	if len(values) == 0 {
		return nil, nil
	}
	var entries []storefront.RemoteEntry
	for start := 0; start < len(values); start += listPageSize {
		end := start + listPageSize
		if end > len(values) {
			end = len(values)
		}
		chunk, err := g.listProducts(ctx, tenantID, param, values[start:end])
		if err != nil {
			return nil, err
		}
		entries = append(entries, chunk...)
	}
	return entries, nil
}

func (g *Gateway) listProducts(ctx context.Context, tenantID uuid.UUID, param string, values []string) ([]storefront.RemoteEntry, error) {
	config, err := g.getTenantConfig(tenantID)
	if err != nil {
		return nil, err
	}

	var entries []storefront.RemoteEntry
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set(param, strings.Join(values, ","))
		query.Set("per_page", strconv.Itoa(listPageSize))
		query.Set("page", strconv.Itoa(page))

		respBody, err := g.doRequest(ctx, config, http.MethodGet, "products", query, nil)
		if err != nil {
			return nil, err
		}

		var items []wireProduct
		if err := json.Unmarshal(respBody, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", storefront.ErrGatewayInvalidResponse, err)
		}
		for _, item := range items {
			entries = append(entries, wireToRemoteEntry(item))
		}
		// A short page is the last one
		if len(items) < listPageSize {
			return entries, nil
		}
	}
}

// FetchAttributeTree fetches existing attributes and their terms
func (g *Gateway) FetchAttributeTree(ctx context.Context, tenantID uuid.UUID) ([]storefront.RemoteAttribute, error) {
	config, err := g.getTenantConfig(tenantID)
	if err != nil {
		return nil, err
	}

	respBody, err := g.doRequest(ctx, config, http.MethodGet, "products/attributes", nil, nil)
	if err != nil {
		return nil, err
	}

	var defs []wireAttributeDef
	if err := json.Unmarshal(respBody, &defs); err != nil {
		return nil, fmt.Errorf("%w: %v", storefront.ErrGatewayInvalidResponse, err)
	}

	attributes := make([]storefront.RemoteAttribute, 0, len(defs))
	for _, def := range defs {
		termsPath := fmt.Sprintf("products/attributes/%d/terms", def.ID)
		termsBody, err := g.doRequest(ctx, config, http.MethodGet, termsPath, nil, nil)
		if err != nil {
			return nil, err
		}
		var terms []wireTerm
		if err := json.Unmarshal(termsBody, &terms); err != nil {
			return nil, fmt.Errorf("%w: %v", storefront.ErrGatewayInvalidResponse, err)
		}

		attr := storefront.RemoteAttribute{
			ID:   def.ID,
			Name: def.Name,
			Slug: def.Slug,
		}
		for _, term := range terms {
			attr.Terms = append(attr.Terms, storefront.RemoteTerm{
				ID:   term.ID,
				Name: term.Name,
				Slug: term.Slug,
			})
		}
		attributes = append(attributes, attr)
	}
	return attributes, nil
}

// CreateAttribute creates a storefront attribute, returning its id
func (g *Gateway) CreateAttribute(ctx context.Context, tenantID uuid.UUID, name, slug string) (int64, error) {
	config, err := g.getTenantConfig(tenantID)
	if err != nil {
		return 0, err
	}

	respBody, err := g.doRequest(ctx, config, http.MethodPost, "products/attributes", nil,
		wireAttributeDef{Name: name, Slug: slug, Type: "select"})
	if err != nil {
		return 0, err
	}

	var def wireAttributeDef
	if err := json.Unmarshal(respBody, &def); err != nil {
		return 0, fmt.Errorf("%w: %v", storefront.ErrGatewayInvalidResponse, err)
	}
	return def.ID, nil
}

// CreateTerm creates a term under a storefront attribute, returning its id
func (g *Gateway) CreateTerm(ctx context.Context, tenantID uuid.UUID, attributeID int64, name, slug string) (int64, error) {
	config, err := g.getTenantConfig(tenantID)
	if err != nil {
		return 0, err
	}

	path := fmt.Sprintf("products/attributes/%d/terms", attributeID)
	respBody, err := g.doRequest(ctx, config, http.MethodPost, path, nil,
		wireTerm{Name: name, Slug: slug})
	if err != nil {
		return 0, err
	}

	var term wireTerm
	if err := json.Unmarshal(respBody, &term); err != nil {
		return 0, fmt.Errorf("%w: %v", storefront.ErrGatewayInvalidResponse, err)
	}
	return term.ID, nil
}

// ListCategories fetches the storefront category tree
func (g *Gateway) ListCategories(ctx context.Context, tenantID uuid.UUID) ([]storefront.RemoteCategory, error) {
	config, err := g.getTenantConfig(tenantID)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("per_page", "100")
	respBody, err := g.doRequest(ctx, config, http.MethodGet, "products/categories", query, nil)
	if err != nil {
		return nil, err
	}

	var items []wireCategory
	if err := json.Unmarshal(respBody, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", storefront.ErrGatewayInvalidResponse, err)
	}

	categories := make([]storefront.RemoteCategory, 0, len(items))
	for _, item := range items {
		categories = append(categories, storefront.RemoteCategory{
			ID:     item.ID,
			Name:   item.Name,
			Slug:   item.Slug,
			Parent: item.Parent,
		})
	}
	return categories, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequest performs an HTTP request against the storefront REST API
func (g *Gateway) doRequest(ctx context.Context, config *Config, method, path string, query url.Values, body any) ([]byte, error) {
	endpoint := strings.TrimSuffix(config.BaseURL, "/") + "/" + path
	if query == nil {
		query = url.Values{}
	}
	query.Set("consumer_key", config.ConsumerKey)
	query.Set("consumer_secret", config.ConsumerSecret)
	endpoint += "?" + query.Encode()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("woocommerce: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storefront.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("woocommerce: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", storefront.ErrGatewayAuthFailed, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: HTTP %d", storefront.ErrGatewayRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d", storefront.ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		var apiErr wireError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Code != "" {
			return nil, fmt.Errorf("%w: %s: %s", storefront.ErrGatewayRequestFailed, apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("%w: HTTP %d", storefront.ErrGatewayRequestFailed, resp.StatusCode)
	}

	return respBody, nil
}

// Ensure Gateway implements the storefront port
var _ storefront.Gateway = (*Gateway)(nil)
