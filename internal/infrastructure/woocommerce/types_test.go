package woocommerce

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storesync/backend/internal/domain/storefront"
)

func wireKeys(t *testing.T, w wireProduct) map[string]json.RawMessage {
	t.Helper()
	body, err := json.Marshal(w)
	require.NoError(t, err)
	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &keys))
	return keys
}

func TestProductToWireFieldSuppression(t *testing.T) {
	payload := storefront.ProductPayload{
		UniqueID:     "E1",
		StorefrontID: 42,
		SKU:          "A1",
		Name:         "Shirt",
		Type:         storefront.RemoteTypeSimple,
		RegularPrice: decimal.NewFromInt(10),
		StockQty:     decimal.NewFromInt(3),
		StockStatus:  storefront.StockStatusInStock,
	}

	t.Run("full payload carries price and stock", func(t *testing.T) {
		keys := wireKeys(t, productToWire(payload))
		assert.Contains(t, keys, "regular_price")
		assert.Contains(t, keys, "sale_price")
		assert.Contains(t, keys, "manage_stock")
		assert.Contains(t, keys, "stock_quantity")
		assert.Contains(t, keys, "stock_status")
	})

	t.Run("omitted price stays off the wire", func(t *testing.T) {
		p := payload
		p.OmitPrice = true
		keys := wireKeys(t, productToWire(p))
		assert.NotContains(t, keys, "regular_price")
		assert.NotContains(t, keys, "sale_price")
		assert.Contains(t, keys, "stock_quantity")
	})

	t.Run("omitted stock stays off the wire", func(t *testing.T) {
		p := payload
		p.OmitStock = true
		keys := wireKeys(t, productToWire(p))
		assert.NotContains(t, keys, "manage_stock")
		assert.NotContains(t, keys, "stock_quantity")
		assert.NotContains(t, keys, "stock_status")
		assert.Contains(t, keys, "regular_price")
	})

	t.Run("blank name stays off the wire", func(t *testing.T) {
		p := payload
		p.Name = ""
		keys := wireKeys(t, productToWire(p))
		assert.NotContains(t, keys, "name")
	})

	t.Run("empty sale price is still sent to clear a stale discount", func(t *testing.T) {
		keys := wireKeys(t, productToWire(payload))
		assert.JSONEq(t, `""`, string(keys["sale_price"]))
	})
}

func TestVariationToWireFieldSuppression(t *testing.T) {
	payload := storefront.VariationPayload{
		UniqueID:     "C1",
		SKU:          "B1",
		RegularPrice: decimal.NewFromInt(5),
		StockQty:     decimal.NewFromInt(1),
		StockStatus:  storefront.StockStatusInStock,
		OmitPrice:    true,
		OmitStock:    true,
	}

	keys := wireKeys(t, variationToWire(payload))
	assert.NotContains(t, keys, "regular_price")
	assert.NotContains(t, keys, "sale_price")
	assert.NotContains(t, keys, "manage_stock")
	assert.NotContains(t, keys, "stock_quantity")
	assert.NotContains(t, keys, "stock_status")
	assert.Contains(t, keys, "sku")
	assert.Contains(t, keys, "meta_data")
}
