package pipeline

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/domain/catalog"
	"github.com/storesync/backend/internal/domain/storefront"
)

func newComposerFixture() *VariantComposer {
	return NewVariantComposer(storefront.NewPriceCalculator(), zap.NewNop())
}

func composerInput(t *testing.T, tenantID uuid.UUID) ComposeInput {
	t.Helper()
	return ComposeInput{
		Settings: storefront.DefaultTenantSettings(tenantID),
		Resolved: make(AttributeMap),
		Pairs:    make(map[string][]AttributePair),
		Existing: make(map[string]storefront.RemoteEntry),
	}
}

func resolveForTest(t *testing.T, tenantID uuid.UUID, name string, variation bool, values ...string) *ResolvedAttribute {
	t.Helper()
	vocabulary := []string{}
	if variation {
		vocabulary = []string{name}
	}
	attr, err := catalog.NewAttribute(tenantID, name, vocabulary)
	require.NoError(t, err)

	entry := &ResolvedAttribute{Attribute: attr, Properties: make(map[string]*catalog.Property)}
	for _, value := range values {
		prop, err := catalog.NewProperty(attr.ID, value)
		require.NoError(t, err)
		entry.Values = append(entry.Values, value)
		entry.Properties[strings.ToLower(value)] = prop
	}
	return entry
}

func TestComposeSimple(t *testing.T) {
	composer := newComposerFixture()
	tenantID := uuid.New()

	item, err := catalog.NewItem(tenantID, "S1", "b-s1", "Shirt")
	require.NoError(t, err)
	item.SetPricing(decimal.NewFromInt(1000), decimal.Zero, decimal.NewFromInt(10))
	item.SetStockLevel("A", decimal.NewFromInt(5))
	item.SetStockLevel("B", decimal.NewFromInt(3))

	t.Run("new item composes a create", func(t *testing.T) {
		in := composerInput(t, tenantID)
		payload, err := composer.ComposeSimple(item, in)
		require.NoError(t, err)

		assert.Equal(t, "S1", payload.UniqueID)
		assert.Zero(t, payload.StorefrontID)
		assert.Equal(t, storefront.RemoteTypeSimple, payload.Type)
		assert.Equal(t, "1000", payload.RegularPrice.String())
		assert.Equal(t, "900.00", payload.SalePrice, "10% discount derives the sale price")
		assert.Equal(t, "8", payload.StockQty.String())
		assert.Equal(t, storefront.StockStatusInStock, payload.StockStatus)
	})

	t.Run("remotely existing item composes an update", func(t *testing.T) {
		in := composerInput(t, tenantID)
		in.Existing["S1"] = storefront.RemoteEntry{StorefrontID: 42, UniqueID: "S1"}

		payload, err := composer.ComposeSimple(item, in)
		require.NoError(t, err)
		assert.Equal(t, int64(42), payload.StorefrontID)
	})

	t.Run("warehouse allow-list restricts stock", func(t *testing.T) {
		in := composerInput(t, tenantID)
		in.Settings.WarehouseAllowList = []string{"B"}

		payload, err := composer.ComposeSimple(item, in)
		require.NoError(t, err)
		assert.Equal(t, "3", payload.StockQty.String())
	})

	t.Run("increase percentage applies to both prices", func(t *testing.T) {
		in := composerInput(t, tenantID)
		in.Settings.PriceIncreasePct = 5

		payload, err := composer.ComposeSimple(item, in)
		require.NoError(t, err)
		assert.Equal(t, "1050.00", payload.RegularPrice.StringFixed(2))
		assert.Equal(t, "945.00", payload.SalePrice)
	})

	t.Run("no discount clears the sale price", func(t *testing.T) {
		plain, err := catalog.NewItem(tenantID, "S2", "b-s2", "Plain")
		require.NoError(t, err)
		plain.SetPricing(decimal.NewFromInt(500), decimal.Zero, decimal.Zero)

		in := composerInput(t, tenantID)
		payload, err := composer.ComposeSimple(plain, in)
		require.NoError(t, err)
		assert.Empty(t, payload.SalePrice)
	})
}

func TestComposeSimpleFieldSyncFlags(t *testing.T) {
	composer := newComposerFixture()
	tenantID := uuid.New()

	item, err := catalog.NewItem(tenantID, "S1", "b-s1", "Shirt")
	require.NoError(t, err)
	item.SetPricing(decimal.NewFromInt(1000), decimal.Zero, decimal.Zero)
	item.SetStockLevel("A", decimal.NewFromInt(5))

	existingInput := func(t *testing.T) ComposeInput {
		in := composerInput(t, tenantID)
		in.Existing["S1"] = storefront.RemoteEntry{StorefrontID: 42, UniqueID: "S1"}
		return in
	}

	t.Run("disabled name sync drops the name on update", func(t *testing.T) {
		in := existingInput(t)
		in.Settings.SyncName = false

		payload, err := composer.ComposeSimple(item, in)
		require.NoError(t, err)
		assert.Empty(t, payload.Name)
		assert.False(t, payload.OmitPrice)
		assert.False(t, payload.OmitStock)
	})

	t.Run("disabled price sync suppresses price fields on update", func(t *testing.T) {
		in := existingInput(t)
		in.Settings.SyncPrice = false

		payload, err := composer.ComposeSimple(item, in)
		require.NoError(t, err)
		assert.True(t, payload.OmitPrice)
		assert.False(t, payload.OmitStock)
	})

	t.Run("disabled stock sync suppresses stock fields on update", func(t *testing.T) {
		in := existingInput(t)
		in.Settings.SyncStock = false

		payload, err := composer.ComposeSimple(item, in)
		require.NoError(t, err)
		assert.True(t, payload.OmitStock)
		assert.False(t, payload.OmitPrice)
	})

	t.Run("creates always carry the full shape", func(t *testing.T) {
		in := composerInput(t, tenantID)
		in.Settings.SyncName = false
		in.Settings.SyncPrice = false
		in.Settings.SyncStock = false

		payload, err := composer.ComposeSimple(item, in)
		require.NoError(t, err)
		assert.Equal(t, "Shirt", payload.Name)
		assert.False(t, payload.OmitPrice)
		assert.False(t, payload.OmitStock)
	})
}

func TestComposeVariable(t *testing.T) {
	composer := newComposerFixture()
	tenantID := uuid.New()

	newFamily := func(t *testing.T) (*catalog.Item, []*catalog.Item) {
		parent, err := catalog.NewItem(tenantID, "P1", "b-p1", "Parent")
		require.NoError(t, err)
		parent.IsVariant = true

		c1, err := catalog.NewItem(tenantID, "C1", "b-c1", "Child M")
		require.NoError(t, err)
		c1.IsVariant = true
		c1.ParentErpItemID = "P1"
		c1.SetPricing(decimal.NewFromInt(100), decimal.Zero, decimal.Zero)
		c1.SetStockLevel("A", decimal.NewFromInt(2))

		c2, err := catalog.NewItem(tenantID, "C2", "b-c2", "Child L")
		require.NoError(t, err)
		c2.IsVariant = true
		c2.ParentErpItemID = "P1"
		return parent, []*catalog.Item{c1, c2}
	}

	input := func(t *testing.T) ComposeInput {
		in := composerInput(t, tenantID)
		in.Resolved["size"] = resolveForTest(t, tenantID, "Size", true, "M", "L")
		in.Resolved["material"] = resolveForTest(t, tenantID, "Material", false, "Cotton")
		in.Pairs["C1"] = []AttributePair{{Name: "Size", Value: "M"}, {Name: "Material", Value: "Cotton"}}
		in.Pairs["C2"] = []AttributePair{{Name: "Size", Value: "L"}}
		return in
	}

	t.Run("absent parent composes the full set", func(t *testing.T) {
		parent, children := newFamily(t)
		batch, err := composer.ComposeVariable(parent, children, input(t))
		require.NoError(t, err)

		require.NotNil(t, batch.ParentCreate)
		assert.Equal(t, storefront.RemoteTypeVariable, batch.ParentCreate.Type)
		assert.Len(t, batch.VariationCreates, 2)

		// the parent aggregates both attributes, only size is an axis
		require.Len(t, batch.ParentCreate.Attributes, 2)
		byName := map[string]storefront.PayloadAttribute{}
		for _, attr := range batch.ParentCreate.Attributes {
			byName[attr.Name] = attr
		}
		assert.True(t, byName["Size"].IsVariation)
		assert.Equal(t, []string{"M", "L"}, byName["Size"].Options)
		assert.False(t, byName["Material"].IsVariation)

		// children carry only variation axes, never descriptive attributes
		require.Len(t, batch.VariationCreates[0].Attributes, 1)
		assert.Equal(t, "Size", batch.VariationCreates[0].Attributes[0].Name)
		assert.Equal(t, "M", batch.VariationCreates[0].Attributes[0].Option)
	})

	t.Run("existing parent composes only missing children", func(t *testing.T) {
		parent, children := newFamily(t)
		in := input(t)
		variationID := int64(7)
		in.Existing["P1"] = storefront.RemoteEntry{StorefrontID: 42, UniqueID: "P1", Type: storefront.RemoteTypeVariable}
		in.Existing["C1"] = storefront.RemoteEntry{StorefrontID: 43, UniqueID: "C1", ParentID: 42, VariationID: &variationID}

		batch, err := composer.ComposeVariable(parent, children, in)
		require.NoError(t, err)

		assert.Nil(t, batch.ParentCreate, "existing parent is never resent")
		assert.Equal(t, int64(42), batch.ParentStorefrontID)
		require.Len(t, batch.VariationCreates, 1)
		assert.Equal(t, "C2", batch.VariationCreates[0].UniqueID)
		assert.Equal(t, 2, batch.SkippedExisting)
	})

	t.Run("fully existing family is a no-op", func(t *testing.T) {
		parent, children := newFamily(t)
		in := input(t)
		v1, v2 := int64(7), int64(8)
		in.Existing["P1"] = storefront.RemoteEntry{StorefrontID: 42, UniqueID: "P1"}
		in.Existing["C1"] = storefront.RemoteEntry{StorefrontID: 43, UniqueID: "C1", VariationID: &v1}
		in.Existing["C2"] = storefront.RemoteEntry{StorefrontID: 44, UniqueID: "C2", VariationID: &v2}

		batch, err := composer.ComposeVariable(parent, children, in)
		require.NoError(t, err)
		assert.True(t, batch.IsEmpty())
	})
}

func TestComposeCategoryMapping(t *testing.T) {
	composer := newComposerFixture()
	tenantID := uuid.New()

	item, err := catalog.NewItem(tenantID, "S1", "b-s1", "Shirt")
	require.NoError(t, err)
	item.Department = "Apparel"

	t.Run("department maps through the remote index", func(t *testing.T) {
		in := composerInput(t, tenantID)
		in.Categories = map[string]int64{"apparel": 9}

		payload, err := composer.ComposeSimple(item, in)
		require.NoError(t, err)
		assert.Equal(t, []int64{9}, payload.CategoryIDs)
	})

	t.Run("unmapped department falls back to the default category", func(t *testing.T) {
		in := composerInput(t, tenantID)
		in.Settings.DefaultCategoryID = 3

		payload, err := composer.ComposeSimple(item, in)
		require.NoError(t, err)
		assert.Equal(t, []int64{3}, payload.CategoryIDs)
	})
}
