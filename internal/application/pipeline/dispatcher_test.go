package pipeline

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/domain/storefront"
)

func newDispatcherFixture(chunkSize int) (*Dispatcher, *mockGateway) {
	gateway := new(mockGateway)
	cfg := storefront.DispatchConfig{ChunkSize: chunkSize}
	return NewDispatcher(gateway, cfg, cfg, zap.NewNop()), gateway
}

func productPayloads(uniqueIDs ...string) []storefront.ProductPayload {
	payloads := make([]storefront.ProductPayload, len(uniqueIDs))
	for i, id := range uniqueIDs {
		payloads[i] = storefront.ProductPayload{UniqueID: id, SKU: "b-" + id}
	}
	return payloads
}

func okResult(uniqueIDs ...string) *storefront.BatchResult {
	result := &storefront.BatchResult{}
	for i, id := range uniqueIDs {
		result.Created++
		result.Outcomes = append(result.Outcomes, storefront.ItemOutcome{UniqueID: id, StorefrontID: int64(100 + i)})
	}
	return result
}

func TestDispatchProductsChunking(t *testing.T) {
	dispatcher, gateway := newDispatcherFixture(2)
	tenantID := uuid.New()
	ctx := context.Background()

	gateway.On("BatchCreateProducts", ctx, tenantID, mock.MatchedBy(func(chunk []storefront.ProductPayload) bool {
		return len(chunk) <= 2
	})).Return(okResult("x"), nil)

	result := dispatcher.DispatchProducts(ctx, tenantID, productPayloads("a", "b", "c", "d", "e"))

	gateway.AssertNumberOfCalls(t, "BatchCreateProducts", 3)
	assert.Equal(t, 3, result.Created)
	assert.NoError(t, result.FirstError())
}

func TestDispatchProductsSplitsCreatesAndUpdates(t *testing.T) {
	dispatcher, gateway := newDispatcherFixture(10)
	tenantID := uuid.New()
	ctx := context.Background()

	payloads := productPayloads("new-1", "new-2")
	existing := storefront.ProductPayload{UniqueID: "old-1", StorefrontID: 42}
	payloads = append(payloads, existing)

	gateway.On("BatchCreateProducts", ctx, tenantID, mock.MatchedBy(func(chunk []storefront.ProductPayload) bool {
		return len(chunk) == 2
	})).Return(okResult("new-1", "new-2"), nil)
	gateway.On("BatchUpdateProducts", ctx, tenantID, mock.MatchedBy(func(chunk []storefront.ProductPayload) bool {
		return len(chunk) == 1 && chunk[0].StorefrontID == 42
	})).Return(&storefront.BatchResult{Updated: 1, Outcomes: []storefront.ItemOutcome{{UniqueID: "old-1", StorefrontID: 42}}}, nil)

	result := dispatcher.DispatchProducts(ctx, tenantID, payloads)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Updated)
	gateway.AssertExpectations(t)
}

func TestDispatchDuplicateIsSuccessEquivalent(t *testing.T) {
	dispatcher, gateway := newDispatcherFixture(10)
	tenantID := uuid.New()
	ctx := context.Background()

	dup := &storefront.BatchResult{
		Skipped: 1,
		Outcomes: []storefront.ItemOutcome{
			{UniqueID: "a", StorefrontID: 42, Duplicate: true, Err: storefront.ErrRemoteDuplicate},
		},
	}
	gateway.On("BatchCreateProducts", ctx, tenantID, mock.Anything).Return(dup, nil)

	result := dispatcher.DispatchProducts(ctx, tenantID, productPayloads("a"))

	assert.NoError(t, result.FirstError(), "duplicates are informational, not errors")
	assert.True(t, result.Outcomes[0].Succeeded())
}

func TestDispatchChunkFailureIsIsolated(t *testing.T) {
	dispatcher, gateway := newDispatcherFixture(2)
	tenantID := uuid.New()
	ctx := context.Background()

	// first chunk fails at the transport level, second succeeds
	gateway.On("BatchCreateProducts", ctx, tenantID, mock.MatchedBy(func(chunk []storefront.ProductPayload) bool {
		return chunk[0].UniqueID == "a"
	})).Return(nil, storefront.ErrGatewayUnavailable)
	gateway.On("BatchCreateProducts", ctx, tenantID, mock.MatchedBy(func(chunk []storefront.ProductPayload) bool {
		return chunk[0].UniqueID == "c"
	})).Return(okResult("c", "d"), nil)

	result := dispatcher.DispatchProducts(ctx, tenantID, productPayloads("a", "b", "c", "d"))

	assert.Equal(t, 2, result.Failed, "every item of the failed chunk is marked failed")
	assert.Equal(t, 2, result.Created, "later chunks still go out")
	assert.ErrorIs(t, result.FirstError(), storefront.ErrGatewayUnavailable)
}

func TestDispatchComposedParentBeforeChildren(t *testing.T) {
	dispatcher, gateway := newDispatcherFixture(10)
	tenantID := uuid.New()
	ctx := context.Background()

	batch := &ComposedBatch{
		ParentCreate: &storefront.ProductPayload{UniqueID: "P1", Type: storefront.RemoteTypeVariable},
		VariationCreates: []storefront.VariationPayload{
			{UniqueID: "C1"},
			{UniqueID: "C2"},
		},
	}

	gateway.On("BatchCreateProducts", ctx, tenantID, mock.Anything).Return(&storefront.BatchResult{
		Created:  1,
		Outcomes: []storefront.ItemOutcome{{UniqueID: "P1", StorefrontID: 77}},
	}, nil)
	gateway.On("BatchCreateVariations", ctx, tenantID, int64(77), mock.MatchedBy(func(chunk []storefront.VariationPayload) bool {
		return len(chunk) == 2 && chunk[0].ParentID == 77
	})).Return(okResult("C1", "C2"), nil)

	result := dispatcher.DispatchComposed(ctx, tenantID, batch)

	require.Equal(t, []string{"create-products", "create-variations"}, gateway.calls,
		"parent create is observed strictly before any child create")
	assert.Equal(t, 3, result.Created)
	assert.NoError(t, result.FirstError())
}

func TestDispatchComposedWithholdsChildrenOnParentFailure(t *testing.T) {
	dispatcher, gateway := newDispatcherFixture(10)
	tenantID := uuid.New()
	ctx := context.Background()

	batch := &ComposedBatch{
		ParentCreate:     &storefront.ProductPayload{UniqueID: "P1", Type: storefront.RemoteTypeVariable},
		VariationCreates: []storefront.VariationPayload{{UniqueID: "C1"}},
	}

	gateway.On("BatchCreateProducts", ctx, tenantID, mock.Anything).Return(&storefront.BatchResult{
		Failed:   1,
		Outcomes: []storefront.ItemOutcome{{UniqueID: "P1", Err: storefront.ErrGatewayRequestFailed}},
	}, nil)

	result := dispatcher.DispatchComposed(ctx, tenantID, batch)

	gateway.AssertNotCalled(t, "BatchCreateVariations", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 2, result.Failed)
	assert.ErrorIs(t, result.FirstError(), storefront.ErrGatewayRequestFailed)
}

func TestDispatchComposedExistingParentGoesStraightToChildren(t *testing.T) {
	dispatcher, gateway := newDispatcherFixture(10)
	tenantID := uuid.New()
	ctx := context.Background()

	batch := &ComposedBatch{
		ParentStorefrontID: 42,
		VariationCreates:   []storefront.VariationPayload{{UniqueID: "C1"}},
		SkippedExisting:    1,
	}

	gateway.On("BatchCreateVariations", ctx, tenantID, int64(42), mock.Anything).Return(okResult("C1"), nil)

	result := dispatcher.DispatchComposed(ctx, tenantID, batch)

	gateway.AssertNotCalled(t, "BatchCreateProducts", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)
}
