package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/domain/storefront"
)

// Dispatcher chunks composed payloads and drives the gateway's batch
// endpoints. Chunks are submitted sequentially with a short delay between
// them to respect remote rate limits; a chunk-level transport failure marks
// every item in that chunk as failed without aborting subsequent chunks.
type Dispatcher struct {
	gateway      storefront.Gateway
	productCfg   storefront.DispatchConfig
	variationCfg storefront.DispatchConfig
	logger       *zap.Logger
}

// NewDispatcher creates a new Dispatcher with the given chunking configs
func NewDispatcher(gateway storefront.Gateway, productCfg, variationCfg storefront.DispatchConfig, logger *zap.Logger) *Dispatcher {
	if productCfg.ChunkSize <= 0 {
		productCfg = storefront.DefaultProductDispatchConfig()
	}
	if variationCfg.ChunkSize <= 0 {
		variationCfg = storefront.DefaultVariationDispatchConfig()
	}
	return &Dispatcher{
		gateway:      gateway,
		productCfg:   productCfg,
		variationCfg: variationCfg,
		logger:       logger,
	}
}

// ---------------------------------------------------------------------------
// Product dispatch
// ---------------------------------------------------------------------------

// DispatchProducts pushes product payloads in chunks. Payloads carrying a
// storefront id go through the update endpoint, the rest through create.
func (d *Dispatcher) DispatchProducts(ctx context.Context, tenantID uuid.UUID, payloads []storefront.ProductPayload) *storefront.BatchResult {
	var creates, updates []storefront.ProductPayload
	for _, payload := range payloads {
		if payload.StorefrontID > 0 {
			updates = append(updates, payload)
		} else {
			creates = append(creates, payload)
		}
	}

	result := &storefront.BatchResult{}
	result.Merge(d.dispatchProductChunks(ctx, tenantID, creates, true))
	result.Merge(d.dispatchProductChunks(ctx, tenantID, updates, false))
	return result
}

func (d *Dispatcher) dispatchProductChunks(ctx context.Context, tenantID uuid.UUID, payloads []storefront.ProductPayload, create bool) *storefront.BatchResult {
	result := &storefront.BatchResult{}

	for start := 0; start < len(payloads); start += d.productCfg.ChunkSize {
		if start > 0 {
			if err := sleepCtx(ctx, d.productCfg.InterChunkDelay); err != nil {
				d.failRemaining(result, productUniqueIDs(payloads[start:]), err)
				return result
			}
		}

		end := min(start+d.productCfg.ChunkSize, len(payloads))
		chunk := payloads[start:end]

		var chunkResult *storefront.BatchResult
		var err error
		if create {
			chunkResult, err = d.gateway.BatchCreateProducts(ctx, tenantID, chunk)
		} else {
			chunkResult, err = d.gateway.BatchUpdateProducts(ctx, tenantID, chunk)
		}
		if err != nil {
			// Transport failure: every item in this chunk fails, later
			// chunks still go out
			d.logger.Error("product chunk dispatch failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Int("chunk_size", len(chunk)),
				zap.Bool("create", create),
				zap.Error(err))
			d.failRemaining(result, productUniqueIDs(chunk), err)
			continue
		}
		d.logDuplicates(tenantID, chunkResult)
		result.Merge(chunkResult)
	}

	return result
}

// ---------------------------------------------------------------------------
// Variation dispatch
// ---------------------------------------------------------------------------

// DispatchVariations pushes variation payloads under one parent in chunks
func (d *Dispatcher) DispatchVariations(ctx context.Context, tenantID uuid.UUID, parentID int64, payloads []storefront.VariationPayload, create bool) *storefront.BatchResult {
	result := &storefront.BatchResult{}

	for start := 0; start < len(payloads); start += d.variationCfg.ChunkSize {
		if start > 0 {
			if err := sleepCtx(ctx, d.variationCfg.InterChunkDelay); err != nil {
				d.failRemaining(result, variationUniqueIDs(payloads[start:]), err)
				return result
			}
		}

		end := min(start+d.variationCfg.ChunkSize, len(payloads))
		chunk := payloads[start:end]

		var chunkResult *storefront.BatchResult
		var err error
		if create {
			chunkResult, err = d.gateway.BatchCreateVariations(ctx, tenantID, parentID, chunk)
		} else {
			chunkResult, err = d.gateway.BatchUpdateVariations(ctx, tenantID, parentID, chunk)
		}
		if err != nil {
			d.logger.Error("variation chunk dispatch failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Int64("parent_id", parentID),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err))
			d.failRemaining(result, variationUniqueIDs(chunk), err)
			continue
		}
		d.logDuplicates(tenantID, chunkResult)
		result.Merge(chunkResult)
	}

	return result
}

// ---------------------------------------------------------------------------
// Composed batch dispatch
// ---------------------------------------------------------------------------

// DispatchComposed applies one composed variable-product batch: the parent
// create must be confirmed successful before any child payload is sent.
// When the parent create fails, the children are not attempted and the
// result reports them as failed, keeping the parent-before-child invariant.
func (d *Dispatcher) DispatchComposed(ctx context.Context, tenantID uuid.UUID, batch *ComposedBatch) *storefront.BatchResult {
	result := &storefront.BatchResult{}
	parentID := batch.ParentStorefrontID

	if batch.ParentCreate != nil {
		parentResult, err := d.gateway.BatchCreateProducts(ctx, tenantID, []storefront.ProductPayload{*batch.ParentCreate})
		if err != nil {
			d.failRemaining(result, append([]string{batch.ParentCreate.UniqueID}, variationUniqueIDs(batch.VariationCreates)...), err)
			return result
		}
		d.logDuplicates(tenantID, parentResult)
		result.Merge(parentResult)

		outcome := confirmedOutcome(parentResult, batch.ParentCreate.UniqueID)
		if outcome == nil || !outcome.Succeeded() || outcome.StorefrontID == 0 {
			d.logger.Error("parent create not confirmed, withholding children",
				zap.String("tenant_id", tenantID.String()),
				zap.String("parent_unique_id", batch.ParentCreate.UniqueID))
			d.failRemaining(result, variationUniqueIDs(batch.VariationCreates),
				fmt.Errorf("%w: %s", storefront.ErrParentNotCreated, batch.ParentCreate.UniqueID))
			return result
		}
		parentID = outcome.StorefrontID
	}

	if len(batch.VariationCreates) > 0 {
		payloads := make([]storefront.VariationPayload, len(batch.VariationCreates))
		for i, payload := range batch.VariationCreates {
			payload.ParentID = parentID
			payloads[i] = payload
		}
		result.Merge(d.DispatchVariations(ctx, tenantID, parentID, payloads, true))
	}

	result.Skipped += batch.SkippedExisting
	return result
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (d *Dispatcher) failRemaining(result *storefront.BatchResult, uniqueIDs []string, err error) {
	for _, id := range uniqueIDs {
		result.Outcomes = append(result.Outcomes, storefront.ItemOutcome{UniqueID: id, Err: err})
		result.Failed++
	}
}

// logDuplicates records duplicate outcomes as informational; the storefront
// reporting an entry as already existing is success-equivalent
func (d *Dispatcher) logDuplicates(tenantID uuid.UUID, result *storefront.BatchResult) {
	for _, outcome := range result.Outcomes {
		if outcome.Duplicate {
			d.logger.Info("remote entry already exists, treating as applied",
				zap.String("tenant_id", tenantID.String()),
				zap.String("unique_id", outcome.UniqueID),
				zap.Int64("storefront_id", outcome.StorefrontID))
		}
	}
}

func confirmedOutcome(result *storefront.BatchResult, uniqueID string) *storefront.ItemOutcome {
	for i := range result.Outcomes {
		if result.Outcomes[i].UniqueID == uniqueID {
			return &result.Outcomes[i]
		}
	}
	return nil
}

func productUniqueIDs(payloads []storefront.ProductPayload) []string {
	ids := make([]string, len(payloads))
	for i, p := range payloads {
		ids[i] = p.UniqueID
	}
	return ids
}

func variationUniqueIDs(payloads []storefront.VariationPayload) []string {
	ids := make([]string, len(payloads))
	for i, p := range payloads {
		ids[i] = p.UniqueID
	}
	return ids
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
