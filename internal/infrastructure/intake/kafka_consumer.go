package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/application/pipeline"
	"github.com/storesync/backend/internal/domain/shared"
	"github.com/storesync/backend/internal/infrastructure/config"
)

// ChangeEnvelope is the wire shape of one change batch on the intake topic.
// Records are raw ERP maps; canonicalization happens in the pipeline.
type ChangeEnvelope struct {
	TenantID string           `json:"tenant_id"`
	BatchKey string           `json:"batch_key"`
	Records  []map[string]any `json:"records"`
}

// KafkaConsumer pulls change batches off the intake topic and feeds them into
// the sync pipeline. Offsets are committed only after a batch was processed
// (or recognized as a duplicate), giving at-least-once delivery; the batch-key
// idempotency check absorbs the redeliveries that implies.
type KafkaConsumer struct {
	reader *kafka.Reader
	sync   *pipeline.SyncService
	idem   shared.IdempotencyConfig
	logger *zap.Logger
}

// NewKafkaConsumer creates a consumer bound to the configured intake topic
func NewKafkaConsumer(cfg config.KafkaConfig, syncService *pipeline.SyncService, logger *zap.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})

	idem := shared.DefaultIdempotencyConfig()
	if cfg.IdempotencyTTL > 0 {
		idem.TTL = cfg.IdempotencyTTL
	}

	return &KafkaConsumer{
		reader: reader,
		sync:   syncService,
		idem:   idem,
		logger: logger.Named("intake"),
	}
}

// Run consumes until ctx is canceled
func (c *KafkaConsumer) Run(ctx context.Context) error {
	c.logger.Info("change intake consumer started",
		zap.String("topic", c.reader.Config().Topic),
		zap.String("group_id", c.reader.Config().GroupID))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				c.logger.Info("change intake consumer stopped")
				return nil
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		if err := c.handleMessage(ctx, msg); err != nil {
			// Leave the offset uncommitted so the batch is redelivered;
			// the idempotency key stops double application after a partial run
			c.logger.Error("failed to process change batch",
				zap.Int64("offset", msg.Offset),
				zap.Int("partition", msg.Partition),
				zap.Error(err))
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit offset",
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}
	}
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) error {
	var envelope ChangeEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		// Malformed payloads can never succeed; log and let the commit skip them
		c.logger.Warn("discarding malformed change envelope",
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		return nil
	}

	tenantID, err := uuid.Parse(envelope.TenantID)
	if err != nil {
		c.logger.Warn("discarding change envelope with invalid tenant id",
			zap.String("tenant_id", envelope.TenantID),
			zap.Int64("offset", msg.Offset))
		return nil
	}

	batchKey := envelope.BatchKey
	if batchKey == "" {
		batchKey = fmt.Sprintf("%s:%d:%d", msg.Topic, msg.Partition, msg.Offset)
	}

	records := make([]pipeline.ChangeRecord, 0, len(envelope.Records))
	for _, raw := range envelope.Records {
		records = append(records, pipeline.Canonicalize(raw))
	}

	result, duplicate, err := c.sync.SubmitOnce(ctx, tenantID, batchKey, records, c.idem)
	if err != nil {
		return err
	}
	if duplicate {
		return nil
	}

	c.logger.Info("change batch applied",
		zap.String("tenant_id", tenantID.String()),
		zap.String("batch_key", batchKey),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("rejected", result.Rejected))
	return nil
}

// Close closes the underlying reader
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
