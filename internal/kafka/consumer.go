package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/portfolio-tracker/internal/models"
)

// Ingester ingests a date range of prices for a symbol
type Ingester interface {
	IngestRange(ctx context.Context, symbol, start, end string) (*models.IngestResult, error)
}

// messageReader is the subset of *kafka.Reader the consumer uses
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Config() kafka.ReaderConfig
	Close() error
}

// Consumer reads ingest requests from Kafka and runs them against the
// portfolio. A request that fails is logged and the consumer moves on.
type Consumer struct {
	reader   messageReader
	ingester Ingester
}

// NewConsumer creates a new Kafka consumer for ingest requests
func NewConsumer(brokers []string, topic, groupID string, ingester Ingester) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:   reader,
		ingester: ingester,
	}
}

// Start consumes messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	logger := zerolog.Ctx(ctx).With().Str("topic", c.reader.Config().Topic).Logger()
	logger.Info().Msg("starting kafka consumer")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("kafka consumer shutting down")
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Error().Err(err).Msg("error reading message")
			continue
		}

		if err := c.processMessage(logger.WithContext(ctx), msg); err != nil {
			logger.Warn().Err(err).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("error processing message")
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var req models.IngestRequestEvent
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("failed to unmarshal ingest request: %w", err)
	}
	if req.Symbol == "" {
		req.Symbol = string(msg.Key)
	}

	result, err := c.ingester.IngestRange(ctx, req.Symbol, req.Start, req.End)
	if err != nil {
		return fmt.Errorf("failed to ingest %s %s..%s: %w", req.Symbol, req.Start, req.End, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("symbol", result.Symbol).
		Int("ingested", result.Ingested).
		Int("skipped", len(result.Skipped)).
		Msg("processed ingest request")
	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
