// Package consumer applies booking events from Kafka to the local availability cache, so that
// instances other than the writer drop stale slot lists before their TTL runs out.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/chairbook/libs/kafkax"
	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/outbox"
)

// Invalidator drops cached availability for one provider and day.
type Invalidator interface {
	Invalidate(ctx context.Context, providerID, date string) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Config struct {
	Brokers string
	// GroupID must be unique per instance: every instance needs every event.
	GroupID string
	Topics  []string
}

type Consumer struct {
	reader      messageReader
	logger      *slog.Logger
	invalidator Invalidator
	tracer      trace.Tracer
	retryDelay  time.Duration
}

func New(logger *slog.Logger, invalidator Invalidator, cfg Config) *Consumer {
	topics := cfg.Topics
	if len(topics) == 0 {
		topics = outbox.BookingEventTypes
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkax.SplitBrokers(cfg.Brokers),
		GroupID:     cfg.GroupID,
		GroupTopics: topics,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	return newConsumer(logger, invalidator, reader)
}

func newConsumer(logger *slog.Logger, invalidator Invalidator, reader messageReader) *Consumer {
	return &Consumer{
		reader:      reader,
		logger:      logger,
		invalidator: invalidator,
		tracer:      otel.Tracer("kafka"),
		retryDelay:  time.Second,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}
		c.handle(ctx, msg)
	}
}

var errIncompleteEvent = errors.New("booking event missing provider_id or date")

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	meta := kafkax.ExtractEventMeta(msg)
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := c.tracer.Start(ctxMsg, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.String("messaging.message_id", meta.EventID),
		),
	)
	defer span.End()

	var payload outbox.BookingChanged
	err := json.Unmarshal(msg.Value, &payload)
	if err == nil && (strings.TrimSpace(payload.ProviderID) == "" || strings.TrimSpace(payload.Date) == "") {
		err = errIncompleteEvent
	}
	if err != nil {
		// Malformed events are skipped; the cache TTL bounds the staleness.
		c.logger.Error("invalid booking event", "err", err, "event_id", meta.EventID, "topic", msg.Topic)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid payload")
		return
	}

	if err := c.invalidator.Invalidate(ctxSpan, payload.ProviderID, payload.Date); err != nil {
		c.logger.Error("availability invalidation failed", "err", err, "event_id", meta.EventID,
			"provider_id", payload.ProviderID, "date", payload.Date)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	c.logger.Debug("availability invalidated", "event_type", meta.EventType, "provider_id", payload.ProviderID, "date", payload.Date)
}
