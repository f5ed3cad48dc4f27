package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/region-colorizer/internal/config"
	"github.com/couchcryptid/region-colorizer/internal/domain"
)

// Publisher produces region update events to a Kafka topic.
// It implements colorize.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured region update topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishRegionUpdates writes one message per update in a single
// WriteMessages call. Messages are keyed by region ID so a region's updates
// stay on one partition.
func (p *Publisher) PublishRegionUpdates(ctx context.Context, updates []domain.RegionUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(updates))
	for i := range updates {
		msg, err := serializeToMessage(updates[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write region updates: %w", err)
	}
	p.logger.Debug("region updates published", "count", len(msgs), "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a RegionUpdate into a Kafka message.
func serializeToMessage(update domain.RegionUpdate) (kafkago.Message, error) {
	data, err := json.Marshal(update)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize region update: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(update.RegionID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "data_source_id", Value: []byte(update.DataSourceID)},
			{Key: "generation", Value: []byte(strconv.FormatUint(update.Generation, 10))},
			{Key: "computed_at", Value: []byte(update.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}
