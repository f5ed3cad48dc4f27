package kafka

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/region-colorizer/internal/config"
	"github.com/couchcryptid/region-colorizer/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	computed := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	update := domain.RegionUpdate{
		RegionID:     "region-1",
		DataSourceID: "open-meteo-temp",
		Color:        "#F59E0B",
		Value:        27.5,
		RuleID:       "hot",
		Generation:   42,
		SampledAt:    computed.Add(-time.Hour),
		ComputedAt:   computed,
	}

	msg, err := serializeToMessage(update)
	require.NoError(t, err)

	assert.Equal(t, []byte("region-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"color":"#F59E0B"`)
	assert.Contains(t, string(msg.Value), `"rule_id":"hot"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, kafkago.Header{Key: "data_source_id", Value: []byte("open-meteo-temp")}, msg.Headers[0])
	assert.Equal(t, kafkago.Header{Key: "generation", Value: []byte("42")}, msg.Headers[1])
	assert.Equal(t, kafkago.Header{Key: "computed_at", Value: []byte(computed.Format(time.RFC3339))}, msg.Headers[2])
}

func TestSerializeToMessage_RejectsNaN(t *testing.T) {
	_, err := serializeToMessage(domain.RegionUpdate{RegionID: "r", Value: math.NaN()})
	require.Error(t, err)
}

func TestPublishRegionUpdates_EmptyIsNoOp(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaTopic: "region-updates"}
	p := NewPublisher(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer p.Close()

	require.NoError(t, p.PublishRegionUpdates(context.Background(), nil))
}
