//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/region-colorizer/internal/adapter/kafka"
	"github.com/couchcryptid/region-colorizer/internal/colorize"
	"github.com/couchcryptid/region-colorizer/internal/config"
	"github.com/couchcryptid/region-colorizer/internal/domain"
	"github.com/couchcryptid/region-colorizer/internal/observability"
	"github.com/couchcryptid/region-colorizer/internal/store"
)

const testTopic = "test-region-updates"

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("region-colorizer-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

type constantSource struct{ value float64 }

func (c constantSource) Fetch(context.Context, float64, float64, string, string) domain.Series {
	return domain.Series{Values: []float64{c.value}}
}

func TestSweepPublishesRegionUpdates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := kafka.NewPublisher(&config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}, logger)
	defer publisher.Close()

	st := store.NewWithDefaults()
	region, err := st.AddRegion([]domain.Coordinate{
		{Lat: 52.52, Lng: 13.40},
		{Lat: 52.53, Lng: 13.41},
		{Lat: 52.52, Lng: 13.42},
	}, "")
	require.NoError(t, err)

	engine := colorize.New(st, constantSource{value: 26}, publisher, colorize.DiscardStale, logger, observability.NewMetricsForTesting())
	selected := time.Date(2024, 7, 1, 14, 0, 0, 0, time.UTC)
	res, err := engine.Recompute(ctx, domain.TimeContext{Mode: domain.ModeSingle, Selected: selected})
	require.NoError(t, err)
	require.Equal(t, 1, res.Recomputed)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	defer reader.Close()

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err, "read region update")

	assert.Equal(t, region.ID, string(msg.Key))
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, store.DefaultDataSourceID, headers["data_source_id"])
	assert.Equal(t, strconv.FormatUint(res.Generation, 10), headers["generation"])

	var update domain.RegionUpdate
	require.NoError(t, json.Unmarshal(msg.Value, &update))
	assert.Equal(t, "#F59E0B", update.Color)
	assert.Equal(t, "hot", update.RuleID)
	assert.InDelta(t, 26.0, update.Value, 1e-9)
	assert.True(t, selected.Equal(update.SampledAt))
}
