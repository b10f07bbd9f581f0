//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/wildfire-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/wildfire-etl/internal/adapter/geojson"
	"github.com/couchcryptid/wildfire-etl/internal/adapter/kafka"
	"github.com/couchcryptid/wildfire-etl/internal/adapter/parquet"
	"github.com/couchcryptid/wildfire-etl/internal/config"
	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/couchcryptid/wildfire-etl/internal/observability"
	"github.com/couchcryptid/wildfire-etl/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testSinkTopic = "test-fire-aggregates"

const firesCSV = `latitude,longitude,bright_ti4,scan,track,acq_date,acq_time,satellite,instrument,confidence,version,bright_ti5,frp,daynight
39.0,-117.5,331.2,0.39,0.36,2024-06-01,1330,N,VIIRS,n,2.0NRT,290.1,4.5,D
39.1,-117.4,318.0,0.39,0.36,2024-06-01,1331,N,VIIRS,n,2.0NRT,289.0,2.5,D
33.4,-112.0,345.0,0.52,0.50,2024-06-02,0905,N,VIIRS,h,2.0NRT,300.2,12.8,N
95.0,-112.0,320.0,0.52,0.50,2024-06-02,1005,N,VIIRS,n,2.0NRT,290.0,1.0,N
`

const regionsGeoJSON = `{"type": "FeatureCollection", "features": [
  {"type": "Feature", "properties": {"NAME": "Nevada", "STUSPS": "NV"},
   "geometry": {"type": "Polygon", "coordinates": [[[-120, 35], [-115, 35], [-115, 42], [-120, 42], [-120, 35]]]}},
  {"type": "Feature", "properties": {"NAME": "Arizona", "STUSPS": "AZ"},
   "geometry": {"type": "Polygon", "coordinates": [[[-115, 31], [-109, 31], [-109, 37], [-115, 37], [-115, 31]]]}}
]}`

type sinkMessage struct {
	Key     string
	Value   json.RawMessage
	Headers map[string]string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("fire-etl-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func readMessages(ctx context.Context, t *testing.T, broker string, n int) []sinkMessage {
	t.Helper()

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: []string{broker},
		Topic:   testSinkTopic,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out := make([]sinkMessage, 0, n)
	for len(out) < n {
		msg, err := consumer.ReadMessage(readCtx)
		require.NoError(t, err, "read from sink topic")

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		out = append(out, sinkMessage{Key: string(msg.Key), Value: msg.Value, Headers: headers})
	}
	return out
}

// TestPipelinePublishesAggregates runs a full refresh from files on disk
// through the Kafka and Parquet sinks.
func TestPipelinePublishesAggregates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "fires.csv")
	regionsPath := filepath.Join(dir, "regions.geojson")
	require.NoError(t, os.WriteFile(csvPath, []byte(firesCSV), 0o600))
	require.NoError(t, os.WriteFile(regionsPath, []byte(regionsGeoJSON), 0o600))

	cfg := &config.Config{
		KafkaEnabled:   true,
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}
	logger := discardLogger()
	publisher := kafka.NewPublisher(cfg, logger)
	t.Cleanup(func() { _ = publisher.Close() })
	exporter := parquet.NewExporter(filepath.Join(dir, "export"), logger)

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(
		csvsource.NewReader(csvPath, logger),
		geojson.NewReader(regionsPath, logger),
		logger, metrics, 2,
		publisher, exporter,
	)

	snap, err := p.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.DetectionCount())
	assert.Equal(t, 1, snap.RejectedCount())

	// 2 dates + 2 grid cells + 2 regions + 1 summary.
	msgs := readMessages(ctx, t, broker, 7)

	byKey := make(map[string]sinkMessage, len(msgs))
	for _, m := range msgs {
		byKey[m.Key] = m
		assert.Equal(t, snap.BuiltAt().Format(time.RFC3339), m.Headers["snapshot_at"])
	}
	require.Contains(t, byKey, "region/Nevada")
	require.Contains(t, byKey, "region/Arizona")
	require.Contains(t, byKey, "summary/latest")

	var nevada domain.RegionCount
	require.NoError(t, json.Unmarshal(byKey["region/Nevada"].Value, &nevada))
	assert.Equal(t, 2, nevada.Count)
	assert.Equal(t, "region", byKey["region/Nevada"].Headers["grouping"])

	var summary domain.Summary
	require.NoError(t, json.Unmarshal(byKey["summary/latest"].Value, &summary))
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, domain.Date("2024-06-02"), summary.LatestDate)

	assert.FileExists(t, filepath.Join(dir, "export", parquet.ByRegionFile))
}
