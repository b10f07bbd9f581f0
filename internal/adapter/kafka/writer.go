package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/wildfire-etl/internal/config"
	"github.com/couchcryptid/wildfire-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Grouping names used in message keys and the "grouping" header.
const (
	groupingDate    = "date"
	groupingGrid    = "grid"
	groupingRegion  = "region"
	groupingSummary = "summary"
)

// Publisher produces the aggregate tables of each snapshot to a Kafka topic.
// It implements pipeline.SnapshotSink.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured sink topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSinkTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (p *Publisher) Name() string { return "kafka" }

// Publish writes one message per aggregate record plus a summary message
// in a single WriteMessages call. Region records are skipped when the
// snapshot has no regions.
func (p *Publisher) Publish(ctx context.Context, snap *domain.Snapshot) error {
	msgs, err := snapshotMessages(snap)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write aggregates: %w", err)
	}
	p.logger.Info("aggregates published", "topic", p.writer.Topic, "messages", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// snapshotMessages serializes every unfiltered aggregate of the snapshot.
func snapshotMessages(snap *domain.Snapshot) ([]kafkago.Message, error) {
	var all domain.Filter
	snapshotAt := snap.BuiltAt()

	byDate := snap.ByDate(all)
	byGrid := snap.ByDateGrid(all)
	byRegion, err := snap.ByRegion(all)
	if err != nil && !errors.Is(err, domain.ErrMissingRegions) {
		return nil, fmt.Errorf("region aggregate: %w", err)
	}

	msgs := make([]kafkago.Message, 0, len(byDate)+len(byGrid)+len(byRegion)+1)
	add := func(grouping, key string, v any) error {
		msg, err := serializeToMessage(grouping, key, v, snapshotAt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
		return nil
	}

	for _, c := range byDate {
		if err := add(groupingDate, string(c.Date), c); err != nil {
			return nil, err
		}
	}
	for _, c := range byGrid {
		if err := add(groupingGrid, gridKey(c), c); err != nil {
			return nil, err
		}
	}
	for _, c := range byRegion {
		if err := add(groupingRegion, c.Region, c); err != nil {
			return nil, err
		}
	}
	if err := add(groupingSummary, "latest", snap.Summary(all)); err != nil {
		return nil, err
	}
	return msgs, nil
}

func gridKey(c domain.GridCount) string {
	return fmt.Sprintf("%s/%.1f/%.1f", c.Date, c.LatBin, c.LonBin)
}

// serializeToMessage marshals one aggregate record into a Kafka message.
func serializeToMessage(grouping, key string, v any, snapshotAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s aggregate: %w", grouping, err)
	}
	return kafkago.Message{
		Key:   []byte(grouping + "/" + key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "grouping", Value: []byte(grouping)},
			{Key: "snapshot_at", Value: []byte(snapshotAt.Format(time.RFC3339))},
		},
	}, nil
}
