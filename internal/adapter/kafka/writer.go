package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/aqi-map-service/internal/config"
	"github.com/couchcryptid/aqi-map-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces settled reference results to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured results topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaResultsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes one message per result in a single WriteMessages call.
// Messages are keyed by location ID so each location stays on one partition.
func (w *Writer) LoadBatch(ctx context.Context, results []domain.LocationResult) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(results))
	for i := range results {
		msg, err := serializeToMessage(results[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	w.logger.Debug("results written", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a LocationResult into a Kafka message.
func serializeToMessage(res domain.LocationResult) (kafkago.Message, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize location result: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(res.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "severity", Value: []byte(res.Severity.Label)},
			{Key: "aqi", Value: []byte(strconv.FormatFloat(res.Index, 'f', -1, 64))},
			{Key: "fetched_at", Value: []byte(res.FetchedAt.Format(time.RFC3339))},
		},
	}, nil
}
