package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rotisserie/eris"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/shelter-data-etl/internal/domain"
)

// Publisher produces one message per shelter summary to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the snapshot topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes every shelter of a snapshot in a single WriteMessages call.
// Messages are keyed by shelter name so a shelter's history stays on one partition.
func (p *Publisher) Publish(ctx context.Context, runID string, generatedAt time.Time, shelters []domain.ShelterSummary) error {
	if len(shelters) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(shelters))
	for i := range shelters {
		msg, err := serializeToMessage(runID, generatedAt, shelters[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return eris.Wrapf(err, "kafka: publish %d shelters to %s", len(msgs), p.writer.Topic)
	}
	p.logger.Debug("snapshot published", "topic", p.writer.Topic, "shelters", len(msgs), "run_id", runID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a ShelterSummary into a Kafka message.
func serializeToMessage(runID string, generatedAt time.Time, s domain.ShelterSummary) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, eris.Wrapf(err, "kafka: serialize shelter %s", s.Name)
	}
	return kafkago.Message{
		Key:   []byte(s.Name),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "generated_at", Value: []byte(generatedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
