// Package kafka publishes persisted readings and weather observations.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/water-quality-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Record types carried in the record_type header.
const (
	RecordReading = "reading"
	RecordWeather = "weather"
)

const dateLayout = "2006-01-02"

// messageWriter is the subset of *kafkago.Writer used by Publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces messages to a single topic.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishReadings writes all readings in a single WriteMessages call.
// Readings of one location share a partition.
func (p *Publisher) PublishReadings(ctx context.Context, runID string, readings []domain.CanonicalReading) error {
	if len(readings) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(readings))
	for i := range readings {
		msg, err := readingMessage(runID, readings[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish readings: %w", err)
	}
	p.logger.Debug("readings published", "run_id", runID, "count", len(msgs))
	return nil
}

// PublishWeather writes weather observations.
func (p *Publisher) PublishWeather(ctx context.Context, runID string, obs []domain.WeatherObservation) error {
	if len(obs) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(obs))
	for i := range obs {
		msg, err := weatherMessage(runID, obs[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish weather: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func readingMessage(runID string, r domain.CanonicalReading) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize reading: %w", err)
	}
	return kafkago.Message{
		Key:     []byte(r.LocationName + "|" + r.State + "|" + r.ParameterCode + "|" + r.MeasurementDate.Format(dateLayout)),
		Value:   data,
		Headers: headers(RecordReading, runID),
	}, nil
}

func weatherMessage(runID string, o domain.WeatherObservation) (kafkago.Message, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize weather observation: %w", err)
	}
	return kafkago.Message{
		Key:     []byte(o.LocationName + "|" + o.State),
		Value:   data,
		Headers: headers(RecordWeather, runID),
	}, nil
}

func headers(recordType, runID string) []kafkago.Header {
	return []kafkago.Header{
		{Key: "record_type", Value: []byte(recordType)},
		{Key: "run_id", Value: []byte(runID)},
	}
}
