//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkaadapter "github.com/couchcryptid/water-quality-etl/internal/adapter/kafka"
	"github.com/couchcryptid/water-quality-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "water-quality-readings-test"

func TestPublisher_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	pub := kafkaadapter.NewPublisher([]string{broker}, testTopic, discardLogger())
	defer pub.Close()

	r := reading(25.31, domain.ParamBOD, 3.1)
	require.NoError(t, pub.PublishReadings(ctx, "it-run", []domain.CanonicalReading{r}))
	require.NoError(t, pub.PublishWeather(ctx, "it-run", []domain.WeatherObservation{{
		LocationName: r.LocationName, State: r.State, Temperature: 31.2, Conditions: "Haze",
	}}))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	defer consumer.Close()

	seen := map[string]kafkago.Message{}
	for len(seen) < 2 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from topic")
		for _, h := range msg.Headers {
			if h.Key == "record_type" {
				seen[string(h.Value)] = msg
			}
		}
	}

	readingMsg := seen[kafkaadapter.RecordReading]
	assert.Equal(t, "Ganga at Varanasi|Uttar Pradesh|BOD|2023-03-15", string(readingMsg.Key))
	var got domain.CanonicalReading
	require.NoError(t, json.Unmarshal(readingMsg.Value, &got))
	assert.Equal(t, r.ParameterCode, got.ParameterCode)
	assert.InDelta(t, r.Value, got.Value, 1e-9)
	assert.True(t, r.MeasurementDate.Equal(got.MeasurementDate))

	weatherMsg := seen[kafkaadapter.RecordWeather]
	assert.Contains(t, string(weatherMsg.Value), `"conditions":"Haze"`)
}
