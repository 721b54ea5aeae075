package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/water-quality-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func testPublisher(w messageWriter) *Publisher {
	return &Publisher{writer: w, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func testReading() domain.CanonicalReading {
	return domain.CanonicalReading{
		LocationName:    "Ganga at Varanasi",
		State:           "Uttar Pradesh",
		Latitude:        25.31,
		Longitude:       82.97,
		ParameterCode:   domain.ParamDO,
		Value:           6.8,
		Unit:            "mg/L",
		MeasurementDate: time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC),
		Source:          domain.SourceGovernment,
		QualityScore:    100,
		RiskLevel:       domain.RiskLow,
	}
}

func TestReadingMessage(t *testing.T) {
	msg, err := readingMessage("run-1", testReading())
	require.NoError(t, err)

	assert.Equal(t, "Ganga at Varanasi|Uttar Pradesh|DO|2023-03-15", string(msg.Key))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "record_type", msg.Headers[0].Key)
	assert.Equal(t, []byte(RecordReading), msg.Headers[0].Value)
	assert.Equal(t, "run_id", msg.Headers[1].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[1].Value)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "DO", decoded["parameter_code"])
	assert.Equal(t, "low", decoded["risk_level"])
	assert.Equal(t, "government", decoded["source"])
}

func TestWeatherMessage(t *testing.T) {
	msg, err := weatherMessage("run-2", domain.WeatherObservation{
		LocationName: "Yamuna at Delhi", State: "Delhi", Temperature: 31.5, Conditions: "Haze",
	})
	require.NoError(t, err)

	assert.Equal(t, "Yamuna at Delhi|Delhi", string(msg.Key))
	assert.Equal(t, []byte(RecordWeather), msg.Headers[0].Value)
	assert.Contains(t, string(msg.Value), `"conditions":"Haze"`)
}

func TestPublishReadings(t *testing.T) {
	w := &mockWriter{}
	p := testPublisher(w)

	err := p.PublishReadings(context.Background(), "run-1", []domain.CanonicalReading{testReading(), testReading()})
	require.NoError(t, err)
	assert.Len(t, w.msgs, 2)
}

func TestPublishReadings_Empty(t *testing.T) {
	w := &mockWriter{err: errors.New("should not be called")}
	require.NoError(t, testPublisher(w).PublishReadings(context.Background(), "run-1", nil))
	require.NoError(t, testPublisher(w).PublishWeather(context.Background(), "run-1", nil))
}

func TestPublishReadings_WriterError(t *testing.T) {
	w := &mockWriter{err: errors.New("broker unreachable")}
	err := testPublisher(w).PublishReadings(context.Background(), "run-1", []domain.CanonicalReading{testReading()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unreachable")
}

func TestPublisher_Close(t *testing.T) {
	w := &mockWriter{}
	require.NoError(t, testPublisher(w).Close())
	assert.True(t, w.closed)
}
