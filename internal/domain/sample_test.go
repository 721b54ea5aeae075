package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleNow = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

func TestSampleGenerator_RequiresPolicy(t *testing.T) {
	g := NewSampleGenerator(DefaultCatalog(), 42, sampleNow)

	records, err := g.Generate(NewRunContextWithID("r", false, nil), "cpcb")

	require.ErrorIs(t, err, ErrSampleDataDisallowed)
	assert.Nil(t, records)
}

func TestSampleGenerator_Deterministic(t *testing.T) {
	rc := NewRunContextWithID("r", true, nil)

	a, err := NewSampleGenerator(DefaultCatalog(), 42, sampleNow).Generate(rc, "data_gov_in")
	require.NoError(t, err)
	b, err := NewSampleGenerator(DefaultCatalog(), 42, sampleNow.Add(3*time.Hour)).Generate(rc, "data_gov_in")
	require.NoError(t, err)

	assert.Equal(t, a, b)

	c, err := NewSampleGenerator(DefaultCatalog(), 43, sampleNow).Generate(rc, "data_gov_in")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestSampleGenerator_RecordShape(t *testing.T) {
	catalog := DefaultCatalog()
	records, err := NewSampleGenerator(catalog, 42, sampleNow).Generate(NewRunContextWithID("r", true, nil), "cpcb")
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Zero(t, len(records)%len(catalog.Parameters()))

	oldest := sampleNow.AddDate(0, 0, -sampleWindow)
	for _, r := range records {
		assert.Equal(t, "cpcb", r.Source)
		v, ok := r.Fields["value"].(float64)
		require.True(t, ok)
		assert.GreaterOrEqual(t, v, 0.001)

		d, err := time.Parse(time.DateOnly, r.Fields["measurement_date"].(string))
		require.NoError(t, err)
		assert.False(t, d.Before(oldest))
		assert.False(t, d.After(sampleNow))
	}
}

func TestSampleGenerator_NormalizesCleanly(t *testing.T) {
	rc := NewRunContextWithID("r", true, nil)
	records, err := NewSampleGenerator(DefaultCatalog(), 42, sampleNow).Generate(rc, "cpcb")
	require.NoError(t, err)

	readings, stats := newTestNormalizer().NormalizeAll(rc, records)

	assert.Len(t, readings, len(records))
	assert.Zero(t, stats.ZeroYield)
	assert.Equal(t, len(records), stats.Freeform)
}
