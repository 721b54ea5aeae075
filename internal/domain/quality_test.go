package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualityScore(t *testing.T) {
	catalog := DefaultCatalog()
	tests := []struct {
		code  string
		value float64
		want  float64
	}{
		{ParamPH, 7.0, 100},
		{ParamPH, 8.9, 85},
		{ParamPH, 5.6, 70},
		{ParamPH, 4.0, 0},
		{ParamBOD, 2, 100},
		{ParamBOD, 4.5, 87.5},
		{ParamBOD, 8, 62.5},
		{ParamBOD, 20, 0},
		{ParamDO, 7, 100},
		{ParamDO, 5, 87.5},
		{ParamDO, 0.5, 0},
	}

	for _, tt := range tests {
		p, ok := catalog.Lookup(tt.code)
		require.True(t, ok)
		assert.InDelta(t, tt.want, QualityScore(p, tt.value), 1e-9, "%s=%v", tt.code, tt.value)
	}
}

func TestRiskForScore(t *testing.T) {
	assert.Equal(t, RiskLow, RiskForScore(100))
	assert.Equal(t, RiskLow, RiskForScore(80))
	assert.Equal(t, RiskMedium, RiskForScore(60))
	assert.Equal(t, RiskHigh, RiskForScore(40))
	assert.Equal(t, RiskCritical, RiskForScore(39.9))
}
