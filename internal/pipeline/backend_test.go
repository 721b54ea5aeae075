package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/water-quality-etl/internal/domain"
	"github.com/couchcryptid/water-quality-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectStore(t *testing.T) {
	primaryStore := &mockStore{backend: "postgres"}
	fallbackStore := &mockStore{backend: "sqlite"}
	probeErr := errors.New("connection refused")

	tests := []struct {
		name         string
		primaryErr   error
		noPrimary    bool
		fallbackErr  error
		want         string
		wantErr      bool
		wantFallback int
	}{
		{name: "primary available", want: "postgres"},
		{name: "primary probe fails", primaryErr: probeErr, want: "sqlite", wantFallback: 1},
		{name: "primary not configured", noPrimary: true, want: "sqlite", wantFallback: 1},
		{name: "both unavailable", primaryErr: probeErr, fallbackErr: errors.New("read-only file system"), wantErr: true, wantFallback: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary, _ := opener(primaryStore, tt.primaryErr)
			if tt.noPrimary {
				primary = nil
			}
			fallback, fallbackCalls := opener(fallbackStore, tt.fallbackErr)

			s, err := pipeline.SelectStore(context.Background(), primary, fallback, discardLogger())
			assert.Equal(t, tt.wantFallback, *fallbackCalls)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrBackendUnavailable))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Backend())
		})
	}
}

func TestSelectStore_NoFallback(t *testing.T) {
	primary, _ := opener(nil, errors.New("down"))
	_, err := pipeline.SelectStore(context.Background(), primary, nil, discardLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBackendUnavailable))
}
