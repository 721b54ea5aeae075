package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/water-quality-etl/internal/domain"
)

// Store persists one run's batch as a single unit of work.
type Store interface {
	Persist(ctx context.Context, b domain.Batch) (domain.PersistResult, error)
	Backend() string
	Close() error
}

// Opener opens and probes a store.
type Opener func(ctx context.Context) (Store, error)

// SelectStore opens primary and falls back to fallback when the primary is
// not configured or fails its probe. The choice holds for the whole run.
func SelectStore(ctx context.Context, primary, fallback Opener, logger *slog.Logger) (Store, error) {
	if primary != nil {
		s, err := primary(ctx)
		if err == nil {
			return s, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("primary store unavailable, using fallback", "error", err)
	}

	if fallback == nil {
		return nil, fmt.Errorf("%w: no fallback store configured", domain.ErrBackendUnavailable)
	}
	s, err := fallback(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrBackendUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
		}
		return nil, fmt.Errorf("fallback store: %w", err)
	}
	return s, nil
}
