package cache

import (
	"context"
	"time"

	"clubpuntos/backend/internal/domain"
)

// SummaryCache fronts the register daily-summary report, which the UI polls
// aggressively while a register is open.
type SummaryCache interface {
	Get(ctx context.Context, key string) (*domain.RegisterSummary, bool, error)
	Set(ctx context.Context, key string, value *domain.RegisterSummary, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopSummaryCache struct{}

func (NoopSummaryCache) Get(_ context.Context, _ string) (*domain.RegisterSummary, bool, error) {
	return nil, false, nil
}

func (NoopSummaryCache) Set(_ context.Context, _ string, _ *domain.RegisterSummary, _ time.Duration) error {
	return nil
}

func (NoopSummaryCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
