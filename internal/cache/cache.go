package cache

import (
	"context"
	"time"

	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/domain"
)

// LiveSalesCache holds the per-channel "today's live sales" view. It is an
// optimization only: the store stays authoritative, and every mutating sale
// operation invalidates the affected channels.
type LiveSalesCache interface {
	Get(ctx context.Context, channel string) ([]domain.SaleRecord, bool, error)
	Set(ctx context.Context, channel string, records []domain.SaleRecord, ttl time.Duration) error
	Invalidate(ctx context.Context, channels ...string) error
}

type NoopLiveSalesCache struct{}

func (NoopLiveSalesCache) Get(_ context.Context, _ string) ([]domain.SaleRecord, bool, error) {
	return nil, false, nil
}

func (NoopLiveSalesCache) Set(_ context.Context, _ string, _ []domain.SaleRecord, _ time.Duration) error {
	return nil
}

func (NoopLiveSalesCache) Invalidate(_ context.Context, _ ...string) error {
	return nil
}
