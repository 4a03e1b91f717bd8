package memory

import (
	"context"
	"sync"

	"github.com/swiftmart/api/internal/domain"
)

// DealRepository serves promotional banners from memory.
type DealRepository struct {
	mu    sync.RWMutex
	deals []domain.Deal
}

// NewDealRepository constructs a deal repository seeded with the given deals.
func NewDealRepository(seed []domain.Deal) *DealRepository {
	deals := make([]domain.Deal, len(seed))
	copy(deals, seed)
	return &DealRepository{deals: deals}
}

// List returns every configured deal. Active filtering happens in the service.
func (r *DealRepository) List(_ context.Context) ([]domain.Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Deal, len(r.deals))
	copy(out, r.deals)
	return out, nil
}
