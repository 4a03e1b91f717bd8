package memory

import (
	"context"
	"sync"
	"time"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/repositories"
)

// CartRepository keeps one cart per owner in memory.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string]domain.Cart
	now   func() time.Time
}

// NewCartRepository constructs an in-memory cart repository.
func NewCartRepository() *CartRepository {
	return &CartRepository{
		carts: make(map[string]domain.Cart),
		now:   time.Now,
	}
}

// Get returns the owner's cart.
func (r *CartRepository) Get(_ context.Context, ownerID string) (domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[ownerID]
	if !ok {
		return domain.Cart{}, repositories.NotFoundErr("carts.get", "cart not found")
	}
	return cloneCart(cart), nil
}

// Save stores the cart, stamping the update time. The incoming cart's
// UpdatedAt must match the stored copy; a mismatch reports a conflict.
func (r *CartRepository) Save(_ context.Context, cart domain.Cart) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.carts[cart.OwnerID]; ok && !existing.UpdatedAt.Equal(cart.UpdatedAt) {
		return domain.Cart{}, repositories.ConflictErr("carts.save", "cart was modified concurrently")
	}
	cart.UpdatedAt = r.now().UTC()
	if cart.ID == "" {
		cart.ID = cart.OwnerID
	}
	r.carts[cart.OwnerID] = cloneCart(cart)
	return cart, nil
}

// Delete drops the owner's cart.
func (r *CartRepository) Delete(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, ownerID)
	return nil
}

func cloneCart(cart domain.Cart) domain.Cart {
	items := make([]domain.CartItem, len(cart.Items))
	copy(items, cart.Items)
	cart.Items = items
	return cart
}
