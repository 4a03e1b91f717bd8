package memory

import (
	"context"
	"sync"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/repositories"
)

// WishlistRepository keeps saved products per owner in memory.
type WishlistRepository struct {
	mu    sync.RWMutex
	lists map[string][]domain.WishlistItem
}

// NewWishlistRepository constructs an in-memory wishlist repository.
func NewWishlistRepository() *WishlistRepository {
	return &WishlistRepository{lists: make(map[string][]domain.WishlistItem)}
}

// List returns the owner's saved items, newest first.
func (r *WishlistRepository) List(_ context.Context, ownerID string) ([]domain.WishlistItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.lists[ownerID]
	out := make([]domain.WishlistItem, len(items))
	copy(out, items)
	return out, nil
}

// Add saves an item, replacing an existing entry for the same product.
func (r *WishlistRepository) Add(_ context.Context, ownerID string, item domain.WishlistItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.lists[ownerID]
	next := make([]domain.WishlistItem, 0, len(items)+1)
	next = append(next, item)
	for _, existing := range items {
		if existing.ProductID == item.ProductID {
			continue
		}
		next = append(next, existing)
	}
	r.lists[ownerID] = next
	return nil
}

// Remove drops the product from the owner's list.
func (r *WishlistRepository) Remove(_ context.Context, ownerID string, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.lists[ownerID]
	for i, existing := range items {
		if existing.ProductID == productID {
			r.lists[ownerID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return repositories.NotFoundErr("wishlists.remove", "product not in wishlist")
}

// Clear empties the owner's list.
func (r *WishlistRepository) Clear(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.lists, ownerID)
	return nil
}
