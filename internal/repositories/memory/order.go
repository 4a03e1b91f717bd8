package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/repositories"
)

// OrderRepository keeps orders and their payment attempts in memory.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
	now    func() time.Time
}

// NewOrderRepository constructs an in-memory order repository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]domain.Order),
		now:    time.Now,
	}
}

// Insert stores a new order.
func (r *OrderRepository) Insert(_ context.Context, order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		return domain.Order{}, &repositories.Err{Op: "orders.insert", Msg: "order id is required"}
	}
	if _, exists := r.orders[order.ID]; exists {
		return domain.Order{}, repositories.ConflictErr("orders.insert", "order already exists")
	}

	now := r.now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	r.orders[order.ID] = cloneOrder(order)
	return order, nil
}

// Get returns the order by id.
func (r *OrderRepository) Get(_ context.Context, orderID string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, repositories.NotFoundErr("orders.get", "order not found")
	}
	return cloneOrder(order), nil
}

// Update replaces the stored order. The incoming order's UpdatedAt must
// match the stored copy; a mismatch reports a conflict.
func (r *OrderRepository) Update(_ context.Context, order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.orders[order.ID]
	if !ok {
		return domain.Order{}, repositories.NotFoundErr("orders.update", "order not found")
	}
	if !existing.UpdatedAt.Equal(order.UpdatedAt) {
		return domain.Order{}, repositories.ConflictErr("orders.update", "order was modified concurrently")
	}
	order.UpdatedAt = r.now().UTC()
	r.orders[order.ID] = cloneOrder(order)
	return order, nil
}

// ListByOwner returns the owner's orders, newest first.
func (r *OrderRepository) ListByOwner(_ context.Context, ownerID string, pager domain.Pagination) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Order
	for _, order := range r.orders {
		if order.OwnerID == ownerID {
			out = append(out, cloneOrder(order))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if pager.PageSize > 0 && len(out) > pager.PageSize {
		out = out[:pager.PageSize]
	}
	return out, nil
}

// ListAll returns every order, newest first. Used by the vendor dashboard.
func (r *OrderRepository) ListAll(_ context.Context) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		out = append(out, cloneOrder(order))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func cloneOrder(order domain.Order) domain.Order {
	items := make([]domain.CartItem, len(order.Items))
	copy(items, order.Items)
	order.Items = items

	attempts := make([]domain.PaymentAttempt, len(order.Attempts))
	copy(attempts, order.Attempts)
	order.Attempts = attempts
	return order
}
