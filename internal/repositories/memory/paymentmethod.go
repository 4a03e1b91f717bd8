package memory

import (
	"context"
	"crypto/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/repositories"
)

// PaymentMethodRepository keeps tokenised instruments per owner in memory.
type PaymentMethodRepository struct {
	mu      sync.RWMutex
	methods map[string]map[string]domain.PaymentMethod
	now     func() time.Time
}

// NewPaymentMethodRepository constructs an in-memory payment method repository.
func NewPaymentMethodRepository() *PaymentMethodRepository {
	return &PaymentMethodRepository{
		methods: make(map[string]map[string]domain.PaymentMethod),
		now:     time.Now,
	}
}

// List returns the owner's saved instruments, default first, then newest.
func (r *PaymentMethodRepository) List(_ context.Context, ownerID string) ([]domain.PaymentMethod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.PaymentMethod
	for _, m := range r.methods[ownerID] {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Add saves a new instrument. The first instrument becomes the default.
func (r *PaymentMethodRepository) Add(_ context.Context, ownerID string, method domain.PaymentMethod) (domain.PaymentMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID := r.methods[ownerID]
	if byID == nil {
		byID = make(map[string]domain.PaymentMethod)
		r.methods[ownerID] = byID
	}

	now := r.now().UTC()
	method.ID = ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
	method.OwnerID = ownerID
	method.CreatedAt = now
	if len(byID) == 0 {
		method.IsDefault = true
	}
	byID[method.ID] = method
	return method, nil
}

// Remove deletes the instrument.
func (r *PaymentMethodRepository) Remove(_ context.Context, ownerID string, methodID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID := r.methods[ownerID]
	if _, ok := byID[methodID]; !ok {
		return repositories.NotFoundErr("paymentMethods.remove", "payment method not found")
	}
	delete(byID, methodID)
	return nil
}

// SetDefault marks one instrument as default and clears the rest.
func (r *PaymentMethodRepository) SetDefault(_ context.Context, ownerID string, methodID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID := r.methods[ownerID]
	if _, ok := byID[methodID]; !ok {
		return repositories.NotFoundErr("paymentMethods.setDefault", "payment method not found")
	}
	for id, m := range byID {
		m.IsDefault = id == methodID
		byID[id] = m
	}
	return nil
}
