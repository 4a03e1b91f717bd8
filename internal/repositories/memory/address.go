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

// AddressRepository keeps delivery addresses per owner in memory.
type AddressRepository struct {
	mu        sync.RWMutex
	addresses map[string]map[string]domain.Address
	now       func() time.Time
}

// NewAddressRepository constructs an in-memory address repository.
func NewAddressRepository() *AddressRepository {
	return &AddressRepository{
		addresses: make(map[string]map[string]domain.Address),
		now:       time.Now,
	}
}

// List returns the owner's addresses ordered by most recent update.
func (r *AddressRepository) List(_ context.Context, ownerID string) ([]domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Address
	for _, addr := range r.addresses[ownerID] {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Get returns a single address.
func (r *AddressRepository) Get(_ context.Context, ownerID string, addressID string) (domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addr, ok := r.addresses[ownerID][addressID]
	if !ok {
		return domain.Address{}, repositories.NotFoundErr("addresses.get", "address not found")
	}
	return addr, nil
}

// Upsert creates or updates an address. The first address for an owner
// becomes the default.
func (r *AddressRepository) Upsert(_ context.Context, ownerID string, addr domain.Address) (domain.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID := r.addresses[ownerID]
	if byID == nil {
		byID = make(map[string]domain.Address)
		r.addresses[ownerID] = byID
	}

	now := r.now().UTC()
	if addr.ID == "" {
		addr.ID = ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
		addr.CreatedAt = now
		if len(byID) == 0 {
			addr.IsDefault = true
		}
	} else if existing, ok := byID[addr.ID]; ok {
		addr.CreatedAt = existing.CreatedAt
		addr.IsDefault = existing.IsDefault
	} else {
		return domain.Address{}, repositories.NotFoundErr("addresses.upsert", "address not found")
	}
	addr.OwnerID = ownerID
	addr.UpdatedAt = now
	byID[addr.ID] = addr
	return addr, nil
}

// Delete removes the address. Deleting the default promotes the most recently
// updated remaining address.
func (r *AddressRepository) Delete(_ context.Context, ownerID string, addressID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID := r.addresses[ownerID]
	addr, ok := byID[addressID]
	if !ok {
		return repositories.NotFoundErr("addresses.delete", "address not found")
	}
	delete(byID, addressID)

	if addr.IsDefault {
		var newest domain.Address
		for _, candidate := range byID {
			if newest.ID == "" || candidate.UpdatedAt.After(newest.UpdatedAt) {
				newest = candidate
			}
		}
		if newest.ID != "" {
			newest.IsDefault = true
			byID[newest.ID] = newest
		}
	}
	return nil
}

// SetDefault marks one address as default and clears the rest.
func (r *AddressRepository) SetDefault(_ context.Context, ownerID string, addressID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byID := r.addresses[ownerID]
	if _, ok := byID[addressID]; !ok {
		return repositories.NotFoundErr("addresses.setDefault", "address not found")
	}
	for id, addr := range byID {
		addr.IsDefault = id == addressID
		byID[id] = addr
	}
	return nil
}
