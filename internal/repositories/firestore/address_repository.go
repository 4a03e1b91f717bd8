package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/swiftmart/api/internal/domain"
	pfirestore "github.com/swiftmart/api/internal/platform/firestore"
)

const addressCollectionPattern = "users/%s/addresses"

// AddressRepository persists delivery addresses under each user document.
type AddressRepository struct {
	provider *pfirestore.Provider
}

// NewAddressRepository constructs a Firestore-backed address repository.
func NewAddressRepository(provider *pfirestore.Provider) (*AddressRepository, error) {
	if provider == nil {
		return nil, errors.New("address repository requires firestore provider")
	}
	return &AddressRepository{provider: provider}, nil
}

type addressDocument struct {
	Label      string     `firestore:"label"`
	Line1      string     `firestore:"line1"`
	Line2      string     `firestore:"line2,omitempty"`
	City       string     `firestore:"city"`
	State      string     `firestore:"state,omitempty"`
	PostalCode string     `firestore:"postalCode"`
	Country    string     `firestore:"country"`
	Phone      string     `firestore:"phone,omitempty"`
	Latitude   *float64   `firestore:"latitude,omitempty"`
	Longitude  *float64   `firestore:"longitude,omitempty"`
	IsDefault  bool       `firestore:"isDefault"`
	CreatedAt  time.Time  `firestore:"createdAt"`
	UpdatedAt  time.Time  `firestore:"updatedAt"`
}

// List returns the owner's addresses ordered by most recent update.
func (r *AddressRepository) List(ctx context.Context, ownerID string) ([]domain.Address, error) {
	coll, err := r.collection(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	iter := coll.OrderBy("updatedAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var addresses []domain.Address
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("addresses.list", err)
		}
		addr, err := decodeAddress(snap, ownerID)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}

// Get returns a single address.
func (r *AddressRepository) Get(ctx context.Context, ownerID string, addressID string) (domain.Address, error) {
	coll, err := r.collection(ctx, ownerID)
	if err != nil {
		return domain.Address{}, err
	}
	snap, err := coll.Doc(addressID).Get(ctx)
	if err != nil {
		return domain.Address{}, pfirestore.WrapError("addresses.get", err)
	}
	return decodeAddress(snap, ownerID)
}

// Upsert creates or updates an address. New addresses get a generated id; the
// first address for an owner becomes the default.
func (r *AddressRepository) Upsert(ctx context.Context, ownerID string, addr domain.Address) (domain.Address, error) {
	coll, err := r.collection(ctx, ownerID)
	if err != nil {
		return domain.Address{}, err
	}

	now := time.Now().UTC()
	var ref *firestore.DocumentRef
	if addr.ID == "" {
		ref = coll.NewDoc()
		addr.ID = ref.ID
		addr.CreatedAt = now

		existing, err := r.List(ctx, ownerID)
		if err != nil {
			return domain.Address{}, err
		}
		if len(existing) == 0 {
			addr.IsDefault = true
		}
	} else {
		ref = coll.Doc(addr.ID)
		current, err := r.Get(ctx, ownerID, addr.ID)
		if err != nil {
			return domain.Address{}, err
		}
		addr.CreatedAt = current.CreatedAt
		addr.IsDefault = current.IsDefault
	}
	addr.OwnerID = ownerID
	addr.UpdatedAt = now

	if _, err := ref.Set(ctx, addressDocumentFrom(addr)); err != nil {
		return domain.Address{}, pfirestore.WrapError("addresses.upsert", err)
	}
	return addr, nil
}

// Delete removes the address document.
func (r *AddressRepository) Delete(ctx context.Context, ownerID string, addressID string) error {
	coll, err := r.collection(ctx, ownerID)
	if err != nil {
		return err
	}
	if _, err := coll.Doc(addressID).Delete(ctx); err != nil {
		return pfirestore.WrapError("addresses.delete", err)
	}
	return nil
}

// SetDefault marks one address as default and clears the flag on the rest.
func (r *AddressRepository) SetDefault(ctx context.Context, ownerID string, addressID string) error {
	addresses, err := r.List(ctx, ownerID)
	if err != nil {
		return err
	}

	coll, err := r.collection(ctx, ownerID)
	if err != nil {
		return err
	}

	found := false
	for _, addr := range addresses {
		isTarget := addr.ID == addressID
		if isTarget {
			found = true
		}
		if addr.IsDefault == isTarget {
			continue
		}
		update := []firestore.Update{{Path: "isDefault", Value: isTarget}}
		if _, err := coll.Doc(addr.ID).Update(ctx, update); err != nil {
			return pfirestore.WrapError("addresses.setDefault", err)
		}
	}
	if !found {
		return pfirestore.WrapError("addresses.setDefault", errNotFoundStatus("address not found"))
	}
	return nil
}

func (r *AddressRepository) collection(ctx context.Context, ownerID string) (*firestore.CollectionRef, error) {
	if ownerID == "" {
		return nil, errors.New("address repository: owner id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(fmt.Sprintf(addressCollectionPattern, ownerID)), nil
}

func addressDocumentFrom(addr domain.Address) addressDocument {
	doc := addressDocument{
		Label:      addr.Label,
		Line1:      addr.Line1,
		Line2:      addr.Line2,
		City:       addr.City,
		State:      addr.State,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
		Phone:      addr.Phone,
		IsDefault:  addr.IsDefault,
		CreatedAt:  addr.CreatedAt,
		UpdatedAt:  addr.UpdatedAt,
	}
	if addr.Location != nil {
		lat, lng := addr.Location.Latitude, addr.Location.Longitude
		doc.Latitude = &lat
		doc.Longitude = &lng
	}
	return doc
}

func decodeAddress(snap *firestore.DocumentSnapshot, ownerID string) (domain.Address, error) {
	var doc addressDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Address{}, pfirestore.WrapError("addresses.decode", err)
	}

	addr := domain.Address{
		ID:         snap.Ref.ID,
		OwnerID:    ownerID,
		Label:      doc.Label,
		Line1:      doc.Line1,
		Line2:      doc.Line2,
		City:       doc.City,
		State:      doc.State,
		PostalCode: doc.PostalCode,
		Country:    doc.Country,
		Phone:      doc.Phone,
		IsDefault:  doc.IsDefault,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
	if doc.Latitude != nil && doc.Longitude != nil {
		addr.Location = &domain.GeoPoint{Latitude: *doc.Latitude, Longitude: *doc.Longitude}
	}
	return addr, nil
}
