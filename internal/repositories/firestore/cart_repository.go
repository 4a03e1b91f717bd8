// Package firestore implements the shopper repositories on Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/swiftmart/api/internal/domain"
	pfirestore "github.com/swiftmart/api/internal/platform/firestore"
)

const cartCollection = "carts"

// CartRepository persists shopper carts in Firestore, one document per owner.
type CartRepository struct {
	provider *pfirestore.Provider
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{provider: provider}, nil
}

type cartDocument struct {
	OwnerID   string             `firestore:"ownerId"`
	Currency  string             `firestore:"currency"`
	Items     []cartItemDocument `firestore:"items"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

type cartItemDocument struct {
	ProductID string    `firestore:"productId"`
	Name      string    `firestore:"name"`
	ImageURL  string    `firestore:"imageUrl"`
	UnitPrice int64     `firestore:"unitPrice"`
	Quantity  int       `firestore:"quantity"`
	AddedAt   time.Time `firestore:"addedAt"`
}

// Get returns the owner's cart.
func (r *CartRepository) Get(ctx context.Context, ownerID string) (domain.Cart, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Cart{}, err
	}

	snap, err := client.Collection(cartCollection).Doc(ownerID).Get(ctx)
	if err != nil {
		return domain.Cart{}, pfirestore.WrapError("carts.get", err)
	}

	var doc cartDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Cart{}, pfirestore.WrapError("carts.decode", err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

// Save stores the cart under the owner's document. The incoming cart's
// UpdatedAt must match the stored document; a mismatch reports a conflict.
// The write runs in a transaction so concurrent saves cannot interleave
// between the version check and the set.
func (r *CartRepository) Save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Cart{}, err
	}

	if cart.ID == "" {
		cart.ID = cart.OwnerID
	}
	expected := cart.UpdatedAt
	// Firestore stores timestamps at microsecond precision; the stamp must
	// survive a read-back for the next version check.
	cart.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

	ref := client.Collection(cartCollection).Doc(cart.OwnerID)
	err = pfirestore.RunTransaction(ctx, client, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			var doc cartDocument
			if err := snap.DataTo(&doc); err != nil {
				return pfirestore.WrapError("carts.save", err)
			}
			if !doc.UpdatedAt.Equal(expected) {
				return pfirestore.ConflictError("carts.save", "cart was modified concurrently")
			}
		case status.Code(err) == codes.NotFound:
			if !expected.IsZero() {
				return pfirestore.ConflictError("carts.save", "cart no longer exists")
			}
		default:
			return pfirestore.WrapError("carts.save", err)
		}
		return tx.Set(ref, cartDocumentFrom(cart))
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

// Delete drops the owner's cart document.
func (r *CartRepository) Delete(ctx context.Context, ownerID string) error {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}
	if _, err := client.Collection(cartCollection).Doc(ownerID).Delete(ctx); err != nil {
		return pfirestore.WrapError("carts.delete", err)
	}
	return nil
}

func cartDocumentFrom(cart domain.Cart) cartDocument {
	items := make([]cartItemDocument, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemDocument{
			ProductID: item.ProductID,
			Name:      item.Name,
			ImageURL:  item.ImageURL,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt,
		})
	}
	return cartDocument{
		OwnerID:   cart.OwnerID,
		Currency:  cart.Currency,
		Items:     items,
		UpdatedAt: cart.UpdatedAt,
	}
}

func (d cartDocument) toDomain(id string) domain.Cart {
	items := make([]domain.CartItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.CartItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			ImageURL:  item.ImageURL,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt,
		})
	}
	return domain.Cart{
		ID:        id,
		OwnerID:   d.OwnerID,
		Currency:  d.Currency,
		Items:     items,
		UpdatedAt: d.UpdatedAt,
	}
}
