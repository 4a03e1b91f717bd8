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

const wishlistCollectionPattern = "users/%s/wishlist"

// WishlistRepository persists saved products under each user document.
type WishlistRepository struct {
	provider *pfirestore.Provider
}

// NewWishlistRepository constructs a Firestore-backed wishlist repository.
func NewWishlistRepository(provider *pfirestore.Provider) (*WishlistRepository, error) {
	if provider == nil {
		return nil, errors.New("wishlist repository requires firestore provider")
	}
	return &WishlistRepository{provider: provider}, nil
}

type wishlistDocument struct {
	Name     string    `firestore:"name"`
	ImageURL string    `firestore:"imageUrl"`
	Price    int64     `firestore:"price"`
	AddedAt  time.Time `firestore:"addedAt"`
}

// List returns the owner's saved items, newest first.
func (r *WishlistRepository) List(ctx context.Context, ownerID string) ([]domain.WishlistItem, error) {
	coll, err := r.collection(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	iter := coll.OrderBy("addedAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var items []domain.WishlistItem
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("wishlists.list", err)
		}
		var doc wishlistDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, pfirestore.WrapError("wishlists.decode", err)
		}
		items = append(items, domain.WishlistItem{
			ProductID: snap.Ref.ID,
			Name:      doc.Name,
			ImageURL:  doc.ImageURL,
			Price:     doc.Price,
			AddedAt:   doc.AddedAt,
		})
	}
	return items, nil
}

// Add saves the item keyed by product id, replacing any existing entry.
func (r *WishlistRepository) Add(ctx context.Context, ownerID string, item domain.WishlistItem) error {
	coll, err := r.collection(ctx, ownerID)
	if err != nil {
		return err
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	doc := wishlistDocument{
		Name:     item.Name,
		ImageURL: item.ImageURL,
		Price:    item.Price,
		AddedAt:  item.AddedAt,
	}
	if _, err := coll.Doc(item.ProductID).Set(ctx, doc); err != nil {
		return pfirestore.WrapError("wishlists.add", err)
	}
	return nil
}

// Remove deletes the product entry.
func (r *WishlistRepository) Remove(ctx context.Context, ownerID string, productID string) error {
	coll, err := r.collection(ctx, ownerID)
	if err != nil {
		return err
	}
	if _, err := coll.Doc(productID).Delete(ctx); err != nil {
		return pfirestore.WrapError("wishlists.remove", err)
	}
	return nil
}

// Clear deletes every entry for the owner.
func (r *WishlistRepository) Clear(ctx context.Context, ownerID string) error {
	coll, err := r.collection(ctx, ownerID)
	if err != nil {
		return err
	}

	iter := coll.Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return pfirestore.WrapError("wishlists.clear", err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return pfirestore.WrapError("wishlists.clear", err)
		}
	}
	return nil
}

func (r *WishlistRepository) collection(ctx context.Context, ownerID string) (*firestore.CollectionRef, error) {
	if ownerID == "" {
		return nil, errors.New("wishlist repository: owner id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(fmt.Sprintf(wishlistCollectionPattern, ownerID)), nil
}
