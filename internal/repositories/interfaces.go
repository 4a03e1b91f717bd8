// Package repositories defines the persistence contracts shared by the
// in-memory guest stores and the Firestore-backed account stores.
package repositories

import (
	"context"

	"github.com/swiftmart/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository serves the read-only catalog.
type ProductRepository interface {
	List(ctx context.Context, query domain.ProductQuery) ([]domain.Product, error)
	Get(ctx context.Context, productID string) (domain.Product, error)
	GetMany(ctx context.Context, productIDs []string) ([]domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
}

// DealRepository serves promotional deal banners.
type DealRepository interface {
	List(ctx context.Context) ([]domain.Deal, error)
}

// CartRepository owns the single active cart per shopper.
type CartRepository interface {
	Get(ctx context.Context, ownerID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	Delete(ctx context.Context, ownerID string) error
}

// WishlistRepository stores saved-for-later products per shopper.
type WishlistRepository interface {
	List(ctx context.Context, ownerID string) ([]domain.WishlistItem, error)
	Add(ctx context.Context, ownerID string, item domain.WishlistItem) error
	Remove(ctx context.Context, ownerID string, productID string) error
	Clear(ctx context.Context, ownerID string) error
}

// AddressRepository persists delivery addresses per shopper.
type AddressRepository interface {
	List(ctx context.Context, ownerID string) ([]domain.Address, error)
	Get(ctx context.Context, ownerID string, addressID string) (domain.Address, error)
	Upsert(ctx context.Context, ownerID string, addr domain.Address) (domain.Address, error)
	Delete(ctx context.Context, ownerID string, addressID string) error
	SetDefault(ctx context.Context, ownerID string, addressID string) error
}

// PaymentMethodRepository stores tokenised instruments per shopper.
type PaymentMethodRepository interface {
	List(ctx context.Context, ownerID string) ([]domain.PaymentMethod, error)
	Add(ctx context.Context, ownerID string, method domain.PaymentMethod) (domain.PaymentMethod, error)
	Remove(ctx context.Context, ownerID string, methodID string) error
	SetDefault(ctx context.Context, ownerID string, methodID string) error
}

// ChatRepository persists support conversations.
type ChatRepository interface {
	GetSession(ctx context.Context, ownerID string) (domain.ChatSession, error)
	AppendMessage(ctx context.Context, ownerID string, msg domain.ChatMessage) (domain.ChatSession, error)
	ClearSession(ctx context.Context, ownerID string) error
}

// OrderRepository persists orders and their payment attempts.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) (domain.Order, error)
	Get(ctx context.Context, orderID string) (domain.Order, error)
	Update(ctx context.Context, order domain.Order) (domain.Order, error)
	ListByOwner(ctx context.Context, ownerID string, pager domain.Pagination) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
}

// ShopperStores bundles the per-shopper repositories so the service layer can
// swap the whole set on auth state.
type ShopperStores struct {
	Carts          CartRepository
	Wishlists      WishlistRepository
	Addresses      AddressRepository
	PaymentMethods PaymentMethodRepository
	Chats          ChatRepository
	Orders         OrderRepository
}
