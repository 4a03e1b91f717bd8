package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/repositories"
)

// ErrWishlistItemNotFound is returned when removing a product that is not on
// the list.
var ErrWishlistItemNotFound = errors.New("services: wishlist item not found")

// WishlistServiceConfig wires the wishlist service dependencies.
type WishlistServiceConfig struct {
	Stores   Stores
	Products repositories.ProductRepository
	Cart     *CartService
	Logger   EventLogger
	Clock    func() time.Time
}

// WishlistService stores saved-for-later products per shopper.
type WishlistService struct {
	stores   Stores
	products repositories.ProductRepository
	cart     *CartService
	logger   EventLogger
	clock    func() time.Time
}

// NewWishlistService validates the configuration and builds the service.
func NewWishlistService(cfg WishlistServiceConfig) (*WishlistService, error) {
	if cfg.Products == nil {
		return nil, errors.New("services: product repository is required")
	}
	if cfg.Stores.Account.Wishlists == nil || cfg.Stores.Guest.Wishlists == nil {
		return nil, errors.New("services: wishlist repositories are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &WishlistService{
		stores:   cfg.Stores,
		products: cfg.Products,
		cart:     cfg.Cart,
		logger:   logger,
		clock:    clockOrNow(cfg.Clock),
	}, nil
}

// List returns the shopper's saved products, newest first.
func (s *WishlistService) List(ctx context.Context) ([]domain.WishlistItem, error) {
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return nil, err
	}
	items, err := stores.Wishlists.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	return items, nil
}

// Add saves a product for later. Re-adding an existing product is a no-op
// beyond refreshing its position.
func (s *WishlistService) Add(ctx context.Context, productID string) (domain.WishlistItem, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.WishlistItem{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.WishlistItem{}, ErrProductNotFound
		}
		return domain.WishlistItem{}, fmt.Errorf("load product: %w", err)
	}

	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return domain.WishlistItem{}, err
	}
	item := domain.WishlistItem{
		ProductID: product.ID,
		Name:      product.Name,
		ImageURL:  product.ImageURL,
		Price:     product.Price,
		AddedAt:   s.clock(),
	}
	if err := stores.Wishlists.Add(ctx, ownerID, item); err != nil {
		return domain.WishlistItem{}, fmt.Errorf("add wishlist item: %w", err)
	}
	return item, nil
}

// Remove deletes a product from the list.
func (s *WishlistService) Remove(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return err
	}
	if err := stores.Wishlists.Remove(ctx, ownerID, productID); err != nil {
		if repositories.IsNotFound(err) {
			return ErrWishlistItemNotFound
		}
		return fmt.Errorf("remove wishlist item: %w", err)
	}
	return nil
}

// Clear wipes the shopper's wishlist.
func (s *WishlistService) Clear(ctx context.Context) error {
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return err
	}
	if err := stores.Wishlists.Clear(ctx, ownerID); err != nil {
		return fmt.Errorf("clear wishlist: %w", err)
	}
	return nil
}

// MoveToCart adds the saved product to the cart and removes it from the list.
func (s *WishlistService) MoveToCart(ctx context.Context, productID string) (domain.Cart, error) {
	if s.cart == nil {
		return domain.Cart{}, errors.New("services: cart service is not wired")
	}
	cart, err := s.cart.AddItem(ctx, productID, 1, time.Time{})
	if err != nil {
		return domain.Cart{}, err
	}
	if err := s.Remove(ctx, productID); err != nil && !errors.Is(err, ErrWishlistItemNotFound) {
		return domain.Cart{}, err
	}
	return cart, nil
}
