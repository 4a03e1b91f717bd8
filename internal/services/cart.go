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

// ErrCartConflict is returned when a mutation carries a stale cart version.
var ErrCartConflict = errors.New("services: cart was modified by another request")

// ErrCartInvalidInput is returned for malformed cart mutations.
var ErrCartInvalidInput = errors.New("services: invalid cart input")

// ErrProductUnavailable is returned when an item cannot be added because the
// product is out of stock.
var ErrProductUnavailable = errors.New("services: product is out of stock")

const maxLineQuantity = 50

// CartServiceConfig wires the cart service dependencies.
type CartServiceConfig struct {
	Stores   Stores
	Products repositories.ProductRepository
	// Currency is stamped on freshly created carts.
	Currency string
	Logger   EventLogger
	Clock    func() time.Time
}

// CartService owns the single active cart per shopper. Every mutation
// re-reads the product so prices and stock are reconciled server-side, and
// accepts an expected version to reject concurrent writes.
type CartService struct {
	stores   Stores
	products repositories.ProductRepository
	currency string
	logger   EventLogger
	clock    func() time.Time
}

// NewCartService validates the configuration and builds the service.
func NewCartService(cfg CartServiceConfig) (*CartService, error) {
	if cfg.Products == nil {
		return nil, errors.New("services: product repository is required")
	}
	if cfg.Stores.Account.Carts == nil || cfg.Stores.Guest.Carts == nil {
		return nil, errors.New("services: cart repositories are required")
	}
	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "INR"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &CartService{
		stores:   cfg.Stores,
		products: cfg.Products,
		currency: currency,
		logger:   logger,
		clock:    clockOrNow(cfg.Clock),
	}, nil
}

// Get returns the shopper's cart, or an empty cart when none exists yet.
func (s *CartService) Get(ctx context.Context) (domain.Cart, error) {
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return domain.Cart{}, err
	}
	cart, err := stores.Carts.Get(ctx, ownerID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return s.emptyCart(ownerID), nil
		}
		return domain.Cart{}, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// AddItem puts quantity units of a product into the cart, merging with an
// existing line. The unit price is snapshotted from the catalog at add time.
func (s *CartService) AddItem(ctx context.Context, productID string, quantity int, expectedVersion time.Time) (domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Cart{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if quantity <= 0 || quantity > maxLineQuantity {
		return domain.Cart{}, fmt.Errorf("%w: quantity must be between 1 and %d", ErrCartInvalidInput, maxLineQuantity)
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Cart{}, ErrProductNotFound
		}
		return domain.Cart{}, fmt.Errorf("load product: %w", err)
	}
	if !product.InStock {
		return domain.Cart{}, ErrProductUnavailable
	}

	return s.mutate(ctx, expectedVersion, func(cart *domain.Cart) error {
		for i := range cart.Items {
			if cart.Items[i].ProductID == product.ID {
				next := cart.Items[i].Quantity + quantity
				if next > maxLineQuantity {
					return fmt.Errorf("%w: quantity must be between 1 and %d", ErrCartInvalidInput, maxLineQuantity)
				}
				cart.Items[i].Quantity = next
				cart.Items[i].UnitPrice = product.Price
				return nil
			}
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: product.ID,
			Name:      product.Name,
			ImageURL:  product.ImageURL,
			UnitPrice: product.Price,
			Quantity:  quantity,
			AddedAt:   s.clock(),
		})
		return nil
	})
}

// UpdateQuantity sets the quantity of an existing line. Zero removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, productID string, quantity int, expectedVersion time.Time) (domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Cart{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if quantity < 0 || quantity > maxLineQuantity {
		return domain.Cart{}, fmt.Errorf("%w: quantity must be between 0 and %d", ErrCartInvalidInput, maxLineQuantity)
	}
	return s.mutate(ctx, expectedVersion, func(cart *domain.Cart) error {
		for i := range cart.Items {
			if cart.Items[i].ProductID != productID {
				continue
			}
			if quantity == 0 {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			} else {
				cart.Items[i].Quantity = quantity
			}
			return nil
		}
		return fmt.Errorf("%w: product %s is not in the cart", ErrCartInvalidInput, productID)
	})
}

// RemoveItem deletes a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, productID string, expectedVersion time.Time) (domain.Cart, error) {
	return s.UpdateQuantity(ctx, productID, 0, expectedVersion)
}

// Clear removes the shopper's cart entirely.
func (s *CartService) Clear(ctx context.Context) error {
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return err
	}
	if err := stores.Carts.Delete(ctx, ownerID); err != nil && !repositories.IsNotFound(err) {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Merge folds a guest cart into the shopper's account cart after sign-in.
// Quantities of shared lines are summed and capped.
func (s *CartService) Merge(ctx context.Context, guest domain.Cart) (domain.Cart, error) {
	if len(guest.Items) == 0 {
		return s.Get(ctx)
	}
	return s.mutate(ctx, time.Time{}, func(cart *domain.Cart) error {
		for _, incoming := range guest.Items {
			merged := false
			for i := range cart.Items {
				if cart.Items[i].ProductID == incoming.ProductID {
					next := cart.Items[i].Quantity + incoming.Quantity
					if next > maxLineQuantity {
						next = maxLineQuantity
					}
					cart.Items[i].Quantity = next
					merged = true
					break
				}
			}
			if !merged {
				cart.Items = append(cart.Items, incoming)
			}
		}
		return nil
	})
}

// MergeFromDevice adopts the guest cart recorded under a device id into the
// authenticated shopper's cart, then drops the guest copy. A missing guest
// cart is not an error.
func (s *CartService) MergeFromDevice(ctx context.Context, deviceID string) (domain.Cart, error) {
	if !Authenticated(ctx) {
		return domain.Cart{}, ErrNoShopper
	}
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return domain.Cart{}, fmt.Errorf("%w: device id is required", ErrCartInvalidInput)
	}

	guestOwner := "device:" + deviceID
	guest, err := s.stores.Guest.Carts.Get(ctx, guestOwner)
	if err != nil {
		if repositories.IsNotFound(err) {
			return s.Get(ctx)
		}
		return domain.Cart{}, fmt.Errorf("load guest cart: %w", err)
	}

	merged, err := s.Merge(ctx, guest)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := s.stores.Guest.Carts.Delete(ctx, guestOwner); err != nil && !repositories.IsNotFound(err) {
		s.logger(ctx, "cart.guest_cleanup_failed", map[string]any{
			"device_id": deviceID,
			"error":     err.Error(),
		})
	}
	return merged, nil
}

func (s *CartService) mutate(ctx context.Context, expectedVersion time.Time, apply func(*domain.Cart) error) (domain.Cart, error) {
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return domain.Cart{}, err
	}

	cart, err := stores.Carts.Get(ctx, ownerID)
	if err != nil {
		if !repositories.IsNotFound(err) {
			return domain.Cart{}, fmt.Errorf("load cart: %w", err)
		}
		cart = s.emptyCart(ownerID)
	}
	if !expectedVersion.IsZero() && !cart.UpdatedAt.Equal(expectedVersion) {
		return domain.Cart{}, ErrCartConflict
	}

	if err := apply(&cart); err != nil {
		return domain.Cart{}, err
	}

	if len(cart.Items) == 0 {
		if err := stores.Carts.Delete(ctx, ownerID); err != nil && !repositories.IsNotFound(err) {
			return domain.Cart{}, fmt.Errorf("drop empty cart: %w", err)
		}
		return s.emptyCart(ownerID), nil
	}

	saved, err := stores.Carts.Save(ctx, cart)
	if err != nil {
		// A writer that slipped in between our read and this save loses
		// the repository version check.
		if repositories.IsConflict(err) {
			return domain.Cart{}, ErrCartConflict
		}
		return domain.Cart{}, fmt.Errorf("save cart: %w", err)
	}
	s.logger(ctx, "cart.saved", map[string]any{
		"owner_id":   ownerID,
		"item_count": saved.ItemCount(),
		"subtotal":   saved.Subtotal(),
	})
	return saved, nil
}

func (s *CartService) emptyCart(ownerID string) domain.Cart {
	return domain.Cart{ID: ownerID, OwnerID: ownerID, Currency: s.currency}
}
