package services

import (
	"errors"
	"testing"

	"github.com/swiftmart/api/internal/repositories/memory"
)

func newWishlistService(t *testing.T) (*WishlistService, *CartService) {
	t.Helper()
	stores := Stores{Account: shopperStores(), Guest: shopperStores()}
	products := memory.NewProductRepository(memory.SeedProducts())

	cart, err := NewCartService(CartServiceConfig{Stores: stores, Products: products})
	if err != nil {
		t.Fatalf("new cart service: %v", err)
	}
	svc, err := NewWishlistService(WishlistServiceConfig{Stores: stores, Products: products, Cart: cart})
	if err != nil {
		t.Fatalf("new wishlist service: %v", err)
	}
	return svc, cart
}

func TestWishlistAddListRemove(t *testing.T) {
	svc, _ := newWishlistService(t)
	ctx := shopperContext()

	item, err := svc.Add(ctx, "prod-amul-milk-1l")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if item.Price != 7200 {
		t.Fatalf("expected snapshotted price, got %d", item.Price)
	}
	if _, err := svc.Add(ctx, "missing"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}

	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}

	if err := svc.Remove(ctx, "prod-amul-milk-1l"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.Remove(ctx, "prod-amul-milk-1l"); !errors.Is(err, ErrWishlistItemNotFound) {
		t.Fatalf("expected not-found on second remove, got %v", err)
	}
}

func TestWishlistMoveToCart(t *testing.T) {
	svc, _ := newWishlistService(t)
	ctx := shopperContext()

	if _, err := svc.Add(ctx, "prod-tata-salt-1kg"); err != nil {
		t.Fatalf("add: %v", err)
	}
	cart, err := svc.MoveToCart(ctx, "prod-tata-salt-1kg")
	if err != nil {
		t.Fatalf("move to cart: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].ProductID != "prod-tata-salt-1kg" {
		t.Fatalf("expected product in cart, got %+v", cart.Items)
	}

	items, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected product removed from wishlist, got %+v", items)
	}
}
