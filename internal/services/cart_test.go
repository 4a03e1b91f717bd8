package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/repositories"
	"github.com/swiftmart/api/internal/repositories/memory"
)

func newCartService(t *testing.T) *CartService {
	t.Helper()
	svc, err := NewCartService(CartServiceConfig{
		Stores:   Stores{Account: shopperStores(), Guest: shopperStores()},
		Products: memory.NewProductRepository(memory.SeedProducts()),
		Currency: "INR",
	})
	if err != nil {
		t.Fatalf("new cart service: %v", err)
	}
	return svc
}

func TestCartAddItemSnapshotsPrice(t *testing.T) {
	svc := newCartService(t)
	ctx := shopperContext()

	cart, err := svc.AddItem(ctx, "prod-amul-milk-1l", 2, time.Time{})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected one line, got %d", len(cart.Items))
	}
	if cart.Items[0].UnitPrice != 7200 || cart.Items[0].Quantity != 2 {
		t.Fatalf("unexpected line: %+v", cart.Items[0])
	}
	if cart.Subtotal() != 14400 {
		t.Fatalf("expected subtotal 14400, got %d", cart.Subtotal())
	}

	// Adding the same product again merges quantities.
	cart, err = svc.AddItem(ctx, "prod-amul-milk-1l", 1, time.Time{})
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if cart.Items[0].Quantity != 3 {
		t.Fatalf("expected merged quantity 3, got %d", cart.Items[0].Quantity)
	}
}

func TestCartRejectsOutOfStockAndUnknownProducts(t *testing.T) {
	svc := newCartService(t)
	ctx := shopperContext()

	if _, err := svc.AddItem(ctx, "prod-dettol-handwash", 1, time.Time{}); !errors.Is(err, ErrProductUnavailable) {
		t.Fatalf("expected out-of-stock rejection, got %v", err)
	}
	if _, err := svc.AddItem(ctx, "missing", 1, time.Time{}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if _, err := svc.AddItem(ctx, "prod-amul-milk-1l", 0, time.Time{}); !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
}

func TestCartOptimisticConcurrency(t *testing.T) {
	svc := newCartService(t)
	ctx := shopperContext()

	cart, err := svc.AddItem(ctx, "prod-amul-milk-1l", 1, time.Time{})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	// A mutation with the current version succeeds.
	cart, err = svc.AddItem(ctx, "prod-tata-salt-1kg", 1, cart.UpdatedAt)
	if err != nil {
		t.Fatalf("add with fresh version: %v", err)
	}

	// A mutation with a stale version is rejected.
	stale := cart.UpdatedAt.Add(-time.Minute)
	if _, err := svc.AddItem(ctx, "prod-britannia-bread", 1, stale); !errors.Is(err, ErrCartConflict) {
		t.Fatalf("expected cart conflict, got %v", err)
	}
}

// interceptingCartRepo lets a test run a rival write between a load and the
// guarded save that follows it.
type interceptingCartRepo struct {
	repositories.CartRepository
	afterGet func(domain.Cart)
}

func (r *interceptingCartRepo) Get(ctx context.Context, ownerID string) (domain.Cart, error) {
	cart, err := r.CartRepository.Get(ctx, ownerID)
	if err == nil && r.afterGet != nil {
		hook := r.afterGet
		r.afterGet = nil
		hook(cart)
	}
	return cart, err
}

func TestCartLosesVersionCheckToRivalWriter(t *testing.T) {
	accounts := shopperStores()
	intercept := &interceptingCartRepo{CartRepository: accounts.Carts}
	accounts.Carts = intercept

	svc, err := NewCartService(CartServiceConfig{
		Stores:   Stores{Account: accounts, Guest: shopperStores()},
		Products: memory.NewProductRepository(memory.SeedProducts()),
		Currency: "INR",
	})
	if err != nil {
		t.Fatalf("new cart service: %v", err)
	}
	ctx := shopperContext()

	cart, err := svc.AddItem(ctx, "prod-amul-milk-1l", 1, time.Time{})
	if err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	// The version token is fresh when this request reads the cart, but a
	// rival write lands before the save. The repository guard catches what
	// the read-time check cannot.
	intercept.afterGet = func(current domain.Cart) {
		current.Items[0].Quantity = 5
		if _, err := intercept.CartRepository.Save(context.Background(), current); err != nil {
			t.Errorf("rival save: %v", err)
		}
	}

	if _, err := svc.AddItem(ctx, "prod-tata-salt-1kg", 1, cart.UpdatedAt); !errors.Is(err, ErrCartConflict) {
		t.Fatalf("expected cart conflict after rival write, got %v", err)
	}
}

func TestCartUpdateQuantityAndRemoval(t *testing.T) {
	svc := newCartService(t)
	ctx := shopperContext()

	if _, err := svc.AddItem(ctx, "prod-amul-milk-1l", 2, time.Time{}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	cart, err := svc.UpdateQuantity(ctx, "prod-amul-milk-1l", 5, time.Time{})
	if err != nil {
		t.Fatalf("update quantity: %v", err)
	}
	if cart.Items[0].Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", cart.Items[0].Quantity)
	}

	// Removing the only line leaves an empty cart.
	cart, err = svc.RemoveItem(ctx, "prod-amul-milk-1l", time.Time{})
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(cart.Items))
	}

	if _, err := svc.UpdateQuantity(ctx, "prod-amul-milk-1l", 1, time.Time{}); !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected missing-line rejection, got %v", err)
	}
}

func TestCartMergeFoldsGuestCart(t *testing.T) {
	svc := newCartService(t)
	ctx := shopperContext()

	if _, err := svc.AddItem(ctx, "prod-amul-milk-1l", 2, time.Time{}); err != nil {
		t.Fatalf("seed account cart: %v", err)
	}

	guest := domain.Cart{Items: []domain.CartItem{
		{ProductID: "prod-amul-milk-1l", Name: "Milk", UnitPrice: 7200, Quantity: 1},
		{ProductID: "prod-tata-salt-1kg", Name: "Salt", UnitPrice: 2800, Quantity: 3},
	}}
	cart, err := svc.Merge(ctx, guest)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(cart.Items) != 2 {
		t.Fatalf("expected two lines after merge, got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != 3 {
		t.Fatalf("expected summed quantity 3, got %d", cart.Items[0].Quantity)
	}
}
