package services

import (
	"context"
	"errors"
	"testing"

	"github.com/swiftmart/api/internal/platform/requestctx"
	"github.com/swiftmart/api/internal/repositories"
	"github.com/swiftmart/api/internal/repositories/memory"
)

func shopperStores() repositories.ShopperStores {
	return repositories.ShopperStores{
		Carts:          memory.NewCartRepository(),
		Wishlists:      memory.NewWishlistRepository(),
		Addresses:      memory.NewAddressRepository(),
		PaymentMethods: memory.NewPaymentMethodRepository(),
		Chats:          memory.NewChatRepository(50),
		Orders:         memory.NewOrderRepository(),
	}
}

func TestStoresSelectionByAuthState(t *testing.T) {
	stores := Stores{Account: shopperStores(), Guest: shopperStores()}

	if _, _, err := stores.For(context.Background()); !errors.Is(err, ErrNoShopper) {
		t.Fatalf("expected ErrNoShopper for anonymous context, got %v", err)
	}

	set, ownerID, err := stores.For(shopperContext())
	if err != nil {
		t.Fatalf("resolve account stores: %v", err)
	}
	if ownerID != "shopper-1" {
		t.Fatalf("expected uid owner, got %q", ownerID)
	}
	if set.Carts != stores.Account.Carts {
		t.Fatal("authenticated shopper must get the account store set")
	}

	guestCtx := requestctx.WithDeviceID(context.Background(), "device-9")
	set, ownerID, err = stores.For(guestCtx)
	if err != nil {
		t.Fatalf("resolve guest stores: %v", err)
	}
	if ownerID != "device:device-9" {
		t.Fatalf("expected device-scoped owner, got %q", ownerID)
	}
	if set.Carts != stores.Guest.Carts {
		t.Fatal("guest shopper must get the local store set")
	}
}
