// Package services implements the storefront use cases on top of the
// repository contracts and the payment vendor adapters.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/swiftmart/api/internal/platform/auth"
	"github.com/swiftmart/api/internal/platform/requestctx"
	"github.com/swiftmart/api/internal/repositories"
)

// ErrNoShopper is returned when a request carries neither an authenticated
// identity nor a device id.
var ErrNoShopper = errors.New("services: request has no shopper identity")

// EventLogger receives structured service events. A nil logger disables
// event reporting.
type EventLogger func(ctx context.Context, event string, fields map[string]any)

func noopLogger(context.Context, string, map[string]any) {}

// Stores selects the per-shopper repository set by auth state: authenticated
// shoppers use the remote set, guests fall back to the device-scoped set.
type Stores struct {
	// Account holds the remote repositories used for signed-in shoppers.
	Account repositories.ShopperStores
	// Guest holds the local repositories used for device-scoped shoppers.
	Guest repositories.ShopperStores
}

// For resolves the repository set and owner id for the current request.
func (s Stores) For(ctx context.Context) (repositories.ShopperStores, string, error) {
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil && identity.UID != "" {
		return s.Account, identity.UID, nil
	}
	if deviceID := requestctx.DeviceID(ctx); deviceID != "" {
		return s.Guest, "device:" + deviceID, nil
	}
	return repositories.ShopperStores{}, "", ErrNoShopper
}

// Authenticated reports whether the request carries a signed-in identity.
func Authenticated(ctx context.Context) bool {
	identity, ok := auth.IdentityFromContext(ctx)
	return ok && identity != nil && identity.UID != ""
}

func clockOrNow(clock func() time.Time) func() time.Time {
	if clock == nil {
		return time.Now
	}
	return clock
}
