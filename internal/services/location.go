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

// ErrAddressNotFound is returned when an address lookup misses.
var ErrAddressNotFound = errors.New("services: address not found")

// ErrAddressInvalidInput is returned for malformed address payloads.
var ErrAddressInvalidInput = errors.New("services: invalid address input")

// Reverse geocoding is optional; the service works without a client.
type reverseGeocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (Place, error)
}

// LocationServiceConfig wires the location service dependencies.
type LocationServiceConfig struct {
	Stores   Stores
	Geocoder reverseGeocoder
	Logger   EventLogger
	Clock    func() time.Time
}

// LocationService manages delivery addresses and coordinate lookups.
type LocationService struct {
	stores   Stores
	geocoder reverseGeocoder
	logger   EventLogger
	clock    func() time.Time
}

// NewLocationService validates the configuration and builds the service.
func NewLocationService(cfg LocationServiceConfig) (*LocationService, error) {
	if cfg.Stores.Account.Addresses == nil || cfg.Stores.Guest.Addresses == nil {
		return nil, errors.New("services: address repositories are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &LocationService{
		stores:   cfg.Stores,
		geocoder: cfg.Geocoder,
		logger:   logger,
		clock:    clockOrNow(cfg.Clock),
	}, nil
}

// ListAddresses returns the shopper's saved addresses, default first.
func (s *LocationService) ListAddresses(ctx context.Context) ([]domain.Address, error) {
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return nil, err
	}
	addresses, err := stores.Addresses.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addresses, nil
}

// GetAddress fetches one saved address.
func (s *LocationService) GetAddress(ctx context.Context, addressID string) (domain.Address, error) {
	addressID = strings.TrimSpace(addressID)
	if addressID == "" {
		return domain.Address{}, fmt.Errorf("%w: address id is required", ErrAddressInvalidInput)
	}
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return domain.Address{}, err
	}
	address, err := stores.Addresses.Get(ctx, ownerID, addressID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Address{}, ErrAddressNotFound
		}
		return domain.Address{}, fmt.Errorf("get address: %w", err)
	}
	return address, nil
}

// SaveAddress creates or updates a delivery address. When coordinates are
// present and the address lines are blank, the geocoder fills them in.
func (s *LocationService) SaveAddress(ctx context.Context, address domain.Address) (domain.Address, error) {
	address.Label = strings.TrimSpace(address.Label)
	address.Line1 = strings.TrimSpace(address.Line1)
	if address.Label == "" {
		return domain.Address{}, fmt.Errorf("%w: label is required", ErrAddressInvalidInput)
	}

	if address.Line1 == "" && address.Location != nil && s.geocoder != nil {
		place, err := s.geocoder.Reverse(ctx, address.Location.Latitude, address.Location.Longitude)
		if err != nil {
			s.logger(ctx, "location.geocode_failed", map[string]any{"error": err.Error()})
		} else {
			address.Line1 = place.Street
			if address.Line2 == "" {
				address.Line2 = place.Suburb
			}
			if address.City == "" {
				address.City = place.City
			}
			if address.State == "" {
				address.State = place.State
			}
			if address.PostalCode == "" {
				address.PostalCode = place.PostalCode
			}
			if address.Country == "" {
				address.Country = place.Country
			}
		}
	}
	if address.Line1 == "" {
		return domain.Address{}, fmt.Errorf("%w: street line is required", ErrAddressInvalidInput)
	}
	if address.City == "" || address.PostalCode == "" {
		return domain.Address{}, fmt.Errorf("%w: city and postal code are required", ErrAddressInvalidInput)
	}

	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return domain.Address{}, err
	}
	saved, err := stores.Addresses.Upsert(ctx, ownerID, address)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Address{}, ErrAddressNotFound
		}
		return domain.Address{}, fmt.Errorf("save address: %w", err)
	}
	return saved, nil
}

// DeleteAddress removes a saved address. Deleting the default promotes the
// most recent remaining address.
func (s *LocationService) DeleteAddress(ctx context.Context, addressID string) error {
	addressID = strings.TrimSpace(addressID)
	if addressID == "" {
		return fmt.Errorf("%w: address id is required", ErrAddressInvalidInput)
	}
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return err
	}
	if err := stores.Addresses.Delete(ctx, ownerID, addressID); err != nil {
		if repositories.IsNotFound(err) {
			return ErrAddressNotFound
		}
		return fmt.Errorf("delete address: %w", err)
	}
	return nil
}

// SetDefaultAddress marks one address as the delivery default.
func (s *LocationService) SetDefaultAddress(ctx context.Context, addressID string) error {
	addressID = strings.TrimSpace(addressID)
	if addressID == "" {
		return fmt.Errorf("%w: address id is required", ErrAddressInvalidInput)
	}
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return err
	}
	if err := stores.Addresses.SetDefault(ctx, ownerID, addressID); err != nil {
		if repositories.IsNotFound(err) {
			return ErrAddressNotFound
		}
		return fmt.Errorf("set default address: %w", err)
	}
	return nil
}

// ReverseGeocode resolves coordinates into a displayable place.
func (s *LocationService) ReverseGeocode(ctx context.Context, point domain.GeoPoint) (Place, error) {
	if s.geocoder == nil {
		return Place{}, errors.New("services: geocoder is not configured")
	}
	if point.Latitude < -90 || point.Latitude > 90 || point.Longitude < -180 || point.Longitude > 180 {
		return Place{}, fmt.Errorf("%w: coordinates out of range", ErrAddressInvalidInput)
	}
	return s.geocoder.Reverse(ctx, point.Latitude, point.Longitude)
}
