package services

import (
	"context"
	"errors"
	"testing"

	"github.com/swiftmart/api/internal/domain"
)

type fakeGeocoder struct {
	place Place
	err   error
	calls int
}

func (f *fakeGeocoder) Reverse(_ context.Context, _, _ float64) (Place, error) {
	f.calls++
	if f.err != nil {
		return Place{}, f.err
	}
	return f.place, nil
}

func newLocationService(t *testing.T, geocoder reverseGeocoder) *LocationService {
	t.Helper()
	svc, err := NewLocationService(LocationServiceConfig{
		Stores:   Stores{Account: shopperStores(), Guest: shopperStores()},
		Geocoder: geocoder,
	})
	if err != nil {
		t.Fatalf("new location service: %v", err)
	}
	return svc
}

func TestSaveAddressFillsFromGeocoder(t *testing.T) {
	geocoder := &fakeGeocoder{place: Place{
		Street: "12 MG Road", Suburb: "Shivajinagar", City: "Bengaluru",
		State: "Karnataka", PostalCode: "560001", Country: "India",
	}}
	svc := newLocationService(t, geocoder)
	ctx := shopperContext()

	saved, err := svc.SaveAddress(ctx, domain.Address{
		Label:    "Home",
		Location: &domain.GeoPoint{Latitude: 12.97, Longitude: 77.59},
	})
	if err != nil {
		t.Fatalf("save address: %v", err)
	}
	if geocoder.calls != 1 {
		t.Fatalf("expected one geocoder lookup, got %d", geocoder.calls)
	}
	if saved.Line1 != "12 MG Road" || saved.City != "Bengaluru" || saved.PostalCode != "560001" {
		t.Fatalf("geocoded fields missing: %+v", saved)
	}
	if !saved.IsDefault {
		t.Fatal("first address must become the default")
	}
}

func TestSaveAddressValidation(t *testing.T) {
	svc := newLocationService(t, nil)
	ctx := shopperContext()

	if _, err := svc.SaveAddress(ctx, domain.Address{Line1: "somewhere"}); !errors.Is(err, ErrAddressInvalidInput) {
		t.Fatalf("expected missing-label rejection, got %v", err)
	}
	if _, err := svc.SaveAddress(ctx, domain.Address{Label: "Home"}); !errors.Is(err, ErrAddressInvalidInput) {
		t.Fatalf("expected missing-street rejection, got %v", err)
	}
	if _, err := svc.SaveAddress(ctx, domain.Address{Label: "Home", Line1: "12 MG Road"}); !errors.Is(err, ErrAddressInvalidInput) {
		t.Fatalf("expected missing-city rejection, got %v", err)
	}
}

func TestAddressLifecycle(t *testing.T) {
	svc := newLocationService(t, nil)
	ctx := shopperContext()

	home, err := svc.SaveAddress(ctx, domain.Address{Label: "Home", Line1: "12 MG Road", City: "Bengaluru", PostalCode: "560001", Country: "IN"})
	if err != nil {
		t.Fatalf("save home: %v", err)
	}
	office, err := svc.SaveAddress(ctx, domain.Address{Label: "Office", Line1: "1 Residency Road", City: "Bengaluru", PostalCode: "560025", Country: "IN"})
	if err != nil {
		t.Fatalf("save office: %v", err)
	}

	if err := svc.SetDefaultAddress(ctx, office.ID); err != nil {
		t.Fatalf("set default: %v", err)
	}
	addresses, err := svc.ListAddresses(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(addresses) != 2 {
		t.Fatalf("expected two addresses, got %d", len(addresses))
	}

	got, err := svc.GetAddress(ctx, home.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Label != "Home" {
		t.Fatalf("unexpected address %+v", got)
	}

	if err := svc.DeleteAddress(ctx, office.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetAddress(ctx, office.ID); !errors.Is(err, ErrAddressNotFound) {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
	if err := svc.DeleteAddress(ctx, "missing"); !errors.Is(err, ErrAddressNotFound) {
		t.Fatalf("expected not-found for unknown id, got %v", err)
	}
}

func TestReverseGeocode(t *testing.T) {
	geocoder := &fakeGeocoder{place: Place{City: "Bengaluru"}}
	svc := newLocationService(t, geocoder)

	place, err := svc.ReverseGeocode(context.Background(), domain.GeoPoint{Latitude: 12.97, Longitude: 77.59})
	if err != nil {
		t.Fatalf("reverse geocode: %v", err)
	}
	if place.City != "Bengaluru" {
		t.Fatalf("unexpected place %+v", place)
	}

	if _, err := svc.ReverseGeocode(context.Background(), domain.GeoPoint{Latitude: 200}); !errors.Is(err, ErrAddressInvalidInput) {
		t.Fatalf("expected out-of-range rejection, got %v", err)
	}

	nosvc := newLocationService(t, nil)
	if _, err := nosvc.ReverseGeocode(context.Background(), domain.GeoPoint{}); err == nil {
		t.Fatal("expected error when geocoder is not configured")
	}
}
