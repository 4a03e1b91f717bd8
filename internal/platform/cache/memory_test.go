package cache

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}

	if err := c.Set(ctx, "products:milk", payload{Name: "Whole Milk 1L"}); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var got payload
	if err := c.Get(ctx, "products:milk", &got); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Whole Milk 1L" {
		t.Fatalf("unexpected cached value: %+v", got)
	}

	if err := c.Delete(ctx, "products:milk"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := c.Get(ctx, "products:milk", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss after delete, got %v", err)
	}
}

func TestMemorySearchHistoryDedupesAndCaps(t *testing.T) {
	h := NewMemorySearchHistory(3)
	ctx := context.Background()

	for _, term := range []string{"milk", "bread", "milk", "eggs", "butter"} {
		if err := h.Record(ctx, "shopper-1", term); err != nil {
			t.Fatalf("record %q failed: %v", term, err)
		}
	}

	got, err := h.Recent(ctx, "shopper-1")
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	want := []string{"butter", "eggs", "milk"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if err := h.Clear(ctx, "shopper-1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	got, err = h.Recent(ctx, "shopper-1")
	if err != nil {
		t.Fatalf("recent after clear failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty history, got %v", got)
	}
}
