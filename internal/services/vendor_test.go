package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/repositories/memory"
)

func seedVendorOrders(t *testing.T) *memory.OrderRepository {
	t.Helper()
	repo := memory.NewOrderRepository()
	ctx := context.Background()

	base := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	orders := []domain.Order{
		{
			ID: "ord-1", OwnerID: "a", Status: domain.OrderStatusConfirmed, Total: 20000,
			Items:     []domain.CartItem{{ProductID: "p1", Name: "Milk, 1L", UnitPrice: 5000, Quantity: 4}},
			CreatedAt: base,
		},
		{
			ID: "ord-2", OwnerID: "b", Status: domain.OrderStatusConfirmed, Total: 10000,
			Items:     []domain.CartItem{{ProductID: "p2", Name: "Salt", UnitPrice: 10000, Quantity: 1}},
			CreatedAt: base.AddDate(0, 1, 0),
		},
		{
			ID: "ord-3", OwnerID: "a", Status: domain.OrderStatusCancelled, Total: 9999,
			CreatedAt: base,
		},
		{
			ID: "ord-4", OwnerID: "c", Status: domain.OrderStatusPendingPayment, Total: 500,
			CreatedAt: base,
		},
	}
	for _, order := range orders {
		if _, err := repo.Insert(ctx, order); err != nil {
			t.Fatalf("seed order %s: %v", order.ID, err)
		}
	}
	return repo
}

func TestVendorAnalytics(t *testing.T) {
	svc, err := NewVendorService(VendorServiceConfig{Orders: seedVendorOrders(t)})
	if err != nil {
		t.Fatalf("new vendor service: %v", err)
	}

	stats, err := svc.Analytics(context.Background())
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if stats.TotalOrders != 4 || stats.ConfirmedOrders != 2 || stats.CancelledOrders != 1 || stats.PendingOrders != 1 {
		t.Fatalf("unexpected order counts: %+v", stats)
	}
	if stats.Revenue != 30000 {
		t.Fatalf("expected revenue from confirmed orders only, got %d", stats.Revenue)
	}
	if stats.AverageOrder != 15000 {
		t.Fatalf("expected average 15000, got %d", stats.AverageOrder)
	}
	if stats.UnitsSold != 5 {
		t.Fatalf("expected 5 units sold, got %d", stats.UnitsSold)
	}
	if len(stats.TopProducts) != 2 || stats.TopProducts[0].ProductID != "p1" {
		t.Fatalf("unexpected top products: %+v", stats.TopProducts)
	}
	if len(stats.Monthly) != 2 || stats.Monthly[0].Month != "2025-05" || stats.Monthly[1].Month != "2025-06" {
		t.Fatalf("unexpected monthly rows: %+v", stats.Monthly)
	}
}

func TestExportCSVShape(t *testing.T) {
	svc, err := NewVendorService(VendorServiceConfig{Orders: seedVendorOrders(t)})
	if err != nil {
		t.Fatalf("new vendor service: %v", err)
	}

	out, err := svc.ExportCSV(context.Background(), ReportTopProducts)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("\uFEFF")) {
		t.Fatal("expected UTF-8 BOM prefix")
	}

	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(out, []byte("\uFEFF")))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus two rows, got %d", len(records))
	}
	header := records[0]
	if strings.Join(header, ",") != "product_id,name,units,revenue" {
		t.Fatalf("unexpected header: %v", header)
	}
	for i, record := range records {
		if len(record) != len(header) {
			t.Fatalf("row %d has %d fields, want %d", i, len(record), len(header))
		}
	}
	// Cells are JSON-stringified, so the embedded comma survives quoting.
	if records[1][1] != `"Milk, 1L"` {
		t.Fatalf("expected JSON-stringified cell, got %q", records[1][1])
	}
	if records[1][2] != "4" {
		t.Fatalf("expected numeric cell, got %q", records[1][2])
	}
}

func TestExportCSVSummaryAndMonthly(t *testing.T) {
	svc, err := NewVendorService(VendorServiceConfig{Orders: seedVendorOrders(t)})
	if err != nil {
		t.Fatalf("new vendor service: %v", err)
	}

	out, err := svc.ExportCSV(context.Background(), ReportSummary)
	if err != nil {
		t.Fatalf("export summary: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(out, []byte("\uFEFF")))).ReadAll()
	if err != nil {
		t.Fatalf("parse summary: %v", err)
	}
	if len(records) != 2 || records[1][0] != "4" || records[1][4] != "30000" {
		t.Fatalf("unexpected summary rows: %v", records)
	}

	if _, err := svc.ExportCSV(context.Background(), ReportKind("bogus")); !errors.Is(err, ErrUnknownReport) {
		t.Fatalf("expected unknown report error, got %v", err)
	}
}
