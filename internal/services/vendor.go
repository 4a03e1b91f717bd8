package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/repositories"
)

// ErrUnknownReport is returned for an unrecognised export kind.
var ErrUnknownReport = errors.New("services: unknown report kind")

// ReportKind selects a vendor CSV export.
type ReportKind string

const (
	// ReportSummary is a single-row rollup of the whole store.
	ReportSummary ReportKind = "summary"
	// ReportTopProducts ranks products by units sold.
	ReportTopProducts ReportKind = "top-products"
	// ReportMonthly breaks revenue down by calendar month.
	ReportMonthly ReportKind = "monthly"
)

// VendorServiceConfig wires the vendor dashboard dependencies.
type VendorServiceConfig struct {
	Orders repositories.OrderRepository
	Logger EventLogger
	Clock  func() time.Time
}

// VendorService aggregates store-wide order data for the vendor dashboard.
type VendorService struct {
	orders repositories.OrderRepository
	logger EventLogger
	clock  func() time.Time
}

// NewVendorService validates the configuration and builds the service.
func NewVendorService(cfg VendorServiceConfig) (*VendorService, error) {
	if cfg.Orders == nil {
		return nil, errors.New("services: order repository is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &VendorService{
		orders: cfg.Orders,
		logger: logger,
		clock:  clockOrNow(cfg.Clock),
	}, nil
}

// ProductSales is one row of the top-products ranking.
type ProductSales struct {
	ProductID string
	Name      string
	Units     int
	Revenue   int64
}

// MonthlyRevenue is one row of the month-by-month breakdown.
type MonthlyRevenue struct {
	Month   string
	Orders  int
	Revenue int64
}

// Analytics is the vendor dashboard rollup.
type Analytics struct {
	TotalOrders     int
	ConfirmedOrders int
	CancelledOrders int
	PendingOrders   int
	Revenue         int64
	AverageOrder    int64
	UnitsSold       int
	TopProducts     []ProductSales
	Monthly         []MonthlyRevenue
}

// Analytics computes the dashboard rollup over every order in the store.
// Revenue counts confirmed orders only.
func (s *VendorService) Analytics(ctx context.Context) (Analytics, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("load orders: %w", err)
	}

	stats := Analytics{TotalOrders: len(orders)}
	sales := make(map[string]*ProductSales)
	monthly := make(map[string]*MonthlyRevenue)

	for _, order := range orders {
		switch order.Status {
		case domain.OrderStatusConfirmed:
			stats.ConfirmedOrders++
		case domain.OrderStatusCancelled:
			stats.CancelledOrders++
		default:
			stats.PendingOrders++
		}
		if order.Status != domain.OrderStatusConfirmed {
			continue
		}

		stats.Revenue += order.Total
		month := order.CreatedAt.Format("2006-01")
		row, ok := monthly[month]
		if !ok {
			row = &MonthlyRevenue{Month: month}
			monthly[month] = row
		}
		row.Orders++
		row.Revenue += order.Total

		for _, item := range order.Items {
			stats.UnitsSold += item.Quantity
			entry, ok := sales[item.ProductID]
			if !ok {
				entry = &ProductSales{ProductID: item.ProductID, Name: item.Name}
				sales[item.ProductID] = entry
			}
			entry.Units += item.Quantity
			entry.Revenue += item.UnitPrice * int64(item.Quantity)
		}
	}
	if stats.ConfirmedOrders > 0 {
		stats.AverageOrder = stats.Revenue / int64(stats.ConfirmedOrders)
	}

	for _, entry := range sales {
		stats.TopProducts = append(stats.TopProducts, *entry)
	}
	sort.Slice(stats.TopProducts, func(i, j int) bool {
		if stats.TopProducts[i].Units != stats.TopProducts[j].Units {
			return stats.TopProducts[i].Units > stats.TopProducts[j].Units
		}
		return stats.TopProducts[i].ProductID < stats.TopProducts[j].ProductID
	})
	if len(stats.TopProducts) > 10 {
		stats.TopProducts = stats.TopProducts[:10]
	}

	for _, row := range monthly {
		stats.Monthly = append(stats.Monthly, *row)
	}
	sort.Slice(stats.Monthly, func(i, j int) bool {
		return stats.Monthly[i].Month < stats.Monthly[j].Month
	})
	return stats, nil
}

// Orders returns every order in the store, newest first.
func (s *VendorService) Orders(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	return orders, nil
}

// ExportCSV renders a report as spreadsheet-ready CSV: UTF-8 BOM prefix,
// header row from the first record's keys, every cell JSON-stringified, and a
// uniform field count across rows.
func (s *VendorService) ExportCSV(ctx context.Context, kind ReportKind) ([]byte, error) {
	stats, err := s.Analytics(ctx)
	if err != nil {
		return nil, err
	}

	var header []string
	var rows [][]any
	switch kind {
	case ReportSummary:
		header = []string{"total_orders", "confirmed_orders", "cancelled_orders", "pending_orders", "revenue", "average_order", "units_sold"}
		rows = [][]any{{
			stats.TotalOrders, stats.ConfirmedOrders, stats.CancelledOrders,
			stats.PendingOrders, stats.Revenue, stats.AverageOrder, stats.UnitsSold,
		}}
	case ReportTopProducts:
		header = []string{"product_id", "name", "units", "revenue"}
		for _, entry := range stats.TopProducts {
			rows = append(rows, []any{entry.ProductID, entry.Name, entry.Units, entry.Revenue})
		}
	case ReportMonthly:
		header = []string{"month", "orders", "revenue"}
		for _, row := range stats.Monthly {
			rows = append(rows, []any{row.Month, row.Orders, row.Revenue})
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownReport, kind)
	}

	var buf bytes.Buffer
	buf.WriteString("\uFEFF")
	writer := csv.NewWriter(&buf)
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(header))
		for i, cell := range row {
			record[i] = stringifyCell(cell)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	s.logger(ctx, "vendor.report_exported", map[string]any{"kind": string(kind), "rows": len(rows)})
	return buf.Bytes(), nil
}

// Every cell goes through the JSON encoder, strings included, so embedded
// commas, quotes, and newlines survive the round trip into spreadsheet tools.
func stringifyCell(cell any) string {
	encoded, err := json.Marshal(cell)
	if err != nil {
		return fmt.Sprintf("%v", cell)
	}
	return string(encoded)
}
