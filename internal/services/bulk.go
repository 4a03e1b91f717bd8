package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/repositories"
)

// ErrBulkInvalidInput is returned for malformed bulk quote requests.
var ErrBulkInvalidInput = errors.New("services: invalid bulk order input")

const maxBulkLines = 100

// BulkOrderServiceConfig wires the bulk order service dependencies.
type BulkOrderServiceConfig struct {
	Products repositories.ProductRepository
	// Currency is stamped on quotations. Defaults to INR.
	Currency string
	Logger   EventLogger
	Clock    func() time.Time
}

// BulkOrderService prices bulk requests against the quantity tier table and
// renders printable quotations.
type BulkOrderService struct {
	products repositories.ProductRepository
	currency string
	logger   EventLogger
	clock    func() time.Time
}

// NewBulkOrderService validates the configuration and builds the service.
func NewBulkOrderService(cfg BulkOrderServiceConfig) (*BulkOrderService, error) {
	if cfg.Products == nil {
		return nil, errors.New("services: product repository is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "INR"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &BulkOrderService{
		products: cfg.Products,
		currency: currency,
		logger:   logger,
		clock:    clockOrNow(cfg.Clock),
	}, nil
}

// BulkQuoteLine is one requested product and quantity.
type BulkQuoteLine struct {
	ProductID string
	Quantity  int
}

// PricedTier is one discount band applied to a given unit price.
type PricedTier struct {
	MinQty          int
	MaxQty          int
	DiscountPercent int
	UnitPrice       int64
}

// PricedTiers returns the discount bands with the effective unit price for
// the given base price. Each call returns a fresh slice.
func (s *BulkOrderService) PricedTiers(basePrice int64) []PricedTier {
	tiers := domain.PricingTiers()
	priced := make([]PricedTier, 0, len(tiers))
	for _, tier := range tiers {
		priced = append(priced, PricedTier{
			MinQty:          tier.MinQty,
			MaxQty:          tier.MaxQty,
			DiscountPercent: tier.Percent,
			UnitPrice:       basePrice * int64(100-tier.Percent) / 100,
		})
	}
	return priced
}

// Quote prices the requested lines against the current catalog and the tier
// table.
func (s *BulkOrderService) Quote(ctx context.Context, ownerID string, lines []BulkQuoteLine) (domain.Quotation, error) {
	if len(lines) == 0 {
		return domain.Quotation{}, fmt.Errorf("%w: at least one line is required", ErrBulkInvalidInput)
	}
	if len(lines) > maxBulkLines {
		return domain.Quotation{}, fmt.Errorf("%w: at most %d lines per quote", ErrBulkInvalidInput, maxBulkLines)
	}

	items := make([]domain.BulkOrderItem, 0, len(lines))
	for _, line := range lines {
		productID := strings.TrimSpace(line.ProductID)
		if productID == "" || line.Quantity <= 0 {
			return domain.Quotation{}, fmt.Errorf("%w: every line needs a product id and a positive quantity", ErrBulkInvalidInput)
		}
		product, err := s.products.Get(ctx, productID)
		if err != nil {
			if repositories.IsNotFound(err) {
				return domain.Quotation{}, ErrProductNotFound
			}
			return domain.Quotation{}, fmt.Errorf("load product: %w", err)
		}
		items = append(items, domain.BulkOrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Currency:  product.Currency,
			Quantity:  line.Quantity,
		})
	}

	quotation := domain.BuildQuotation(newID(), ownerID, s.currency, items, s.clock())
	s.logger(ctx, "bulk.quote_built", map[string]any{
		"owner_id":   ownerID,
		"line_count": len(quotation.Lines),
		"total":      quotation.Total,
	})
	return quotation, nil
}

// QuotationPDF renders a quotation as a printable PDF document.
func (s *BulkOrderService) QuotationPDF(quotation domain.Quotation) ([]byte, error) {
	if len(quotation.Lines) == 0 {
		return nil, fmt.Errorf("%w: quotation has no lines", ErrBulkInvalidInput)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Bulk Order Quotation", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "SwiftMart Bulk Order Quotation")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Quotation %s", quotation.ID))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s", quotation.GeneratedAt.Format("02 Jan 2006 15:04 MST")))
	pdf.Ln(10)

	colWidths := []float64{72, 22, 28, 18, 30}
	headers := []string{"Product", "Qty", "Unit Price", "Disc %", "Line Total"}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for i, header := range headers {
		pdf.CellFormat(colWidths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range quotation.Lines {
		pdf.CellFormat(colWidths[0], 8, line.Item.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[1], 8, fmt.Sprintf("%d", line.Item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[2], 8, formatMinor(line.Item.UnitPrice, quotation.Currency), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[3], 8, fmt.Sprintf("%d%%", line.DiscountPercent), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[4], 8, formatMinor(line.LineTotal, quotation.Currency), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(140, 7, "Subtotal", "", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, formatMinor(quotation.Subtotal, quotation.Currency), "", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.CellFormat(140, 7, "Bulk discount", "", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, "-"+formatMinor(quotation.Discount, quotation.Currency), "", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(140, 8, "Total", "", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, formatMinor(quotation.Total, quotation.Currency), "", 0, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render quotation pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func formatMinor(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%s %d.%02d", sign, currency, amount/100, amount%100)
}
