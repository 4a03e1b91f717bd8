package payments

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// vpaPattern matches handle@psp virtual payment addresses.
var vpaPattern = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z][a-zA-Z0-9]{1,63}$`)

// ErrInvalidVPA is returned when a virtual payment address fails validation.
var ErrInvalidVPA = errors.New("upi: invalid virtual payment address")

// UPIStatusFunc looks up a transaction reference with the payment service
// provider and reports its current state plus the UTR when settled.
type UPIStatusFunc func(ctx context.Context, txnRef string) (Status, string, error)

// UPIProviderConfig configures the UPIProvider.
type UPIProviderConfig struct {
	PayeeVPA   string
	PayeeName  string
	StatusFunc UPIStatusFunc
	Logger     EventLogger
	Clock      func() time.Time
}

// UPIProvider implements the Provider interface using UPI intent deep links.
// The shopper's UPI app settles out of band; completion is observed either by
// polling the PSP through StatusFunc or by a settlement callback via Settle.
type UPIProvider struct {
	payeeVPA   string
	payeeName  string
	statusFunc UPIStatusFunc
	logger     EventLogger
	clock      func() time.Time

	mu     sync.Mutex
	orders map[string]*upiOrder
}

type upiOrder struct {
	amount   int64
	currency string
	status   Status
	utr      string
}

// NewUPIProvider constructs a UPI Provider using the given configuration.
func NewUPIProvider(cfg UPIProviderConfig) (*UPIProvider, error) {
	payeeVPA := strings.TrimSpace(cfg.PayeeVPA)
	if !ValidVPA(payeeVPA) {
		return nil, ErrInvalidVPA
	}
	payeeName := strings.TrimSpace(cfg.PayeeName)
	if payeeName == "" {
		return nil, errors.New("upi: payee name is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &UPIProvider{
		payeeVPA:   payeeVPA,
		payeeName:  payeeName,
		statusFunc: cfg.StatusFunc,
		logger:     logger,
		clock:      clock,
		orders:     make(map[string]*upiOrder),
	}, nil
}

// ValidVPA reports whether the address looks like a well-formed UPI handle.
func ValidVPA(vpa string) bool {
	return vpaPattern.MatchString(strings.TrimSpace(vpa))
}

// CreateOrder issues a transaction reference and the intent deep link the
// shopper's UPI app opens.
func (p *UPIProvider) CreateOrder(ctx context.Context, req OrderRequest) (OrderHandle, error) {
	if p == nil {
		return OrderHandle{}, errors.New("upi: provider is nil")
	}
	if req.Amount <= 0 {
		return OrderHandle{}, errors.New("upi: amount must be positive")
	}
	if req.VPA != "" && !ValidVPA(req.VPA) {
		return OrderHandle{}, ErrInvalidVPA
	}

	txnRef := ulid.MustNew(ulid.Timestamp(p.clock()), rand.Reader).String()

	p.mu.Lock()
	p.orders[txnRef] = &upiOrder{
		amount:   req.Amount,
		currency: strings.ToUpper(defaultCurrency(req.Currency)),
		status:   StatusPending,
	}
	p.mu.Unlock()

	p.logger(ctx, "payments.upi.intent.created", map[string]any{
		"txnRef":  txnRef,
		"orderId": req.OrderID,
	})

	return OrderHandle{
		Provider:       "upi",
		VendorOrderID:  txnRef,
		DeepLink:       p.intentLink(txnRef, req),
		RequiresAction: true,
	}, nil
}

// Verify checks the PSP-side state for the transaction reference.
func (p *UPIProvider) Verify(ctx context.Context, req VerifyRequest) (PaymentDetails, error) {
	details, err := p.Status(ctx, StatusRequest{VendorOrderID: req.VendorOrderID})
	if err != nil {
		return PaymentDetails{}, err
	}
	if details.Status != StatusSucceeded {
		return details, ErrVerificationFailed
	}
	return details, nil
}

// Status consults the PSP when a StatusFunc is configured, falling back to
// the locally recorded settlement state.
func (p *UPIProvider) Status(ctx context.Context, req StatusRequest) (PaymentDetails, error) {
	if p == nil {
		return PaymentDetails{}, errors.New("upi: provider is nil")
	}

	p.mu.Lock()
	order, ok := p.orders[req.VendorOrderID]
	p.mu.Unlock()
	if !ok {
		return PaymentDetails{}, errors.New("upi: unknown transaction reference")
	}

	if p.statusFunc != nil {
		status, utr, err := p.statusFunc(ctx, req.VendorOrderID)
		if err != nil {
			return PaymentDetails{}, fmt.Errorf("upi: psp status lookup: %w", err)
		}
		p.mu.Lock()
		order.status = status
		if utr != "" {
			order.utr = utr
		}
		p.mu.Unlock()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return PaymentDetails{
		Provider:        "upi",
		VendorOrderID:   req.VendorOrderID,
		VendorPaymentID: order.utr,
		Status:          order.status,
		Amount:          order.amount,
		Currency:        order.currency,
	}, nil
}

// Settle records a settlement callback from the PSP for a transaction
// reference. Unknown references are ignored with an error.
func (p *UPIProvider) Settle(ctx context.Context, txnRef, utr string, status Status) error {
	if p == nil {
		return errors.New("upi: provider is nil")
	}

	p.mu.Lock()
	order, ok := p.orders[txnRef]
	if ok {
		order.status = status
		order.utr = utr
	}
	p.mu.Unlock()

	if !ok {
		return errors.New("upi: unknown transaction reference")
	}
	p.logger(ctx, "payments.upi.settled", map[string]any{
		"txnRef": txnRef,
		"status": string(status),
	})
	return nil
}

func (p *UPIProvider) intentLink(txnRef string, req OrderRequest) string {
	values := url.Values{}
	values.Set("pa", p.payeeVPA)
	values.Set("pn", p.payeeName)
	values.Set("am", minorToDecimal(req.Amount))
	values.Set("cu", strings.ToUpper(defaultCurrency(req.Currency)))
	values.Set("tr", txnRef)
	if req.Description != "" {
		values.Set("tn", req.Description)
	}
	return "upi://pay?" + values.Encode()
}

func defaultCurrency(currency string) string {
	if strings.TrimSpace(currency) == "" {
		return "INR"
	}
	return currency
}
