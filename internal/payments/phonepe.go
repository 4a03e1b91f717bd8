package payments

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	phonePePayPath    = "/pg/v1/pay"
	phonePeStatusPath = "/pg/v1/status"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// PhonePeProviderConfig configures the PhonePeProvider.
type PhonePeProviderConfig struct {
	BaseURL    string
	MerchantID string
	SaltKey    string
	SaltIndex  string
	HTTPClient httpDoer
	Logger     EventLogger
}

// PhonePeProvider implements the Provider interface against the PhonePe
// standard checkout REST API. Every request carries an X-VERIFY checksum
// derived from the salt key; Verify is a status lookup because PhonePe
// settles through its hosted page.
type PhonePeProvider struct {
	baseURL    string
	merchantID string
	saltKey    string
	saltIndex  string
	client     httpDoer
	logger     EventLogger
}

// NewPhonePeProvider constructs a PhonePe Provider using the given configuration.
func NewPhonePeProvider(cfg PhonePeProviderConfig) (*PhonePeProvider, error) {
	merchantID := strings.TrimSpace(cfg.MerchantID)
	saltKey := strings.TrimSpace(cfg.SaltKey)
	if merchantID == "" || saltKey == "" {
		return nil, errors.New("phonepe: merchant id and salt key are required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("phonepe: base url is required")
	}
	saltIndex := strings.TrimSpace(cfg.SaltIndex)
	if saltIndex == "" {
		saltIndex = "1"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &PhonePeProvider{
		baseURL:    baseURL,
		merchantID: merchantID,
		saltKey:    saltKey,
		saltIndex:  saltIndex,
		client:     client,
		logger:     logger,
	}, nil
}

type phonePePayload struct {
	MerchantID            string `json:"merchantId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	MerchantUserID        string `json:"merchantUserId,omitempty"`
	Amount                int64  `json:"amount"`
	RedirectURL           string `json:"redirectUrl,omitempty"`
	RedirectMode          string `json:"redirectMode,omitempty"`
	CallbackURL           string `json:"callbackUrl,omitempty"`
	MobileNumber          string `json:"mobileNumber,omitempty"`
	PaymentInstrument     struct {
		Type string `json:"type"`
	} `json:"paymentInstrument"`
}

type phonePeResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		TransactionID         string `json:"transactionId"`
		State                 string `json:"state"`
		Amount                int64  `json:"amount"`
		InstrumentResponse    struct {
			RedirectInfo struct {
				URL string `json:"url"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

// CreateOrder opens a hosted-page transaction.
func (p *PhonePeProvider) CreateOrder(ctx context.Context, req OrderRequest) (OrderHandle, error) {
	if p == nil {
		return OrderHandle{}, errors.New("phonepe: provider is nil")
	}
	if req.Amount <= 0 {
		return OrderHandle{}, errors.New("phonepe: amount must be positive")
	}
	if req.OrderID == "" {
		return OrderHandle{}, errors.New("phonepe: order id is required")
	}

	payload := phonePePayload{
		MerchantID:            p.merchantID,
		MerchantTransactionID: req.OrderID,
		MerchantUserID:        req.CustomerID,
		Amount:                req.Amount,
		RedirectURL:           req.ReturnURL,
		RedirectMode:          "REDIRECT",
		MobileNumber:          req.CustomerPhone,
	}
	payload.PaymentInstrument.Type = "PAY_PAGE"

	encoded, err := encodePhonePePayload(payload)
	if err != nil {
		return OrderHandle{}, err
	}

	body, err := json.Marshal(map[string]string{"request": encoded})
	if err != nil {
		return OrderHandle{}, fmt.Errorf("phonepe: marshal request: %w", err)
	}

	checksum := phonePeChecksum(encoded+phonePePayPath+p.saltKey) + "###" + p.saltIndex
	resp, err := p.post(ctx, p.baseURL+phonePePayPath, checksum, body)
	if err != nil {
		return OrderHandle{}, err
	}
	if !resp.Success {
		return OrderHandle{}, fmt.Errorf("phonepe: pay rejected: %s", resp.Code)
	}

	p.logger(ctx, "payments.phonepe.order.created", map[string]any{
		"merchantTransactionId": req.OrderID,
	})

	return OrderHandle{
		Provider:       "phonepe",
		VendorOrderID:  req.OrderID,
		RedirectURL:    resp.Data.InstrumentResponse.RedirectInfo.URL,
		RequiresAction: true,
	}, nil
}

// Verify is a server-side status check; PhonePe has no client-held proof.
func (p *PhonePeProvider) Verify(ctx context.Context, req VerifyRequest) (PaymentDetails, error) {
	details, err := p.Status(ctx, StatusRequest{VendorOrderID: req.VendorOrderID})
	if err != nil {
		return PaymentDetails{}, err
	}
	if details.Status != StatusSucceeded {
		return details, ErrVerificationFailed
	}
	return details, nil
}

// Status looks up the transaction state with a checksummed GET.
func (p *PhonePeProvider) Status(ctx context.Context, req StatusRequest) (PaymentDetails, error) {
	if p == nil {
		return PaymentDetails{}, errors.New("phonepe: provider is nil")
	}
	if req.VendorOrderID == "" {
		return PaymentDetails{}, errors.New("phonepe: vendor order id is required")
	}

	path := fmt.Sprintf("%s/%s/%s", phonePeStatusPath, p.merchantID, req.VendorOrderID)
	checksum := phonePeChecksum(path+p.saltKey) + "###" + p.saltIndex

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return PaymentDetails{}, fmt.Errorf("phonepe: build status request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", checksum)
	httpReq.Header.Set("X-MERCHANT-ID", p.merchantID)

	resp, err := p.do(httpReq)
	if err != nil {
		return PaymentDetails{}, err
	}

	status := StatusPending
	switch resp.Data.State {
	case "COMPLETED":
		status = StatusSucceeded
	case "FAILED":
		status = StatusFailed
	}

	var failureCode string
	if status == StatusFailed {
		failureCode = resp.Code
	}

	return PaymentDetails{
		Provider:        "phonepe",
		VendorOrderID:   req.VendorOrderID,
		VendorPaymentID: resp.Data.TransactionID,
		Status:          status,
		Amount:          resp.Data.Amount,
		Currency:        "INR",
		FailureCode:     failureCode,
	}, nil
}

func (p *PhonePeProvider) post(ctx context.Context, url, checksum string, body []byte) (*phonePeResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("phonepe: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", checksum)
	return p.do(httpReq)
}

func (p *PhonePeProvider) do(req *http.Request) (*phonePeResponse, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("phonepe: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("phonepe: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("phonepe: unexpected status %d", resp.StatusCode)
	}

	var parsed phonePeResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("phonepe: decode response: %w", err)
	}
	return &parsed, nil
}

func encodePhonePePayload(payload phonePePayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("phonepe: marshal payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func phonePeChecksum(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
