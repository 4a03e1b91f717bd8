package handlers

import (
	"time"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/payments"
	"github.com/swiftmart/api/internal/services"
)

type productPayload struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Brand           string   `json:"brand,omitempty"`
	Category        string   `json:"category,omitempty"`
	Description     string   `json:"description,omitempty"`
	ImageURL        string   `json:"imageUrl,omitempty"`
	Currency        string   `json:"currency"`
	Price           int64    `json:"price"`
	ListPrice       int64    `json:"listPrice,omitempty"`
	DiscountPercent int      `json:"discountPercent,omitempty"`
	Unit            string   `json:"unit,omitempty"`
	Rating          float64  `json:"rating"`
	RatingCount     int      `json:"ratingCount"`
	InStock         bool     `json:"inStock"`
	Tags            []string `json:"tags,omitempty"`
}

func buildProductPayload(p domain.Product) productPayload {
	return productPayload{
		ID:              p.ID,
		Name:            p.Name,
		Brand:           p.Brand,
		Category:        p.Category,
		Description:     p.Description,
		ImageURL:        p.ImageURL,
		Currency:        p.Currency,
		Price:           p.Price,
		ListPrice:       p.ListPrice,
		DiscountPercent: p.DiscountPercent(),
		Unit:            p.Unit,
		Rating:          p.Rating,
		RatingCount:     p.RatingCount,
		InStock:         p.InStock,
		Tags:            p.Tags,
	}
}

func buildProductPayloads(products []domain.Product) []productPayload {
	out := make([]productPayload, 0, len(products))
	for _, p := range products {
		out = append(out, buildProductPayload(p))
	}
	return out
}

type dealPayload struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Subtitle         string           `json:"subtitle,omitempty"`
	BannerURL        string           `json:"bannerUrl,omitempty"`
	Percent          int              `json:"percent"`
	EndsAt           time.Time        `json:"endsAt"`
	RemainingSeconds int64            `json:"remainingSeconds"`
	Products         []productPayload `json:"products"`
}

func buildDealPayload(d services.ActiveDeal) dealPayload {
	return dealPayload{
		ID:               d.Deal.ID,
		Title:            d.Deal.Title,
		Subtitle:         d.Deal.Subtitle,
		BannerURL:        d.Deal.BannerURL,
		Percent:          d.Deal.Percent,
		EndsAt:           d.Deal.EndsAt,
		RemainingSeconds: d.RemainingSeconds,
		Products:         buildProductPayloads(d.Products),
	}
}

type cartItemPayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	ImageURL  string `json:"imageUrl,omitempty"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"lineTotal"`
}

type cartPayload struct {
	ID        string            `json:"id"`
	Currency  string            `json:"currency"`
	Items     []cartItemPayload `json:"items"`
	Subtotal  int64             `json:"subtotal"`
	ItemCount int               `json:"itemCount"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func buildCartPayload(cart domain.Cart) cartPayload {
	items := make([]cartItemPayload, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			ImageURL:  item.ImageURL,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.UnitPrice * int64(item.Quantity),
		})
	}
	return cartPayload{
		ID:        cart.ID,
		Currency:  cart.Currency,
		Items:     items,
		Subtotal:  cart.Subtotal(),
		ItemCount: cart.ItemCount(),
		UpdatedAt: cart.UpdatedAt,
	}
}

type wishlistItemPayload struct {
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Price     int64     `json:"price"`
	AddedAt   time.Time `json:"addedAt"`
}

func buildWishlistPayload(items []domain.WishlistItem) []wishlistItemPayload {
	out := make([]wishlistItemPayload, 0, len(items))
	for _, item := range items {
		out = append(out, wishlistItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			ImageURL:  item.ImageURL,
			Price:     item.Price,
			AddedAt:   item.AddedAt,
		})
	}
	return out
}

type geoPointPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type addressPayload struct {
	ID         string           `json:"id"`
	Label      string           `json:"label"`
	Line1      string           `json:"line1"`
	Line2      string           `json:"line2,omitempty"`
	City       string           `json:"city"`
	State      string           `json:"state,omitempty"`
	PostalCode string           `json:"postalCode"`
	Country    string           `json:"country,omitempty"`
	Phone      string           `json:"phone,omitempty"`
	Location   *geoPointPayload `json:"location,omitempty"`
	IsDefault  bool             `json:"isDefault"`
}

func buildAddressPayload(a domain.Address) addressPayload {
	payload := addressPayload{
		ID:         a.ID,
		Label:      a.Label,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
		IsDefault:  a.IsDefault,
	}
	if a.Location != nil {
		payload.Location = &geoPointPayload{Latitude: a.Location.Latitude, Longitude: a.Location.Longitude}
	}
	return payload
}

type paymentMethodPayload struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	Kind      string `json:"kind"`
	Label     string `json:"label,omitempty"`
	Last4     string `json:"last4,omitempty"`
	VPA       string `json:"vpa,omitempty"`
	ExpiryMM  int    `json:"expiryMonth,omitempty"`
	ExpiryYY  int    `json:"expiryYear,omitempty"`
	IsDefault bool   `json:"isDefault"`
}

func buildPaymentMethodPayload(m domain.PaymentMethod) paymentMethodPayload {
	return paymentMethodPayload{
		ID:        m.ID,
		Provider:  m.Provider,
		Kind:      string(m.Kind),
		Label:     m.Label,
		Last4:     m.Last4,
		VPA:       m.VPA,
		ExpiryMM:  m.ExpiryMM,
		ExpiryYY:  m.ExpiryYY,
		IsDefault: m.IsDefault,
	}
}

type chatMessagePayload struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type chatSessionPayload struct {
	SessionID string               `json:"sessionId"`
	Messages  []chatMessagePayload `json:"messages"`
}

func buildChatSessionPayload(session domain.ChatSession) chatSessionPayload {
	messages := make([]chatMessagePayload, 0, len(session.Messages))
	for _, msg := range session.Messages {
		messages = append(messages, chatMessagePayload{
			ID:        msg.ID,
			Role:      string(msg.Role),
			Text:      msg.Text,
			CreatedAt: msg.CreatedAt,
		})
	}
	return chatSessionPayload{SessionID: session.ID, Messages: messages}
}

type attemptPayload struct {
	ID            string    `json:"id"`
	Provider      string    `json:"provider,omitempty"`
	State         string    `json:"state"`
	VendorOrderID string    `json:"vendorOrderId,omitempty"`
	VendorTxnID   string    `json:"vendorTransactionId,omitempty"`
	FailureCode   string    `json:"failureCode,omitempty"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type orderPayload struct {
	ID        string            `json:"id"`
	Currency  string            `json:"currency"`
	Items     []cartItemPayload `json:"items"`
	Subtotal  int64             `json:"subtotal"`
	Discount  int64             `json:"discount"`
	Total     int64             `json:"total"`
	AddressID string            `json:"addressId,omitempty"`
	Status    string            `json:"status"`
	Attempts  []attemptPayload  `json:"attempts"`
	CreatedAt time.Time         `json:"createdAt"`
}

func buildOrderPayload(order domain.Order) orderPayload {
	items := make([]cartItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, cartItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			ImageURL:  item.ImageURL,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.UnitPrice * int64(item.Quantity),
		})
	}
	attempts := make([]attemptPayload, 0, len(order.Attempts))
	for _, attempt := range order.Attempts {
		attempts = append(attempts, attemptPayload{
			ID:            attempt.ID,
			Provider:      attempt.Provider,
			State:         string(attempt.State),
			VendorOrderID: attempt.VendorOrderID,
			VendorTxnID:   attempt.VendorTxnID,
			FailureCode:   attempt.FailureCode,
			Amount:        attempt.Amount,
			Currency:      attempt.Currency,
			UpdatedAt:     attempt.UpdatedAt,
		})
	}
	return orderPayload{
		ID:        order.ID,
		Currency:  order.Currency,
		Items:     items,
		Subtotal:  order.Subtotal,
		Discount:  order.Discount,
		Total:     order.Total,
		AddressID: order.AddressID,
		Status:    string(order.Status),
		Attempts:  attempts,
		CreatedAt: order.CreatedAt,
	}
}

type handlePayload struct {
	Provider       string         `json:"provider"`
	VendorOrderID  string         `json:"vendorOrderId,omitempty"`
	ClientSecret   string         `json:"clientSecret,omitempty"`
	RedirectURL    string         `json:"redirectUrl,omitempty"`
	DeepLink       string         `json:"deepLink,omitempty"`
	RequiresAction bool           `json:"requiresAction"`
	Raw            map[string]any `json:"raw,omitempty"`
}

func buildHandlePayload(handle payments.OrderHandle) handlePayload {
	return handlePayload{
		Provider:       handle.Provider,
		VendorOrderID:  handle.VendorOrderID,
		ClientSecret:   handle.ClientSecret,
		RedirectURL:    handle.RedirectURL,
		DeepLink:       handle.DeepLink,
		RequiresAction: handle.RequiresAction,
		Raw:            handle.Raw,
	}
}

type pricedTierPayload struct {
	MinQty          int   `json:"minQty"`
	MaxQty          int   `json:"maxQty,omitempty"`
	DiscountPercent int   `json:"discountPercent"`
	UnitPrice       int64 `json:"unitPrice"`
}

type quotationLinePayload struct {
	ProductID       string `json:"productId"`
	Name            string `json:"name"`
	UnitPrice       int64  `json:"unitPrice"`
	Quantity        int    `json:"quantity"`
	DiscountPercent int    `json:"discountPercent"`
	LineTotal       int64  `json:"lineTotal"`
}

type quotationPayload struct {
	ID          string                 `json:"id"`
	Currency    string                 `json:"currency"`
	Lines       []quotationLinePayload `json:"lines"`
	Subtotal    int64                  `json:"subtotal"`
	Discount    int64                  `json:"discount"`
	Total       int64                  `json:"total"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

func buildQuotationPayload(q domain.Quotation) quotationPayload {
	lines := make([]quotationLinePayload, 0, len(q.Lines))
	for _, line := range q.Lines {
		lines = append(lines, quotationLinePayload{
			ProductID:       line.Item.ProductID,
			Name:            line.Item.Name,
			UnitPrice:       line.Item.UnitPrice,
			Quantity:        line.Item.Quantity,
			DiscountPercent: line.DiscountPercent,
			LineTotal:       line.LineTotal,
		})
	}
	return quotationPayload{
		ID:          q.ID,
		Currency:    q.Currency,
		Lines:       lines,
		Subtotal:    q.Subtotal,
		Discount:    q.Discount,
		Total:       q.Total,
		GeneratedAt: q.GeneratedAt,
	}
}
