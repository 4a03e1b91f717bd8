package domain

import (
	"time"
)

// Pagination defines standard paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// Product is a catalog entry. Monetary amounts are minor units (paise, cents)
// in the product's currency.
type Product struct {
	ID          string
	Name        string
	Brand       string
	Category    string
	Description string
	ImageURL    string
	Currency    string
	Price       int64
	ListPrice   int64
	Unit        string
	Rating      float64
	RatingCount int
	InStock     bool
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DiscountPercent reports the product's list-price discount, zero when the
// list price is absent or not higher than the sale price.
func (p Product) DiscountPercent() int {
	if p.ListPrice <= 0 || p.ListPrice <= p.Price {
		return 0
	}
	return int((p.ListPrice - p.Price) * 100 / p.ListPrice)
}

// ProductQuery captures the catalog search and filter inputs.
type ProductQuery struct {
	Term       string
	Category   string
	Brand      string
	MinPrice   *int64
	MaxPrice   *int64
	InStock    *bool
	Sort       ProductSort
	Order      SortOrder
	Pagination Pagination
}

// ProductSort indicates the field used to order catalog listings.
type ProductSort string

const (
	// ProductSortRelevance orders by match quality against the search term.
	ProductSortRelevance ProductSort = "relevance"
	// ProductSortPrice orders by sale price.
	ProductSortPrice ProductSort = "price"
	// ProductSortRating orders by average rating.
	ProductSortRating ProductSort = "rating"
)

// Deal is a time-boxed promotion over a set of products.
type Deal struct {
	ID         string
	Title      string
	Subtitle   string
	BannerURL  string
	ProductIDs []string
	Percent    int
	StartsAt   time.Time
	EndsAt     time.Time
}

// Active reports whether the deal window contains the given instant.
func (d Deal) Active(now time.Time) bool {
	return !now.Before(d.StartsAt) && now.Before(d.EndsAt)
}

// CartItem stores a single product entry within a cart. UnitPrice is a
// snapshot taken when the item was added.
type CartItem struct {
	ProductID string
	Name      string
	ImageURL  string
	UnitPrice int64
	Quantity  int
	AddedAt   time.Time
}

// Cart aggregates the mutable shopping cart state for one shopper.
type Cart struct {
	ID        string
	OwnerID   string
	Currency  string
	Items     []CartItem
	UpdatedAt time.Time
}

// Subtotal sums the line totals of every item in minor units.
func (c Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// ItemCount sums the quantities of every line.
func (c Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// WishlistItem marks a product a shopper saved for later.
type WishlistItem struct {
	ProductID string
	Name      string
	ImageURL  string
	Price     int64
	AddedAt   time.Time
}

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// Address is a saved delivery address.
type Address struct {
	ID         string
	OwnerID    string
	Label      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      string
	Location   *GeoPoint
	IsDefault  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PaymentMethod is a tokenised instrument saved against a shopper profile.
// Only the display fields are stored; the vendor holds the credentials.
type PaymentMethod struct {
	ID        string
	OwnerID   string
	Provider  string
	Kind      PaymentMethodKind
	Label     string
	Last4     string
	VPA       string
	ExpiryMM  int
	ExpiryYY  int
	IsDefault bool
	CreatedAt time.Time
}

// PaymentMethodKind enumerates saved instrument categories.
type PaymentMethodKind string

const (
	// PaymentMethodCard is a tokenised debit or credit card.
	PaymentMethodCard PaymentMethodKind = "card"
	// PaymentMethodUPI is a UPI virtual payment address.
	PaymentMethodUPI PaymentMethodKind = "upi"
	// PaymentMethodWallet is a hosted wallet account.
	PaymentMethodWallet PaymentMethodKind = "wallet"
)

// ChatRole distinguishes the author of a chat message.
type ChatRole string

const (
	// ChatRoleShopper marks messages typed by the customer.
	ChatRoleShopper ChatRole = "shopper"
	// ChatRoleAssistant marks replies from the support assistant.
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one utterance within a support session.
type ChatMessage struct {
	ID        string
	SessionID string
	Role      ChatRole
	Text      string
	CreatedAt time.Time
}

// ChatSession groups the messages of one support conversation.
type ChatSession struct {
	ID        string
	OwnerID   string
	Messages  []ChatMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderStatus tracks an order through fulfilment.
type OrderStatus string

const (
	// OrderStatusPendingPayment means checkout started but no payment completed.
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	// OrderStatusConfirmed means payment was verified and the order accepted.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusCancelled means the shopper or the system cancelled the order.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a placed checkout with its payment attempts.
type Order struct {
	ID        string
	OwnerID   string
	Currency  string
	Items     []CartItem
	Subtotal  int64
	Discount  int64
	Total     int64
	AddressID string
	Status    OrderStatus
	Attempts  []PaymentAttempt
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AttemptState is the lifecycle state of a single payment attempt.
type AttemptState string

const (
	// AttemptIdle means no vendor interaction has started.
	AttemptIdle AttemptState = "idle"
	// AttemptCreating means a vendor order is being created.
	AttemptCreating AttemptState = "creating"
	// AttemptAwaitingUserAction means the shopper must complete the payment
	// in the vendor's flow.
	AttemptAwaitingUserAction AttemptState = "awaiting_user_action"
	// AttemptVerifying means the vendor reported completion and the result is
	// being verified server-side.
	AttemptVerifying AttemptState = "verifying"
	// AttemptCompleted means the payment was verified successfully.
	AttemptCompleted AttemptState = "completed"
	// AttemptFailed means the attempt ended without a successful payment.
	AttemptFailed AttemptState = "failed"
	// AttemptUnreconciled means the vendor confirmed the charge but
	// verification timed out; the attempt is parked for manual review and
	// never retried automatically.
	AttemptUnreconciled AttemptState = "unreconciled"
)

// PaymentAttempt records one pass through a payment provider for an order.
type PaymentAttempt struct {
	ID            string
	OrderID       string
	Provider      string
	State         AttemptState
	VendorOrderID string
	VendorTxnID   string
	FailureCode   string
	Amount        int64
	Currency      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BulkOrderItem is one line of a bulk quotation request.
type BulkOrderItem struct {
	ProductID string
	Name      string
	UnitPrice int64
	Currency  string
	Quantity  int
}

// QuotationLine is a priced bulk line after tier discounts.
type QuotationLine struct {
	Item            BulkOrderItem
	DiscountPercent int
	LineTotal       int64
}

// Quotation is a fully priced bulk order ready for export.
type Quotation struct {
	ID          string
	OwnerID     string
	Currency    string
	Lines       []QuotationLine
	Subtotal    int64
	Discount    int64
	Total       int64
	GeneratedAt time.Time
}
