package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/swiftmart/api/internal/domain"
	pfirestore "github.com/swiftmart/api/internal/platform/firestore"
)

const orderCollection = "orders"

// OrderRepository persists orders and their payment attempts in Firestore.
type OrderRepository struct {
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{provider: provider}, nil
}

type orderDocument struct {
	OwnerID   string                   `firestore:"ownerId"`
	Currency  string                   `firestore:"currency"`
	Items     []cartItemDocument       `firestore:"items"`
	Subtotal  int64                    `firestore:"subtotal"`
	Discount  int64                    `firestore:"discount"`
	Total     int64                    `firestore:"total"`
	AddressID string                   `firestore:"addressId,omitempty"`
	Status    string                   `firestore:"status"`
	Attempts  []paymentAttemptDocument `firestore:"attempts"`
	CreatedAt time.Time                `firestore:"createdAt"`
	UpdatedAt time.Time                `firestore:"updatedAt"`
}

type paymentAttemptDocument struct {
	ID            string    `firestore:"id"`
	Provider      string    `firestore:"provider"`
	State         string    `firestore:"state"`
	VendorOrderID string    `firestore:"vendorOrderId,omitempty"`
	VendorTxnID   string    `firestore:"vendorTxnId,omitempty"`
	FailureCode   string    `firestore:"failureCode,omitempty"`
	Amount        int64     `firestore:"amount"`
	Currency      string    `firestore:"currency"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

// Insert stores a new order document.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) (domain.Order, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	if order.ID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	ref := client.Collection(orderCollection).Doc(order.ID)
	if _, err := ref.Create(ctx, orderDocumentFrom(order)); err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.insert", err)
	}
	return order, nil
}

// Get returns the order by id.
func (r *OrderRepository) Get(ctx context.Context, orderID string) (domain.Order, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	snap, err := client.Collection(orderCollection).Doc(orderID).Get(ctx)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.get", err)
	}
	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.decode", err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

// Update replaces the stored order document. The incoming order's UpdatedAt
// must match the stored document; a mismatch reports a conflict. The write
// runs in a transaction so two transitions read from the same version cannot
// both land.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) (domain.Order, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	expected := order.UpdatedAt
	order.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	ref := client.Collection(orderCollection).Doc(order.ID)
	err = pfirestore.RunTransaction(ctx, client, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return pfirestore.WrapError("orders.update", err)
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return pfirestore.WrapError("orders.update", err)
		}
		if !doc.UpdatedAt.Equal(expected) {
			return pfirestore.ConflictError("orders.update", "order was modified concurrently")
		}
		return tx.Set(ref, orderDocumentFrom(order))
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// ListByOwner returns the owner's orders, newest first.
func (r *OrderRepository) ListByOwner(ctx context.Context, ownerID string, pager domain.Pagination) ([]domain.Order, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}

	query := client.Collection(orderCollection).
		Where("ownerId", "==", ownerID).
		OrderBy("createdAt", firestore.Desc)
	if pager.PageSize > 0 {
		query = query.Limit(pager.PageSize)
	}
	return r.collectOrders(ctx, query.Documents(ctx), "orders.listByOwner")
}

// ListAll returns every order, newest first. Used by the vendor dashboard.
func (r *OrderRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	iter := client.Collection(orderCollection).OrderBy("createdAt", firestore.Desc).Documents(ctx)
	return r.collectOrders(ctx, iter, "orders.listAll")
}

func (r *OrderRepository) collectOrders(_ context.Context, iter *firestore.DocumentIterator, op string) ([]domain.Order, error) {
	defer iter.Stop()

	var orders []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError(op, err)
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, pfirestore.WrapError(op, err)
		}
		orders = append(orders, doc.toDomain(snap.Ref.ID))
	}
	return orders, nil
}

func orderDocumentFrom(order domain.Order) orderDocument {
	items := make([]cartItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, cartItemDocument{
			ProductID: item.ProductID,
			Name:      item.Name,
			ImageURL:  item.ImageURL,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt,
		})
	}
	attempts := make([]paymentAttemptDocument, 0, len(order.Attempts))
	for _, attempt := range order.Attempts {
		attempts = append(attempts, paymentAttemptDocument{
			ID:            attempt.ID,
			Provider:      attempt.Provider,
			State:         string(attempt.State),
			VendorOrderID: attempt.VendorOrderID,
			VendorTxnID:   attempt.VendorTxnID,
			FailureCode:   attempt.FailureCode,
			Amount:        attempt.Amount,
			Currency:      attempt.Currency,
			CreatedAt:     attempt.CreatedAt,
			UpdatedAt:     attempt.UpdatedAt,
		})
	}
	return orderDocument{
		OwnerID:   order.OwnerID,
		Currency:  order.Currency,
		Items:     items,
		Subtotal:  order.Subtotal,
		Discount:  order.Discount,
		Total:     order.Total,
		AddressID: order.AddressID,
		Status:    string(order.Status),
		Attempts:  attempts,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	items := make([]domain.CartItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.CartItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			ImageURL:  item.ImageURL,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt,
		})
	}
	attempts := make([]domain.PaymentAttempt, 0, len(d.Attempts))
	for _, attempt := range d.Attempts {
		attempts = append(attempts, domain.PaymentAttempt{
			ID:            attempt.ID,
			OrderID:       id,
			Provider:      attempt.Provider,
			State:         domain.AttemptState(attempt.State),
			VendorOrderID: attempt.VendorOrderID,
			VendorTxnID:   attempt.VendorTxnID,
			FailureCode:   attempt.FailureCode,
			Amount:        attempt.Amount,
			Currency:      attempt.Currency,
			CreatedAt:     attempt.CreatedAt,
			UpdatedAt:     attempt.UpdatedAt,
		})
	}
	return domain.Order{
		ID:        id,
		OwnerID:   d.OwnerID,
		Currency:  d.Currency,
		Items:     items,
		Subtotal:  d.Subtotal,
		Discount:  d.Discount,
		Total:     d.Total,
		AddressID: d.AddressID,
		Status:    domain.OrderStatus(d.Status),
		Attempts:  attempts,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
