package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/swiftmart/api/internal/domain"
	pfirestore "github.com/swiftmart/api/internal/platform/firestore"
)

const paymentMethodCollectionPattern = "users/%s/paymentMethods"

// PaymentMethodRepository persists tokenised instruments under each user document.
type PaymentMethodRepository struct {
	provider *pfirestore.Provider
}

// NewPaymentMethodRepository constructs a Firestore-backed payment method repository.
func NewPaymentMethodRepository(provider *pfirestore.Provider) (*PaymentMethodRepository, error) {
	if provider == nil {
		return nil, errors.New("payment method repository requires firestore provider")
	}
	return &PaymentMethodRepository{provider: provider}, nil
}

type paymentMethodDocument struct {
	Provider  string    `firestore:"provider"`
	Kind      string    `firestore:"kind"`
	Label     string    `firestore:"label"`
	Last4     string    `firestore:"last4,omitempty"`
	VPA       string    `firestore:"vpa,omitempty"`
	ExpiryMM  int       `firestore:"expiryMonth,omitempty"`
	ExpiryYY  int       `firestore:"expiryYear,omitempty"`
	IsDefault bool      `firestore:"isDefault"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// List returns the owner's instruments, default first, then newest.
func (r *PaymentMethodRepository) List(ctx context.Context, ownerID string) ([]domain.PaymentMethod, error) {
	coll, err := r.collection(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	iter := coll.OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var methods []domain.PaymentMethod
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("paymentMethods.list", err)
		}
		var doc paymentMethodDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, pfirestore.WrapError("paymentMethods.decode", err)
		}
		method := doc.toDomain(snap.Ref.ID, ownerID)
		if method.IsDefault {
			methods = append([]domain.PaymentMethod{method}, methods...)
		} else {
			methods = append(methods, method)
		}
	}
	return methods, nil
}

// Add saves a new instrument. The first instrument becomes the default.
func (r *PaymentMethodRepository) Add(ctx context.Context, ownerID string, method domain.PaymentMethod) (domain.PaymentMethod, error) {
	coll, err := r.collection(ctx, ownerID)
	if err != nil {
		return domain.PaymentMethod{}, err
	}

	existing, err := r.List(ctx, ownerID)
	if err != nil {
		return domain.PaymentMethod{}, err
	}
	if len(existing) == 0 {
		method.IsDefault = true
	}

	ref := coll.NewDoc()
	method.ID = ref.ID
	method.OwnerID = ownerID
	method.CreatedAt = time.Now().UTC()

	if _, err := ref.Set(ctx, paymentMethodDocumentFrom(method)); err != nil {
		return domain.PaymentMethod{}, pfirestore.WrapError("paymentMethods.add", err)
	}
	return method, nil
}

// Remove deletes the instrument document.
func (r *PaymentMethodRepository) Remove(ctx context.Context, ownerID string, methodID string) error {
	coll, err := r.collection(ctx, ownerID)
	if err != nil {
		return err
	}
	if _, err := coll.Doc(methodID).Delete(ctx); err != nil {
		return pfirestore.WrapError("paymentMethods.remove", err)
	}
	return nil
}

// SetDefault marks one instrument as default and clears the flag on the rest.
func (r *PaymentMethodRepository) SetDefault(ctx context.Context, ownerID string, methodID string) error {
	methods, err := r.List(ctx, ownerID)
	if err != nil {
		return err
	}

	coll, err := r.collection(ctx, ownerID)
	if err != nil {
		return err
	}

	found := false
	for _, method := range methods {
		isTarget := method.ID == methodID
		if isTarget {
			found = true
		}
		if method.IsDefault == isTarget {
			continue
		}
		update := []firestore.Update{{Path: "isDefault", Value: isTarget}}
		if _, err := coll.Doc(method.ID).Update(ctx, update); err != nil {
			return pfirestore.WrapError("paymentMethods.setDefault", err)
		}
	}
	if !found {
		return pfirestore.WrapError("paymentMethods.setDefault", errNotFoundStatus("payment method not found"))
	}
	return nil
}

func (r *PaymentMethodRepository) collection(ctx context.Context, ownerID string) (*firestore.CollectionRef, error) {
	if ownerID == "" {
		return nil, errors.New("payment method repository: owner id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(fmt.Sprintf(paymentMethodCollectionPattern, ownerID)), nil
}

func paymentMethodDocumentFrom(method domain.PaymentMethod) paymentMethodDocument {
	return paymentMethodDocument{
		Provider:  method.Provider,
		Kind:      string(method.Kind),
		Label:     method.Label,
		Last4:     method.Last4,
		VPA:       method.VPA,
		ExpiryMM:  method.ExpiryMM,
		ExpiryYY:  method.ExpiryYY,
		IsDefault: method.IsDefault,
		CreatedAt: method.CreatedAt,
	}
}

func (d paymentMethodDocument) toDomain(id, ownerID string) domain.PaymentMethod {
	return domain.PaymentMethod{
		ID:        id,
		OwnerID:   ownerID,
		Provider:  d.Provider,
		Kind:      domain.PaymentMethodKind(d.Kind),
		Label:     d.Label,
		Last4:     d.Last4,
		VPA:       d.VPA,
		ExpiryMM:  d.ExpiryMM,
		ExpiryYY:  d.ExpiryYY,
		IsDefault: d.IsDefault,
		CreatedAt: d.CreatedAt,
	}
}
