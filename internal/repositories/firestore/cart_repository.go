package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/lojafacil/api/internal/domain"
	pfirestore "github.com/lojafacil/api/internal/platform/firestore"
)

// CartRepository persists one cart document per customer under the store.
type CartRepository struct {
	provider *pfirestore.Provider
	now      func() time.Time
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{
		provider: provider,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *CartRepository) base(storeID string) (*pfirestore.BaseRepository[cartDocument], error) {
	path, err := storeScopedPath(storeID, cartSubcollection)
	if err != nil {
		return nil, err
	}
	return pfirestore.NewBaseRepository[cartDocument](r.provider, path), nil
}

// Get fetches the customer's pending cart. Returns a not-found repository
// error when the customer has no cart yet.
func (r *CartRepository) Get(ctx context.Context, storeID string, customerID string) (domain.Cart, error) {
	if r == nil || r.provider == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	base, err := r.base(storeID)
	if err != nil {
		return domain.Cart{}, err
	}

	doc, err := base.Get(ctx, strings.TrimSpace(customerID))
	if err != nil {
		return domain.Cart{}, err
	}
	return doc.Data.toDomain(doc.ID, storeID), nil
}

// Save upserts the cart using the customer ID as document identifier.
func (r *CartRepository) Save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if r == nil || r.provider == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	customerID := strings.TrimSpace(cart.CustomerID)
	if customerID == "" {
		return domain.Cart{}, errors.New("cart repository: customer id is required")
	}
	base, err := r.base(cart.StoreID)
	if err != nil {
		return domain.Cart{}, err
	}

	now := r.now()
	createdAt := cart.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	doc := cartDocument{
		Notes:     strings.TrimSpace(cart.Notes),
		Lines:     make([]cartLineDocument, 0, len(cart.Lines)),
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	for _, line := range cart.Lines {
		doc.Lines = append(doc.Lines, cartLineFromDomain(line))
	}

	result, err := base.Set(ctx, customerID, doc)
	if err != nil {
		return domain.Cart{}, err
	}

	saved := cart
	saved.ID = customerID
	saved.Notes = doc.Notes
	saved.CreatedAt = createdAt
	saved.UpdatedAt = result.UpdateTime
	return saved, nil
}

// Clear removes the customer's cart document after a successful checkout.
func (r *CartRepository) Clear(ctx context.Context, storeID string, customerID string) error {
	if r == nil || r.provider == nil {
		return errors.New("cart repository not initialised")
	}
	base, err := r.base(storeID)
	if err != nil {
		return err
	}
	return base.Delete(ctx, strings.TrimSpace(customerID))
}

type cartDocument struct {
	Notes     string             `firestore:"notes,omitempty"`
	Lines     []cartLineDocument `firestore:"lines"`
	CreatedAt time.Time          `firestore:"createdAt"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

type cartLineDocument struct {
	ID          string `firestore:"id"`
	ProductID   string `firestore:"productId,omitempty"`
	Name        string `firestore:"name"`
	UnitPrice   int64  `firestore:"unitPrice"`
	PromoPrice  *int64 `firestore:"promoPrice,omitempty"`
	Quantity    int    `firestore:"quantity"`
	WeightGrams int    `firestore:"weightGrams,omitempty"`
	LengthMM    int    `firestore:"lengthMm,omitempty"`
	WidthMM     int    `firestore:"widthMm,omitempty"`
	HeightMM    int    `firestore:"heightMm,omitempty"`
}

func cartLineFromDomain(line domain.CartLine) cartLineDocument {
	return cartLineDocument{
		ID:          line.ID,
		ProductID:   line.ProductID,
		Name:        strings.TrimSpace(line.Name),
		UnitPrice:   line.UnitPrice,
		PromoPrice:  line.PromoPrice,
		Quantity:    line.Quantity,
		WeightGrams: line.Dimensions.WeightGrams,
		LengthMM:    line.Dimensions.LengthMM,
		WidthMM:     line.Dimensions.WidthMM,
		HeightMM:    line.Dimensions.HeightMM,
	}
}

func (d cartDocument) toDomain(id string, storeID string) domain.Cart {
	cart := domain.Cart{
		ID:         id,
		StoreID:    strings.TrimSpace(storeID),
		CustomerID: id,
		Notes:      d.Notes,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	for _, line := range d.Lines {
		cart.Lines = append(cart.Lines, domain.CartLine{
			ID:         line.ID,
			ProductID:  line.ProductID,
			Name:       line.Name,
			UnitPrice:  line.UnitPrice,
			PromoPrice: line.PromoPrice,
			Quantity:   line.Quantity,
			Dimensions: domain.Dimensions{
				WeightGrams: line.WeightGrams,
				LengthMM:    line.LengthMM,
				WidthMM:     line.WidthMM,
				HeightMM:    line.HeightMM,
			},
		})
	}
	return cart
}
