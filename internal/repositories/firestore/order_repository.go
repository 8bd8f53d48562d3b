package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/lojafacil/api/internal/domain"
	pfirestore "github.com/lojafacil/api/internal/platform/firestore"
)

// OrderRepository persists order headers and item lines in Firestore.
type OrderRepository struct {
	provider *pfirestore.Provider
	now      func() time.Time
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *OrderRepository) headers(storeID string) (*pfirestore.BaseRepository[orderDocument], error) {
	path, err := storeScopedPath(storeID, orderSubcollection)
	if err != nil {
		return nil, err
	}
	return pfirestore.NewBaseRepository[orderDocument](r.provider, path), nil
}

// Insert writes the order header, failing when the ID already exists.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}
	base, err := r.headers(order.StoreID)
	if err != nil {
		return err
	}

	createdAt := order.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	_, err = base.Create(ctx, orderID, orderDocumentFromDomain(order, createdAt))
	return err
}

// AppendItems writes the item lines under the order header. Lines are written
// one by one; the first failure stops the write and surfaces to the caller,
// which logs the partially written order rather than compensating.
func (r *OrderRepository) AppendItems(ctx context.Context, storeID string, orderID string, items []domain.OrderItem) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	path, err := orderItemsPath(storeID, orderID)
	if err != nil {
		return err
	}
	base := pfirestore.NewBaseRepository[orderItemDocument](r.provider, path)

	for _, item := range items {
		itemID := strings.TrimSpace(item.ID)
		if itemID == "" {
			return errors.New("order repository: item id is required")
		}
		if _, err := base.Create(ctx, itemID, orderItemDocument{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
		}); err != nil {
			return err
		}
	}
	return nil
}

// FindByID fetches the order header and its item lines.
func (r *OrderRepository) FindByID(ctx context.Context, storeID string, orderID string) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	base, err := r.headers(storeID)
	if err != nil {
		return domain.Order{}, err
	}

	doc, err := base.Get(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}
	order := doc.Data.toDomain(doc.ID, storeID)

	itemsPath, err := orderItemsPath(storeID, doc.ID)
	if err != nil {
		return domain.Order{}, err
	}
	itemsBase := pfirestore.NewBaseRepository[orderItemDocument](r.provider, itemsPath)
	itemDocs, err := itemsBase.Query(ctx, func(query firestore.Query) firestore.Query {
		return query
	})
	if err != nil {
		return domain.Order{}, err
	}
	for _, itemDoc := range itemDocs {
		order.Items = append(order.Items, domain.OrderItem{
			ID:        itemDoc.ID,
			OrderID:   doc.ID,
			ProductID: itemDoc.Data.ProductID,
			Name:      itemDoc.Data.Name,
			UnitPrice: itemDoc.Data.UnitPrice,
			Quantity:  itemDoc.Data.Quantity,
			Subtotal:  itemDoc.Data.Subtotal,
		})
	}
	return order, nil
}

// UpdateStatus transitions the order status, typically after a payment
// confirmation arrives from polling.
func (r *OrderRepository) UpdateStatus(ctx context.Context, storeID string, orderID string, status domain.OrderStatus) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	base, err := r.headers(storeID)
	if err != nil {
		return err
	}
	_, err = base.Update(ctx, strings.TrimSpace(orderID), []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: r.now()},
	})
	return err
}

type orderDocument struct {
	CustomerID     string                `firestore:"customerId,omitempty"`
	CustomerName   string                `firestore:"customerName"`
	CustomerEmail  string                `firestore:"customerEmail"`
	CustomerPhone  string                `firestore:"customerPhone,omitempty"`
	Address        *orderAddressDocument `firestore:"address,omitempty"`
	DeliveryMethod string                `firestore:"deliveryMethod"`
	PaymentMethod  string                `firestore:"paymentMethod"`
	Status         string                `firestore:"status"`
	CouponCode     string                `firestore:"couponCode,omitempty"`
	PaymentRef     string                `firestore:"paymentRef,omitempty"`
	Notes          string                `firestore:"notes,omitempty"`

	Subtotal        int64 `firestore:"subtotal"`
	CouponDiscount  int64 `firestore:"couponDiscount,omitempty"`
	PaymentDiscount int64 `firestore:"paymentDiscount,omitempty"`
	ShippingFee     int64 `firestore:"shippingFee,omitempty"`
	Total           int64 `firestore:"total"`

	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

type orderAddressDocument struct {
	Street       string `firestore:"street"`
	Number       string `firestore:"number,omitempty"`
	Complement   string `firestore:"complement,omitempty"`
	Neighborhood string `firestore:"neighborhood,omitempty"`
	City         string `firestore:"city"`
	State        string `firestore:"state"`
	Zipcode      string `firestore:"zipcode"`
}

type orderItemDocument struct {
	ProductID string `firestore:"productId,omitempty"`
	Name      string `firestore:"name"`
	UnitPrice int64  `firestore:"unitPrice"`
	Quantity  int    `firestore:"quantity"`
	Subtotal  int64  `firestore:"subtotal"`
}

func orderDocumentFromDomain(order domain.Order, createdAt time.Time) orderDocument {
	doc := orderDocument{
		CustomerID:      order.CustomerID,
		CustomerName:    strings.TrimSpace(order.CustomerName),
		CustomerEmail:   normalizeEmail(order.CustomerEmail),
		CustomerPhone:   strings.TrimSpace(order.CustomerPhone),
		DeliveryMethod:  string(order.DeliveryMethod),
		PaymentMethod:   string(order.PaymentMethod),
		Status:          string(order.Status),
		CouponCode:      strings.TrimSpace(order.CouponCode),
		PaymentRef:      strings.TrimSpace(order.PaymentRef),
		Notes:           strings.TrimSpace(order.Notes),
		Subtotal:        order.Totals.Subtotal,
		CouponDiscount:  order.Totals.CouponDiscount,
		PaymentDiscount: order.Totals.PaymentDiscount,
		ShippingFee:     order.Totals.ShippingFee,
		Total:           order.Totals.Total,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	if order.Address != nil {
		doc.Address = &orderAddressDocument{
			Street:       order.Address.Street,
			Number:       order.Address.Number,
			Complement:   order.Address.Complement,
			Neighborhood: order.Address.Neighborhood,
			City:         order.Address.City,
			State:        strings.ToUpper(strings.TrimSpace(order.Address.State)),
			Zipcode:      domain.NormalizeZipcode(order.Address.Zipcode),
		}
	}
	return doc
}

func (d orderDocument) toDomain(id string, storeID string) domain.Order {
	order := domain.Order{
		ID:             id,
		StoreID:        strings.TrimSpace(storeID),
		CustomerID:     d.CustomerID,
		CustomerName:   d.CustomerName,
		CustomerEmail:  d.CustomerEmail,
		CustomerPhone:  d.CustomerPhone,
		DeliveryMethod: domain.DeliveryMethod(d.DeliveryMethod),
		PaymentMethod:  domain.PaymentMethod(d.PaymentMethod),
		Status:         domain.OrderStatus(d.Status),
		CouponCode:     d.CouponCode,
		PaymentRef:     d.PaymentRef,
		Notes:          d.Notes,
		Totals: domain.CheckoutTotals{
			Subtotal:        d.Subtotal,
			CouponDiscount:  d.CouponDiscount,
			PaymentDiscount: d.PaymentDiscount,
			ShippingFee:     d.ShippingFee,
			Total:           d.Total,
		},
		CreatedAt: d.CreatedAt,
	}
	if d.Address != nil {
		order.Address = &domain.Address{
			Street:       d.Address.Street,
			Number:       d.Address.Number,
			Complement:   d.Address.Complement,
			Neighborhood: d.Address.Neighborhood,
			City:         d.Address.City,
			State:        d.Address.State,
			Zipcode:      d.Address.Zipcode,
		}
	}
	return order
}
