package handlers

import (
	"strings"
	"time"

	domain "github.com/lojafacil/api/internal/domain"
	"github.com/lojafacil/api/internal/services"
)

type dimensionsPayload struct {
	WeightGrams int `json:"weightGrams,omitempty"`
	LengthMM    int `json:"lengthMm,omitempty"`
	WidthMM     int `json:"widthMm,omitempty"`
	HeightMM    int `json:"heightMm,omitempty"`
}

func (p dimensionsPayload) toDomain() domain.Dimensions {
	return domain.Dimensions{
		WeightGrams: p.WeightGrams,
		LengthMM:    p.LengthMM,
		WidthMM:     p.WidthMM,
		HeightMM:    p.HeightMM,
	}
}

func buildDimensionsPayload(d domain.Dimensions) dimensionsPayload {
	return dimensionsPayload{
		WeightGrams: d.WeightGrams,
		LengthMM:    d.LengthMM,
		WidthMM:     d.WidthMM,
		HeightMM:    d.HeightMM,
	}
}

type addressPayload struct {
	Street       string `json:"street"`
	Number       string `json:"number,omitempty"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zipcode      string `json:"zipcode"`
}

func (p *addressPayload) toDomain() *domain.Address {
	if p == nil {
		return nil
	}
	return &domain.Address{
		Street:       strings.TrimSpace(p.Street),
		Number:       strings.TrimSpace(p.Number),
		Complement:   strings.TrimSpace(p.Complement),
		Neighborhood: strings.TrimSpace(p.Neighborhood),
		City:         strings.TrimSpace(p.City),
		State:        strings.TrimSpace(p.State),
		Zipcode:      strings.TrimSpace(p.Zipcode),
	}
}

type cartLinePayload struct {
	ID         string            `json:"id"`
	ProductID  string            `json:"productId,omitempty"`
	Name       string            `json:"name"`
	UnitPrice  int64             `json:"unitPrice"`
	PromoPrice *int64            `json:"promoPrice,omitempty"`
	Quantity   int               `json:"quantity"`
	Subtotal   int64             `json:"subtotal"`
	Dimensions dimensionsPayload `json:"dimensions"`
}

type cartPayload struct {
	ID         string            `json:"id"`
	StoreID    string            `json:"storeId"`
	CustomerID string            `json:"customerId"`
	Lines      []cartLinePayload `json:"lines"`
	Subtotal   int64             `json:"subtotal"`
	Notes      string            `json:"notes,omitempty"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

func buildCartPayload(cart services.Cart) cartPayload {
	lines := make([]cartLinePayload, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		lines = append(lines, cartLinePayload{
			ID:         line.ID,
			ProductID:  line.ProductID,
			Name:       line.Name,
			UnitPrice:  line.UnitPrice,
			PromoPrice: line.PromoPrice,
			Quantity:   line.Quantity,
			Subtotal:   line.Subtotal(),
			Dimensions: buildDimensionsPayload(line.Dimensions),
		})
	}
	return cartPayload{
		ID:         cart.ID,
		StoreID:    cart.StoreID,
		CustomerID: cart.CustomerID,
		Lines:      lines,
		Subtotal:   cart.Subtotal(),
		Notes:      cart.Notes,
		UpdatedAt:  cart.UpdatedAt,
	}
}

type carrierQuotePayload struct {
	ServiceID    string `json:"serviceId"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	CustomPrice  *int64 `json:"customPrice,omitempty"`
	DeliveryDays int    `json:"deliveryDays"`
}

func (p carrierQuotePayload) toDomain() domain.CarrierQuote {
	return domain.CarrierQuote{
		ServiceID:    strings.TrimSpace(p.ServiceID),
		Name:         p.Name,
		Price:        p.Price,
		CustomPrice:  p.CustomPrice,
		DeliveryDays: p.DeliveryDays,
	}
}

func buildQuotePayloads(quotes []domain.CarrierQuote) []carrierQuotePayload {
	out := make([]carrierQuotePayload, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, carrierQuotePayload{
			ServiceID:    q.ServiceID,
			Name:         q.Name,
			Price:        q.Price,
			CustomPrice:  q.CustomPrice,
			DeliveryDays: q.DeliveryDays,
		})
	}
	return out
}

func quotesFromPayloads(payloads []carrierQuotePayload) []domain.CarrierQuote {
	if len(payloads) == 0 {
		return nil
	}
	out := make([]domain.CarrierQuote, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, p.toDomain())
	}
	return out
}

type totalsPayload struct {
	Subtotal        int64 `json:"subtotal"`
	CouponDiscount  int64 `json:"couponDiscount"`
	PaymentDiscount int64 `json:"paymentDiscount"`
	ShippingFee     int64 `json:"shippingFee"`
	Total           int64 `json:"total"`
}

func buildTotalsPayload(t domain.CheckoutTotals) totalsPayload {
	return totalsPayload{
		Subtotal:        t.Subtotal,
		CouponDiscount:  t.CouponDiscount,
		PaymentDiscount: t.PaymentDiscount,
		ShippingFee:     t.ShippingFee,
		Total:           t.Total,
	}
}
