package domain

import (
	"strings"
	"time"
)

// DeliveryMethod enumerates the ways an order can reach the shopper.
type DeliveryMethod string

const (
	// DeliveryPickup means the shopper collects the order at the store.
	DeliveryPickup DeliveryMethod = "pickup"
	// DeliveryLocal is the store's own courier, priced by shipping rules.
	DeliveryLocal DeliveryMethod = "local"
	// DeliveryCarrierEconomy is the carrier's economy tier (PAC).
	DeliveryCarrierEconomy DeliveryMethod = "pac"
	// DeliveryCarrierExpress is the carrier's express tier (SEDEX).
	DeliveryCarrierExpress DeliveryMethod = "sedex"
	// DeliveryCompactParcel is the reduced-rate tier with strict size caps.
	DeliveryCompactParcel DeliveryMethod = "mini"
)

// PaymentMethod enumerates the checkout payment options.
type PaymentMethod string

const (
	// PaymentPix is the instant bank transfer method, optionally discounted.
	PaymentPix PaymentMethod = "pix"
	// PaymentCard is card payment authorized before order creation.
	PaymentCard PaymentMethod = "card"
	// PaymentBoleto is the invoice-style payment slip.
	PaymentBoleto PaymentMethod = "boleto"
	// PaymentOnDelivery is cash or card settled at hand-off.
	PaymentOnDelivery PaymentMethod = "on_delivery"
	// PaymentWhatsApp hands the arrangement over to a messaging conversation.
	PaymentWhatsApp PaymentMethod = "whatsapp"
)

// OrderStatus tracks the order lifecycle from the payment outcome onwards.
type OrderStatus string

const (
	// OrderStatusConfirmed indicates payment was approved at submission.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusPending indicates the order awaits payment confirmation (PIX, boleto).
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPendingManual indicates settlement happens outside the platform.
	OrderStatusPendingManual OrderStatus = "pending_manual"
	// OrderStatusCanceled indicates the order was cancelled.
	OrderStatusCanceled OrderStatus = "canceled"
)

// CouponDiscountType distinguishes percentage from fixed-amount coupons.
type CouponDiscountType string

const (
	// CouponPercentage discounts a percentage of the cart subtotal.
	CouponPercentage CouponDiscountType = "percentage"
	// CouponFixed discounts a fixed amount, capped at the subtotal.
	CouponFixed CouponDiscountType = "fixed"
)

// RuleScope identifies which address field a shipping rule matches against.
type RuleScope string

const (
	// RuleScopeNeighborhood matches the address neighborhood. Most specific.
	RuleScopeNeighborhood RuleScope = "neighborhood"
	// RuleScopeCity matches the address city.
	RuleScopeCity RuleScope = "city"
	// RuleScopeZipcode matches the address zipcode. Least specific.
	RuleScopeZipcode RuleScope = "zipcode"
)

// FreeShippingScope limits the geographic reach of a free shipping policy.
type FreeShippingScope string

const (
	// FreeShippingAll applies the policy to every destination.
	FreeShippingAll FreeShippingScope = "all"
	// FreeShippingSameCity applies only when the shopper shares the store city.
	FreeShippingSameCity FreeShippingScope = "city"
	// FreeShippingSameState applies only when the shopper shares the store state.
	FreeShippingSameState FreeShippingScope = "state"
)

// Carrier service identifiers used when matching quotes to delivery tiers.
const (
	// CarrierServiceEconomy is the economy tier service id (PAC).
	CarrierServiceEconomy = "1"
	// CarrierServiceExpress is the express tier service id (SEDEX).
	CarrierServiceExpress = "2"
	// CarrierServiceCompact is the compact parcel service id (Mini Envios).
	CarrierServiceCompact = "17"
)

// Default parcel dimensions applied when a product carries none. These are the
// carrier's minimum accepted package.
const (
	DefaultWeightGrams = 300
	DefaultLengthMM    = 160
	DefaultWidthMM     = 110
	DefaultHeightMM    = 20
)

// Dimensions describes a single unit's physical size in millimetres and grams.
type Dimensions struct {
	WeightGrams int
	LengthMM    int
	WidthMM     int
	HeightMM    int
}

// OrDefault substitutes carrier minimums for any missing measurement.
func (d Dimensions) OrDefault() Dimensions {
	if d.WeightGrams <= 0 {
		d.WeightGrams = DefaultWeightGrams
	}
	if d.LengthMM <= 0 {
		d.LengthMM = DefaultLengthMM
	}
	if d.WidthMM <= 0 {
		d.WidthMM = DefaultWidthMM
	}
	if d.HeightMM <= 0 {
		d.HeightMM = DefaultHeightMM
	}
	return d
}

// CartLine is a single cart entry. ProductID is empty for free-text manual
// items added during assisted checkout.
type CartLine struct {
	ID         string
	ProductID  string
	Name       string
	UnitPrice  int64
	PromoPrice *int64
	Quantity   int
	Dimensions Dimensions
}

// EffectiveUnitPrice returns the promotional price when present, otherwise the
// regular unit price.
func (l CartLine) EffectiveUnitPrice() int64 {
	if l.PromoPrice != nil && *l.PromoPrice >= 0 {
		return *l.PromoPrice
	}
	return l.UnitPrice
}

// Subtotal computes the line total in centavos.
func (l CartLine) Subtotal() int64 {
	if l.Quantity <= 0 {
		return 0
	}
	return l.EffectiveUnitPrice() * int64(l.Quantity)
}

// Cart aggregates the shopper's pending lines for one store.
type Cart struct {
	ID         string
	StoreID    string
	CustomerID string
	Lines      []CartLine
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Subtotal sums every line subtotal.
func (c Cart) Subtotal() int64 {
	var total int64
	for _, line := range c.Lines {
		total += line.Subtotal()
	}
	return total
}

// Address is a Brazilian delivery address. Zipcode is the CEP; comparisons
// normalise it to digits first.
type Address struct {
	Street       string
	Number       string
	Complement   string
	Neighborhood string
	City         string
	State        string
	Zipcode      string
}

// Coupon is a tenant-owned discount code. DiscountValue is percentage points
// for percentage coupons and centavos for fixed ones.
type Coupon struct {
	ID                string
	StoreID           string
	Code              string
	DiscountType      CouponDiscountType
	DiscountValue     int64
	MinimumOrderValue int64
	SingleUse         bool
	Active            bool
	StartsAt          time.Time
	ExpiresAt         time.Time
}

// DiscountFor computes the coupon's discount for the given subtotal. Fixed
// discounts never exceed the subtotal.
func (c Coupon) DiscountFor(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	switch c.DiscountType {
	case CouponPercentage:
		return subtotal * c.DiscountValue / 100
	default:
		if c.DiscountValue > subtotal {
			return subtotal
		}
		return c.DiscountValue
	}
}

// CouponUsage is the append-only record of a coupon redemption.
type CouponUsage struct {
	ID            string
	CouponID      string
	StoreID       string
	CustomerEmail string
	OrderID       string
	UsedAt        time.Time
}

// ShippingRule prices the store's own courier for a matching address scope.
type ShippingRule struct {
	ID      string
	StoreID string
	Scope   RuleScope
	Value   string
	Fee     int64
	Active  bool
}

// CarrierQuote is an ephemeral carrier rate for one service between the store
// origin and the shopper destination. Never persisted.
type CarrierQuote struct {
	ServiceID    string
	Name         string
	Price        int64
	CustomPrice  *int64
	DeliveryDays int
}

// EffectivePrice returns the store-overridden price when set.
func (q CarrierQuote) EffectivePrice() int64 {
	if q.CustomPrice != nil && *q.CustomPrice >= 0 {
		return *q.CustomPrice
	}
	return q.Price
}

// PaymentSettings captures the tenant's enabled payment methods and the
// instant-transfer incentive.
type PaymentSettings struct {
	PixEnabled         bool
	PixDiscountPercent int64
	CardEnabled        bool
	BoletoEnabled      bool
	OnDeliveryEnabled  bool
	WhatsAppEnabled    bool
}

// Allows reports whether the method is enabled for the store.
func (p PaymentSettings) Allows(method PaymentMethod) bool {
	switch method {
	case PaymentPix:
		return p.PixEnabled
	case PaymentCard:
		return p.CardEnabled
	case PaymentBoleto:
		return p.BoletoEnabled
	case PaymentOnDelivery:
		return p.OnDeliveryEnabled
	case PaymentWhatsApp:
		return p.WhatsAppEnabled
	default:
		return false
	}
}

// Store is the tenant profile the checkout engine reads its policy from.
type Store struct {
	ID                   string
	Name                 string
	City                 string
	State                string
	OriginZipcode        string
	PickupEnabled        bool
	LocalDeliveryEnabled bool
	CarrierEnabled       bool
	FreeShippingMinimum  int64
	FreeShippingScope    FreeShippingScope
	Payments             PaymentSettings
	WhatsAppNumber       string
}

// CheckoutTotals is the derived price breakdown shown to the shopper. It is
// recomputed on every relevant input change, never stored.
type CheckoutTotals struct {
	Subtotal        int64
	CouponDiscount  int64
	PaymentDiscount int64
	ShippingFee     int64
	Total           int64
}

// Order is the persisted result of a successful submission.
type Order struct {
	ID             string
	StoreID        string
	CustomerID     string
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	Address        *Address
	DeliveryMethod DeliveryMethod
	PaymentMethod  PaymentMethod
	Status         OrderStatus
	Items          []OrderItem
	Totals         CheckoutTotals
	CouponCode     string
	PaymentRef     string
	Notes          string
	CreatedAt      time.Time
}

// OrderItem is one persisted order line. Written after the order header; a
// failure here leaves the header behind (see checkout service).
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	Name      string
	UnitPrice int64
	Quantity  int
	Subtotal  int64
}

// NormalizeZipcode strips formatting from a CEP, keeping digits only.
func NormalizeZipcode(zip string) string {
	var b strings.Builder
	for _, r := range zip {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
