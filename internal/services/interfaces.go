package services

import (
	"context"
	"time"

	domain "github.com/lojafacil/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Store              = domain.Store
	Address            = domain.Address
	Cart               = domain.Cart
	CartLine           = domain.CartLine
	Dimensions         = domain.Dimensions
	Coupon             = domain.Coupon
	CouponUsage        = domain.CouponUsage
	ShippingRule       = domain.ShippingRule
	CarrierQuote       = domain.CarrierQuote
	CheckoutTotals     = domain.CheckoutTotals
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderStatus        = domain.OrderStatus
	DeliveryMethod     = domain.DeliveryMethod
	PaymentMethod      = domain.PaymentMethod
	SystemHealthReport = domain.SystemHealthReport
)

// CartService owns the shopper's pending cart lifecycle.
type CartService interface {
	GetOrCreate(ctx context.Context, storeID string, customerID string) (Cart, error)
	UpsertLine(ctx context.Context, cmd UpsertCartLineCommand) (Cart, error)
	UpdateQuantity(ctx context.Context, cmd UpdateCartQuantityCommand) (Cart, error)
	RemoveLine(ctx context.Context, storeID string, customerID string, lineID string) (Cart, error)
	Clear(ctx context.Context, storeID string, customerID string) error
}

// CouponService evaluates coupon codes against a cart subtotal. Apply is a
// dry run; usage is recorded only when an order is confirmed.
type CouponService interface {
	Apply(ctx context.Context, cmd ApplyCouponCommand) (CouponApplication, error)
	RecordUsage(ctx context.Context, usage CouponUsage) error
}

// ShippingService decides which delivery methods are selectable and at what fee.
type ShippingService interface {
	EvaluateMethods(ctx context.Context, cmd EvaluateShippingCommand) (ShippingEvaluation, error)
}

// QuoteService fetches carrier rate quotes, discarding out-of-order responses.
type QuoteService interface {
	Fetch(ctx context.Context, cmd FetchQuotesCommand) (QuoteResult, error)
}

// CheckoutService runs the order submission sequence.
type CheckoutService interface {
	Submit(ctx context.Context, cmd SubmitOrderCommand) (OrderSubmission, error)
}

// PaymentConfirmationWatcher follows an asynchronous charge (PIX, boleto) in
// the background until it settles, applying the terminal status to the order.
type PaymentConfirmationWatcher interface {
	Start(ctx context.Context, storeID string, orderID string, reference string)
}

// SystemService aggregates dependency health for the operational endpoints.
type SystemService interface {
	Health(ctx context.Context) (SystemHealthReport, error)
}

// UpsertCartLineCommand adds or replaces one cart line. ProductID is empty
// for free-text manual items.
type UpsertCartLineCommand struct {
	StoreID    string
	CustomerID string
	LineID     string
	ProductID  string
	Name       string
	UnitPrice  int64
	PromoPrice *int64
	Quantity   int
	Dimensions Dimensions
}

// UpdateCartQuantityCommand changes the quantity of an existing line.
type UpdateCartQuantityCommand struct {
	StoreID    string
	CustomerID string
	LineID     string
	Quantity   int
}

// ApplyCouponCommand is the dry-run evaluation input.
type ApplyCouponCommand struct {
	StoreID       string
	Code          string
	Subtotal      int64
	CustomerEmail string
}

// CouponRejectionReason identifies why a coupon application failed.
type CouponRejectionReason string

const (
	// CouponNotFound means the code does not match an active coupon for the tenant.
	CouponNotFound CouponRejectionReason = "not_found"
	// CouponBelowMinimum means the subtotal is under the coupon's minimum order value.
	CouponBelowMinimum CouponRejectionReason = "below_minimum"
	// CouponAlreadyUsed means the single-use coupon already has a usage row for the customer.
	CouponAlreadyUsed CouponRejectionReason = "already_used"
)

// CouponApplication is the dry-run outcome. Discount is zero unless Valid.
type CouponApplication struct {
	Valid    bool
	Coupon   Coupon
	Discount int64
	Reason   CouponRejectionReason
}

// EvaluateShippingCommand carries everything the eligibility engine reads.
// Quotes are the latest carrier rates fetched for the address, possibly empty.
type EvaluateShippingCommand struct {
	Store   Store
	Cart    Cart
	Address *Address
	Quotes  []CarrierQuote
}

// MethodEvaluation is one delivery method's eligibility verdict. Fee is nil
// when the method is ineligible, never zero-as-absent.
type MethodEvaluation struct {
	Method       DeliveryMethod
	Eligible     bool
	Fee          *int64
	FreeShipping bool
	Violations   []CompactViolation
}

// ShippingEvaluation lists every method verdict in fixed display order.
type ShippingEvaluation struct {
	Methods []MethodEvaluation
}

// Method returns the verdict for one delivery method.
func (e ShippingEvaluation) Method(method DeliveryMethod) (MethodEvaluation, bool) {
	for _, m := range e.Methods {
		if m.Method == method {
			return m, true
		}
	}
	return MethodEvaluation{}, false
}

// CompactViolation names the dimensional bound a cart breaks for the
// compact-parcel tier.
type CompactViolation string

const (
	CompactWeightAboveMaximum CompactViolation = "weight_above_maximum"
	CompactHeightBelowMinimum CompactViolation = "height_below_minimum"
	CompactHeightAboveMaximum CompactViolation = "height_above_maximum"
	CompactWidthBelowMinimum  CompactViolation = "width_below_minimum"
	CompactWidthAboveMaximum  CompactViolation = "width_above_maximum"
	CompactLengthBelowMinimum CompactViolation = "length_below_minimum"
	CompactLengthAboveMaximum CompactViolation = "length_above_maximum"
)

// FetchQuotesCommand requests carrier rates for one origin/destination/parcel set.
type FetchQuotesCommand struct {
	StoreID            string
	OriginZipcode      string
	DestinationZipcode string
	Lines              []CartLine
}

// QuoteResult carries the fetched quotes together with the request sequence
// number. Stale marks responses superseded by a newer request; their quotes
// must not be applied.
type QuoteResult struct {
	Sequence uint64
	Stale    bool
	Quotes   []CarrierQuote
}

// SubmitOrderCommand is the checkout submission input.
type SubmitOrderCommand struct {
	StoreID        string
	CustomerID     string
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	Address        *Address
	DeliveryMethod DeliveryMethod
	PaymentMethod  PaymentMethod
	CouponCode     string
	Notes          string
	Quotes         []CarrierQuote
	CardToken      string
	Installments   int
}

// OrderSubmission is the successful checkout outcome handed back to the shopper.
type OrderSubmission struct {
	Order        Order
	WhatsAppLink string
	PixQRCode    string
	BoletoURL    string
}

// TotalsInput feeds the pure totals composer.
type TotalsInput struct {
	Subtotal               int64
	CouponDiscount         int64
	PaymentDiscountPercent int64
	ShippingFee            int64
}

// OrderCreatedMessage is the payload published after an order is persisted.
type OrderCreatedMessage struct {
	OrderID        string    `json:"orderId"`
	StoreID        string    `json:"storeId"`
	Status         string    `json:"status"`
	Total          int64     `json:"total"`
	PaymentMethod  string    `json:"paymentMethod"`
	DeliveryMethod string    `json:"deliveryMethod"`
	CreatedAt      time.Time `json:"createdAt"`
}

// OrderEventPublisher pushes order lifecycle events to the async pipeline.
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, message OrderCreatedMessage) (string, error)
}
