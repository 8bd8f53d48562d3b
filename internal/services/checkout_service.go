package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/lojafacil/api/internal/domain"
	"github.com/lojafacil/api/internal/messaging"
	"github.com/lojafacil/api/internal/payments"
	"github.com/lojafacil/api/internal/platform/textutil"
	"github.com/lojafacil/api/internal/repositories"
)

var (
	// ErrCheckoutInvalidInput indicates a missing or invalid submission field.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutEmptyCart indicates the customer has no cart lines to order.
	ErrCheckoutEmptyCart = errors.New("checkout: cart is empty")
	// ErrCheckoutCouponRejected indicates the supplied coupon code did not validate.
	ErrCheckoutCouponRejected = errors.New("checkout: coupon rejected")
	// ErrCheckoutShippingUnavailable indicates the chosen delivery method is not eligible.
	ErrCheckoutShippingUnavailable = errors.New("checkout: delivery method unavailable")
	// ErrCheckoutPaymentDeclined indicates the card charge was refused before persistence.
	ErrCheckoutPaymentDeclined = errors.New("checkout: payment declined")
	// ErrCheckoutPaymentMethodDisabled indicates the store does not accept the method.
	ErrCheckoutPaymentMethodDisabled = errors.New("checkout: payment method disabled")
	// ErrCheckoutUnavailable indicates checkout dependencies are currently unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
)

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Stores    repositories.StoreRepository
	Carts     repositories.CartRepository
	Orders    repositories.OrderRepository
	Coupons   CouponService
	Shipping  ShippingService
	Payments  payments.Provider
	Publisher OrderEventPublisher
	Watcher   PaymentConfirmationWatcher
	Clock     func() time.Time
	IDGen     func() string
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	stores    repositories.StoreRepository
	carts     repositories.CartRepository
	orders    repositories.OrderRepository
	coupons   CouponService
	shipping  ShippingService
	payments  payments.Provider
	publisher OrderEventPublisher
	watcher   PaymentConfirmationWatcher
	now       func() time.Time
	newID     func() string
	logger    func(ctx context.Context, event string, fields map[string]any)
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Stores == nil {
		return nil, errors.New("checkout service: store repository is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("checkout service: cart repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Coupons == nil {
		return nil, errors.New("checkout service: coupon service is required")
	}
	if deps.Shipping == nil {
		return nil, errors.New("checkout service: shipping service is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment provider is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string {
			return ulid.MustNew(ulid.Timestamp(clock().UTC()), rand.Reader).String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &checkoutService{
		stores:    deps.Stores,
		carts:     deps.Carts,
		orders:    deps.Orders,
		coupons:   deps.Coupons,
		shipping:  deps.Shipping,
		payments:  deps.Payments,
		publisher: deps.Publisher,
		watcher:   deps.Watcher,
		now: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// Submit runs the submission sequence: validate, authorize card payment when
// applicable, persist order then items, record coupon usage, clear the cart.
// Steps after the order header exists fail independently; an orphaned header
// is logged and left in place rather than compensated.
func (s *checkoutService) Submit(ctx context.Context, cmd SubmitOrderCommand) (OrderSubmission, error) {
	if s == nil || s.orders == nil {
		return OrderSubmission{}, ErrCheckoutUnavailable
	}

	if err := validateSubmission(cmd); err != nil {
		return OrderSubmission{}, err
	}

	store, err := s.stores.FindByID(ctx, cmd.StoreID)
	if err != nil {
		return OrderSubmission{}, fmt.Errorf("checkout: load store: %w", err)
	}
	if !store.Payments.Allows(cmd.PaymentMethod) {
		return OrderSubmission{}, ErrCheckoutPaymentMethodDisabled
	}

	cart, err := s.carts.Get(ctx, cmd.StoreID, cmd.CustomerID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return OrderSubmission{}, ErrCheckoutEmptyCart
		}
		return OrderSubmission{}, fmt.Errorf("checkout: load cart: %w", err)
	}
	if len(cart.Lines) == 0 {
		return OrderSubmission{}, ErrCheckoutEmptyCart
	}
	subtotal := cart.Subtotal()

	var coupon CouponApplication
	if code := strings.TrimSpace(cmd.CouponCode); code != "" {
		coupon, err = s.coupons.Apply(ctx, ApplyCouponCommand{
			StoreID:       cmd.StoreID,
			Code:          code,
			Subtotal:      subtotal,
			CustomerEmail: cmd.CustomerEmail,
		})
		if err != nil {
			return OrderSubmission{}, fmt.Errorf("checkout: apply coupon: %w", err)
		}
		if !coupon.Valid {
			return OrderSubmission{}, fmt.Errorf("%w: %s", ErrCheckoutCouponRejected, coupon.Reason)
		}
	}

	shippingFee, err := s.resolveShippingFee(ctx, store, cart, cmd)
	if err != nil {
		return OrderSubmission{}, err
	}

	var discountPercent int64
	if cmd.PaymentMethod == domain.PaymentPix {
		discountPercent = store.Payments.PixDiscountPercent
	}
	totals := ComposeTotals(TotalsInput{
		Subtotal:               subtotal,
		CouponDiscount:         coupon.Discount,
		PaymentDiscountPercent: discountPercent,
		ShippingFee:            shippingFee,
	})

	order := domain.Order{
		ID:             s.newID(),
		StoreID:        cmd.StoreID,
		CustomerID:     strings.TrimSpace(cmd.CustomerID),
		CustomerName:   strings.TrimSpace(cmd.CustomerName),
		CustomerEmail:  strings.ToLower(strings.TrimSpace(cmd.CustomerEmail)),
		CustomerPhone:  strings.TrimSpace(cmd.CustomerPhone),
		Address:        cmd.Address,
		DeliveryMethod: cmd.DeliveryMethod,
		PaymentMethod:  cmd.PaymentMethod,
		Totals:         totals,
		CouponCode:     strings.ToUpper(strings.TrimSpace(cmd.CouponCode)),
		Notes:          textutil.SanitizePlainText(cmd.Notes),
		CreatedAt:      s.now(),
	}
	for _, line := range cart.Lines {
		order.Items = append(order.Items, domain.OrderItem{
			ID:        s.newID(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.EffectiveUnitPrice(),
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal(),
		})
	}

	submission := OrderSubmission{}

	// Payment happens before any persistence: a declined card aborts the
	// whole submission with nothing written.
	switch cmd.PaymentMethod {
	case domain.PaymentCard:
		charge, err := s.payments.AuthorizeCard(ctx, payments.CardAuthorizationRequest{
			StoreID:       cmd.StoreID,
			Amount:        totals.Total,
			CardToken:     cmd.CardToken,
			Installments:  cmd.Installments,
			CustomerName:  order.CustomerName,
			CustomerEmail: order.CustomerEmail,
		})
		if err != nil {
			if errors.Is(err, payments.ErrPaymentDeclined) {
				return OrderSubmission{}, ErrCheckoutPaymentDeclined
			}
			return OrderSubmission{}, fmt.Errorf("checkout: authorize card: %w", err)
		}
		order.PaymentRef = charge.Reference
		if charge.Status == payments.StatusApproved {
			order.Status = domain.OrderStatusConfirmed
		} else {
			order.Status = domain.OrderStatusPending
		}

	case domain.PaymentPix:
		charge, err := s.payments.CreatePixCharge(ctx, payments.PixChargeRequest{
			StoreID:       cmd.StoreID,
			Amount:        totals.Total,
			CustomerName:  order.CustomerName,
			CustomerEmail: order.CustomerEmail,
		})
		if err != nil {
			return OrderSubmission{}, fmt.Errorf("checkout: create pix charge: %w", err)
		}
		order.PaymentRef = charge.Reference
		order.Status = domain.OrderStatusPending
		submission.PixQRCode = charge.QRCode

	case domain.PaymentBoleto:
		charge, err := s.payments.IssueBoleto(ctx, payments.BoletoRequest{
			StoreID:       cmd.StoreID,
			Amount:        totals.Total,
			CustomerName:  order.CustomerName,
			CustomerEmail: order.CustomerEmail,
		})
		if err != nil {
			return OrderSubmission{}, fmt.Errorf("checkout: issue boleto: %w", err)
		}
		order.PaymentRef = charge.Reference
		order.Status = domain.OrderStatusPending
		submission.BoletoURL = charge.DocumentURL

	case domain.PaymentOnDelivery:
		order.Status = domain.OrderStatusPendingManual

	case domain.PaymentWhatsApp:
		// The deep link is produced before persistence so the handoff is
		// available even when a later step fails.
		link, err := messaging.OrderLink(store, order)
		if err != nil {
			return OrderSubmission{}, fmt.Errorf("checkout: build whatsapp link: %w", err)
		}
		submission.WhatsAppLink = link
		order.Status = domain.OrderStatusPendingManual
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return OrderSubmission{}, fmt.Errorf("checkout: create order: %w", err)
	}

	if err := s.orders.AppendItems(ctx, cmd.StoreID, order.ID, order.Items); err != nil {
		// Known integrity gap: the header stays behind without its items.
		s.logger(ctx, "order_items_write_failed", map[string]any{
			"orderId": order.ID,
			"storeId": cmd.StoreID,
			"error":   err.Error(),
		})
		return OrderSubmission{}, fmt.Errorf("checkout: create order items: %w", err)
	}

	if coupon.Valid {
		usage := domain.CouponUsage{
			ID:            s.newID(),
			CouponID:      coupon.Coupon.ID,
			StoreID:       cmd.StoreID,
			CustomerEmail: order.CustomerEmail,
			OrderID:       order.ID,
			UsedAt:        s.now(),
		}
		if err := s.coupons.RecordUsage(ctx, usage); err != nil {
			s.logger(ctx, "coupon_usage_write_failed", map[string]any{
				"orderId":  order.ID,
				"couponId": coupon.Coupon.ID,
				"error":    err.Error(),
			})
		}
	}

	// PIX and boleto settle asynchronously; start polling the charge so the
	// order leaves pending without the shopper coming back.
	if s.watcher != nil && order.Status == domain.OrderStatusPending && order.PaymentRef != "" {
		switch cmd.PaymentMethod {
		case domain.PaymentPix, domain.PaymentBoleto:
			s.watcher.Start(ctx, cmd.StoreID, order.ID, order.PaymentRef)
		}
	}

	if err := s.carts.Clear(ctx, cmd.StoreID, cmd.CustomerID); err != nil {
		s.logger(ctx, "cart_clear_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}

	s.publishCreated(ctx, order)

	s.logger(ctx, "order_submitted", map[string]any{
		"orderId": order.ID,
		"storeId": cmd.StoreID,
		"status":  string(order.Status),
		"total":   totals.Total,
	})

	submission.Order = order
	return submission, nil
}

// resolveShippingFee re-evaluates eligibility for the chosen method instead
// of trusting a client-sent fee.
func (s *checkoutService) resolveShippingFee(ctx context.Context, store Store, cart Cart, cmd SubmitOrderCommand) (int64, error) {
	eval, err := s.shipping.EvaluateMethods(ctx, EvaluateShippingCommand{
		Store:   store,
		Cart:    cart,
		Address: cmd.Address,
		Quotes:  cmd.Quotes,
	})
	if err != nil {
		return 0, fmt.Errorf("checkout: evaluate shipping: %w", err)
	}

	method, ok := eval.Method(cmd.DeliveryMethod)
	if !ok || !method.Eligible || method.Fee == nil {
		return 0, ErrCheckoutShippingUnavailable
	}
	return *method.Fee, nil
}

func (s *checkoutService) publishCreated(ctx context.Context, order Order) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.PublishOrderCreated(ctx, OrderCreatedMessage{
		OrderID:        order.ID,
		StoreID:        order.StoreID,
		Status:         string(order.Status),
		Total:          order.Totals.Total,
		PaymentMethod:  string(order.PaymentMethod),
		DeliveryMethod: string(order.DeliveryMethod),
		CreatedAt:      order.CreatedAt,
	}); err != nil {
		s.logger(ctx, "order_event_publish_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

func validateSubmission(cmd SubmitOrderCommand) error {
	if strings.TrimSpace(cmd.StoreID) == "" || strings.TrimSpace(cmd.CustomerID) == "" {
		return ErrCheckoutInvalidInput
	}
	if strings.TrimSpace(cmd.CustomerName) == "" || strings.TrimSpace(cmd.CustomerEmail) == "" {
		return ErrCheckoutInvalidInput
	}

	switch cmd.PaymentMethod {
	case domain.PaymentPix, domain.PaymentCard, domain.PaymentBoleto, domain.PaymentOnDelivery, domain.PaymentWhatsApp:
	default:
		return ErrCheckoutInvalidInput
	}
	if cmd.PaymentMethod == domain.PaymentCard && strings.TrimSpace(cmd.CardToken) == "" {
		return ErrCheckoutInvalidInput
	}

	switch cmd.DeliveryMethod {
	case domain.DeliveryPickup:
	case domain.DeliveryLocal, domain.DeliveryCarrierEconomy, domain.DeliveryCarrierExpress, domain.DeliveryCompactParcel:
		// Address fields are required unless the shopper picks the order up.
		if cmd.Address == nil {
			return ErrCheckoutInvalidInput
		}
		if strings.TrimSpace(cmd.Address.Street) == "" ||
			strings.TrimSpace(cmd.Address.City) == "" ||
			strings.TrimSpace(cmd.Address.State) == "" ||
			domain.NormalizeZipcode(cmd.Address.Zipcode) == "" {
			return ErrCheckoutInvalidInput
		}
	default:
		return ErrCheckoutInvalidInput
	}
	return nil
}
