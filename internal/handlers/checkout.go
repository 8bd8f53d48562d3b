package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/lojafacil/api/internal/domain"
	"github.com/lojafacil/api/internal/payments"
	"github.com/lojafacil/api/internal/platform/auth"
	"github.com/lojafacil/api/internal/platform/httpx"
	"github.com/lojafacil/api/internal/services"
)

const maxCheckoutBodySize = 32 * 1024

// CheckoutHandlers exposes order submission and payment status polling.
type CheckoutHandlers struct {
	authn    *auth.Authenticator
	checkout services.CheckoutService
	payments payments.Provider
}

// NewCheckoutHandlers constructs handlers over the checkout service and the
// payment provider used for status polling.
func NewCheckoutHandlers(authn *auth.Authenticator, checkout services.CheckoutService, provider payments.Provider) *CheckoutHandlers {
	return &CheckoutHandlers{
		authn:    authn,
		checkout: checkout,
		payments: provider,
	}
}

// Routes wires the checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.OptionalAuth())
	}
	r.Post("/", h.submit)
	r.Get("/payments/{reference}", h.paymentStatus)
}

type submitOrderRequest struct {
	CustomerName   string                `json:"customerName"`
	CustomerEmail  string                `json:"customerEmail"`
	CustomerPhone  string                `json:"customerPhone,omitempty"`
	Address        *addressPayload       `json:"address,omitempty"`
	DeliveryMethod string                `json:"deliveryMethod"`
	PaymentMethod  string                `json:"paymentMethod"`
	CouponCode     string                `json:"couponCode,omitempty"`
	Notes          string                `json:"notes,omitempty"`
	Quotes         []carrierQuotePayload `json:"quotes,omitempty"`
	CardToken      string                `json:"cardToken,omitempty"`
	Installments   int                   `json:"installments,omitempty"`
}

type submitOrderResponse struct {
	OrderID        string        `json:"orderId"`
	Status         string        `json:"status"`
	Totals         totalsPayload `json:"totals"`
	PaymentRef     string        `json:"paymentRef,omitempty"`
	WhatsAppLink   string        `json:"whatsappLink,omitempty"`
	PixQRCode      string        `json:"pixQrCode,omitempty"`
	BoletoURL      string        `json:"boletoUrl,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	DeliveryMethod string        `json:"deliveryMethod"`
	PaymentMethod  string        `json:"paymentMethod"`
}

func (h *CheckoutHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	storeID := storeIDFromRequest(r)
	customerID := customerIDFromRequest(r)
	if storeID == "" || customerID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "store and customer identification are required", http.StatusBadRequest))
		return
	}

	var req submitOrderRequest
	if err := decodeJSONBody(r, maxCheckoutBodySize, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	submission, err := h.checkout.Submit(ctx, services.SubmitOrderCommand{
		StoreID:        storeID,
		CustomerID:     customerID,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
		Address:        req.Address.toDomain(),
		DeliveryMethod: domain.DeliveryMethod(strings.TrimSpace(req.DeliveryMethod)),
		PaymentMethod:  domain.PaymentMethod(strings.TrimSpace(req.PaymentMethod)),
		CouponCode:     req.CouponCode,
		Notes:          req.Notes,
		Quotes:         quotesFromPayloads(req.Quotes),
		CardToken:      req.CardToken,
		Installments:   req.Installments,
	})
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	order := submission.Order
	writeJSONResponse(w, http.StatusCreated, submitOrderResponse{
		OrderID:        order.ID,
		Status:         string(order.Status),
		Totals:         buildTotalsPayload(order.Totals),
		PaymentRef:     order.PaymentRef,
		WhatsAppLink:   submission.WhatsAppLink,
		PixQRCode:      submission.PixQRCode,
		BoletoURL:      submission.BoletoURL,
		CreatedAt:      order.CreatedAt,
		DeliveryMethod: string(order.DeliveryMethod),
		PaymentMethod:  string(order.PaymentMethod),
	})
}

type paymentStatusResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

func (h *CheckoutHandlers) paymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payments_unavailable", "payment status is unavailable", http.StatusServiceUnavailable))
		return
	}

	storeID := storeIDFromRequest(r)
	reference := strings.TrimSpace(chi.URLParam(r, "reference"))
	if storeID == "" || reference == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "store and payment reference are required", http.StatusBadRequest))
		return
	}

	status, err := h.payments.LookupStatus(ctx, storeID, reference)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_status_error", "failed to look up payment status", http.StatusBadGateway))
		return
	}

	writeJSONResponse(w, http.StatusOK, paymentStatusResponse{
		Reference: reference,
		Status:    string(status),
	})
}

func (h *CheckoutHandlers) writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("empty_cart", "cart is empty", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutCouponRejected):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_rejected", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutShippingUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", "selected delivery method is not available", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutPaymentMethodDisabled):
		httpx.WriteError(ctx, w, httpx.NewError("payment_method_disabled", "selected payment method is not enabled", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutPaymentDeclined):
		httpx.WriteError(ctx, w, httpx.NewError("payment_declined", "payment was declined", http.StatusPaymentRequired))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "failed to submit order", http.StatusInternalServerError))
	}
}
