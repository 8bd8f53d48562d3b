package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lojafacil/api/internal/platform/auth"
	"github.com/lojafacil/api/internal/platform/httpx"
	"github.com/lojafacil/api/internal/services"
)

const maxCartBodySize = 16 * 1024

// CartHandlers exposes the shopper cart endpoints, keyed by store and
// customer. Guests are identified by the session header, signed-in shoppers
// by their Firebase UID.
type CartHandlers struct {
	authn *auth.Authenticator
	carts services.CartService
}

// NewCartHandlers constructs handlers over the cart service.
func NewCartHandlers(authn *auth.Authenticator, carts services.CartService) *CartHandlers {
	return &CartHandlers{authn: authn, carts: carts}
}

// Routes wires the cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.OptionalAuth())
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Put("/lines", h.upsertLine)
	r.Patch("/lines/{lineId}", h.updateQuantity)
	r.Delete("/lines/{lineId}", h.removeLine)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID, customerID, ok := h.subject(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetOrCreate(ctx, storeID, customerID)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

type upsertLineRequest struct {
	LineID     string            `json:"lineId,omitempty"`
	ProductID  string            `json:"productId,omitempty"`
	Name       string            `json:"name"`
	UnitPrice  int64             `json:"unitPrice"`
	PromoPrice *int64            `json:"promoPrice,omitempty"`
	Quantity   int               `json:"quantity"`
	Dimensions dimensionsPayload `json:"dimensions"`
}

func (h *CartHandlers) upsertLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID, customerID, ok := h.subject(w, r)
	if !ok {
		return
	}

	var req upsertLineRequest
	if err := decodeJSONBody(r, maxCartBodySize, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	cart, err := h.carts.UpsertLine(ctx, services.UpsertCartLineCommand{
		StoreID:    storeID,
		CustomerID: customerID,
		LineID:     req.LineID,
		ProductID:  req.ProductID,
		Name:       req.Name,
		UnitPrice:  req.UnitPrice,
		PromoPrice: req.PromoPrice,
		Quantity:   req.Quantity,
		Dimensions: req.Dimensions.toDomain(),
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandlers) updateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID, customerID, ok := h.subject(w, r)
	if !ok {
		return
	}

	var req updateQuantityRequest
	if err := decodeJSONBody(r, maxCartBodySize, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.UpdateQuantity(ctx, services.UpdateCartQuantityCommand{
		StoreID:    storeID,
		CustomerID: customerID,
		LineID:     chi.URLParam(r, "lineId"),
		Quantity:   *req.Quantity,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

func (h *CartHandlers) removeLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID, customerID, ok := h.subject(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveLine(ctx, storeID, customerID, chi.URLParam(r, "lineId"))
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	storeID, customerID, ok := h.subject(w, r)
	if !ok {
		return
	}

	if err := h.carts.Clear(ctx, storeID, customerID); err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandlers) subject(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return "", "", false
	}
	storeID := storeIDFromRequest(r)
	customerID := customerIDFromRequest(r)
	if storeID == "" || strings.TrimSpace(customerID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "store and customer identification are required", http.StatusBadRequest))
		return "", "", false
	}
	return storeID, customerID, true
}

func (h *CartHandlers) writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartLineNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_line_not_found", "cart line not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "failed to update cart", http.StatusInternalServerError))
	}
}
