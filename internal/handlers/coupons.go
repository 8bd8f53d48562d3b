package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lojafacil/api/internal/platform/httpx"
	"github.com/lojafacil/api/internal/services"
)

const maxCouponBodySize = 4 * 1024

// CouponHandlers exposes the dry-run coupon evaluation endpoint.
type CouponHandlers struct {
	coupons services.CouponService
}

// NewCouponHandlers constructs handlers over the coupon service.
func NewCouponHandlers(coupons services.CouponService) *CouponHandlers {
	return &CouponHandlers{coupons: coupons}
}

// Routes wires the coupon endpoints onto the provided router.
func (h *CouponHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/evaluate", h.evaluate)
}

type evaluateCouponRequest struct {
	Code          string `json:"code"`
	Subtotal      int64  `json:"subtotal"`
	CustomerEmail string `json:"customerEmail,omitempty"`
}

type evaluateCouponResponse struct {
	Valid    bool   `json:"valid"`
	Code     string `json:"code,omitempty"`
	Discount int64  `json:"discount,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func (h *CouponHandlers) evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
		return
	}

	storeID := storeIDFromRequest(r)
	if storeID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "store identification is required", http.StatusBadRequest))
		return
	}

	var req evaluateCouponRequest
	if err := decodeJSONBody(r, maxCouponBodySize, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	application, err := h.coupons.Apply(ctx, services.ApplyCouponCommand{
		StoreID:       storeID,
		Code:          req.Code,
		Subtotal:      req.Subtotal,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		h.writeCouponError(ctx, w, err)
		return
	}

	resp := evaluateCouponResponse{Valid: application.Valid}
	if application.Valid {
		resp.Code = application.Coupon.Code
		resp.Discount = application.Discount
	} else {
		resp.Reason = string(application.Reason)
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *CouponHandlers) writeCouponError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCouponInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCouponUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("coupon_error", "failed to evaluate coupon", http.StatusInternalServerError))
	}
}
