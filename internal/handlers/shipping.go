package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lojafacil/api/internal/platform/auth"
	"github.com/lojafacil/api/internal/platform/httpx"
	"github.com/lojafacil/api/internal/repositories"
	"github.com/lojafacil/api/internal/services"
)

const maxShippingBodySize = 16 * 1024

// ShippingHandlers exposes delivery-method evaluation and carrier quoting for
// the checkout page. Evaluation always reflects the current persisted cart.
type ShippingHandlers struct {
	authn    *auth.Authenticator
	stores   repositories.StoreRepository
	carts    services.CartService
	shipping services.ShippingService
	quotes   services.QuoteService
	streams  *services.QuoteStreamPool
}

// NewShippingHandlers constructs handlers over the shipping collaborators.
// When streams is non-nil the quote endpoint debounces per checkout session.
func NewShippingHandlers(authn *auth.Authenticator, stores repositories.StoreRepository, carts services.CartService, shipping services.ShippingService, quotes services.QuoteService, streams *services.QuoteStreamPool) *ShippingHandlers {
	return &ShippingHandlers{
		authn:    authn,
		stores:   stores,
		carts:    carts,
		shipping: shipping,
		quotes:   quotes,
		streams:  streams,
	}
}

// Routes wires the shipping endpoints onto the provided router.
func (h *ShippingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.OptionalAuth())
	}
	r.Post("/evaluate", h.evaluate)
	r.Post("/quotes", h.fetchQuotes)
}

type evaluateShippingRequest struct {
	Address *addressPayload       `json:"address,omitempty"`
	Quotes  []carrierQuotePayload `json:"quotes,omitempty"`
}

type methodEvaluationPayload struct {
	Method       string   `json:"method"`
	Eligible     bool     `json:"eligible"`
	Fee          *int64   `json:"fee,omitempty"`
	FreeShipping bool     `json:"freeShipping,omitempty"`
	Violations   []string `json:"violations,omitempty"`
}

type evaluateShippingResponse struct {
	Methods  []methodEvaluationPayload `json:"methods"`
	Fallback string                    `json:"fallback,omitempty"`
}

func (h *ShippingHandlers) evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.stores == nil || h.carts == nil || h.shipping == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_service_unavailable", "shipping service is unavailable", http.StatusServiceUnavailable))
		return
	}

	storeID := storeIDFromRequest(r)
	customerID := customerIDFromRequest(r)
	if storeID == "" || customerID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "store and customer identification are required", http.StatusBadRequest))
		return
	}

	var req evaluateShippingRequest
	if err := decodeJSONBody(r, maxShippingBodySize, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	store, err := h.stores.FindByID(ctx, storeID)
	if err != nil {
		h.writeStoreError(ctx, w, err)
		return
	}

	cart, err := h.carts.GetOrCreate(ctx, storeID, customerID)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "failed to load cart", http.StatusInternalServerError))
		return
	}

	address := req.Address.toDomain()
	quotes := quotesFromPayloads(req.Quotes)
	if quotes == nil && h.quotes != nil && store.CarrierEnabled && address != nil {
		result, quoteErr := h.quotes.Fetch(ctx, services.FetchQuotesCommand{
			StoreID:            storeID,
			OriginZipcode:      store.OriginZipcode,
			DestinationZipcode: address.Zipcode,
			Lines:              cart.Lines,
		})
		if quoteErr == nil && !result.Stale {
			quotes = result.Quotes
		}
	}

	evaluation, err := h.shipping.EvaluateMethods(ctx, services.EvaluateShippingCommand{
		Store:   store,
		Cart:    cart,
		Address: address,
		Quotes:  quotes,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrShippingInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("shipping_error", "failed to evaluate delivery methods", http.StatusInternalServerError))
		}
		return
	}

	resp := evaluateShippingResponse{Methods: make([]methodEvaluationPayload, 0, len(evaluation.Methods))}
	for _, m := range evaluation.Methods {
		payload := methodEvaluationPayload{
			Method:       string(m.Method),
			Eligible:     m.Eligible,
			Fee:          m.Fee,
			FreeShipping: m.FreeShipping,
		}
		for _, v := range m.Violations {
			payload.Violations = append(payload.Violations, string(v))
		}
		resp.Methods = append(resp.Methods, payload)
	}
	if fallback, ok := services.SelectFallback(evaluation); ok {
		resp.Fallback = string(fallback)
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

type fetchQuotesRequest struct {
	Zipcode string `json:"zipcode"`
}

type fetchQuotesResponse struct {
	Sequence uint64                `json:"sequence"`
	Quotes   []carrierQuotePayload `json:"quotes"`
}

func (h *ShippingHandlers) fetchQuotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.stores == nil || h.carts == nil || h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_service_unavailable", "carrier quoting is unavailable", http.StatusServiceUnavailable))
		return
	}

	storeID := storeIDFromRequest(r)
	customerID := customerIDFromRequest(r)
	if storeID == "" || customerID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "store and customer identification are required", http.StatusBadRequest))
		return
	}

	var req fetchQuotesRequest
	if err := decodeJSONBody(r, maxShippingBodySize, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	store, err := h.stores.FindByID(ctx, storeID)
	if err != nil {
		h.writeStoreError(ctx, w, err)
		return
	}
	if !store.CarrierEnabled {
		httpx.WriteError(ctx, w, httpx.NewError("carrier_disabled", "carrier shipping is not enabled for this store", http.StatusUnprocessableEntity))
		return
	}

	cart, err := h.carts.GetOrCreate(ctx, storeID, customerID)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "failed to load cart", http.StatusInternalServerError))
		return
	}

	cmd := services.FetchQuotesCommand{
		StoreID:            storeID,
		OriginZipcode:      store.OriginZipcode,
		DestinationZipcode: req.Zipcode,
		Lines:              cart.Lines,
	}

	var result services.QuoteResult
	if h.streams != nil {
		// Rapid zipcode edits from the same shopper coalesce into one
		// carrier call; every in-flight request gets the final rates.
		result, err = h.streams.Fetch(ctx, storeID+"/"+customerID, cmd)
	} else {
		result, err = h.quotes.Fetch(ctx, cmd)
	}
	if err != nil {
		switch {
		case errors.Is(err, services.ErrQuoteInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("quote_error", "failed to fetch carrier quotes", http.StatusInternalServerError))
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, fetchQuotesResponse{
		Sequence: result.Sequence,
		Quotes:   buildQuotePayloads(result.Quotes),
	})
}

func (h *ShippingHandlers) writeStoreError(ctx context.Context, w http.ResponseWriter, err error) {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		httpx.WriteError(ctx, w, httpx.NewError("store_not_found", "store not found", http.StatusNotFound))
		return
	}
	httpx.WriteError(ctx, w, httpx.NewError("store_error", "failed to load store", http.StatusInternalServerError))
}
