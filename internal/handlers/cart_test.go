package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/lojafacil/api/internal/domain"
	"github.com/lojafacil/api/internal/services"
)

func newCartRouter(cart *stubCartService) chi.Router {
	r := chi.NewRouter()
	r.Route("/stores/{storeId}/cart", NewCartHandlers(nil, cart).Routes)
	return r
}

func TestGetCartRequiresCustomer(t *testing.T) {
	router := newCartRouter(&stubCartService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stores/store-1/cart/", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetCartReturnsPayload(t *testing.T) {
	promo := int64(3900)
	cart := &stubCartService{cart: domain.Cart{
		ID:         "cust-1",
		StoreID:    "store-1",
		CustomerID: "cust-1",
		Lines: []domain.CartLine{
			{ID: "line-a", Name: "Caneca", UnitPrice: 4500, PromoPrice: &promo, Quantity: 2},
		},
	}}
	router := newCartRouter(cart)

	req := httptest.NewRequest(http.MethodGet, "/stores/store-1/cart/", nil)
	req.Header.Set(customerHeader, "cust-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload cartPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Subtotal != 7800 {
		t.Fatalf("expected promo-priced subtotal 7800, got %d", payload.Subtotal)
	}
	if len(payload.Lines) != 1 || payload.Lines[0].Subtotal != 7800 {
		t.Fatalf("unexpected lines payload: %+v", payload.Lines)
	}
}

func TestUpsertLineForwardsCommand(t *testing.T) {
	cart := &stubCartService{cart: domain.Cart{StoreID: "store-1", CustomerID: "cust-1"}}
	router := newCartRouter(cart)

	body := `{"name":"Caneca","unitPrice":4500,"quantity":2,"dimensions":{"weightGrams":300}}`
	req := httptest.NewRequest(http.MethodPut, "/stores/store-1/cart/lines", strings.NewReader(body))
	req.Header.Set(customerHeader, "cust-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if cart.lastUpsert.StoreID != "store-1" || cart.lastUpsert.CustomerID != "cust-1" {
		t.Fatalf("command not scoped: %+v", cart.lastUpsert)
	}
	if cart.lastUpsert.Dimensions.WeightGrams != 300 {
		t.Fatalf("dimensions not forwarded: %+v", cart.lastUpsert.Dimensions)
	}
}

func TestUpdateQuantityRequiresField(t *testing.T) {
	router := newCartRouter(&stubCartService{})

	req := httptest.NewRequest(http.MethodPatch, "/stores/store-1/cart/lines/line-a", strings.NewReader(`{}`))
	req.Header.Set(customerHeader, "cust-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateQuantityAcceptsZero(t *testing.T) {
	cart := &stubCartService{}
	router := newCartRouter(cart)

	req := httptest.NewRequest(http.MethodPatch, "/stores/store-1/cart/lines/line-a", strings.NewReader(`{"quantity":0}`))
	req.Header.Set(customerHeader, "cust-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if cart.lastQuantity.Quantity != 0 || cart.lastQuantity.LineID != "line-a" {
		t.Fatalf("command not forwarded: %+v", cart.lastQuantity)
	}
}

func TestRemoveLineMapsNotFound(t *testing.T) {
	router := newCartRouter(&stubCartService{err: services.ErrCartLineNotFound})

	req := httptest.NewRequest(http.MethodDelete, "/stores/store-1/cart/lines/missing", nil)
	req.Header.Set(customerHeader, "cust-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestClearCartNoContent(t *testing.T) {
	cart := &stubCartService{}
	router := newCartRouter(cart)

	req := httptest.NewRequest(http.MethodDelete, "/stores/store-1/cart/", nil)
	req.Header.Set(customerHeader, "cust-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !cart.cleared {
		t.Fatal("expected clear to be invoked")
	}
}
