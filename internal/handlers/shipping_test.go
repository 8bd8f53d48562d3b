package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/lojafacil/api/internal/domain"
	"github.com/lojafacil/api/internal/services"
)

type shippingFixture struct {
	stores   *stubStoreFinder
	carts    *stubCartService
	shipping *stubShippingService
	quotes   *stubQuoteService
	router   chi.Router
}

func newShippingFixture() *shippingFixture {
	f := &shippingFixture{
		stores: &stubStoreFinder{store: domain.Store{
			ID:             "store-1",
			City:           "São Paulo",
			State:          "SP",
			OriginZipcode:  "01310-100",
			CarrierEnabled: true,
		}},
		carts:    &stubCartService{cart: domain.Cart{StoreID: "store-1", CustomerID: "cust-1"}},
		shipping: &stubShippingService{},
		quotes:   &stubQuoteService{},
	}
	h := NewShippingHandlers(nil, f.stores, f.carts, f.shipping, f.quotes, nil)
	r := chi.NewRouter()
	r.Route("/stores/{storeId}/shipping", h.Routes)
	f.router = r
	return f
}

func (f *shippingFixture) do(t *testing.T, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(customerHeader, "cust-1")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestEvaluateShippingReturnsMethodsAndFallback(t *testing.T) {
	f := newShippingFixture()
	fee := int64(1200)
	f.shipping.evaluation = services.ShippingEvaluation{Methods: []services.MethodEvaluation{
		{Method: domain.DeliveryPickup, Eligible: true, Fee: new(int64)},
		{Method: domain.DeliveryLocal, Eligible: true, Fee: &fee},
		{Method: domain.DeliveryCarrierEconomy, Eligible: false},
	}}

	rec := f.do(t, "/stores/store-1/shipping/evaluate", `{"address":{"street":"Av. Paulista","city":"São Paulo","state":"SP","zipcode":"01310-100"}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp evaluateShippingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Methods) != 3 {
		t.Fatalf("expected 3 methods, got %d", len(resp.Methods))
	}
	if resp.Fallback != string(domain.DeliveryLocal) {
		t.Fatalf("expected local fallback, got %q", resp.Fallback)
	}
}

func TestEvaluateShippingFetchesQuotesForCarrierStores(t *testing.T) {
	f := newShippingFixture()
	f.quotes.result = services.QuoteResult{Sequence: 1, Quotes: []domain.CarrierQuote{
		{ServiceID: "1", Name: "PAC", Price: 2190, DeliveryDays: 8},
	}}

	rec := f.do(t, "/stores/store-1/shipping/evaluate", `{"address":{"street":"Rua A","city":"Campinas","state":"SP","zipcode":"13010-001"}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.quotes.lastCmd.DestinationZipcode != "13010-001" {
		t.Fatalf("quote command not issued: %+v", f.quotes.lastCmd)
	}
	if len(f.shipping.lastCmd.Quotes) != 1 || f.shipping.lastCmd.Quotes[0].ServiceID != "1" {
		t.Fatalf("quotes not forwarded to evaluation: %+v", f.shipping.lastCmd.Quotes)
	}
}

func TestEvaluateShippingUsesClientQuotesWhenProvided(t *testing.T) {
	f := newShippingFixture()

	rec := f.do(t, "/stores/store-1/shipping/evaluate", `{"address":{"street":"Rua A","city":"Campinas","state":"SP","zipcode":"13010-001"},"quotes":[{"serviceId":"2","name":"SEDEX","price":3590,"deliveryDays":3}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.quotes.lastCmd.StoreID != "" {
		t.Fatal("expected no server-side quote fetch when client supplied quotes")
	}
	if len(f.shipping.lastCmd.Quotes) != 1 || f.shipping.lastCmd.Quotes[0].ServiceID != "2" {
		t.Fatalf("client quotes not forwarded: %+v", f.shipping.lastCmd.Quotes)
	}
}

func TestFetchQuotesRejectsCarrierDisabledStore(t *testing.T) {
	f := newShippingFixture()
	f.stores.store.CarrierEnabled = false

	rec := f.do(t, "/stores/store-1/shipping/quotes", `{"zipcode":"13010-001"}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestFetchQuotesReturnsSequence(t *testing.T) {
	f := newShippingFixture()
	f.quotes.result = services.QuoteResult{Sequence: 7, Quotes: []domain.CarrierQuote{
		{ServiceID: "17", Name: "Mini Envios", Price: 1390, DeliveryDays: 9},
	}}

	rec := f.do(t, "/stores/store-1/shipping/quotes", `{"zipcode":"13010-001"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp fetchQuotesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Sequence != 7 || len(resp.Quotes) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestFetchQuotesRoutesThroughSessionStream(t *testing.T) {
	f := newShippingFixture()
	f.quotes.result = services.QuoteResult{Sequence: 3, Quotes: []domain.CarrierQuote{
		{ServiceID: "1", Name: "PAC", Price: 2190, DeliveryDays: 8},
	}}

	pool, err := services.NewQuoteStreamPool(f.quotes, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("NewQuoteStreamPool: %v", err)
	}
	defer pool.Close()

	h := NewShippingHandlers(nil, f.stores, f.carts, f.shipping, f.quotes, pool)
	r := chi.NewRouter()
	r.Route("/stores/{storeId}/shipping", h.Routes)
	f.router = r

	rec := f.do(t, "/stores/store-1/shipping/quotes", `{"zipcode":"13010-001"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp fetchQuotesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Sequence != 3 || len(resp.Quotes) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if f.quotes.lastCmd.DestinationZipcode != "13010-001" || f.quotes.lastCmd.OriginZipcode != "01310-100" {
		t.Fatalf("debounced fetch command not forwarded: %+v", f.quotes.lastCmd)
	}
}
