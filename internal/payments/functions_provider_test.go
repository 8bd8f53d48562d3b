package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lojafacil/api/internal/platform/config"
	"github.com/lojafacil/api/internal/platform/functions"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *FunctionsProvider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := functions.NewClient(config.FunctionsConfig{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("functions.NewClient: %v", err)
	}

	provider, err := NewFunctionsProvider(client)
	if err != nil {
		t.Fatalf("NewFunctionsProvider: %v", err)
	}
	return provider
}

func TestAuthorizeCardApproved(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/authorizeCard" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload["cardToken"] != "tok_123" {
			t.Errorf("expected card token forwarded, got %v", payload["cardToken"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"reference": "ch_1",
			"status":    "approved",
		})
	})

	charge, err := provider.AuthorizeCard(context.Background(), CardAuthorizationRequest{
		StoreID:   "store-1",
		Amount:    9900,
		CardToken: "tok_123",
	})
	if err != nil {
		t.Fatalf("AuthorizeCard: %v", err)
	}
	if charge.Status != StatusApproved || charge.Reference != "ch_1" {
		t.Fatalf("unexpected charge %#v", charge)
	}
}

func TestAuthorizeCardDeclined(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"reference": "ch_2",
			"status":    "refused",
		})
	})

	_, err := provider.AuthorizeCard(context.Background(), CardAuthorizationRequest{
		StoreID:   "store-1",
		Amount:    9900,
		CardToken: "tok_bad",
	})
	if !errors.Is(err, ErrPaymentDeclined) {
		t.Fatalf("expected ErrPaymentDeclined, got %v", err)
	}
}

func TestCreatePixChargeReturnsQRCode(t *testing.T) {
	expiresAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/createPixCharge" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"reference": "pix_1",
			"status":    "pending",
			"qrCode":    "00020126BR.GOV.BCB.PIX",
			"expiresAt": expiresAt.Format(time.RFC3339),
		})
	})

	charge, err := provider.CreatePixCharge(context.Background(), PixChargeRequest{
		StoreID: "store-1",
		Amount:  5000,
	})
	if err != nil {
		t.Fatalf("CreatePixCharge: %v", err)
	}
	if charge.QRCode == "" {
		t.Fatalf("expected qr code payload")
	}
	if !charge.ExpiresAt.Equal(expiresAt) {
		t.Fatalf("expected expiry %v, got %v", expiresAt, charge.ExpiresAt)
	}
}

func TestLookupStatusNormalizesVocabulary(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "PAID"})
	})

	status, err := provider.LookupStatus(context.Background(), "store-1", "pix_1")
	if err != nil {
		t.Fatalf("LookupStatus: %v", err)
	}
	if status != StatusApproved {
		t.Fatalf("expected approved, got %s", status)
	}
}

func TestLookupStatusPropagatesInvocationFailure(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := provider.LookupStatus(context.Background(), "store-1", "pix_1")
	if !errors.Is(err, functions.ErrInvocationFailed) {
		t.Fatalf("expected ErrInvocationFailed, got %v", err)
	}
}
