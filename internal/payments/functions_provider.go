package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lojafacil/api/internal/platform/functions"
)

// Serverless function names exposed by the payments backend.
const (
	fnAuthorizeCard    = "authorizeCard"
	fnCreatePixCharge  = "createPixCharge"
	fnIssueBoleto      = "issueBoleto"
	fnGetPaymentStatus = "getPaymentStatus"
)

// FunctionsProvider implements Provider over the serverless payment functions.
type FunctionsProvider struct {
	client *functions.Client
}

var _ Provider = (*FunctionsProvider)(nil)

// NewFunctionsProvider constructs a payment provider backed by the functions client.
func NewFunctionsProvider(client *functions.Client) (*FunctionsProvider, error) {
	if client == nil {
		return nil, errors.New("payments: functions client is required")
	}
	return &FunctionsProvider{client: client}, nil
}

type chargeResponse struct {
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	QRCode      string `json:"qrCode,omitempty"`
	DocumentURL string `json:"documentUrl,omitempty"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
}

func (r chargeResponse) toCharge() Charge {
	charge := Charge{
		Reference:   strings.TrimSpace(r.Reference),
		Status:      normalizeStatus(r.Status),
		QRCode:      r.QRCode,
		DocumentURL: r.DocumentURL,
	}
	if ts, err := time.Parse(time.RFC3339, r.ExpiresAt); err == nil {
		charge.ExpiresAt = ts
	}
	return charge
}

// AuthorizeCard charges the card synchronously. A declined charge returns
// ErrPaymentDeclined so callers abort before persisting anything.
func (p *FunctionsProvider) AuthorizeCard(ctx context.Context, req CardAuthorizationRequest) (Charge, error) {
	payload := map[string]any{
		"storeId":       req.StoreID,
		"amount":        req.Amount,
		"cardToken":     req.CardToken,
		"installments":  req.Installments,
		"customerName":  req.CustomerName,
		"customerEmail": req.CustomerEmail,
	}

	var resp chargeResponse
	if err := p.client.Invoke(ctx, fnAuthorizeCard, payload, &resp); err != nil {
		return Charge{}, fmt.Errorf("authorize card: %w", err)
	}

	charge := resp.toCharge()
	if charge.Status == StatusDeclined {
		return charge, ErrPaymentDeclined
	}
	return charge, nil
}

// CreatePixCharge requests a PIX charge with its copy-and-paste payload.
func (p *FunctionsProvider) CreatePixCharge(ctx context.Context, req PixChargeRequest) (Charge, error) {
	payload := map[string]any{
		"storeId":       req.StoreID,
		"amount":        req.Amount,
		"customerName":  req.CustomerName,
		"customerEmail": req.CustomerEmail,
	}

	var resp chargeResponse
	if err := p.client.Invoke(ctx, fnCreatePixCharge, payload, &resp); err != nil {
		return Charge{}, fmt.Errorf("create pix charge: %w", err)
	}
	return resp.toCharge(), nil
}

// IssueBoleto requests a payment slip from the processor.
func (p *FunctionsProvider) IssueBoleto(ctx context.Context, req BoletoRequest) (Charge, error) {
	payload := map[string]any{
		"storeId":       req.StoreID,
		"amount":        req.Amount,
		"customerName":  req.CustomerName,
		"customerEmail": req.CustomerEmail,
		"customerTaxId": req.CustomerTaxID,
	}
	if !req.DueDate.IsZero() {
		payload["dueDate"] = req.DueDate.UTC().Format(time.RFC3339)
	}

	var resp chargeResponse
	if err := p.client.Invoke(ctx, fnIssueBoleto, payload, &resp); err != nil {
		return Charge{}, fmt.Errorf("issue boleto: %w", err)
	}
	return resp.toCharge(), nil
}

// LookupStatus fetches the current processor status for a charge reference.
func (p *FunctionsProvider) LookupStatus(ctx context.Context, storeID string, reference string) (Status, error) {
	payload := map[string]any{
		"storeId":   storeID,
		"reference": reference,
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := p.client.Invoke(ctx, fnGetPaymentStatus, payload, &resp); err != nil {
		return "", fmt.Errorf("lookup payment status: %w", err)
	}
	return normalizeStatus(resp.Status), nil
}

// normalizeStatus maps the processor's vocabulary onto the shared Status set.
func normalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved", "paid", "captured", "succeeded":
		return StatusApproved
	case "declined", "refused", "failed":
		return StatusDeclined
	case "expired", "canceled":
		return StatusExpired
	default:
		return StatusPending
	}
}
