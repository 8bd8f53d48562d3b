package payments

import (
	"context"
	"errors"
	"time"
)

// Status enumerates the normalised payment states shared across providers.
type Status string

const (
	// StatusPending indicates the payment is awaiting customer action or confirmation.
	StatusPending Status = "pending"
	// StatusApproved indicates the payment was approved or captured.
	StatusApproved Status = "approved"
	// StatusDeclined indicates the payment was declined and no order should be created.
	StatusDeclined Status = "declined"
	// StatusExpired indicates the charge expired before the customer paid.
	StatusExpired Status = "expired"
)

// ErrPaymentDeclined is returned when the processor refuses the charge.
var ErrPaymentDeclined = errors.New("payments: payment declined")

// CardAuthorizationRequest captures a card charge attempt made before the
// order is persisted.
type CardAuthorizationRequest struct {
	StoreID       string
	Amount        int64
	CardToken     string
	Installments  int
	CustomerName  string
	CustomerEmail string
}

// PixChargeRequest asks the processor for an instant-transfer charge.
type PixChargeRequest struct {
	StoreID       string
	Amount        int64
	CustomerName  string
	CustomerEmail string
}

// BoletoRequest asks the processor to issue a payment slip.
type BoletoRequest struct {
	StoreID       string
	Amount        int64
	CustomerName  string
	CustomerEmail string
	CustomerTaxID string
	DueDate       time.Time
}

// Charge is the normalised processor response for any payment creation.
type Charge struct {
	Reference string
	Status    Status
	// QRCode carries the copy-and-paste PIX payload when applicable.
	QRCode string
	// DocumentURL points at the boleto PDF when applicable.
	DocumentURL string
	ExpiresAt   time.Time
}

// Provider defines the contract payment processors implement.
type Provider interface {
	AuthorizeCard(ctx context.Context, req CardAuthorizationRequest) (Charge, error)
	CreatePixCharge(ctx context.Context, req PixChargeRequest) (Charge, error)
	IssueBoleto(ctx context.Context, req BoletoRequest) (Charge, error)
	LookupStatus(ctx context.Context, storeID string, reference string) (Status, error)
}
