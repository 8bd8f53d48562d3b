package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/lojafacil/api/internal/domain"
	"github.com/lojafacil/api/internal/payments"
	"github.com/lojafacil/api/internal/repositories"
)

const (
	defaultPollInterval = 5 * time.Second
	// defaultWatchWindow bounds a background watch. PIX charges expire well
	// inside this window; boleto settlement beyond it is picked up manually.
	defaultWatchWindow = 30 * time.Minute
)

// ErrWatchInvalidInput indicates the caller supplied invalid input parameters.
var ErrWatchInvalidInput = errors.New("payment watcher: invalid input")

// PaymentWatcherDeps wires the dependencies required by the payment watcher.
type PaymentWatcherDeps struct {
	Payments payments.Provider
	Orders   repositories.OrderRepository
	Interval time.Duration
	Window   time.Duration
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

// PaymentWatcher polls the processor for PIX/boleto confirmation and updates
// the order when a terminal status arrives. The loop is bound to the caller's
// context; cancelling it stops the polling without leaking the timer.
type PaymentWatcher struct {
	payments payments.Provider
	orders   repositories.OrderRepository
	interval time.Duration
	window   time.Duration
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewPaymentWatcher constructs a PaymentWatcher validating required dependencies.
func NewPaymentWatcher(deps PaymentWatcherDeps) (*PaymentWatcher, error) {
	if deps.Payments == nil {
		return nil, errors.New("payment watcher: payment provider is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("payment watcher: order repository is required")
	}

	interval := deps.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	window := deps.Window
	if window <= 0 {
		window = defaultWatchWindow
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &PaymentWatcher{
		payments: deps.Payments,
		orders:   deps.Orders,
		interval: interval,
		window:   window,
		logger:   logger,
	}, nil
}

// Start follows the charge in the background. The poll loop is detached from
// the caller's context, so finishing the HTTP request that submitted the
// order does not stop it; the watch window bounds the goroutine instead.
func (w *PaymentWatcher) Start(ctx context.Context, storeID string, orderID string, reference string) {
	if w == nil || w.payments == nil || w.orders == nil {
		return
	}

	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.window)
	go func() {
		defer cancel()
		if _, err := w.Watch(detached, storeID, orderID, reference); err != nil &&
			!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger(detached, "payment_watch_failed", map[string]any{
				"orderId": orderID,
				"error":   err.Error(),
			})
		}
	}()
}

// Watch polls until the charge reaches a terminal status or ctx is cancelled.
// It returns the final payment status; ctx.Err() is returned on cancellation.
func (w *PaymentWatcher) Watch(ctx context.Context, storeID string, orderID string, reference string) (payments.Status, error) {
	if w == nil || w.payments == nil || w.orders == nil {
		return "", errors.New("payment watcher not initialised")
	}
	if strings.TrimSpace(storeID) == "" || strings.TrimSpace(orderID) == "" || strings.TrimSpace(reference) == "" {
		return "", ErrWatchInvalidInput
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		status, err := w.payments.LookupStatus(ctx, storeID, reference)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", err
			}
			// Transient lookup failures keep the loop alive.
			w.logger(ctx, "payment_status_lookup_failed", map[string]any{
				"orderId": orderID,
				"error":   err.Error(),
			})
			continue
		}

		switch status {
		case payments.StatusApproved:
			if err := w.orders.UpdateStatus(ctx, storeID, orderID, domain.OrderStatusConfirmed); err != nil {
				return status, err
			}
			w.logger(ctx, "payment_confirmed", map[string]any{"orderId": orderID})
			return status, nil
		case payments.StatusDeclined, payments.StatusExpired:
			if err := w.orders.UpdateStatus(ctx, storeID, orderID, domain.OrderStatusCanceled); err != nil {
				return status, err
			}
			w.logger(ctx, "payment_not_completed", map[string]any{
				"orderId": orderID,
				"status":  string(status),
			})
			return status, nil
		}
	}
}
