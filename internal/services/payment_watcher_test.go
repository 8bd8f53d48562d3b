package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/lojafacil/api/internal/domain"
	"github.com/lojafacil/api/internal/payments"
)

func newWatcher(t *testing.T, provider *stubPaymentProvider, orders *stubOrderRepository) *PaymentWatcher {
	t.Helper()
	watcher, err := NewPaymentWatcher(PaymentWatcherDeps{
		Payments: provider,
		Orders:   orders,
		Interval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewPaymentWatcher: %v", err)
	}
	return watcher
}

func TestWatcherConfirmsOrderOnApproval(t *testing.T) {
	provider := &stubPaymentProvider{
		statuses: []payments.Status{payments.StatusPending, payments.StatusPending, payments.StatusApproved},
	}
	orders := &stubOrderRepository{}
	watcher := newWatcher(t, provider, orders)

	status, err := watcher.Watch(context.Background(), "store-1", "ord_1", "pix_1")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if status != payments.StatusApproved {
		t.Fatalf("expected approved, got %s", status)
	}
	if len(orders.statusUpdates) != 1 || orders.statusUpdates[0] != domain.OrderStatusConfirmed {
		t.Fatalf("expected order confirmed, got %v", orders.statusUpdates)
	}
	if provider.statusCalls != 3 {
		t.Fatalf("expected 3 polls, got %d", provider.statusCalls)
	}
}

func TestWatcherCancelsOrderOnExpiry(t *testing.T) {
	provider := &stubPaymentProvider{
		statuses: []payments.Status{payments.StatusPending, payments.StatusExpired},
	}
	orders := &stubOrderRepository{}
	watcher := newWatcher(t, provider, orders)

	status, err := watcher.Watch(context.Background(), "store-1", "ord_1", "bol_1")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if status != payments.StatusExpired {
		t.Fatalf("expected expired, got %s", status)
	}
	if len(orders.statusUpdates) != 1 || orders.statusUpdates[0] != domain.OrderStatusCanceled {
		t.Fatalf("expected order canceled, got %v", orders.statusUpdates)
	}
}

func TestWatcherStopsOnContextCancellation(t *testing.T) {
	provider := &stubPaymentProvider{
		statuses: []payments.Status{payments.StatusPending},
	}
	orders := &stubOrderRepository{}
	watcher := newWatcher(t, provider, orders)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := watcher.Watch(ctx, "store-1", "ord_1", "pix_1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(orders.statusUpdates) != 0 {
		t.Fatalf("cancelled watch must not touch the order, got %v", orders.statusUpdates)
	}
}

func TestWatcherSurvivesTransientLookupFailures(t *testing.T) {
	provider := &stubPaymentProvider{
		statusErr: errors.New("gateway timeout"),
	}
	orders := &stubOrderRepository{}
	watcher := newWatcher(t, provider, orders)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	_, err := watcher.Watch(ctx, "store-1", "ord_1", "pix_1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline after retrying through failures, got %v", err)
	}
}

func TestWatcherStartSurvivesRequestCancellation(t *testing.T) {
	provider := &stubPaymentProvider{
		statuses: []payments.Status{payments.StatusApproved},
	}
	orders := &stubOrderRepository{updated: make(chan struct{}, 1)}
	watcher := newWatcher(t, provider, orders)

	// The submitting request finishes before the charge settles.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	watcher.Start(ctx, "store-1", "ord_1", "pix_1")

	select {
	case <-orders.updated:
	case <-time.After(time.Second):
		t.Fatalf("expected the background watch to confirm the order")
	}
	if orders.statusUpdates[0] != domain.OrderStatusConfirmed {
		t.Fatalf("expected order confirmed, got %v", orders.statusUpdates)
	}
	if orders.lastStatusArgs != [2]string{"store-1", "ord_1"} {
		t.Fatalf("unexpected update target %v", orders.lastStatusArgs)
	}
}

func TestWatcherValidatesInput(t *testing.T) {
	watcher := newWatcher(t, &stubPaymentProvider{statuses: []payments.Status{payments.StatusPending}}, &stubOrderRepository{})

	if _, err := watcher.Watch(context.Background(), "", "ord_1", "ref"); !errors.Is(err, ErrWatchInvalidInput) {
		t.Fatalf("expected ErrWatchInvalidInput, got %v", err)
	}
}
