package repositories

import (
	"context"

	domain "github.com/lojafacil/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Stores() StoreRepository
	Carts() CartRepository
	Coupons() CouponRepository
	ShippingRules() ShippingRuleRepository
	Orders() OrderRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// StoreRepository reads tenant profiles and their checkout policy.
type StoreRepository interface {
	FindByID(ctx context.Context, storeID string) (domain.Store, error)
}

// CartRepository persists one pending cart per customer per store.
type CartRepository interface {
	Get(ctx context.Context, storeID string, customerID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	Clear(ctx context.Context, storeID string, customerID string) error
}

// CouponRepository resolves coupon codes and records redemptions.
type CouponRepository interface {
	FindByCode(ctx context.Context, storeID string, code string) (domain.Coupon, error)
	HasUsage(ctx context.Context, storeID string, couponID string, customerEmail string) (bool, error)
	RecordUsage(ctx context.Context, usage domain.CouponUsage) error
}

// ShippingRuleRepository lists the store's local-courier pricing rules.
type ShippingRuleRepository interface {
	ListActive(ctx context.Context, storeID string) ([]domain.ShippingRule, error)
}

// OrderRepository persists order headers and their item lines.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	AppendItems(ctx context.Context, storeID string, orderID string, items []domain.OrderItem) error
	FindByID(ctx context.Context, storeID string, orderID string) (domain.Order, error)
	UpdateStatus(ctx context.Context, storeID string, orderID string, status domain.OrderStatus) error
}

// HealthRepository evaluates dependency probes for readiness reporting.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
